package models

import "time"

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusPartial    JobStatus = "partial"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether a job in this status will not change again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusPartial || s == JobStatusFailed
}

type PipelineStage string

const (
	StageFetch      PipelineStage = "fetch"
	StageExtract    PipelineStage = "extract"
	StageTranscribe PipelineStage = "transcribe"
	StageTranslate  PipelineStage = "translate"
	StageAssemble   PipelineStage = "assemble"
	StageDeliver    PipelineStage = "deliver"
)

// CaptionJob is one request to caption a specific video in a specific
// target language. It is owned by the pipeline while running and read by
// the delivery layer through status polling.
type CaptionJob struct {
	JobID      string        `json:"job_id" redis:"job_id" validate:"omitempty"`
	VideoID    string        `json:"video_id" redis:"video_id" validate:"required"`
	SourceURL  string        `json:"source_url" redis:"source_url" validate:"required,url"`
	TargetLang string        `json:"target_lang" redis:"target_lang" validate:"required,lte=12"`
	SourceLang string        `json:"source_lang,omitempty" redis:"source_lang" validate:"omitempty,lte=12"`
	Stage      PipelineStage `json:"stage" redis:"stage"`
	Status     JobStatus     `json:"status" redis:"status"`
	Progress   float64       `json:"progress" redis:"progress"`
	Error      string        `json:"error,omitempty" redis:"error"`
	CreatedAt  time.Time     `json:"created_at" redis:"created_at"`
	StartedAt  time.Time     `json:"started_at,omitempty" redis:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitempty" redis:"finished_at"`
}

// PairKey identifies the (video, language) pair a job serves. Concurrent
// requests for the same pair collapse onto one job keyed by this value.
func (j *CaptionJob) PairKey() string {
	return j.VideoID + ":" + j.TargetLang
}

// CaptionRequest is the incoming playback request payload.
type CaptionRequest struct {
	URL        string `json:"url" validate:"required"`
	TargetLang string `json:"target_lang" validate:"required,lte=12"`
	SourceLang string `json:"source_lang,omitempty" validate:"omitempty,lte=12"`
}
