package models

// MediaArtifact is one stage's cached output file. Artifacts are written
// once and superseded, never mutated in place.
type MediaArtifact struct {
	Path    string        `json:"path"`
	Key     string        `json:"key"`
	Stage   PipelineStage `json:"stage"`
	VideoID string        `json:"video_id"`
}
