// Package transcribe talks to the external speech-to-text service. Audio
// over the service duration limit is split into chunks, transcribed
// independently, and re-stitched into one globally time-ordered sequence.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"lingocap/internal/config"
	"lingocap/internal/errs"
	"lingocap/internal/models"
	"lingocap/pkg/logger"
)

const serviceName = "transcription"

// Chunk is one slice of a longer audio file. Offset is the chunk's start
// within the original audio; returned segment times are shifted by it.
type Chunk struct {
	Path   string
	Offset float64
}

// Splitter slices audio into fixed-duration chunks. Implemented by the
// pipeline's extractor.
type Splitter interface {
	Split(ctx context.Context, audioPath string, chunkSeconds int) ([]Chunk, error)
}

type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	model        string
	chunkSeconds int
	maxRetries   uint64
	splitter     Splitter
	logger       logger.Logger
}

func NewClient(cfg *config.Config, apiKey string, splitter Splitter, log logger.Logger) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: time.Duration(cfg.Services.RequestTimeoutSec) * time.Second},
		baseURL:      cfg.Services.SpeechURL,
		apiKey:       apiKey,
		model:        cfg.Services.SpeechModel,
		chunkSeconds: cfg.Pipeline.ChunkSeconds,
		maxRetries:   uint64(cfg.Services.MaxRetries),
		splitter:     splitter,
		logger:       log,
	}
}

// Transcribe returns the time-ordered transcript segments for an audio
// file. duration selects whether the audio is chunked first.
func (c *Client) Transcribe(ctx context.Context, audioPath string, duration float64, langHint string) ([]models.TranscriptSegment, error) {
	chunks := []Chunk{{Path: audioPath, Offset: 0}}
	if c.splitter != nil && c.chunkSeconds > 0 && duration > float64(c.chunkSeconds) {
		split, err := c.splitter.Split(ctx, audioPath, c.chunkSeconds)
		if err != nil {
			return nil, err
		}
		chunks = split
		c.logger.Infof("transcribe: split %s into %d chunks", audioPath, len(chunks))
	}

	var all []models.TranscriptSegment
	for _, ch := range chunks {
		segs, err := c.transcribeChunk(ctx, ch.Path, langHint)
		if err != nil {
			return nil, err
		}
		for _, s := range segs {
			all = append(all, models.TranscriptSegment{
				Start: s.Start + ch.Offset,
				End:   s.End + ch.Offset,
				Text:  s.Text,
			})
		}
	}
	return restitch(all), nil
}

// restitch enforces global time order and removes the overlap chunk
// boundaries can introduce, without changing segment count or text.
func restitch(segs []models.TranscriptSegment) []models.TranscriptSegment {
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })
	for i := 1; i < len(segs); i++ {
		if segs[i].Start < segs[i-1].End {
			segs[i].Start = segs[i-1].End
			if segs[i].End < segs[i].Start {
				segs[i].End = segs[i].Start
			}
		}
	}
	return segs
}

type verboseResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (c *Client) transcribeChunk(ctx context.Context, path, langHint string) ([]models.TranscriptSegment, error) {
	var segs []models.TranscriptSegment
	operation := func() error {
		var err error
		segs, err = c.post(ctx, path, langHint)
		if err != nil && !errs.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return segs, nil
}

func (c *Client) post(ctx context.Context, path, langHint string) ([]models.TranscriptSegment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &errs.UnsupportedAudioError{Path: path, Reason: err.Error()}
	}
	defer file.Close() //nolint:errcheck

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", "audio.wav")
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = mw.WriteField("model", c.model)
		}
		if err == nil {
			err = mw.WriteField("response_format", "verbose_json")
		}
		if err == nil && langHint != "" {
			err = mw.WriteField("language", langHint)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err) //nolint:errcheck
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errs.TransientServiceError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, &errs.TransientServiceError{Service: serviceName, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &errs.AuthError{Service: serviceName}
	case resp.StatusCode == http.StatusBadRequest ||
		resp.StatusCode == http.StatusUnsupportedMediaType ||
		resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, &errs.UnsupportedAudioError{Path: path, Reason: firstBytes(body)}
	default:
		return nil, &errs.TransientServiceError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", firstBytes(body)),
		}
	}

	var vr verboseResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, &errs.TransientServiceError{Service: serviceName, Err: fmt.Errorf("decode response: %w", err)}
	}
	segs := make([]models.TranscriptSegment, 0, len(vr.Segments))
	for _, s := range vr.Segments {
		segs = append(segs, models.TranscriptSegment{Start: s.Start, End: s.End, Text: s.Text})
	}
	return segs, nil
}

func firstBytes(b []byte) string {
	const max = 256
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}
