// Package translate maps transcript segments to caption entries through
// the external translation service. The mapping is strictly 1:1: batching
// never reorders, merges, or drops segments, and a segment whose
// translation cannot be obtained keeps its source text instead of leaving
// a timing gap.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"lingocap/internal/config"
	"lingocap/internal/errs"
	"lingocap/internal/models"
	"lingocap/pkg/logger"
)

const serviceName = "translation"

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	batchSize  int
	maxRetries uint64
	logger     logger.Logger
}

func NewClient(cfg *config.Config, apiKey string, log logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(cfg.Services.RequestTimeoutSec) * time.Second},
		baseURL:    cfg.Services.TranslateURL,
		apiKey:     apiKey,
		batchSize:  cfg.Services.BatchSize,
		maxRetries: uint64(cfg.Services.MaxRetries),
		logger:     log,
	}
}

// Translate returns one caption entry per segment, in order, with timing
// copied verbatim. The bool result reports whether any entry fell back to
// source-language text after retries were exhausted.
func (c *Client) Translate(ctx context.Context, segs []models.TranscriptSegment, sourceLang, targetLang string) ([]models.CaptionEntry, bool, error) {
	entries := make([]models.CaptionEntry, len(segs))
	for i, s := range segs {
		entries[i] = models.CaptionEntry{Start: s.Start, End: s.End, Text: s.Text}
	}

	degraded := false
	for lo := 0; lo < len(segs); lo += c.batchSize {
		hi := lo + c.batchSize
		if hi > len(segs) {
			hi = len(segs)
		}
		texts := make([]string, 0, hi-lo)
		for _, s := range segs[lo:hi] {
			texts = append(texts, s.Text)
		}

		translated, err := c.translateBatch(ctx, texts, sourceLang, targetLang)
		if err == nil && len(translated) == len(texts) {
			for k, t := range translated {
				entries[lo+k].Text = t
			}
			continue
		}
		if err != nil && !errs.IsTransient(err) {
			// Auth and other fatal failures cannot be healed per segment.
			return nil, false, err
		}

		// Batch failed (or came back with the wrong cardinality): retry
		// each segment on its own, falling back to source text.
		c.logger.Warnf("translate: batch %d-%d failed, retrying per segment: %v", lo, hi, err)
		for k := lo; k < hi; k++ {
			single, serr := c.translateBatch(ctx, []string{segs[k].Text}, sourceLang, targetLang)
			if serr != nil || len(single) != 1 {
				if serr != nil && !errs.IsTransient(serr) {
					return nil, false, serr
				}
				entries[k].Degraded = true
				degraded = true
				continue
			}
			entries[k].Text = single[0]
		}
	}
	return entries, degraded, nil
}

type translateRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
	APIKey string   `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText []string `json:"translatedText"`
}

func (c *Client) translateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	var out []string
	operation := func() error {
		var err error
		out, err = c.post(ctx, texts, sourceLang, targetLang)
		if err != nil && !errs.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	if sourceLang == "" {
		sourceLang = "auto"
	}
	payload, err := json.Marshal(translateRequest{
		Q:      texts,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
		APIKey: c.apiKey,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errs.TransientServiceError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &errs.TransientServiceError{Service: serviceName, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &errs.AuthError{Service: serviceName}
	default:
		return nil, &errs.TransientServiceError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%.256s", string(body)),
		}
	}

	var tr translateResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &errs.TransientServiceError{Service: serviceName, Err: fmt.Errorf("decode response: %w", err)}
	}
	return tr.TranslatedText, nil
}
