package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"pomosync"
	"pomosync/timer"
)

// HTTPRecorder posts completed work phases to the daemon's REST surface.
type HTTPRecorder struct {
	baseURL string
	token   string
	cl      *http.Client
	l       *log.Logger
}

var _ timer.Recorder = (*HTTPRecorder)(nil)

func NewHTTPRecorder(baseURL, token string, logger *log.Logger) *HTTPRecorder {
	if logger == nil {
		logger = log.Default()
	}
	return &HTTPRecorder{
		baseURL: baseURL,
		token:   token,
		cl:      &http.Client{Timeout: 20 * time.Second},
		l:       logger,
	}
}

func (r *HTTPRecorder) Record(ctx context.Context, spec timer.EntrySpec) error {
	body := pomosync.TimeEntryRequest{
		ProjectID:      spec.ProjectID,
		TaskID:         spec.TaskID,
		IdempotencyKey: spec.IdempotencyKey,
		StartTime:      spec.StartedAt,
		EndTime:        spec.EndedAt,
		DurationMS:     spec.Duration.Milliseconds(),
		Notes:          spec.Notes,
		Tags:           spec.Tags,
		IsRunning:      false,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal time entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/entries", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.cl.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post time entry: %w", err)
	}
	defer resp.Body.Close() //nolint

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("time entry rejected: %s", resp.Status)
	}
	r.l.Debug("time entry recorded", "projectID", spec.ProjectID, "duration", spec.Duration)
	return nil
}
