// Package progress maintains a live, job-scoped subscription to the
// per-file progress and completion topics of the push channel, and
// normalizes raw payloads into the client's event model.
package progress

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/convertweb/convertclient/internal/models"
	"github.com/convertweb/convertclient/internal/observability"
	"github.com/convertweb/convertclient/internal/push"
)

// Channel subscribes to the two logical topics of one job at a time.
type Channel struct {
	sub     push.Subscriber
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewChannel(sub push.Subscriber, logger *zap.Logger, metrics *observability.Metrics) *Channel {
	return &Channel{sub: sub, logger: logger, metrics: metrics}
}

// progressPayload mirrors the wire shape published on progress/{jobId}.
// Percentage is informational; the client derives its own from the snapshot.
type progressPayload struct {
	JobID      string  `json:"jobId"`
	Current    *int    `json:"current"`
	Total      *int    `json:"total"`
	FileName   string  `json:"fileName"`
	Status     string  `json:"status"`
	Percentage float64 `json:"percentage"`
}

// completionPayload mirrors the wire shape published on completion/{jobId}.
type completionPayload struct {
	JobID        string `json:"jobId"`
	Message      string `json:"message"`
	SuccessCount int    `json:"successCount"`
	FailureCount int    `json:"failureCount"`
}

// Handle tears down both topic subscriptions of one job. Unsubscribe is
// idempotent.
type Handle struct {
	once       sync.Once
	progress   push.Subscription
	completion push.Subscription
}

func (h *Handle) Unsubscribe() {
	h.once.Do(func() {
		h.progress.Unsubscribe()
		h.completion.Unsubscribe()
	})
}

// Subscribe establishes subscriptions for jobID. Malformed payloads are
// dropped with a logged warning instead of propagating. The transport may
// deliver progress events out of order; each event is a complete snapshot,
// so no reordering is attempted. After the first completion event the
// progress subscription is torn down and further completions are ignored.
func (c *Channel) Subscribe(jobID string, onProgress func(models.ProgressEvent), onCompletion func(models.CompletionEvent)) (*Handle, error) {
	h := &Handle{}
	var completionOnce sync.Once

	progressSub, err := c.sub.Subscribe("progress/"+jobID, func(payload []byte) {
		ev, err := c.parseProgress(jobID, payload)
		if err != nil {
			c.dropPayload("progress", jobID, payload, err)
			return
		}
		c.metrics.ProgressEvents.Inc()
		onProgress(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to progress topic: %w", err)
	}
	// Assigned before the completion topic goes live: its handler tears
	// down the progress subscription.
	h.progress = progressSub

	completionSub, err := c.sub.Subscribe("completion/"+jobID, func(payload []byte) {
		var p completionPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			c.dropPayload("completion", jobID, payload, err)
			return
		}
		completionOnce.Do(func() {
			// Completion implies no further progress events are meaningful.
			h.progress.Unsubscribe()
			onCompletion(models.CompletionEvent{JobID: jobID, Message: p.Message})
		})
	})
	if err != nil {
		progressSub.Unsubscribe()
		return nil, fmt.Errorf("subscribing to completion topic: %w", err)
	}

	h.completion = completionSub
	return h, nil
}

func (c *Channel) parseProgress(jobID string, payload []byte) (models.ProgressEvent, error) {
	var p progressPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return models.ProgressEvent{}, err
	}
	if p.Current == nil || p.Total == nil {
		return models.ProgressEvent{}, fmt.Errorf("missing current/total")
	}
	if *p.Total <= 0 || *p.Current < 0 || *p.Current > *p.Total {
		return models.ProgressEvent{}, fmt.Errorf("counts out of range: current=%d total=%d", *p.Current, *p.Total)
	}
	if p.FileName == "" {
		return models.ProgressEvent{}, fmt.Errorf("missing fileName")
	}

	status := models.FileStatus(p.Status)
	switch status {
	case models.FileStatusSuccess, models.FileStatusFailed:
	default:
		// Unknown statuses render as "still converting", matching the
		// service's own loose contract.
		status = models.FileStatusProcessing
	}

	return models.ProgressEvent{
		JobID:    jobID,
		Current:  *p.Current,
		Total:    *p.Total,
		FileName: p.FileName,
		Status:   status,
	}, nil
}

func (c *Channel) dropPayload(topic, jobID string, payload []byte, err error) {
	c.metrics.MalformedPayloads.Inc()
	c.logger.Warn("dropping malformed push payload",
		zap.String("topic", topic),
		zap.String("job_id", jobID),
		zap.ByteString("payload", payload),
		zap.Error(err),
	)
}
