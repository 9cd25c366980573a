package progress_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/convertweb/convertclient/internal/models"
	"github.com/convertweb/convertclient/internal/observability"
	"github.com/convertweb/convertclient/internal/progress"
	"github.com/convertweb/convertclient/internal/push"
)

// fakeSubscriber delivers published payloads synchronously to registered
// handlers.
type fakeSubscriber struct {
	mu           sync.Mutex
	handlers     map[string]push.Handler
	unsubscribed []string
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: map[string]push.Handler{}}
}

func (f *fakeSubscriber) Subscribe(topic string, h push.Handler) (push.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = h
	return &fakeSubscription{parent: f, topic: topic}, nil
}

func (f *fakeSubscriber) Close() error { return nil }

func (f *fakeSubscriber) publish(topic, payload string) {
	f.mu.Lock()
	h := f.handlers[topic]
	f.mu.Unlock()
	if h != nil {
		h([]byte(payload))
	}
}

func (f *fakeSubscriber) isSubscribed(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[topic]
	return ok
}

type fakeSubscription struct {
	parent *fakeSubscriber
	topic  string
}

func (s *fakeSubscription) Unsubscribe() {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	delete(s.parent.handlers, s.topic)
	s.parent.unsubscribed = append(s.parent.unsubscribed, s.topic)
}

func newChannel(t *testing.T, sub push.Subscriber) *progress.Channel {
	t.Helper()
	return progress.NewChannel(sub, zaptest.NewLogger(t), observability.InitMetrics())
}

func TestSubscribeDeliversNormalizedEvents(t *testing.T) {
	sub := newFakeSubscriber()
	ch := newChannel(t, sub)

	var events []models.ProgressEvent
	handle, err := ch.Subscribe("job-1",
		func(ev models.ProgressEvent) { events = append(events, ev) },
		func(models.CompletionEvent) {},
	)
	require.NoError(t, err)
	defer handle.Unsubscribe()

	sub.publish("progress/job-1", `{"jobId":"job-1","current":1,"total":2,"fileName":"a.docx","status":"success"}`)
	sub.publish("progress/job-1", `{"jobId":"job-1","current":2,"total":2,"fileName":"b.jpg","status":"failed"}`)

	require.Len(t, events, 2)
	assert.Equal(t, models.ProgressEvent{JobID: "job-1", Current: 1, Total: 2, FileName: "a.docx", Status: models.FileStatusSuccess}, events[0])
	assert.Equal(t, models.FileStatusFailed, events[1].Status)
}

func TestUnknownStatusNormalizesToProcessing(t *testing.T) {
	sub := newFakeSubscriber()
	ch := newChannel(t, sub)

	var events []models.ProgressEvent
	handle, err := ch.Subscribe("job-1",
		func(ev models.ProgressEvent) { events = append(events, ev) },
		func(models.CompletionEvent) {},
	)
	require.NoError(t, err)
	defer handle.Unsubscribe()

	sub.publish("progress/job-1", `{"current":1,"total":3,"fileName":"a.docx","status":"queued"}`)

	require.Len(t, events, 1)
	assert.Equal(t, models.FileStatusProcessing, events[0].Status)
}

func TestMalformedPayloadsAreDropped(t *testing.T) {
	sub := newFakeSubscriber()
	ch := newChannel(t, sub)

	var events []models.ProgressEvent
	handle, err := ch.Subscribe("job-1",
		func(ev models.ProgressEvent) { events = append(events, ev) },
		func(models.CompletionEvent) {},
	)
	require.NoError(t, err)
	defer handle.Unsubscribe()

	sub.publish("progress/job-1", `not json`)
	sub.publish("progress/job-1", `{"fileName":"a.docx","status":"success"}`)                        // missing counts
	sub.publish("progress/job-1", `{"current":4,"total":3,"fileName":"a.docx","status":"success"}`)  // current > total
	sub.publish("progress/job-1", `{"current":-1,"total":3,"fileName":"a.docx","status":"success"}`) // negative
	sub.publish("progress/job-1", `{"current":1,"total":0,"fileName":"a.docx","status":"success"}`)  // zero total
	sub.publish("progress/job-1", `{"current":1,"total":3,"status":"success"}`)                      // missing fileName

	assert.Empty(t, events, "malformed payloads must not propagate")
}

func TestCompletionUnsubscribesProgress(t *testing.T) {
	sub := newFakeSubscriber()
	ch := newChannel(t, sub)

	var completions []models.CompletionEvent
	var events []models.ProgressEvent
	handle, err := ch.Subscribe("job-1",
		func(ev models.ProgressEvent) { events = append(events, ev) },
		func(ev models.CompletionEvent) { completions = append(completions, ev) },
	)
	require.NoError(t, err)
	defer handle.Unsubscribe()

	sub.publish("completion/job-1", `{"jobId":"job-1","message":"Done"}`)

	require.Len(t, completions, 1)
	assert.Equal(t, "Done", completions[0].Message)
	assert.False(t, sub.isSubscribed("progress/job-1"))

	// Progress after completion is meaningless and must not arrive.
	sub.publish("progress/job-1", `{"current":1,"total":2,"fileName":"a.docx","status":"success"}`)
	assert.Empty(t, events)

	// A duplicate completion is ignored.
	sub.publish("completion/job-1", `{"jobId":"job-1","message":"Done again"}`)
	assert.Len(t, completions, 1)
}

func TestHandleUnsubscribeIsIdempotent(t *testing.T) {
	sub := newFakeSubscriber()
	ch := newChannel(t, sub)

	handle, err := ch.Subscribe("job-1",
		func(models.ProgressEvent) {},
		func(models.CompletionEvent) {},
	)
	require.NoError(t, err)

	handle.Unsubscribe()
	handle.Unsubscribe()
	handle.Unsubscribe()

	assert.ElementsMatch(t, []string{"progress/job-1", "completion/job-1"}, sub.unsubscribed)
}
