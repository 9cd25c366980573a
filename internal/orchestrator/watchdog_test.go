package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/convertweb/convertclient/internal/models"
	"github.com/convertweb/convertclient/internal/registry"
)

type timeoutRecorder struct {
	NopListener
	names []string
}

func (r *timeoutRecorder) PendingTimeout(name string) {
	r.names = append(r.names, name)
}

func TestWatchdogFlagsStuckFileOnce(t *testing.T) {
	reg := registry.New()
	reg.Add(models.SelectedFile{Name: "a.docx"})

	rec := &timeoutRecorder{}
	w := NewPendingWatchdog(WatchdogConfig{PendingTimeout: 10 * time.Second}, reg, rec, zaptest.NewLogger(t))

	now := time.Now()
	w.check(now)
	assert.Empty(t, rec.names, "first sighting only starts the window")

	w.check(now.Add(5 * time.Second))
	assert.Empty(t, rec.names)

	w.check(now.Add(11 * time.Second))
	require.Equal(t, []string{"a.docx"}, rec.names)

	// Still pending, already flagged: no duplicate notification.
	w.check(now.Add(20 * time.Second))
	assert.Equal(t, []string{"a.docx"}, rec.names)
}

func TestWatchdogForgetsResolvedFiles(t *testing.T) {
	reg := registry.New()
	reg.Add(models.SelectedFile{Name: "a.docx"})

	rec := &timeoutRecorder{}
	w := NewPendingWatchdog(WatchdogConfig{PendingTimeout: 10 * time.Second}, reg, rec, zaptest.NewLogger(t))

	now := time.Now()
	w.check(now)

	reg.MarkReady("a.docx", "f1")
	w.check(now.Add(11 * time.Second))
	assert.Empty(t, rec.names, "identified files are off the books")

	// Removed and re-added later: the window restarts.
	reg.Clear()
	reg.Add(models.SelectedFile{Name: "a.docx"})
	w.check(now.Add(30 * time.Second))
	w.check(now.Add(35 * time.Second))
	assert.Empty(t, rec.names)
	w.check(now.Add(41 * time.Second))
	assert.Equal(t, []string{"a.docx"}, rec.names)
}
