package orchestrator

import "github.com/convertweb/convertclient/internal/models"

// Listener receives the workflow notifications the presentation layer
// renders. Callbacks fire on the goroutine that produced the change and may
// be invoked while the orchestrator holds its state lock, so implementations
// must not call back into the orchestrator.
type Listener interface {
	// FilesChanged fires after any registry mutation (add, remove, clear,
	// upload identity attached).
	FilesChanged()

	// ProgressUpdated carries the latest progress snapshot for the active
	// job. The rendered percentage derives from current/total.
	ProgressUpdated(current, total int)

	// LogLine appends one human-readable line to the activity log.
	LogLine(msg string)

	// ResultsReady delivers the authoritative final result set of a job.
	ResultsReady(result models.JobResult)

	// PendingTimeout flags a file whose upload identity never arrived
	// within the configured window. Informational only.
	PendingTimeout(name string)
}

// NopListener discards all notifications. Embed it to implement only part
// of the Listener surface.
type NopListener struct{}

func (NopListener) FilesChanged()                      {}
func (NopListener) ProgressUpdated(current, total int) {}
func (NopListener) LogLine(msg string)                 {}
func (NopListener) ResultsReady(models.JobResult)      {}
func (NopListener) PendingTimeout(name string)         {}
