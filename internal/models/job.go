package models

// FileStatus is the per-file state reported by a progress event.
type FileStatus string

const (
	FileStatusProcessing FileStatus = "processing"
	FileStatusSuccess    FileStatus = "success"
	FileStatusFailed     FileStatus = "failed"
)

// JobState tracks the lifecycle of one conversion job on the client side.
type JobState string

const (
	JobStateIdle       JobState = "idle"
	JobStateSubmitting JobState = "submitting"
	JobStateActive     JobState = "active"
	JobStateCompleting JobState = "completing"
	JobStateResolved   JobState = "resolved"
	JobStateFailed     JobState = "failed"
	JobStateSuperseded JobState = "superseded"
)

// ConversionJob is one in-flight server-side batch conversion. FileIDs is a
// snapshot taken at submission time and never changes afterwards.
type ConversionJob struct {
	JobID          string
	ConversionType ConversionType
	FileIDs        []string
	// Generation increases monotonically with every submission; events
	// carrying an older generation belong to a superseded job.
	Generation uint64
}

// ProgressEvent is one normalized push notification for a running job.
// Current/Total form a complete snapshot, not a delta: the latest received
// event fully describes the job's progress.
type ProgressEvent struct {
	JobID    string
	Current  int
	Total    int
	FileName string
	Status   FileStatus
}

// Percentage returns the rendered progress value for this snapshot.
func (e ProgressEvent) Percentage() int {
	if e.Total <= 0 {
		return 0
	}
	return e.Current * 100 / e.Total
}

// CompletionEvent is the terminal notification for a job. No further
// progress events are meaningful once it arrives.
type CompletionEvent struct {
	JobID   string
	Message string
}

// JobResult is the authoritative final state fetched after completion.
// Error order is not guaranteed to match input order.
type JobResult struct {
	JobID          string
	Message        string
	ConvertedFiles []string
	Errors         []string
}

func (r JobResult) SuccessCount() int { return len(r.ConvertedFiles) }
func (r JobResult) FailureCount() int { return len(r.Errors) }

func (r JobResult) IsCompleteSuccess() bool {
	return r.FailureCount() == 0 && r.SuccessCount() > 0
}

func (r JobResult) IsPartialSuccess() bool {
	return r.SuccessCount() > 0 && r.FailureCount() > 0
}

func (r JobResult) IsCompleteFailure() bool {
	return r.SuccessCount() == 0 && r.FailureCount() > 0
}
