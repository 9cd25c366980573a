// Package orchestrator drives the multi-file conversion workflow: staging
// selected files, uploading them, submitting a batch job, tracking pushed
// progress and resolving the final result. Only one job is active at a
// time; a monotonically increasing generation counter makes staleness of
// events a plain integer comparison.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/convertweb/convertclient/internal/models"
	"github.com/convertweb/convertclient/internal/observability"
	"github.com/convertweb/convertclient/internal/progress"
	"github.com/convertweb/convertclient/internal/registry"
	"github.com/convertweb/convertclient/internal/transport"
)

// FileSource couples a selected file with a way to open its content when
// the upload actually runs.
type FileSource struct {
	File models.SelectedFile
	Open func() (io.ReadCloser, error)
}

// PathSource builds a FileSource for a local file.
func PathSource(path string, info models.SelectedFile) FileSource {
	return FileSource{
		File: info,
		Open: func() (io.ReadCloser, error) { return openPath(path) },
	}
}

type Config struct {
	// MaxConcurrentUploads caps upload batches in flight at once.
	MaxConcurrentUploads int64
	// SettleDelay is the grace period between the completion event and the
	// authoritative status fetch. Best effort; the server stays the source
	// of truth for "actually done".
	SettleDelay time.Duration
}

type Orchestrator struct {
	cfg      Config
	api      transport.API
	channel  *progress.Channel
	reg      *registry.FileRegistry
	listener Listener
	logger   *zap.Logger
	metrics  *observability.Metrics
	tracer   trace.Tracer

	uploadSem *semaphore.Weighted
	uploads   sync.WaitGroup

	mu       sync.Mutex
	job      *models.ConversionJob
	state    models.JobState
	handle   *progress.Handle
	gen      uint64
	resolved bool
}

func New(cfg Config, api transport.API, channel *progress.Channel, reg *registry.FileRegistry,
	listener Listener, logger *zap.Logger, metrics *observability.Metrics, tracer trace.Tracer) *Orchestrator {

	if cfg.MaxConcurrentUploads <= 0 {
		cfg.MaxConcurrentUploads = 4
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = time.Second
	}
	return &Orchestrator{
		cfg:       cfg,
		api:       api,
		channel:   channel,
		reg:       reg,
		listener:  listener,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		uploadSem: semaphore.NewWeighted(cfg.MaxConcurrentUploads),
		state:     models.JobStateIdle,
	}
}

// Registry exposes the file registry for the presentation layer to poll.
func (o *Orchestrator) Registry() *registry.FileRegistry { return o.reg }

// State reports the lifecycle state of the current job.
func (o *Orchestrator) State() models.JobState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// ActiveJob returns a copy of the current job, or nil when idle.
func (o *Orchestrator) ActiveJob() *models.ConversionJob {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job == nil {
		return nil
	}
	j := *o.job
	return &j
}

// AddFiles stages the given sources and starts one asynchronous upload
// batch for the ones that were actually added. Files whose name is already
// registered are silently skipped (first selection wins). Returns the
// number of newly staged files.
func (o *Orchestrator) AddFiles(ctx context.Context, sources []FileSource) int {
	var accepted []FileSource
	for _, s := range sources {
		if o.reg.Add(s.File) {
			accepted = append(accepted, s)
		}
	}
	o.listener.FilesChanged()

	if len(accepted) > 0 {
		o.uploads.Add(1)
		go func() {
			defer o.uploads.Done()
			o.uploadBatch(ctx, accepted)
		}()
	}
	return len(accepted)
}

// RemoveFile drops the file at the given position in the current view.
// An in-flight upload for it is not cancelled; its eventual response
// reconciles against a registry that no longer contains the file, which is
// a defined no-op.
func (o *Orchestrator) RemoveFile(index int) {
	o.reg.Remove(index)
	o.listener.FilesChanged()
}

// ClearFiles empties the registry.
func (o *Orchestrator) ClearFiles() {
	o.reg.Clear()
	o.listener.FilesChanged()
}

// WaitForUploads blocks until every upload batch started so far resolved.
func (o *Orchestrator) WaitForUploads() {
	o.uploads.Wait()
}

// uploadBatch performs one multipart request for the batch and reconciles
// the response into the registry. Concurrent batches resolve independently
// and only touch the files they were given; markReady is idempotent, so no
// cross-batch coordination is needed.
func (o *Orchestrator) uploadBatch(ctx context.Context, sources []FileSource) {
	if err := o.uploadSem.Acquire(ctx, 1); err != nil {
		return
	}
	defer o.uploadSem.Release(1)

	ctx, span := o.tracer.Start(ctx, "upload_batch")
	defer span.End()

	batchID := uuid.NewString()
	log := o.logger.With(zap.String("batch_id", batchID))

	var batch []transport.UploadFile
	var closers []io.Closer
	sent := make(map[string]bool, len(sources))
	for _, s := range sources {
		rc, err := s.Open()
		if err != nil {
			log.Warn("cannot open file, it stays pending", zap.String("file", s.File.Name), zap.Error(err))
			o.listener.LogLine(fmt.Sprintf("Cannot read %s: %v", s.File.Name, err))
			continue
		}
		closers = append(closers, rc)
		batch = append(batch, transport.UploadFile{Name: s.File.Name, Content: rc})
		sent[s.File.Name] = true
	}
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	if len(batch) == 0 {
		return
	}

	o.metrics.UploadBatches.Inc()
	uploaded, err := o.api.UploadFiles(ctx, batch)
	if err != nil {
		o.metrics.UploadFailures.Inc()
		span.RecordError(err)
		log.Error("upload batch failed", zap.Int("files", len(batch)), zap.Error(err))
		// Affected files stay pending; nothing is rolled back and no
		// automatic retry happens.
		o.listener.LogLine(fmt.Sprintf("Upload failed: %v", err))
		return
	}

	for _, u := range uploaded {
		if !sent[u.OriginalName] {
			// Response rows for files outside this batch belong to a
			// concurrent upload; leave them to it.
			continue
		}
		o.reg.MarkReady(u.OriginalName, u.ID)
		o.metrics.FilesUploaded.Inc()
		delete(sent, u.OriginalName)
	}

	// Whatever is left was accepted into the batch but omitted from the
	// response: rejected server-side. The file stays pending until the
	// watchdog flags it.
	for name := range sent {
		log.Warn("file missing from upload response", zap.String("file", name))
	}

	log.Info("upload batch reconciled",
		zap.Int("sent", len(batch)),
		zap.Int("identified", len(uploaded)),
	)
	o.listener.FilesChanged()
}

// Submit collects the ready identities and starts a conversion job. A new
// job supersedes any previous one: the old subscription is torn down before
// the new one is created, so stale events can never render against the new
// job's progress.
func (o *Orchestrator) Submit(ctx context.Context, conversionType models.ConversionType) (string, error) {
	fileIDs := o.reg.ReadyIdentities()
	if len(fileIDs) == 0 {
		return "", ErrNoReadyFiles
	}

	ctx, span := o.tracer.Start(ctx, "submit_job")
	defer span.End()

	o.mu.Lock()
	if o.job == nil {
		o.state = models.JobStateSubmitting
	}
	o.mu.Unlock()

	jobID, err := o.api.StartConversion(ctx, fileIDs, conversionType)
	if err != nil {
		span.RecordError(err)
		o.logger.Error("conversion start failed", zap.Error(err))
		o.mu.Lock()
		if o.job == nil {
			o.state = models.JobStateIdle
		}
		o.mu.Unlock()
		// Prior job, if any, stays active and unaffected.
		o.listener.LogLine(fmt.Sprintf("Could not start conversion: %v", err))
		return "", err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// Supersede the old job before anything of the new one goes live.
	o.gen++
	gen := o.gen
	if o.handle != nil {
		o.handle.Unsubscribe()
		o.handle = nil
		o.metrics.JobsSuperseded.Inc()
		o.logger.Info("superseding active job", zap.String("old_job_id", o.job.JobID), zap.String("job_id", jobID))
	}

	o.job = &models.ConversionJob{
		JobID:          jobID,
		ConversionType: conversionType,
		FileIDs:        append([]string(nil), fileIDs...),
		Generation:     gen,
	}
	o.resolved = false

	handle, err := o.channel.Subscribe(jobID,
		func(ev models.ProgressEvent) { o.onProgress(gen, ev) },
		func(ev models.CompletionEvent) { o.onCompletion(gen, ev) },
	)
	if err != nil {
		span.RecordError(err)
		o.job = nil
		o.state = models.JobStateIdle
		return "", fmt.Errorf("%w: %v", transport.ErrSubmission, err)
	}
	o.handle = handle
	o.state = models.JobStateActive
	o.metrics.JobsSubmitted.Inc()

	o.logger.Info("conversion job started",
		zap.String("job_id", jobID),
		zap.String("conversion_type", string(conversionType)),
		zap.Int("files", len(fileIDs)),
	)
	o.listener.LogLine("Starting conversion...")
	o.listener.ProgressUpdated(0, len(fileIDs))
	return jobID, nil
}

// onProgress renders one progress snapshot. The staleness check and the
// emit happen under the state lock, so a concurrent Submit cannot supersede
// the job in between.
func (o *Orchestrator) onProgress(gen uint64, ev models.ProgressEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.job == nil || o.job.Generation != gen || o.job.JobID != ev.JobID {
		return
	}

	o.listener.ProgressUpdated(ev.Current, ev.Total)
	switch ev.Status {
	case models.FileStatusSuccess:
		o.listener.LogLine(fmt.Sprintf("%s - converted", ev.FileName))
	case models.FileStatusFailed:
		o.listener.LogLine(fmt.Sprintf("%s - conversion failed", ev.FileName))
	default:
		o.listener.LogLine(fmt.Sprintf("Converting: %s", ev.FileName))
	}
}

func (o *Orchestrator) onCompletion(gen uint64, ev models.CompletionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.job == nil || o.job.Generation != gen {
		return
	}

	o.state = models.JobStateCompleting
	o.listener.LogLine(ev.Message)
	o.logger.Info("job completed, scheduling resolution",
		zap.String("job_id", o.job.JobID),
		zap.Duration("settle_delay", o.cfg.SettleDelay),
	)

	time.AfterFunc(o.cfg.SettleDelay, func() { o.resolve(gen) })
}

// resolve performs the single authoritative status fetch for the job that
// completed under gen. Runs at most once per job; a job superseded while
// the fetch was in flight discards the result.
func (o *Orchestrator) resolve(gen uint64) {
	o.mu.Lock()
	if o.job == nil || o.job.Generation != gen || o.resolved {
		o.mu.Unlock()
		return
	}
	o.resolved = true
	jobID := o.job.JobID
	o.mu.Unlock()

	ctx, span := o.tracer.Start(context.Background(), "resolve_job")
	defer span.End()

	result, err := o.api.JobStatus(ctx, jobID)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job == nil || o.job.Generation != gen {
		return
	}

	if err != nil {
		span.RecordError(err)
		o.state = models.JobStateFailed
		o.metrics.JobsFailed.Inc()
		o.logger.Error("status resolution failed", zap.String("job_id", jobID), zap.Error(err))
		o.listener.LogLine(fmt.Sprintf("Could not fetch results: %v", err))
		return
	}

	o.state = models.JobStateResolved
	o.metrics.JobsResolved.Inc()
	o.logger.Info("job resolved",
		zap.String("job_id", jobID),
		zap.Int("converted", result.SuccessCount()),
		zap.Int("failed", result.FailureCount()),
	)
	for _, e := range result.Errors {
		o.listener.LogLine(e)
	}
	o.listener.ResultsReady(result)
}
