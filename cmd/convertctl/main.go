package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/convertweb/convertclient/internal/config"
	"github.com/convertweb/convertclient/internal/models"
	"github.com/convertweb/convertclient/internal/observability"
	"github.com/convertweb/convertclient/internal/orchestrator"
	"github.com/convertweb/convertclient/internal/progress"
	"github.com/convertweb/convertclient/internal/push"
	"github.com/convertweb/convertclient/internal/registry"
	"github.com/convertweb/convertclient/internal/storage"
	"github.com/convertweb/convertclient/internal/transport"
)

// cliListener renders workflow notifications to stdout and hands the final
// result back to main.
type cliListener struct {
	orchestrator.NopListener
	results chan models.JobResult
}

func (l *cliListener) ProgressUpdated(current, total int) {
	if total > 0 {
		fmt.Printf("Progress: %d%% (%d/%d)\n", current*100/total, current, total)
	}
}

func (l *cliListener) LogLine(msg string) {
	fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05"), msg)
}

func (l *cliListener) ResultsReady(result models.JobResult) {
	select {
	case l.results <- result:
	default:
	}
}

func (l *cliListener) PendingTimeout(name string) {
	fmt.Printf("! %s has been uploading for too long, it may have been rejected\n", name)
}

func main() {
	convType := flag.String("type", string(models.WordToPDF),
		"conversion type: wordToPdf | imageToPdf | mergeImagesToPdf | mergeWordsToPdf")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall deadline for the conversion")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: convertctl [-type T] file...")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := observability.InitLogger(cfg.Dev)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	metrics := observability.InitMetrics()
	if cfg.MetricsPort != "" {
		observability.StartMetricsServer(cfg.MetricsPort, logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	tp, err := observability.InitTracerProvider(ctx, logger)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	defer observability.ShutdownTracerProvider(context.Background(), tp, logger)

	api := transport.NewHTTPClient(cfg.ServerURL, nil, logger)

	subscriber, err := push.NewWebsocketSubscriber(cfg.PushURL, logger)
	if err != nil {
		log.Fatalf("push channel: %v", err)
	}
	defer subscriber.Close()

	listener := &cliListener{results: make(chan models.JobResult, 1)}
	reg := registry.New()
	channel := progress.NewChannel(subscriber, logger, metrics)

	orch := orchestrator.New(orchestrator.Config{
		MaxConcurrentUploads: cfg.MaxConcurrentUploads,
		SettleDelay:          cfg.SettleDelay,
	}, api, channel, reg, listener, logger, metrics, observability.Tracer(tp))

	watchdog := orchestrator.NewPendingWatchdog(orchestrator.WatchdogConfig{
		PollInterval:   cfg.PendingPollInterval,
		PendingTimeout: cfg.PendingTimeout,
	}, reg, listener, logger)
	watchdog.Start(ctx)
	defer watchdog.Stop()

	// Stage the files and kick off the upload batch.
	conversionType := models.ConversionType(*convType)
	var sources []orchestrator.FileSource
	for _, path := range flag.Args() {
		src, err := orchestrator.StatSource(path)
		if err != nil {
			log.Fatalf("cannot stat %s: %v", path, err)
		}
		if !conversionType.SupportsExtension(src.File.Extension()) {
			fmt.Printf("! %s: %s does not support %q files\n",
				src.File.Name, conversionType.DisplayName(), src.File.Extension())
		}
		sources = append(sources, src)
	}

	fmt.Printf("Uploading %d file(s)...\n", orch.AddFiles(ctx, sources))
	orch.WaitForUploads()

	jobID, err := orch.Submit(ctx, conversionType)
	if err != nil {
		log.Fatalf("submit: %v", err)
	}
	fmt.Printf("Job %s started (%s)\n", jobID, conversionType.DisplayName())

	result, ok := awaitResult(ctx, orch, listener.results)
	if !ok {
		log.Fatalf("job %s did not resolve", jobID)
	}

	printResult(result)
	downloadArtifacts(ctx, api, result, cfg.OutputDir, logger)
}

// awaitResult waits for the final result set, giving up when the job lands
// in the failed state or the deadline passes.
func awaitResult(ctx context.Context, orch *orchestrator.Orchestrator, results <-chan models.JobResult) (models.JobResult, bool) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case r := <-results:
			return r, true
		case <-ticker.C:
			if orch.State() == models.JobStateFailed {
				return models.JobResult{}, false
			}
		case <-ctx.Done():
			return models.JobResult{}, false
		}
	}
}

func printResult(result models.JobResult) {
	fmt.Println()
	if result.Message != "" {
		fmt.Println(result.Message)
	}
	switch {
	case result.IsCompleteSuccess():
		fmt.Printf("All %d file(s) converted.\n", result.SuccessCount())
	case result.IsPartialSuccess():
		fmt.Printf("%d converted, %d failed.\n", result.SuccessCount(), result.FailureCount())
	case result.IsCompleteFailure():
		fmt.Printf("All %d file(s) failed.\n", result.FailureCount())
	}
	for _, e := range result.Errors {
		fmt.Printf("  error: %s\n", e)
	}
}

func downloadArtifacts(ctx context.Context, api transport.API, result models.JobResult, outputDir string, logger *zap.Logger) {
	if len(result.ConvertedFiles) == 0 {
		return
	}

	store := storage.NewFilesystemStore(outputDir)
	for _, name := range result.ConvertedFiles {
		rc, err := api.DownloadArtifact(ctx, result.JobID, name)
		if err != nil {
			logger.Error("download failed", zap.String("file", name), zap.Error(err))
			fmt.Printf("  download failed: %s: %v\n", name, err)
			continue
		}
		path, err := store.SaveArtifact(result.JobID, name, rc)
		rc.Close()
		if err != nil {
			logger.Error("saving artifact failed", zap.String("file", name), zap.Error(err))
			fmt.Printf("  save failed: %s: %v\n", name, err)
			continue
		}
		fmt.Printf("  saved %s\n", path)
	}
}
