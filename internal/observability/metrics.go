package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics collects client-side counters for the conversion workflow.
type Metrics struct {
	UploadBatches     prometheus.Counter
	UploadFailures    prometheus.Counter
	FilesUploaded     prometheus.Counter
	ProgressEvents    prometheus.Counter
	MalformedPayloads prometheus.Counter
	JobsSubmitted     prometheus.Counter
	JobsSuperseded    prometheus.Counter
	JobsResolved      prometheus.Counter
	JobsFailed        prometheus.Counter
}

// InitMetrics registers the workflow counters with the default Prometheus
// registry. Re-registration (useful for testing) reuses the existing
// collectors instead of failing.
func InitMetrics() *Metrics {
	return &Metrics{
		UploadBatches:     registerCounter("convertclient_upload_batches_total", "Upload batches sent to the service."),
		UploadFailures:    registerCounter("convertclient_upload_failures_total", "Upload batches that failed outright."),
		FilesUploaded:     registerCounter("convertclient_files_uploaded_total", "Files the service assigned an identity to."),
		ProgressEvents:    registerCounter("convertclient_progress_events_total", "Progress events received and rendered."),
		MalformedPayloads: registerCounter("convertclient_malformed_payloads_total", "Push payloads dropped as malformed."),
		JobsSubmitted:     registerCounter("convertclient_jobs_submitted_total", "Conversion jobs submitted."),
		JobsSuperseded:    registerCounter("convertclient_jobs_superseded_total", "Jobs abandoned by a newer submission."),
		JobsResolved:      registerCounter("convertclient_jobs_resolved_total", "Jobs whose final status was fetched."),
		JobsFailed:        registerCounter("convertclient_jobs_failed_total", "Jobs whose final status fetch failed."),
	}
}

func registerCounter(name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Counter)
		}
	}
	return c
}

// StartMetricsServer starts an HTTP server exposing /metrics and /health.
func StartMetricsServer(port string, logger *zap.Logger) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		logger.Info("starting metrics server", zap.String("port", port))
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}
