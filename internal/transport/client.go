// Package transport implements the HTTP client for the conversion service:
// multipart file upload, job submission, authoritative status fetch and
// artifact download. Components depend on the API interface so tests can
// substitute a fake.
package transport

import (
	"context"
	"io"

	"github.com/convertweb/convertclient/internal/models"
)

// UploadFile is one file going into an upload batch.
type UploadFile struct {
	Name    string
	Content io.Reader
}

// UploadedFile is one (id, originalName) pair returned by the upload
// endpoint. Files absent from the response were rejected by the server.
type UploadedFile struct {
	ID           string `json:"id"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	ContentType  string `json:"contentType"`
}

// API is the surface of the remote conversion service the client consumes.
type API interface {
	// UploadFiles performs one multipart request carrying the whole batch
	// and returns the identities the server assigned.
	UploadFiles(ctx context.Context, files []UploadFile) ([]UploadedFile, error)

	// StartConversion submits the given file IDs for conversion and returns
	// the new job identifier. The conversion type is passed through opaquely.
	StartConversion(ctx context.Context, fileIDs []string, conversionType models.ConversionType) (string, error)

	// JobStatus fetches the authoritative final state of a job.
	JobStatus(ctx context.Context, jobID string) (models.JobResult, error)

	// DownloadArtifact streams one converted artifact. The caller closes
	// the reader.
	DownloadArtifact(ctx context.Context, jobID, fileName string) (io.ReadCloser, error)
}
