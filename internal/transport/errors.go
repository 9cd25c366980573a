package transport

import "errors"

var (
	// ErrUpload covers network or server failures during an upload batch.
	// Affected files stay pending; nothing is rolled back.
	ErrUpload = errors.New("upload failed")

	// ErrSubmission covers failures of the job-start request. No job is
	// created and any prior job stays active.
	ErrSubmission = errors.New("conversion start failed")

	// ErrResolution covers failures of the final status fetch.
	ErrResolution = errors.New("status fetch failed")

	// ErrJobNotFound is returned when the service does not know the job.
	ErrJobNotFound = errors.New("job not found")

	// ErrDownload covers failures while fetching a converted artifact.
	ErrDownload = errors.New("artifact download failed")
)
