package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/convertweb/convertclient/internal/models"
)

const defaultTimeout = 30 * time.Second

// HTTPClient talks to the conversion service over its REST endpoints.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewHTTPClient builds a client for the service at baseURL. The request
// chain gets request-ID and logging round-trippers; pass a nil transport to
// use http.DefaultTransport underneath.
func NewHTTPClient(baseURL string, rt http.RoundTripper, logger *zap.Logger) *HTTPClient {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: Chain(rt, RequestID(), Logging(logger)),
		},
		logger: logger,
	}
}

type uploadResponse struct {
	Success       bool           `json:"success"`
	UploadedFiles []UploadedFile `json:"uploadedFiles"`
	Count         int            `json:"count"`
}

func (c *HTTPClient) UploadFiles(ctx context.Context, files []UploadFile) ([]UploadedFile, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpload, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrUpload, f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/files/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrUpload, serverError(resp))
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUpload, err)
	}
	return out.UploadedFiles, nil
}

type conversionRequest struct {
	FileIDs        []string `json:"fileIds"`
	ConversionType string   `json:"conversionType"`
}

type conversionResponse struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *HTTPClient) StartConversion(ctx context.Context, fileIDs []string, conversionType models.ConversionType) (string, error) {
	payload, err := json.Marshal(conversionRequest{
		FileIDs:        fileIDs,
		ConversionType: string(conversionType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/conversion/start", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("%w: %s", ErrSubmission, serverError(resp))
	}

	var out conversionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrSubmission, err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("%w: response carries no job id", ErrSubmission)
	}
	return out.JobID, nil
}

type statusResponse struct {
	JobID          string   `json:"jobId"`
	Status         string   `json:"status"`
	SuccessCount   int      `json:"successCount"`
	FailureCount   int      `json:"failureCount"`
	Progress       int      `json:"progress"`
	ConvertedFiles []string `json:"convertedFiles"`
	Errors         []string `json:"errors"`
	Message        string   `json:"message"`
}

func (c *HTTPClient) JobStatus(ctx context.Context, jobID string) (models.JobResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/conversion/status/"+url.PathEscape(jobID), nil)
	if err != nil {
		return models.JobResult{}, fmt.Errorf("%w: %v", ErrResolution, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.JobResult{}, fmt.Errorf("%w: %v", ErrResolution, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.JobResult{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	case resp.StatusCode != http.StatusOK:
		return models.JobResult{}, fmt.Errorf("%w: %s", ErrResolution, serverError(resp))
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.JobResult{}, fmt.Errorf("%w: decoding response: %v", ErrResolution, err)
	}

	return models.JobResult{
		JobID:          jobID,
		Message:        out.Message,
		ConvertedFiles: out.ConvertedFiles,
		Errors:         out.Errors,
	}, nil
}

func (c *HTTPClient) DownloadArtifact(ctx context.Context, jobID, fileName string) (io.ReadCloser, error) {
	u := c.baseURL + "/api/download/" + url.PathEscape(jobID) + "/" + url.PathEscape(fileName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrDownload, serverError(resp))
	}
	return resp.Body, nil
}

// serverError extracts the {"error": "..."} body the service sends on
// failures, falling back to the HTTP status line.
func serverError(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil && body.Error != "" {
		return fmt.Sprintf("%s: %s", resp.Status, body.Error)
	}
	return resp.Status
}
