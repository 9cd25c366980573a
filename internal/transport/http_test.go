package transport_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/convertweb/convertclient/internal/models"
	"github.com/convertweb/convertclient/internal/transport"
)

func newClient(t *testing.T, handler http.Handler) (*transport.HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return transport.NewHTTPClient(srv.URL, nil, zaptest.NewLogger(t)), srv
}

func TestUploadFilesSendsMultipartBatch(t *testing.T) {
	var gotNames []string
	var gotContents []string

	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/files/upload", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		for _, fh := range r.MultipartForm.File["files"] {
			f, err := fh.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(f)
			require.NoError(t, err)
			f.Close()
			gotNames = append(gotNames, fh.Filename)
			gotContents = append(gotContents, string(data))
		}

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"uploadedFiles": []map[string]any{
				{"id": "f1", "originalName": "a.docx"},
				{"id": "f2", "originalName": "b.jpg"},
			},
			"count": 2,
		})
	}))

	uploaded, err := client.UploadFiles(context.Background(), []transport.UploadFile{
		{Name: "a.docx", Content: strings.NewReader("doc")},
		{Name: "b.jpg", Content: strings.NewReader("img")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.docx", "b.jpg"}, gotNames)
	assert.Equal(t, []string{"doc", "img"}, gotContents)
	require.Len(t, uploaded, 2)
	assert.Equal(t, "f1", uploaded[0].ID)
	assert.Equal(t, "a.docx", uploaded[0].OriginalName)
}

func TestUploadFilesServerError(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "disk full"})
	}))

	_, err := client.UploadFiles(context.Background(), []transport.UploadFile{
		{Name: "a.docx", Content: strings.NewReader("doc")},
	})
	require.ErrorIs(t, err, transport.ErrUpload)
	assert.Contains(t, err.Error(), "disk full")
}

func TestStartConversion(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/conversion/start", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			FileIDs        []string `json:"fileIds"`
			ConversionType string   `json:"conversionType"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"f1", "f2"}, body.FileIDs)
		assert.Equal(t, "wordToPdf", body.ConversionType)

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{"jobId": "job-9", "status": "PROCESSING"})
	}))

	jobID, err := client.StartConversion(context.Background(), []string{"f1", "f2"}, models.WordToPDF)
	require.NoError(t, err)
	assert.Equal(t, "job-9", jobID)
}

func TestStartConversionFailure(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "no valid files"})
	}))

	_, err := client.StartConversion(context.Background(), []string{"f1"}, models.WordToPDF)
	require.ErrorIs(t, err, transport.ErrSubmission)
	assert.Contains(t, err.Error(), "no valid files")
}

func TestJobStatus(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/conversion/status/job-9", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"jobId":          "job-9",
			"status":         "COMPLETED",
			"message":        "Done",
			"convertedFiles": []string{"a.pdf"},
			"errors":         []string{"b.jpg: unsupported encoding"},
		})
	}))

	result, err := client.JobStatus(context.Background(), "job-9")
	require.NoError(t, err)
	assert.Equal(t, "job-9", result.JobID)
	assert.Equal(t, "Done", result.Message)
	assert.Equal(t, []string{"a.pdf"}, result.ConvertedFiles)
	assert.Equal(t, []string{"b.jpg: unsupported encoding"}, result.Errors)
}

func TestJobStatusNotFound(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.JobStatus(context.Background(), "nope")
	require.ErrorIs(t, err, transport.ErrJobNotFound)
}

func TestDownloadArtifact(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/download/job-9/a.pdf", r.URL.Path)
		w.Write([]byte("%PDF-1.4"))
	}))

	rc, err := client.DownloadArtifact(context.Background(), "job-9", "a.pdf")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}
