package storage

import (
	"io"
	"os"
	"path/filepath"
)

// ArtifactStore defines where downloaded conversion artifacts end up
type ArtifactStore interface {
	CreateArtifact(jobID, fileName string) (io.WriteCloser, error)
	SaveArtifact(jobID, fileName string, content io.Reader) (string, error)
}

// FilesystemStore keeps artifacts on local disk, one directory per job
type FilesystemStore struct {
	basePath string // e.g., "./converted"
}

func NewFilesystemStore(basePath string) *FilesystemStore {
	os.MkdirAll(basePath, 0755)
	return &FilesystemStore{basePath: basePath}
}

func (fs *FilesystemStore) CreateArtifact(jobID, fileName string) (io.WriteCloser, error) {
	dir := filepath.Join(fs.basePath, jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(dir, filepath.Base(fileName)))
}

// SaveArtifact writes the artifact content and returns the stored path.
func (fs *FilesystemStore) SaveArtifact(jobID, fileName string, content io.Reader) (string, error) {
	w, err := fs.CreateArtifact(jobID, fileName)
	if err != nil {
		return "", err
	}
	defer w.Close()

	if _, err := io.Copy(w, content); err != nil {
		return "", err
	}
	return filepath.Join(fs.basePath, jobID, filepath.Base(fileName)), nil
}
