package orchestrator

import (
	"io"
	"os"
	"path/filepath"

	"github.com/convertweb/convertclient/internal/models"
)

func openPath(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// StatSource builds a FileSource from a local path, reading name and size
// from the filesystem.
func StatSource(path string) (FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileSource{}, err
	}
	return PathSource(path, models.SelectedFile{
		Name:      filepath.Base(path),
		SizeBytes: info.Size(),
		Path:      path,
	}), nil
}
