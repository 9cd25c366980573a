package models

import (
	"path/filepath"
	"strings"
)

// SelectedFile is a file the user picked for conversion. The name doubles as
// the de-duplication key inside a registry, so two selections with the same
// name collapse into one entry.
type SelectedFile struct {
	Name      string
	SizeBytes int64
	Path      string // local path, empty when the content came from memory
}

// Extension returns the lower-cased extension including the leading dot,
// or "" when the name has none.
func (f SelectedFile) Extension() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// UploadIdentity associates a selected file with the token the upload
// endpoint assigned to it. Absence of an identity means the upload is still
// pending. Identities are never mutated after creation.
type UploadIdentity struct {
	FileName string
	Token    string
}
