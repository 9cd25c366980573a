// Package registry holds the set of user-selected files and their upload
// identity state. It is the single mutable shared resource of the client;
// all mutations are serialized behind one mutex.
package registry

import (
	"sync"

	"github.com/convertweb/convertclient/internal/models"
)

type FileRegistry struct {
	mu         sync.RWMutex
	files      []models.SelectedFile
	identities map[string]models.UploadIdentity // keyed by file name
}

func New() *FileRegistry {
	return &FileRegistry{
		identities: make(map[string]models.UploadIdentity),
	}
}

// Add inserts the file unless an entry with the same name already exists.
// First selection wins; duplicates are ignored without error. It reports
// whether the file was actually added.
func (r *FileRegistry) Add(file models.SelectedFile) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range r.files {
		if f.Name == file.Name {
			return false
		}
	}
	r.files = append(r.files, file)
	return true
}

// Remove deletes the file at ordinal position index in the current ordered
// view, along with its identity. Indices come from a rendered, possibly
// stale, view, so out-of-range values are a defined no-op.
func (r *FileRegistry) Remove(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.files) {
		return
	}
	delete(r.identities, r.files[index].Name)
	r.files = append(r.files[:index], r.files[index+1:]...)
}

// Clear empties all files and identities unconditionally.
func (r *FileRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.files = nil
	r.identities = make(map[string]models.UploadIdentity)
}

// MarkReady attaches an upload identity to the file with the given name.
// If the file was removed before its upload resolved this is a no-op; that
// race is expected and must not resurrect the file. Redundant calls for the
// same name are idempotent.
func (r *FileRegistry) MarkReady(name, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range r.files {
		if f.Name == name {
			r.identities[name] = models.UploadIdentity{FileName: name, Token: token}
			return
		}
	}
}

// ReadyIdentities returns the identity tokens of all files that have one,
// in registry insertion order regardless of upload completion order.
func (r *FileRegistry) ReadyIdentities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]string, 0, len(r.identities))
	for _, f := range r.files {
		if id, ok := r.identities[f.Name]; ok {
			tokens = append(tokens, id.Token)
		}
	}
	return tokens
}

// Files returns a snapshot of the current ordered view.
func (r *FileRegistry) Files() []models.SelectedFile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.SelectedFile, len(r.files))
	copy(out, r.files)
	return out
}

// Len reports the number of selected files.
func (r *FileRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}

// IsReady reports whether the named file has an upload identity.
func (r *FileRegistry) IsReady(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.identities[name]
	return ok
}

// Pending returns the files that still have no upload identity, in
// insertion order.
func (r *FileRegistry) Pending() []models.SelectedFile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.SelectedFile
	for _, f := range r.files {
		if _, ok := r.identities[f.Name]; !ok {
			out = append(out, f)
		}
	}
	return out
}
