package models

import "strings"

// ConversionType names a server-side target format. The client passes the
// value through opaquely on submission; the catalogue below only backs
// advisory extension checks in the calling layer.
type ConversionType string

const (
	WordToPDF        ConversionType = "wordToPdf"
	ImageToPDF       ConversionType = "imageToPdf"
	MergeImagesToPDF ConversionType = "mergeImagesToPdf"
	MergeWordsToPDF  ConversionType = "mergeWordsToPdf"
)

var wordExtensions = []string{".doc", ".docx"}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tiff", ".tif"}

var conversionCatalog = map[ConversionType]struct {
	displayName string
	extensions  []string
	merge       bool
}{
	WordToPDF:        {"Word to PDF", wordExtensions, false},
	ImageToPDF:       {"Image to PDF", imageExtensions, false},
	MergeImagesToPDF: {"Merge images into one PDF", imageExtensions, true},
	MergeWordsToPDF:  {"Merge Word documents into one PDF", wordExtensions, true},
}

// DisplayName returns a human-readable label, or the raw value for types the
// catalogue does not know about.
func (t ConversionType) DisplayName() string {
	if e, ok := conversionCatalog[t]; ok {
		return e.displayName
	}
	return string(t)
}

// IsMergeOperation reports whether the type combines all inputs into a
// single output document.
func (t ConversionType) IsMergeOperation() bool {
	return conversionCatalog[t].merge
}

// SupportsExtension reports whether files with the given extension can be
// processed by this conversion type. Unknown types support nothing; the
// check is advisory only.
func (t ConversionType) SupportsExtension(ext string) bool {
	if ext == "" {
		return false
	}
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, s := range conversionCatalog[t].extensions {
		if s == ext {
			return true
		}
	}
	return false
}
