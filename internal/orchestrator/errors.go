package orchestrator

import "errors"

// ErrNoReadyFiles means submission was attempted before any selected file
// finished uploading. Distinct from "no files selected": files may still be
// in flight. No request is sent.
var ErrNoReadyFiles = errors.New("no uploaded files ready for conversion")
