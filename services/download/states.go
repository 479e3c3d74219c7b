package download

import (
	"errors"
	"fmt"
)

type State int

const (
	StateGenerate State = iota
	StateLocateViewer
	StateDownload
	StateResolveFilename
	StateAwaitCompletion
	StateRename
	StateDone
)

var stateNames = map[State]string{
	StateGenerate:        "generate",
	StateLocateViewer:    "locate_viewer",
	StateDownload:        "download",
	StateResolveFilename: "resolve_filename",
	StateAwaitCompletion: "await_completion",
	StateRename:          "rename",
	StateDone:            "done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrViewerNotFound     = errors.New("viewer iframe not found")
	ErrButtonNotClickable = errors.New("download button not clickable")
	ErrDownloadTimeout    = errors.New("download did not complete in time")
	ErrFileNotFound       = errors.New("downloaded file not found")
)

// StateError records which step of the download flow failed.
type StateError struct {
	State State
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("download failed in state %s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}
