package errors

import (
	"fmt"
)

// ErrNotARepository is returned when an operation requires a version
// controlled tracking directory but none has been set up yet.
var ErrNotARepository = NewFriendlyError(
	"Not a git repository. Run `install-sync repo setup` first.")

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// ConfigCorrupt represents a persisted document that could not be parsed.
// Callers fall back to an empty default rather than aborting.
type ConfigCorrupt struct {
	Path string
	Err  error
}

func (err ConfigCorrupt) Error() string {
	return fmt.Sprintf("malformed config at %q: %s", err.Path, err.Err)
}
