// Package vcs wraps the git backend behind a small outcome vocabulary.
//
// Callers never see raw backend errors when a result can be classified:
// every operation returns a Result whose Outcome the sync engine can branch
// on. Classification prefers the backend's typed errors; matching on error
// text is the last-resort fallback because message strings vary across
// backend versions.
package vcs

import (
	"time"
)

// Outcome is the normalized result of a version control operation.
type Outcome int

const (
	// Success means the operation did what was asked.
	Success Outcome = iota

	// NoChange means there was nothing to do (clean worktree on commit,
	// already up-to-date on push/pull/fetch). Not a failure.
	NoChange

	// Rejected means the remote refused the update, typically a
	// non-fast-forward push after another machine pushed first.
	Rejected

	// AuthError means the backend reported a credential or permission
	// failure. Retrying cannot help.
	AuthError

	// NetworkError means the remote was unreachable.
	NetworkError

	// ConflictError means concurrent edits could not be reconciled
	// automatically and need manual resolution.
	ConflictError

	// Unknown means the backend failed in a way we couldn't classify.
	// The raw error is preserved for display and for the engine's
	// push-verification path.
	Unknown
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case NoChange:
		return "no-change"
	case Rejected:
		return "rejected"
	case AuthError:
		return "auth-error"
	case NetworkError:
		return "network-error"
	case ConflictError:
		return "conflict-error"
	default:
		return "unknown"
	}
}

// Result pairs an outcome with the underlying error (nil for Success and
// NoChange).
type Result struct {
	Outcome Outcome
	Err     error
}

// OK reports whether the result is success-equivalent.
func (r Result) OK() bool {
	return r.Outcome == Success || r.Outcome == NoChange
}

func success() Result  { return Result{Outcome: Success} }
func noChange() Result { return Result{Outcome: NoChange} }

// CommitInfo is one entry of the branch history.
type CommitInfo struct {
	Hash    string
	Message string
	Author  string
	When    time.Time
}

// MergeFunc reconciles three versions of the tracked document during a
// divergent pull. It returns the merged contents and whether the merge was
// conflict free. base is empty when the histories share no common ancestor.
type MergeFunc func(base, ours, theirs []byte) (merged []byte, ok bool, err error)
