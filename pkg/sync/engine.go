// Package sync reconciles the local tracking repository with its remote.
//
// Multiple machines push to the same branch with no coordination, so any
// push can be rejected because another machine got there first. The engine
// recovers from that with a bounded protocol: pull the remote changes and
// retry the push exactly once. Failures it cannot classify get one
// verification pass (fetch, compare tips) before being surfaced, because
// the backend sometimes reports noise on operations that succeeded.
package sync

import (
	log "github.com/sirupsen/logrus"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
	"github.com/jorisdejosselin/install-sync/pkg/vcs"
)

// State is the terminal state of one reconciliation attempt. It lives only
// for the duration of a command.
type State string

const (
	// StateClean means there was nothing to commit.
	StateClean State = "clean"

	// StatePushed means the commit reached the remote on the first try.
	StatePushed State = "pushed"

	// StatePulled means a pull brought in remote changes (pull-only
	// operations).
	StatePulled State = "pulled"

	// StatePulledAndRetried means the first push was rejected, the remote
	// changes were pulled, and the retried push succeeded.
	StatePulledAndRetried State = "pulled-and-retried"

	// StateDiverged means concurrent edits could not be reconciled and
	// need manual resolution. Never retried automatically.
	StateDiverged State = "diverged-unresolved"

	// StateAuthFailed means the remote rejected our credentials. Never
	// retried: retrying cannot fix a credential problem, and silent
	// retries would mask it.
	StateAuthFailed State = "auth-failed"

	// StateVerified means the backend reported an unclassifiable failure
	// but a fetch showed local and remote tips identical, so the push in
	// fact succeeded.
	StateVerified State = "verified-after-ambiguous-error"
)

// VCS is the slice of the version control adapter the engine needs. The
// real adapter is vcs.Adapter; tests inject a fake.
type VCS interface {
	Commit(message string) vcs.Result
	Push(remote, branch string) vcs.Result
	Pull(remote, branch string) vcs.Result
	Fetch(remote string) vcs.Result
	Head() (string, error)
	RemoteHead(remote, branch string) (string, error)
	CurrentBranch() (string, error)
}

// Options configures an engine invocation. Threaded explicitly from the
// command surface; the engine keeps no ambient state.
type Options struct {
	Remote string
	Branch string

	// PullBeforeRead enables the best-effort pull in SyncBeforeOperation.
	PullBeforeRead bool
}

// DefaultRemote and DefaultBranch name the conventional sync target.
// DefaultBranch is only a fallback: an unset Options.Branch follows whatever
// branch the repository's HEAD is on, so repositories cloned from remotes
// with a different default branch still sync the right ref.
const (
	DefaultRemote = "origin"
	DefaultBranch = "main"
)

// Engine drives commit/push/pull cycles against a VCS.
type Engine struct {
	vcs  VCS
	opts Options
}

// New creates an engine over the given adapter.
func New(adapter VCS, opts Options) *Engine {
	if opts.Remote == "" {
		opts.Remote = DefaultRemote
	}
	if opts.Branch == "" {
		if branch, err := adapter.CurrentBranch(); err == nil && branch != "" {
			opts.Branch = branch
		} else {
			opts.Branch = DefaultBranch
		}
	}
	return &Engine{vcs: adapter, opts: opts}
}

// CommitAndPush persists local changes and reconciles them with the remote.
//
// Every recovery path runs at most once per invocation: a rejected push
// triggers one pull and one retry; an unclassifiable failure triggers one
// fetch-and-compare verification. A second failure is surfaced to the
// caller for manual resolution.
func (e *Engine) CommitAndPush(message string) (State, error) {
	commit := e.vcs.Commit(message)
	switch commit.Outcome {
	case vcs.NoChange:
		return StateClean, nil
	case vcs.Success:
	default:
		return "", errors.WithContext(commit.Err, "commit")
	}

	push := e.vcs.Push(e.opts.Remote, e.opts.Branch)
	switch push.Outcome {
	case vcs.Success:
		return StatePushed, nil
	case vcs.NoChange:
		// We just committed, so a push with nothing to update usually means
		// the refspec matched no local ref (a branch name mismatch).
		// Confirm the remote actually has our tip before claiming success.
		return e.confirmNoOpPush(StatePushed)
	case vcs.Rejected:
		return e.pullAndRetry()
	case vcs.AuthError:
		return StateAuthFailed, errors.WithContext(push.Err, "push")
	case vcs.ConflictError:
		return StateDiverged, errors.WithContext(push.Err, "push")
	default:
		return e.verifyAmbiguousPush(push)
	}
}

// pullAndRetry handles a rejected push: bring in the remote changes, then
// retry the push exactly once.
func (e *Engine) pullAndRetry() (State, error) {
	log.Info("Push rejected; pulling remote changes and retrying")

	pull := e.vcs.Pull(e.opts.Remote, e.opts.Branch)
	switch pull.Outcome {
	case vcs.Success, vcs.NoChange:
	case vcs.ConflictError:
		return StateDiverged, divergedError(pull.Err)
	case vcs.AuthError:
		return StateAuthFailed, errors.WithContext(pull.Err, "pull")
	default:
		// The pull failed for a reason other than divergence (network,
		// for instance); there's no conflict to send the user to resolve.
		return "", errors.WithContext(pull.Err, "pull")
	}

	retry := e.vcs.Push(e.opts.Remote, e.opts.Branch)
	switch retry.Outcome {
	case vcs.Success:
		return StatePulledAndRetried, nil
	case vcs.NoChange:
		return e.confirmNoOpPush(StatePulledAndRetried)
	case vcs.AuthError:
		return StateAuthFailed, errors.WithContext(retry.Err, "push")
	default:
		// No further automatic retries.
		return StateDiverged, divergedError(retry.Err)
	}
}

// confirmNoOpPush double-checks a push that updated zero refs. The remote
// must already hold our tip for that to be a success; anything else means
// the commit never left the local repository.
func (e *Engine) confirmNoOpPush(state State) (State, error) {
	if fetch := e.vcs.Fetch(e.opts.Remote); !fetch.OK() {
		return "", errors.WithContext(fetch.Err, "verify push")
	}

	local, err := e.vcs.Head()
	if err != nil {
		return "", errors.WithContext(err, "verify push")
	}
	remote, err := e.vcs.RemoteHead(e.opts.Remote, e.opts.Branch)
	if err != nil {
		return "", errors.WithContext(err, "verify push")
	}

	if local != "" && local == remote {
		return state, nil
	}
	return "", errors.New("push updated no references and remote " +
		e.opts.Branch + " does not match the local tip; " +
		"check the repository's branch configuration")
}

// verifyAmbiguousPush double-checks an unclassifiable push failure. The
// backend occasionally exits non-zero on a push that reached the remote, so
// compare tips before reporting failure.
func (e *Engine) verifyAmbiguousPush(push vcs.Result) (State, error) {
	log.WithError(push.Err).Debug("Push result ambiguous; verifying against remote")

	if fetch := e.vcs.Fetch(e.opts.Remote); !fetch.OK() {
		// Can't verify either way; report the original failure.
		return "", errors.WithContext(push.Err, "push")
	}

	local, err := e.vcs.Head()
	if err != nil {
		return "", errors.WithContext(push.Err, "push")
	}
	remote, err := e.vcs.RemoteHead(e.opts.Remote, e.opts.Branch)
	if err != nil {
		return "", errors.WithContext(push.Err, "push")
	}

	if local != "" && local == remote {
		log.Debug("Remote tip matches local; treating push as succeeded")
		return StateVerified, nil
	}
	return "", errors.WithContext(push.Err, "push")
}

// Pull brings the local branch up to date with the remote.
func (e *Engine) Pull() (State, error) {
	pull := e.vcs.Pull(e.opts.Remote, e.opts.Branch)
	switch pull.Outcome {
	case vcs.Success:
		return StatePulled, nil
	case vcs.NoChange:
		return StateClean, nil
	case vcs.ConflictError:
		return StateDiverged, divergedError(pull.Err)
	case vcs.AuthError:
		return StateAuthFailed, errors.WithContext(pull.Err, "pull")
	default:
		return "", errors.WithContext(pull.Err, "pull")
	}
}

// SyncBeforeOperation pulls remote changes ahead of a read-only operation
// when the policy allows it. Failures are logged, never returned: a
// transient network problem must not block a local read, the caller just
// proceeds with stale data.
func (e *Engine) SyncBeforeOperation(reason string) State {
	if !e.opts.PullBeforeRead {
		return StateClean
	}

	state, err := e.Pull()
	if err != nil {
		log.WithError(err).Warnf("Could not sync before %s; using local data", reason)
		return StateClean
	}
	return state
}

func divergedError(err error) error {
	msg := "Local and remote changes could not be reconciled automatically.\n" +
		"Resolve the conflict in the tracking directory manually, then run " +
		"`install-sync sync`."
	if err != nil {
		msg += "\n\nUnderlying error: " + err.Error()
	}
	return errors.NewFriendlyError("%s", msg)
}
