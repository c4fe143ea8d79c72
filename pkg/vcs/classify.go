package vcs

import (
	"net"
	"strings"

	git "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing/transport"
)

// classify maps a backend error onto the outcome vocabulary. Typed errors
// are checked first; only unrecognized errors fall through to text matching.
func classify(err error) Result {
	switch err {
	case nil:
		return success()
	case git.NoErrAlreadyUpToDate:
		return noChange()
	case git.ErrNonFastForwardUpdate:
		return Result{Outcome: Rejected, Err: err}
	case transport.ErrAuthenticationRequired, transport.ErrAuthorizationFailed:
		return Result{Outcome: AuthError, Err: err}
	case transport.ErrRepositoryNotFound:
		return Result{Outcome: NetworkError, Err: err}
	}

	if _, ok := err.(net.Error); ok {
		return Result{Outcome: NetworkError, Err: err}
	}

	return classifyByMessage(err)
}

// classifyByMessage is the fallback for backends and transports that only
// report errors as text.
func classifyByMessage(err error) Result {
	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "non-fast-forward", "fetch first", "rejected"):
		return Result{Outcome: Rejected, Err: err}
	case containsAny(msg, "401", "403", "denied", "unauthorized",
		"authentication", "authorization", "invalid credentials"):
		return Result{Outcome: AuthError, Err: err}
	case containsAny(msg, "connection refused", "no such host",
		"i/o timeout", "network is unreachable", "connection reset"):
		return Result{Outcome: NetworkError, Err: err}
	case containsAny(msg, "conflict"):
		return Result{Outcome: ConflictError, Err: err}
	default:
		return Result{Outcome: Unknown, Err: err}
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
