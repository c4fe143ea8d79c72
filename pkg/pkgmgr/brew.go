package pkgmgr

import (
	"strings"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// Brew drives Homebrew on macOS (and Linuxbrew).
type Brew struct{}

func (Brew) Name() string { return "brew" }

func (b Brew) Install(pkg string) error {
	res, err := runCommand("", "brew", "install", pkg)
	if err == nil {
		return nil
	}

	switch {
	case containsAny(res.stderr, "No available formula", "No formula found"):
		return errors.NewFriendlyError(
			"Package %q was not found in Homebrew. Try `brew search %s`.", pkg, pkg)
	case strings.Contains(res.stderr, "already installed"):
		// Installed outside our tracking; not a failure.
		return nil
	case strings.Contains(res.stderr, "Permission denied"):
		return errors.NewFriendlyError(
			"Permission denied installing %s. Check your Homebrew permissions.", pkg)
	default:
		return commandFailed("install", pkg, res, err)
	}
}

func (b Brew) Uninstall(pkg string) error {
	res, err := runCommand("", "brew", "uninstall", pkg)
	if err != nil {
		return commandFailed("uninstall", pkg, res, err)
	}
	return nil
}

func (b Brew) Upgrade(pkg string) (UpgradeStatus, error) {
	before, _ := b.Version(pkg)

	res, err := runCommand("", "brew", "upgrade", pkg)
	if err != nil {
		if containsAny(strings.ToLower(res.stderr), "already installed", "up-to-date") {
			return AlreadyCurrent, nil
		}
		return AlreadyCurrent, commandFailed("upgrade", pkg, res, err)
	}

	after, _ := b.Version(pkg)
	return upgradeOutcome(before, after), nil
}

func (b Brew) UpgradeAll() error {
	res, err := runCommand("", "brew", "upgrade")
	if err != nil {
		if containsAny(strings.ToLower(res.stderr), "already installed", "up-to-date") {
			return nil
		}
		return commandFailed("upgrade", "all packages", res, err)
	}
	return nil
}

func (b Brew) IsInstalled(pkg string) bool {
	_, err := runCommand("", "brew", "list", pkg)
	return err == nil
}

func (b Brew) Version(pkg string) (string, bool) {
	res, err := runCommand("", "brew", "list", "--versions", pkg)
	if err != nil {
		return "", false
	}

	// Output is "name version [version...]"; the last one is current.
	fields := strings.Fields(res.stdout)
	if len(fields) < 2 {
		return "", false
	}
	return fields[len(fields)-1], true
}

func (b Brew) ListInstalled() ([]string, error) {
	res, err := runCommand("", "brew", "list")
	if err != nil {
		return nil, commandFailed("list", "packages", res, err)
	}
	return splitLines(res.stdout), nil
}

// commandFailed wraps a package manager failure with its stderr, which is
// where these tools put the actual reason.
func commandFailed(verb, pkg string, res execResult, err error) error {
	detail := strings.TrimSpace(res.stderr)
	if detail == "" {
		detail = strings.TrimSpace(res.stdout)
	}
	if detail == "" {
		detail = err.Error()
	}
	return errors.NewFriendlyError("Failed to %s %s: %s", verb, pkg, detail)
}
