package pkgmgr

import (
	"strings"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// Winget drives the Windows Package Manager.
type Winget struct{}

func (Winget) Name() string { return "winget" }

func (w Winget) Install(pkg string) error {
	res, err := runCommand("", "winget", "install", pkg,
		"--accept-package-agreements", "--accept-source-agreements")
	if err == nil {
		return nil
	}

	lower := strings.ToLower(res.stderr)
	switch {
	case strings.Contains(res.stderr, "No package found matching input criteria"):
		return errors.NewFriendlyError(
			"Package %q was not found in the winget repositories. Try `winget search %s`.",
			pkg, pkg)
	case containsAny(lower, "requires admin", "elevation"):
		return errors.NewFriendlyError(
			"Installing %s requires administrator privileges. "+
				"Run from an elevated prompt or use --scope user.", pkg)
	case strings.Contains(lower, "already installed"):
		return nil
	default:
		return commandFailed("install", pkg, res, err)
	}
}

func (w Winget) Uninstall(pkg string) error {
	res, err := runCommand("", "winget", "uninstall", pkg)
	if err != nil {
		return commandFailed("uninstall", pkg, res, err)
	}
	return nil
}

func (w Winget) Upgrade(pkg string) (UpgradeStatus, error) {
	before, _ := w.Version(pkg)

	res, err := runCommand("", "winget", "upgrade", pkg)
	if err != nil {
		lower := strings.ToLower(res.stderr)
		switch {
		case containsAny(lower, "no newer version", "up to date"):
			return AlreadyCurrent, nil
		case containsAny(lower, "cannot be upgraded", "cannot upgrade"):
			// The package exists but is managed by another installer.
			return NotUpgradable, nil
		case containsAny(lower, "requires admin", "elevation"):
			return AlreadyCurrent, errors.NewFriendlyError(
				"Upgrading %s requires administrator privileges.", pkg)
		default:
			return AlreadyCurrent, commandFailed("upgrade", pkg, res, err)
		}
	}

	after, _ := w.Version(pkg)
	return upgradeOutcome(before, after), nil
}

func (w Winget) UpgradeAll() error {
	res, err := runCommand("", "winget", "upgrade", "--all")
	if err != nil {
		if containsAny(strings.ToLower(res.stderr), "no newer version", "up to date") {
			return nil
		}
		return commandFailed("upgrade", "all packages", res, err)
	}
	return nil
}

func (w Winget) IsInstalled(pkg string) bool {
	res, err := runCommand("", "winget", "list", pkg)
	return err == nil && strings.Contains(strings.ToLower(res.stdout), strings.ToLower(pkg))
}

func (w Winget) Version(pkg string) (string, bool) {
	res, err := runCommand("", "winget", "list", pkg)
	if err != nil {
		return "", false
	}

	// Columnar output: Name Id Version [Available] Source.
	for _, line := range splitLines(res.stdout) {
		if !strings.Contains(strings.ToLower(line), strings.ToLower(pkg)) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 3 {
			return fields[2], true
		}
	}
	return "", false
}

func (w Winget) ListInstalled() ([]string, error) {
	res, err := runCommand("", "winget", "list")
	if err != nil {
		return nil, commandFailed("list", "packages", res, err)
	}

	lines := splitLines(res.stdout)
	if len(lines) <= 2 {
		return nil, nil
	}

	var pkgs []string
	// The first two lines are the header and its underline.
	for _, line := range lines[2:] {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			pkgs = append(pkgs, fields[0])
		}
	}
	return pkgs, nil
}
