package pkgmgr

import (
	"strings"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// Apt drives APT on Debian-family Linux. Mutating commands go through sudo.
type Apt struct{}

func (Apt) Name() string { return "apt" }

func (a Apt) Install(pkg string) error {
	res, err := runCommand("", "sudo", "apt", "install", "-y", pkg)
	if err == nil {
		return nil
	}

	switch {
	case containsAny(res.stderr, "Unable to locate package", "No package"):
		return errors.NewFriendlyError(
			"Package %q was not found in the apt repositories. "+
				"Try `apt search %s`, or `sudo apt update` to refresh the package lists.",
			pkg, pkg)
	case containsAny(res.stderr, "already the newest version", "already installed"):
		return nil
	case strings.Contains(res.stderr, "dpkg was interrupted"):
		return errors.NewFriendlyError(
			"The package manager was interrupted. Run `sudo dpkg --configure -a` and retry.")
	default:
		return commandFailed("install", pkg, res, err)
	}
}

func (a Apt) Uninstall(pkg string) error {
	res, err := runCommand("", "sudo", "apt", "remove", "-y", pkg)
	if err != nil {
		return commandFailed("uninstall", pkg, res, err)
	}
	return nil
}

func (a Apt) Upgrade(pkg string) (UpgradeStatus, error) {
	before, _ := a.Version(pkg)

	// Refresh the package lists first; a stale index makes every upgrade a
	// silent no-op.
	if res, err := runCommand("", "sudo", "apt", "update"); err != nil {
		return AlreadyCurrent, commandFailed("update package lists for", pkg, res, err)
	}

	res, err := runCommand("", "sudo", "apt", "upgrade", "-y", pkg)
	if err != nil {
		if strings.Contains(strings.ToLower(res.stderr), "already the newest version") {
			return AlreadyCurrent, nil
		}
		return AlreadyCurrent, commandFailed("upgrade", pkg, res, err)
	}

	after, _ := a.Version(pkg)
	return upgradeOutcome(before, after), nil
}

func (a Apt) UpgradeAll() error {
	if res, err := runCommand("", "sudo", "apt", "update"); err != nil {
		return commandFailed("update package lists for", "upgrade", res, err)
	}

	res, err := runCommand("", "sudo", "apt", "upgrade", "-y")
	if err != nil {
		if strings.Contains(strings.ToLower(res.stderr), "already the newest version") {
			return nil
		}
		return commandFailed("upgrade", "all packages", res, err)
	}
	return nil
}

func (a Apt) IsInstalled(pkg string) bool {
	res, err := runCommand("", "dpkg", "-l", pkg)
	return err == nil && strings.Contains(res.stdout, "ii")
}

func (a Apt) Version(pkg string) (string, bool) {
	res, err := runCommand("", "dpkg", "-l", pkg)
	if err != nil {
		return "", false
	}

	for _, line := range splitLines(res.stdout) {
		if !strings.HasPrefix(line, "ii") || !strings.Contains(line, pkg) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 3 {
			return fields[2], true
		}
	}
	return "", false
}

func (a Apt) ListInstalled() ([]string, error) {
	res, err := runCommand("", "dpkg", "-l")
	if err != nil {
		return nil, commandFailed("list", "packages", res, err)
	}

	var pkgs []string
	for _, line := range splitLines(res.stdout) {
		if !strings.HasPrefix(line, "ii") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			pkgs = append(pkgs, fields[1])
		}
	}
	return pkgs, nil
}
