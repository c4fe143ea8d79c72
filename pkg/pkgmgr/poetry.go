package pkgmgr

import (
	"strings"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// Poetry drives the Poetry dependency manager for a Python project. Unlike
// the system managers it operates on the project in ProjectPath (the working
// directory when empty).
type Poetry struct {
	ProjectPath string
}

func (Poetry) Name() string { return "poetry" }

func (p Poetry) Install(pkg string) error {
	res, err := runCommand(p.ProjectPath, "poetry", "add", pkg)
	if err == nil {
		return nil
	}

	lower := strings.ToLower(res.stderr)
	switch {
	case containsAny(res.stderr, "Could not find a matching version", "not found"):
		return errors.NewFriendlyError(
			"Package %q was not found on PyPI. Check the package name.", pkg)
	case containsAny(res.stderr, "already present", "already installed"):
		return nil
	case strings.Contains(lower, "not a poetry project") ||
		strings.Contains(res.stderr, "pyproject.toml"):
		return errors.NewFriendlyError(
			"This is not a Poetry project. Run `poetry init` first.")
	case strings.Contains(res.stderr, "lock file") && strings.Contains(res.stderr, "outdated"):
		return errors.NewFriendlyError(
			"The Poetry lock file is outdated. Run `poetry lock --no-update` and retry.")
	default:
		return commandFailed("install", pkg, res, err)
	}
}

func (p Poetry) Uninstall(pkg string) error {
	res, err := runCommand(p.ProjectPath, "poetry", "remove", pkg)
	if err != nil {
		return commandFailed("uninstall", pkg, res, err)
	}
	return nil
}

func (p Poetry) Upgrade(pkg string) (UpgradeStatus, error) {
	before, _ := p.Version(pkg)

	res, err := runCommand(p.ProjectPath, "poetry", "update", pkg)
	if err != nil {
		if strings.Contains(strings.ToLower(res.stderr), "already up-to-date") {
			return AlreadyCurrent, nil
		}
		return AlreadyCurrent, commandFailed("upgrade", pkg, res, err)
	}

	after, _ := p.Version(pkg)
	return upgradeOutcome(before, after), nil
}

func (p Poetry) UpgradeAll() error {
	res, err := runCommand(p.ProjectPath, "poetry", "update")
	if err != nil {
		if strings.Contains(strings.ToLower(res.stderr), "already up-to-date") {
			return nil
		}
		return commandFailed("upgrade", "all packages", res, err)
	}
	return nil
}

func (p Poetry) IsInstalled(pkg string) bool {
	_, err := runCommand(p.ProjectPath, "poetry", "show", pkg)
	return err == nil
}

func (p Poetry) Version(pkg string) (string, bool) {
	res, err := runCommand(p.ProjectPath, "poetry", "show", pkg)
	if err != nil {
		return "", false
	}

	for _, line := range splitLines(res.stdout) {
		if !strings.HasPrefix(line, "version") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			return strings.TrimSpace(parts[1]), true
		}
	}
	return "", false
}

func (p Poetry) ListInstalled() ([]string, error) {
	res, err := runCommand(p.ProjectPath, "poetry", "show")
	if err != nil {
		return nil, commandFailed("list", "packages", res, err)
	}

	var pkgs []string
	for _, line := range splitLines(res.stdout) {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			pkgs = append(pkgs, fields[0])
		}
	}
	return pkgs, nil
}
