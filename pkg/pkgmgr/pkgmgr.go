// Package pkgmgr shells out to the system package managers behind one
// interface. Every manager is a thin command wrapper; output parsing is kept
// deliberately forgiving because these tools change their formats between
// releases.
package pkgmgr

import (
	"bytes"
	"os/exec"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// UpgradeStatus reports what an upgrade actually did.
type UpgradeStatus int

const (
	// Upgraded means a newer version was installed.
	Upgraded UpgradeStatus = iota

	// AlreadyCurrent means the installed version was already the latest.
	AlreadyCurrent

	// NotUpgradable means the manager knows the package but cannot upgrade
	// it (e.g. packages installed outside the manager's control).
	NotUpgradable
)

func (s UpgradeStatus) String() string {
	switch s {
	case Upgraded:
		return "upgraded"
	case AlreadyCurrent:
		return "already-current"
	case NotUpgradable:
		return "not-upgradable"
	default:
		return "unknown"
	}
}

// Manager abstracts one system package manager.
type Manager interface {
	Name() string
	Install(pkg string) error
	Uninstall(pkg string) error
	Upgrade(pkg string) (UpgradeStatus, error)
	UpgradeAll() error
	IsInstalled(pkg string) bool

	// Version returns the installed version of pkg, and whether one could
	// be determined.
	Version(pkg string) (string, bool)

	ListInstalled() ([]string, error)
}

// execResult captures the output of one package manager invocation.
type execResult struct {
	stdout string
	stderr string
}

// Mocked for unit testing.
var runCommand = func(dir, name string, args ...string) (execResult, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return execResult{stdout: stdout.String(), stderr: stderr.String()}, err
}

// upgradeOutcome decides whether an upgrade changed anything by comparing the
// versions recorded around it. Versions that don't parse as semver fall back
// to string comparison.
func upgradeOutcome(before, after string) UpgradeStatus {
	if before == "" || after == "" {
		return Upgraded
	}

	beforeVersion, beforeErr := goversion.NewVersion(before)
	afterVersion, afterErr := goversion.NewVersion(after)
	if beforeErr != nil || afterErr != nil {
		if before == after {
			return AlreadyCurrent
		}
		return Upgraded
	}

	if afterVersion.GreaterThan(beforeVersion) {
		return Upgraded
	}
	return AlreadyCurrent
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func splitLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}
