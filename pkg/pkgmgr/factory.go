package pkgmgr

import (
	"runtime"
	"sort"
	"strings"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// Mocked for unit testing.
var goos = runtime.GOOS

// managers maps manager names to constructors.
var managers = map[string]func() Manager{
	"apt":    func() Manager { return Apt{} },
	"brew":   func() Manager { return Brew{} },
	"poetry": func() Manager { return Poetry{} },
	"winget": func() Manager { return Winget{} },
}

// ForName returns the manager with the given name.
func ForName(name string) (Manager, error) {
	constructor, ok := managers[name]
	if !ok {
		return nil, errors.NewFriendlyError(
			"Unknown package manager %q. Supported managers: %s.",
			name, strings.Join(Supported(), ", "))
	}
	return constructor(), nil
}

// Default returns the conventional manager for the current OS. overrides maps
// an OS name to a manager name and takes precedence (from the user's global
// configuration).
func Default(overrides map[string]string) (Manager, error) {
	if name, ok := overrides[goos]; ok {
		return ForName(name)
	}

	switch goos {
	case "darwin":
		return Brew{}, nil
	case "windows":
		return Winget{}, nil
	case "linux":
		return Apt{}, nil
	default:
		return nil, errors.NewFriendlyError(
			"No default package manager is known for %s. "+
				"Configure one with `install-sync config set`.", goos)
	}
}

// Supported lists the known manager names, sorted.
func Supported() []string {
	names := make([]string, 0, len(managers))
	for name := range managers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
