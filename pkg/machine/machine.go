// Package machine identifies the machine running the current command.
//
// Every document written by install-sync is keyed on a profile ID derived
// from the machine's hostname, OS, and architecture. The derivation must be
// stable across invocations so that repeated runs on the same machine always
// land in the same section of the shared tracking document.
package machine

import (
	"crypto/md5"
	"fmt"
	"os"
	"runtime"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// Profile describes a machine that has packages tracked in the shared
// document.
type Profile struct {
	ProfileID    string `json:"profile_id"`
	MachineName  string `json:"machine_name"`
	OSType       string `json:"os_type"`
	Architecture string `json:"architecture"`
}

// Mocked for unit testing.
var hostname = os.Hostname

// DeriveProfileID computes the stable 8-character identifier for the given
// machine attributes. The same inputs always produce the same ID; nothing
// else (time, environment, process state) is consulted.
func DeriveProfileID(machineName, osType, architecture string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s_%s", machineName, osType, architecture)))
	return fmt.Sprintf("%x", sum)[:8]
}

// Current builds the profile for the machine running this process.
func Current() (Profile, error) {
	name, err := hostname()
	if err != nil {
		return Profile{}, errors.WithContext(err, "get hostname")
	}

	osType := runtime.GOOS
	arch := runtime.GOARCH
	return Profile{
		ProfileID:    DeriveProfileID(name, osType, arch),
		MachineName:  name,
		OSType:       osType,
		Architecture: arch,
	}, nil
}
