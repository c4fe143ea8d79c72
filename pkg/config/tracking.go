package config

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
	"github.com/jorisdejosselin/install-sync/pkg/machine"
)

// TrackingFileName is the name of the shared tracking document inside the
// tracking directory. This is the only file synchronized between machines.
const TrackingFileName = "config.json"

// DefaultCommitMessageTemplate is used when the document doesn't configure
// its own. `{package}` and `{machine}` are substituted at commit time.
const DefaultCommitMessageTemplate = "Install {package} on {machine}"

// clock is swapped for a fake in tests so install timestamps are
// deterministic.
var clock clockwork.Clock = clockwork.NewRealClock()

// PackageRecord describes one installed package on one machine.
type PackageRecord struct {
	Name           string    `json:"name"`
	PackageManager string    `json:"package_manager"`
	Version        string    `json:"version,omitempty"`
	InstalledAt    time.Time `json:"installed_at"`
}

// GitPolicy holds the sync automation settings stored inside the tracking
// document.
type GitPolicy struct {
	AutoCommit            bool   `json:"auto_commit"`
	AutoPush              bool   `json:"auto_push"`
	CommitMessageTemplate string `json:"commit_message_template,omitempty"`
}

// Tracking is the shared document that records which packages are installed
// on which machines. It is committed to the tracking repository and pulled
// by every machine before it's trusted to be current.
type Tracking struct {
	Machines map[string]machine.Profile `json:"machines"`
	Packages map[string][]PackageRecord `json:"packages"`
	Git      GitPolicy                  `json:"git"`
}

// NewTracking returns an empty document with the default sync policy.
func NewTracking() Tracking {
	return Tracking{
		Machines: map[string]machine.Profile{},
		Packages: map[string][]PackageRecord{},
		Git: GitPolicy{
			AutoCommit:            true,
			AutoPush:              true,
			CommitMessageTemplate: DefaultCommitMessageTemplate,
		},
	}
}

// NewPackageRecord stamps a record with the current time.
func NewPackageRecord(name, manager, version string) PackageRecord {
	return PackageRecord{
		Name:           name,
		PackageManager: manager,
		Version:        version,
		InstalledAt:    clock.Now(),
	}
}

// ParseTracking loads the tracking document from the given directory.
// A missing file yields an empty default. A malformed file also yields the
// default — a corrupt document must never make the tool unusable — but the
// problem is logged so the user can investigate.
func ParseTracking(dir string) Tracking {
	path := filepath.Join(dir, TrackingFileName)
	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		return NewTracking()
	}

	doc := NewTracking()
	if err := json.Unmarshal(contents, &doc); err != nil {
		log.WithError(errors.ConfigCorrupt{Path: path, Err: err}).
			Warn("Falling back to an empty tracking document")
		return NewTracking()
	}

	if doc.Machines == nil {
		doc.Machines = map[string]machine.Profile{}
	}
	if doc.Packages == nil {
		doc.Packages = map[string][]PackageRecord{}
	}
	if doc.Git.CommitMessageTemplate == "" {
		doc.Git.CommitMessageTemplate = DefaultCommitMessageTemplate
	}
	return doc
}

// WriteTracking persists the document into the given directory, repairing
// the machines/packages invariant first.
func WriteTracking(dir string, doc Tracking) error {
	doc.repair()

	contents, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := fs.MkdirAll(dir, 0755); err != nil {
		return errors.WithContext(err, "create tracking directory")
	}

	path := filepath.Join(dir, TrackingFileName)
	if err := afero.WriteFile(fs, path, contents, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// repair guarantees that every profile ID with a package list also has a
// machines entry. Mutation helpers may leave the document with package lists
// for machines we haven't observed (e.g. documents edited by hand); a
// placeholder entry keeps the document well formed.
func (t *Tracking) repair() {
	for profileID := range t.Packages {
		if _, ok := t.Machines[profileID]; !ok {
			t.Machines[profileID] = machine.Profile{
				ProfileID:   profileID,
				MachineName: "unknown",
			}
		}
	}
}

// EnsureMachine records the machine profile in the document. Called at the
// start of every mutating command so new machines appear as soon as they
// touch the document.
func (t *Tracking) EnsureMachine(profile machine.Profile) {
	t.Machines[profile.ProfileID] = profile
}

// PackagesFor returns the package list for the given machine, in insertion
// order.
func (t Tracking) PackagesFor(profileID string) []PackageRecord {
	return t.Packages[profileID]
}

// IsTracked reports whether the named package is recorded for the machine.
func (t Tracking) IsTracked(profileID, name string) bool {
	for _, pkg := range t.Packages[profileID] {
		if pkg.Name == name {
			return true
		}
	}
	return false
}

// FindPackage returns the record for the named package on the machine.
func (t Tracking) FindPackage(profileID, name string) (PackageRecord, bool) {
	for _, pkg := range t.Packages[profileID] {
		if pkg.Name == name {
			return pkg, true
		}
	}
	return PackageRecord{}, false
}

// AddPackage appends a record to the machine's package list.
func (t *Tracking) AddPackage(profileID string, pkg PackageRecord) {
	t.Packages[profileID] = append(t.Packages[profileID], pkg)
}

// RemovePackage deletes the named package from the machine's list. Returns
// whether a record was removed.
func (t *Tracking) RemovePackage(profileID, name string) bool {
	pkgs := t.Packages[profileID]
	for i, pkg := range pkgs {
		if pkg.Name == name {
			t.Packages[profileID] = append(pkgs[:i:i], pkgs[i+1:]...)
			return true
		}
	}
	return false
}

// SetPackageVersion updates the version and install timestamp of an existing
// record. Records are immutable apart from this upgrade path.
func (t *Tracking) SetPackageVersion(profileID, name, version string) bool {
	pkgs := t.Packages[profileID]
	for i := range pkgs {
		if pkgs[i].Name == name {
			pkgs[i].Version = version
			pkgs[i].InstalledAt = clock.Now()
			return true
		}
	}
	return false
}

// CommitMessage renders the document's commit message template.
func (t Tracking) CommitMessage(pkg, machineName string) string {
	msg := t.Git.CommitMessageTemplate
	if msg == "" {
		msg = DefaultCommitMessageTemplate
	}
	msg = strings.ReplaceAll(msg, "{package}", pkg)
	msg = strings.ReplaceAll(msg, "{machine}", machineName)
	return msg
}
