package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorisdejosselin/install-sync/pkg/machine"
)

func TestTrackingRoundTrip(t *testing.T) {
	fs = afero.NewMemMapFs()

	doc := NewTracking()
	doc.EnsureMachine(machine.Profile{
		ProfileID:    "d72440ff",
		MachineName:  "myhost",
		OSType:       "linux",
		Architecture: "amd64",
	})
	doc.AddPackage("d72440ff", PackageRecord{
		Name:           "ripgrep",
		PackageManager: "brew",
		Version:        "14.1.0",
		InstalledAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	})

	require.NoError(t, WriteTracking("/tracking", doc))

	parsed := ParseTracking("/tracking")
	assert.Equal(t, doc, parsed)
}

func TestParseTrackingMissing(t *testing.T) {
	fs = afero.NewMemMapFs()
	assert.Equal(t, NewTracking(), ParseTracking("/nowhere"))
}

func TestParseTrackingCorrupt(t *testing.T) {
	fs = afero.NewMemMapFs()
	path := filepath.Join("/tracking", TrackingFileName)
	require.NoError(t, afero.WriteFile(fs, path, []byte("{not json"), 0644))

	// A corrupt document must never make the tool unusable.
	assert.Equal(t, NewTracking(), ParseTracking("/tracking"))
}

func TestParseTrackingFillsMissingFields(t *testing.T) {
	fs = afero.NewMemMapFs()
	path := filepath.Join("/tracking", TrackingFileName)
	require.NoError(t, afero.WriteFile(fs, path, []byte(`{"git": {}}`), 0644))

	doc := ParseTracking("/tracking")
	assert.NotNil(t, doc.Machines)
	assert.NotNil(t, doc.Packages)
	assert.Equal(t, DefaultCommitMessageTemplate, doc.Git.CommitMessageTemplate)
}

func TestWriteTrackingRepairsInvariant(t *testing.T) {
	fs = afero.NewMemMapFs()

	doc := NewTracking()
	doc.AddPackage("deadbeef", PackageRecord{Name: "jq", PackageManager: "apt"})

	require.NoError(t, WriteTracking("/tracking", doc))

	parsed := ParseTracking("/tracking")
	profile, ok := parsed.Machines["deadbeef"]
	require.True(t, ok, "machines entry should be synthesized for orphan package list")
	assert.Equal(t, "deadbeef", profile.ProfileID)
	assert.Equal(t, "unknown", profile.MachineName)
}

func TestAddRemovePackage(t *testing.T) {
	doc := NewTracking()
	doc.AddPackage("d72440ff", PackageRecord{Name: "git", PackageManager: "brew"})
	doc.AddPackage("d72440ff", PackageRecord{Name: "curl", PackageManager: "brew"})

	assert.True(t, doc.IsTracked("d72440ff", "git"))
	assert.False(t, doc.IsTracked("d72440ff", "vim"))
	assert.False(t, doc.IsTracked("other", "git"))

	assert.True(t, doc.RemovePackage("d72440ff", "git"))
	assert.False(t, doc.RemovePackage("d72440ff", "git"))
	assert.False(t, doc.IsTracked("d72440ff", "git"))

	// Removal preserves the order of the remaining records.
	pkgs := doc.PackagesFor("d72440ff")
	require.Len(t, pkgs, 1)
	assert.Equal(t, "curl", pkgs[0].Name)
}

func TestSetPackageVersion(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(
		time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	defer func(old clockwork.Clock) { clock = old }(clock)
	clock = fakeClock

	doc := NewTracking()
	doc.AddPackage("d72440ff", NewPackageRecord("git", "brew", "2.43.0"))

	fakeClock.Advance(time.Hour)
	assert.True(t, doc.SetPackageVersion("d72440ff", "git", "2.44.0"))
	assert.False(t, doc.SetPackageVersion("d72440ff", "vim", "9.1"))

	pkg, ok := doc.FindPackage("d72440ff", "git")
	require.True(t, ok)
	assert.Equal(t, "2.44.0", pkg.Version)
	assert.Equal(t, fakeClock.Now(), pkg.InstalledAt)
}

func TestCommitMessage(t *testing.T) {
	tests := []struct {
		name     string
		template string
		exp      string
	}{
		{
			name:     "Default",
			template: DefaultCommitMessageTemplate,
			exp:      "Install ripgrep on myhost",
		},
		{
			name:     "Custom",
			template: "pkg: {package} ({machine})",
			exp:      "pkg: ripgrep (myhost)",
		},
		{
			// An empty template falls back to the default.
			name: "Empty",
			exp:  "Install ripgrep on myhost",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			doc := NewTracking()
			doc.Git.CommitMessageTemplate = test.template
			assert.Equal(t, test.exp, doc.CommitMessage("ripgrep", "myhost"))
		})
	}
}
