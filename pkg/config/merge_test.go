package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorisdejosselin/install-sync/pkg/machine"
)

func marshalTracking(t *testing.T, doc Tracking) []byte {
	contents, err := json.Marshal(doc)
	require.NoError(t, err)
	return contents
}

func TestMergeTrackingDisjointSections(t *testing.T) {
	base := NewTracking()
	base.EnsureMachine(machine.Profile{ProfileID: "aaaa1111", MachineName: "laptop"})
	base.AddPackage("aaaa1111", PackageRecord{Name: "git", PackageManager: "brew"})

	// We installed on our machine; they installed on theirs.
	ours := NewTracking()
	ours.Machines = map[string]machine.Profile{
		"aaaa1111": {ProfileID: "aaaa1111", MachineName: "laptop"},
	}
	ours.Packages = map[string][]PackageRecord{
		"aaaa1111": {
			{Name: "git", PackageManager: "brew"},
			{Name: "ripgrep", PackageManager: "brew"},
		},
	}

	theirs := NewTracking()
	theirs.Machines = map[string]machine.Profile{
		"aaaa1111": {ProfileID: "aaaa1111", MachineName: "laptop"},
		"bbbb2222": {ProfileID: "bbbb2222", MachineName: "desktop"},
	}
	theirs.Packages = map[string][]PackageRecord{
		"aaaa1111": {{Name: "git", PackageManager: "brew"}},
		"bbbb2222": {{Name: "curl", PackageManager: "apt"}},
	}

	merged, ok, err := MergeTracking(
		marshalTracking(t, base),
		marshalTracking(t, ours),
		marshalTracking(t, theirs))
	require.NoError(t, err)
	require.True(t, ok)

	var doc Tracking
	require.NoError(t, json.Unmarshal(merged, &doc))

	// Both sides' additions survive.
	assert.Len(t, doc.Packages["aaaa1111"], 2)
	assert.Len(t, doc.Packages["bbbb2222"], 1)
	assert.Contains(t, doc.Machines, "bbbb2222")
}

func TestMergeTrackingSameSectionConflict(t *testing.T) {
	base := NewTracking()
	base.AddPackage("aaaa1111", PackageRecord{Name: "git", PackageManager: "brew"})

	ours := NewTracking()
	ours.Packages = map[string][]PackageRecord{
		"aaaa1111": {
			{Name: "git", PackageManager: "brew"},
			{Name: "ripgrep", PackageManager: "brew"},
		},
	}

	theirs := NewTracking()
	theirs.Packages = map[string][]PackageRecord{
		"aaaa1111": {
			{Name: "git", PackageManager: "brew"},
			{Name: "fzf", PackageManager: "brew"},
		},
	}

	// Both sides changed the same machine's list in different ways.
	_, ok, err := MergeTracking(
		marshalTracking(t, base),
		marshalTracking(t, ours),
		marshalTracking(t, theirs))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMergeTrackingIdenticalChanges(t *testing.T) {
	base := NewTracking()

	change := NewTracking()
	change.Packages = map[string][]PackageRecord{
		"aaaa1111": {{Name: "git", PackageManager: "brew"}},
	}

	merged, ok, err := MergeTracking(
		marshalTracking(t, base),
		marshalTracking(t, change),
		marshalTracking(t, change))
	require.NoError(t, err)
	require.True(t, ok)

	var doc Tracking
	require.NoError(t, json.Unmarshal(merged, &doc))
	assert.Len(t, doc.Packages["aaaa1111"], 1)
}

func TestMergeTrackingEmptyBase(t *testing.T) {
	// Unrelated histories: no common ancestor document.
	ours := NewTracking()
	ours.Packages = map[string][]PackageRecord{
		"aaaa1111": {{Name: "git", PackageManager: "brew"}},
	}

	theirs := NewTracking()
	theirs.Packages = map[string][]PackageRecord{
		"bbbb2222": {{Name: "curl", PackageManager: "apt"}},
	}

	merged, ok, err := MergeTracking(nil,
		marshalTracking(t, ours),
		marshalTracking(t, theirs))
	require.NoError(t, err)
	require.True(t, ok)

	var doc Tracking
	require.NoError(t, json.Unmarshal(merged, &doc))
	assert.Contains(t, doc.Packages, "aaaa1111")
	assert.Contains(t, doc.Packages, "bbbb2222")
}

func TestMergeTrackingPolicyConflict(t *testing.T) {
	base := NewTracking()

	ours := NewTracking()
	ours.Git.AutoPush = false

	theirs := NewTracking()
	theirs.Git.CommitMessageTemplate = "custom {package}"

	_, ok, err := MergeTracking(
		marshalTracking(t, base),
		marshalTracking(t, ours),
		marshalTracking(t, theirs))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMergeTrackingMalformedInput(t *testing.T) {
	_, _, err := MergeTracking(nil, []byte("{not json"), nil)
	assert.Error(t, err)
}
