package config

import (
	"encoding/json"
	"reflect"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
	"github.com/jorisdejosselin/install-sync/pkg/machine"
)

// MergeTracking performs a three-way merge of tracking documents, keyed on
// machine profile sections.
//
// Two machines editing their own sections concurrently always merge cleanly:
// each side's changes are taken wholesale. If both sides changed the *same*
// machine's package list the merge reports a conflict — reconciling two
// concurrent edits to one list cannot be done safely without knowing the
// user's intent, so it is left to manual resolution.
//
// base may be empty (unrelated histories); it then behaves as an empty
// document and any section present on either side is kept.
func MergeTracking(base, ours, theirs []byte) ([]byte, bool, error) {
	baseDoc, err := parseOrEmpty(base)
	if err != nil {
		return nil, false, errors.WithContext(err, "parse base")
	}
	oursDoc, err := parseOrEmpty(ours)
	if err != nil {
		return nil, false, errors.WithContext(err, "parse ours")
	}
	theirsDoc, err := parseOrEmpty(theirs)
	if err != nil {
		return nil, false, errors.WithContext(err, "parse theirs")
	}

	merged := NewTracking()

	for _, profileID := range unionProfileIDs(baseDoc, oursDoc, theirsDoc) {
		pkgs, ok := mergeSection(
			baseDoc.Packages[profileID],
			oursDoc.Packages[profileID],
			theirsDoc.Packages[profileID])
		if !ok {
			return nil, false, nil
		}
		if pkgs != nil {
			merged.Packages[profileID] = pkgs
		}

		if profile, ok := mergeProfile(
			baseDoc.Machines[profileID],
			oursDoc.Machines[profileID],
			theirsDoc.Machines[profileID]); ok {
			merged.Machines[profileID] = profile
		}
	}

	policy, ok := mergePolicy(baseDoc.Git, oursDoc.Git, theirsDoc.Git)
	if !ok {
		return nil, false, nil
	}
	merged.Git = policy

	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return nil, false, errors.WithContext(err, "marshal merged")
	}
	return out, true, nil
}

func parseOrEmpty(contents []byte) (Tracking, error) {
	if len(contents) == 0 {
		return NewTracking(), nil
	}
	doc := NewTracking()
	if err := json.Unmarshal(contents, &doc); err != nil {
		return Tracking{}, err
	}
	if doc.Machines == nil {
		doc.Machines = map[string]machine.Profile{}
	}
	if doc.Packages == nil {
		doc.Packages = map[string][]PackageRecord{}
	}
	return doc, nil
}

func unionProfileIDs(docs ...Tracking) []string {
	seen := map[string]bool{}
	var ids []string
	for _, doc := range docs {
		for id := range doc.Packages {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		for id := range doc.Machines {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// mergeSection picks the changed side of one machine's package list. Both
// sides changed and disagree → conflict.
func mergeSection(base, ours, theirs []PackageRecord) ([]PackageRecord, bool) {
	oursChanged := !reflect.DeepEqual(base, ours)
	theirsChanged := !reflect.DeepEqual(base, theirs)

	switch {
	case !oursChanged:
		return theirs, true
	case !theirsChanged:
		return ours, true
	case reflect.DeepEqual(ours, theirs):
		return ours, true
	default:
		return nil, false
	}
}

// mergeProfile resolves a machine entry. Profiles for the same ID are
// derived from the same inputs, so a disagreement just means one side has a
// fresher observation; ours wins and no conflict is raised.
func mergeProfile(base, ours, theirs machine.Profile) (machine.Profile, bool) {
	var zero machine.Profile
	switch {
	case ours != zero:
		return ours, true
	case theirs != zero:
		return theirs, true
	case base != zero:
		return base, true
	default:
		return zero, false
	}
}

func mergePolicy(base, ours, theirs GitPolicy) (GitPolicy, bool) {
	oursChanged := ours != base
	theirsChanged := theirs != base

	switch {
	case !oursChanged:
		return theirs, true
	case !theirsChanged:
		return ours, true
	case ours == theirs:
		return ours, true
	default:
		return GitPolicy{}, false
	}
}
