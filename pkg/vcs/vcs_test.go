package vcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-billy.v4/memfs"
	git "gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/transport"
	"gopkg.in/src-d/go-git.v4/storage/memory"

	"github.com/jorisdejosselin/install-sync/pkg/config"
	"github.com/jorisdejosselin/install-sync/pkg/errors"
	"github.com/jorisdejosselin/install-sync/pkg/machine"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		exp  Outcome
	}{
		{name: "Nil", err: nil, exp: Success},
		{name: "UpToDate", err: git.NoErrAlreadyUpToDate, exp: NoChange},
		{name: "NonFastForward", err: git.ErrNonFastForwardUpdate, exp: Rejected},
		{
			name: "AuthRequired",
			err:  transport.ErrAuthenticationRequired,
			exp:  AuthError,
		},
		{
			name: "AuthForbidden",
			err:  transport.ErrAuthorizationFailed,
			exp:  AuthError,
		},
		{
			name: "RepoNotFound",
			err:  transport.ErrRepositoryNotFound,
			exp:  NetworkError,
		},

		// Text fallbacks for errors the backend only reports as strings.
		{
			name: "TextRejected",
			err:  errors.New("failed to push some refs: fetch first"),
			exp:  Rejected,
		},
		{
			name: "TextDenied",
			err:  errors.New("remote: Permission denied (403)"),
			exp:  AuthError,
		},
		{
			name: "TextUnauthorized",
			err:  errors.New("HTTP 401: unauthorized"),
			exp:  AuthError,
		},
		{
			name: "TextNetwork",
			err:  errors.New("dial tcp: connection refused"),
			exp:  NetworkError,
		},
		{
			name: "TextNoHost",
			err:  errors.New("dial tcp: lookup github.com: no such host"),
			exp:  NetworkError,
		},
		{
			name: "TextConflict",
			err:  errors.New("merge conflict in config.json"),
			exp:  ConflictError,
		},
		{
			name: "Unclassifiable",
			err:  errors.New("remote end hung up unexpectedly"),
			exp:  Unknown,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			res := classify(test.err)
			assert.Equal(t, test.exp, res.Outcome)
			if res.OK() {
				assert.NoError(t, res.Err)
			} else {
				assert.Equal(t, test.err, res.Err)
			}
			assert.Equal(t, test.err == nil || test.err == git.NoErrAlreadyUpToDate,
				res.OK())
		})
	}
}

func memRepo(t *testing.T) *Adapter {
	repo, err := git.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)
	return newAdapter(repo, Options{})
}

func TestAddRemoteIdempotent(t *testing.T) {
	adapter := memRepo(t)

	require.NoError(t, adapter.AddRemote("origin", "git@github.com:user/tracking.git"))

	url, err := adapter.RemoteURL("origin")
	require.NoError(t, err)
	assert.Equal(t, "git@github.com:user/tracking.git", url)

	// Same URL again is a no-op.
	require.NoError(t, adapter.AddRemote("origin", "git@github.com:user/tracking.git"))

	// A different URL replaces the old one instead of failing.
	require.NoError(t, adapter.AddRemote("origin", "https://github.com/user/tracking.git"))
	url, err = adapter.RemoteURL("origin")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/user/tracking.git", url)
}

func TestRemotes(t *testing.T) {
	adapter := memRepo(t)
	require.NoError(t, adapter.AddRemote("origin", "git@github.com:user/tracking.git"))
	require.NoError(t, adapter.AddRemote("backup", "git@gitlab.com:user/tracking.git"))

	remotes, err := adapter.Remotes()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"origin": "git@github.com:user/tracking.git",
		"backup": "git@gitlab.com:user/tracking.git",
	}, remotes)
}

func TestCommitNoChange(t *testing.T) {
	adapter := memRepo(t)

	res := adapter.Commit("nothing to record")
	assert.Equal(t, NoChange, res.Outcome)
}

func TestCommitAndHistory(t *testing.T) {
	adapter := memRepo(t)

	worktree, err := adapter.repo.Worktree()
	require.NoError(t, err)
	file, err := worktree.Filesystem.Create("config.json")
	require.NoError(t, err)
	_, err = file.Write([]byte("{}"))
	require.NoError(t, err)
	require.NoError(t, file.Close())

	res := adapter.Commit("Install git on myhost")
	require.Equal(t, Success, res.Outcome, "%v", res.Err)

	// Committing again with a clean tree does nothing.
	assert.Equal(t, NoChange, adapter.Commit("Install git on myhost").Outcome)

	head, err := adapter.Head()
	require.NoError(t, err)
	assert.Len(t, head, 40)

	history, err := adapter.History(10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Install git on myhost", history[0].Message)
	assert.Equal(t, defaultAuthorName, history[0].Author)
	assert.Equal(t, head[:8], history[0].Hash)
}

func TestHeadEmptyRepo(t *testing.T) {
	adapter := memRepo(t)

	head, err := adapter.Head()
	require.NoError(t, err)
	assert.Empty(t, head)

	remoteHead, err := adapter.RemoteHead("origin", "main")
	require.NoError(t, err)
	assert.Empty(t, remoteHead)
}

func TestCurrentBranch(t *testing.T) {
	// Repositories created by Init live on main; repositories created
	// elsewhere may use any branch name, and the adapter reports whatever
	// HEAD points at.
	initialized, err := Init(t.TempDir(), Options{})
	require.NoError(t, err)
	branch, err := initialized.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	branch, err = memRepo(t).CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "master", branch)
}

var (
	alphaProfile = machine.Profile{
		ProfileID:    "aaaa0001",
		MachineName:  "alpha",
		OSType:       "linux",
		Architecture: "amd64",
	}
	betaProfile = machine.Profile{
		ProfileID:    "bbbb0002",
		MachineName:  "beta",
		OSType:       "darwin",
		Architecture: "arm64",
	}
)

// bareRemote creates an on-disk bare repository to push to.
func bareRemote(t *testing.T) string {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, true)
	require.NoError(t, err)
	return dir
}

// clientRepo creates a working repository with the bare remote configured as
// origin and the tracking-document merge strategy wired in.
func clientRepo(t *testing.T, remote string) (*Adapter, string) {
	dir := t.TempDir()
	adapter, err := Init(dir, Options{
		TrackedFile: config.TrackingFileName,
		Merge:       config.MergeTracking,
	})
	require.NoError(t, err)
	require.NoError(t, adapter.AddRemote("origin", remote))
	return adapter, dir
}

func writeDoc(t *testing.T, dir string, mutate func(*config.Tracking)) {
	doc := config.ParseTracking(dir)
	mutate(&doc)
	require.NoError(t, config.WriteTracking(dir, doc))
}

func TestPushReachesRemote(t *testing.T) {
	remote := bareRemote(t)
	adapter, dir := clientRepo(t, remote)

	branch, err := adapter.CurrentBranch()
	require.NoError(t, err)

	writeDoc(t, dir, func(doc *config.Tracking) {
		doc.EnsureMachine(alphaProfile)
		doc.AddPackage(alphaProfile.ProfileID,
			config.NewPackageRecord("git", "apt", "2.39.0"))
	})
	require.Equal(t, Success, adapter.Commit("Install git on alpha").Outcome)

	res := adapter.Push("origin", branch)
	require.Equal(t, Success, res.Outcome, "%v", res.Err)

	// The branch ref must exist on the remote and carry our tip.
	remoteRepo, err := git.PlainOpen(remote)
	require.NoError(t, err)
	ref, err := remoteRepo.Reference(plumbing.NewBranchReferenceName(branch), true)
	require.NoError(t, err)

	head, err := adapter.Head()
	require.NoError(t, err)
	assert.Equal(t, head, ref.Hash().String())
}

func TestRejectedPushMergesOnPull(t *testing.T) {
	remote := bareRemote(t)
	machineA, dirA := clientRepo(t, remote)
	machineB, dirB := clientRepo(t, remote)

	// Machine A publishes the initial document.
	writeDoc(t, dirA, func(doc *config.Tracking) {
		doc.EnsureMachine(alphaProfile)
	})
	require.Equal(t, Success, machineA.Commit("Initial commit").Outcome)
	require.Equal(t, Success, machineA.Push("origin", "main").Outcome)

	// Machine B starts from that document.
	res := machineB.Pull("origin", "main")
	require.Equal(t, Success, res.Outcome, "%v", res.Err)

	// A records a package and pushes first.
	writeDoc(t, dirA, func(doc *config.Tracking) {
		doc.AddPackage(alphaProfile.ProfileID,
			config.NewPackageRecord("git", "apt", ""))
	})
	require.Equal(t, Success, machineA.Commit("Install git on alpha").Outcome)
	require.Equal(t, Success, machineA.Push("origin", "main").Outcome)

	// Stale B records its own package; its push loses the race.
	writeDoc(t, dirB, func(doc *config.Tracking) {
		doc.EnsureMachine(betaProfile)
		doc.AddPackage(betaProfile.ProfileID,
			config.NewPackageRecord("curl", "brew", ""))
	})
	require.Equal(t, Success, machineB.Commit("Install curl on beta").Outcome)
	assert.Equal(t, Rejected, machineB.Push("origin", "main").Outcome)

	// Pull three-way-merges the divergent documents; the retried push lands.
	res = machineB.Pull("origin", "main")
	require.Equal(t, Success, res.Outcome, "%v", res.Err)
	require.Equal(t, Success, machineB.Push("origin", "main").Outcome)

	// A fast-forwards onto the merge commit and sees both packages.
	res = machineA.Pull("origin", "main")
	require.Equal(t, Success, res.Outcome, "%v", res.Err)

	merged := config.ParseTracking(dirA)
	assert.True(t, merged.IsTracked(alphaProfile.ProfileID, "git"))
	assert.True(t, merged.IsTracked(betaProfile.ProfileID, "curl"))
}

func TestStatus(t *testing.T) {
	adapter := memRepo(t)

	status, err := adapter.Status()
	require.NoError(t, err)
	assert.Empty(t, status)

	worktree, err := adapter.repo.Worktree()
	require.NoError(t, err)
	file, err := worktree.Filesystem.Create("config.json")
	require.NoError(t, err)
	require.NoError(t, file.Close())

	status, err = adapter.Status()
	require.NoError(t, err)
	assert.Contains(t, status, "config.json")
}
