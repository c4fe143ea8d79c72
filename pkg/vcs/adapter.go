package vcs

import (
	"io/ioutil"
	"strings"
	"time"

	git "gopkg.in/src-d/go-git.v4"
	gitconfig "gopkg.in/src-d/go-git.v4/config"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
	"gopkg.in/src-d/go-git.v4/plumbing/storer"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// Signature used for commits when the repository has no configured author.
// go-git doesn't read the user's global gitconfig, so a stable default keeps
// commits working on machines without one.
const (
	defaultAuthorName  = "install-sync"
	defaultAuthorEmail = "install-sync@localhost"
)

// defaultBranch is the branch new repositories are created on. go-git's
// PlainInit leaves HEAD on master; repositories we create use main so the
// local branch matches what the hosting providers create.
const defaultBranch = "main"

// Options configures an Adapter.
type Options struct {
	// TrackedFile is the path (relative to the repository root) of the
	// document that Merge knows how to reconcile.
	TrackedFile string

	// Merge reconciles divergent versions of TrackedFile during a pull.
	// When nil, any divergence is reported as ConflictError.
	Merge MergeFunc

	// AuthorName and AuthorEmail override the default commit signature.
	AuthorName  string
	AuthorEmail string
}

// Adapter wraps one local repository.
type Adapter struct {
	repo *git.Repository
	opts Options
}

// Mocked for unit testing.
var now = time.Now

// Open returns an adapter for the repository at path. Returns
// errors.ErrNotARepository when the directory isn't under version control.
func Open(path string, opts Options) (*Adapter, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		if err == git.ErrRepositoryNotExists {
			return nil, errors.ErrNotARepository
		}
		return nil, errors.WithContext(err, "open repository")
	}
	return &Adapter{repo: repo, opts: opts}, nil
}

// Init creates a repository at path and returns an adapter for it.
func Init(path string, opts Options) (*Adapter, error) {
	repo, err := git.PlainInit(path, false)
	if err != nil {
		if err == git.ErrRepositoryAlreadyExists {
			return Open(path, opts)
		}
		return nil, errors.WithContext(err, "init repository")
	}

	head := plumbing.NewSymbolicReference(plumbing.HEAD,
		plumbing.NewBranchReferenceName(defaultBranch))
	if err := repo.Storer.SetReference(head); err != nil {
		return nil, errors.WithContext(err, "set default branch")
	}
	return &Adapter{repo: repo, opts: opts}, nil
}

// Clone clones url into path and returns an adapter for the result.
func Clone(path, url string, opts Options) (*Adapter, error) {
	repo, err := git.PlainClone(path, false, &git.CloneOptions{URL: url})
	if err != nil {
		return nil, errors.WithContext(err, "clone repository")
	}
	return &Adapter{repo: repo, opts: opts}, nil
}

// IsRepo reports whether path is under version control.
func IsRepo(path string) bool {
	_, err := git.PlainOpen(path)
	return err == nil
}

// newAdapter wraps an already-open repository. Used by tests with in-memory
// storage.
func newAdapter(repo *git.Repository, opts Options) *Adapter {
	return &Adapter{repo: repo, opts: opts}
}

// AddRemote configures a remote idempotently: an existing remote with the
// same URL is left alone, a different URL is updated in place, and a missing
// remote is created.
func (a *Adapter) AddRemote(name, url string) error {
	remote, err := a.repo.Remote(name)
	switch err {
	case nil:
		urls := remote.Config().URLs
		if len(urls) > 0 && urls[0] == url {
			return nil
		}

		cfg, err := a.repo.Config()
		if err != nil {
			return errors.WithContext(err, "read repository config")
		}
		cfg.Remotes[name].URLs = []string{url}
		if err := a.repo.Storer.SetConfig(cfg); err != nil {
			return errors.WithContext(err, "update remote")
		}
		return nil
	case git.ErrRemoteNotFound:
		_, err := a.repo.CreateRemote(&gitconfig.RemoteConfig{
			Name: name,
			URLs: []string{url},
		})
		if err != nil {
			return errors.WithContext(err, "create remote")
		}
		return nil
	default:
		return errors.WithContext(err, "inspect remote")
	}
}

// RemoteURL returns the fetch URL of the named remote.
func (a *Adapter) RemoteURL(name string) (string, error) {
	remote, err := a.repo.Remote(name)
	if err != nil {
		return "", err
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errors.New("remote has no URL")
	}
	return urls[0], nil
}

// Commit stages every change and commits it. A clean worktree yields
// NoChange; empty commits are never created.
func (a *Adapter) Commit(message string) Result {
	worktree, err := a.repo.Worktree()
	if err != nil {
		return classify(err)
	}

	status, err := worktree.Status()
	if err != nil {
		return classify(err)
	}
	if status.IsClean() {
		return noChange()
	}

	for path, fileStatus := range status {
		if fileStatus.Worktree == git.Unmodified && fileStatus.Staging == git.Unmodified {
			continue
		}
		if _, err := worktree.Add(path); err != nil {
			return Result{Outcome: Unknown, Err: errors.WithContext(err, "stage "+path)}
		}
	}

	if _, err := worktree.Commit(message, &git.CommitOptions{Author: a.signature()}); err != nil {
		return classify(err)
	}
	return success()
}

// Push sends the branch to the remote and classifies the response.
func (a *Adapter) Push(remote, branch string) Result {
	refSpec := gitconfig.RefSpec("refs/heads/" + branch + ":refs/heads/" + branch)
	err := a.repo.Push(&git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
	})
	return classify(err)
}

// Fetch updates the remote-tracking refs.
func (a *Adapter) Fetch(remote string) Result {
	return classify(a.repo.Fetch(&git.FetchOptions{RemoteName: remote}))
}

// Head returns the hash of the local HEAD commit, or "" for an empty
// repository.
func (a *Adapter) Head() (string, error) {
	ref, err := a.repo.Head()
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return "", nil
		}
		return "", err
	}
	return ref.Hash().String(), nil
}

// CurrentBranch returns the branch HEAD points at. Works before the first
// commit, when HEAD is still an unborn symbolic reference.
func (a *Adapter) CurrentBranch() (string, error) {
	ref, err := a.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", errors.WithContext(err, "read HEAD")
	}
	if ref.Type() != plumbing.SymbolicReference {
		return "", errors.New("HEAD is detached")
	}
	return ref.Target().Short(), nil
}

// RemoteHead returns the last fetched hash of the remote branch, or "" when
// the remote branch hasn't been seen.
func (a *Adapter) RemoteHead(remote, branch string) (string, error) {
	ref, err := a.repo.Reference(plumbing.NewRemoteReferenceName(remote, branch), true)
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return "", nil
		}
		return "", err
	}
	return ref.Hash().String(), nil
}

// Pull brings the local branch up to date with the remote branch.
//
// A missing local branch is created tracking the remote one; a local branch
// without a tracking relationship gets one. Fast-forwards are applied
// directly. Divergent histories are handed to the configured MergeFunc; an
// unreconcilable divergence is ConflictError.
func (a *Adapter) Pull(remote, branch string) Result {
	if res := a.Fetch(remote); !res.OK() {
		return res
	}

	if err := a.ensureTracking(remote, branch); err != nil {
		return Result{Outcome: Unknown, Err: err}
	}

	remoteRef, err := a.repo.Reference(plumbing.NewRemoteReferenceName(remote, branch), true)
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			// The remote branch doesn't exist yet (fresh remote).
			return noChange()
		}
		return Result{Outcome: Unknown, Err: err}
	}

	branchRef := plumbing.NewBranchReferenceName(branch)
	localRef, err := a.repo.Reference(branchRef, true)
	if err == plumbing.ErrReferenceNotFound {
		return a.checkoutNewBranch(branchRef, remoteRef.Hash())
	} else if err != nil {
		return Result{Outcome: Unknown, Err: err}
	}

	if localRef.Hash() == remoteRef.Hash() {
		return noChange()
	}

	localCommit, err := a.repo.CommitObject(localRef.Hash())
	if err != nil {
		return Result{Outcome: Unknown, Err: err}
	}
	remoteCommit, err := a.repo.CommitObject(remoteRef.Hash())
	if err != nil {
		return Result{Outcome: Unknown, Err: err}
	}

	if behind, err := localCommit.IsAncestor(remoteCommit); err != nil {
		return Result{Outcome: Unknown, Err: err}
	} else if behind {
		return a.fastForward(branchRef, remoteRef.Hash())
	}

	if ahead, err := remoteCommit.IsAncestor(localCommit); err != nil {
		return Result{Outcome: Unknown, Err: err}
	} else if ahead {
		// Local is strictly ahead; nothing to pull.
		return noChange()
	}

	return a.mergeDivergent(localCommit, remoteCommit)
}

// ensureTracking makes the local branch track remote/branch, creating the
// branch config when absent.
func (a *Adapter) ensureTracking(remote, branch string) error {
	existing, err := a.repo.Branch(branch)
	if err == nil && existing.Remote != "" {
		return nil
	}
	if err != nil && err != git.ErrBranchNotFound {
		return errors.WithContext(err, "inspect branch")
	}

	if err == nil {
		// Branch config exists without a tracking relationship; replace it.
		if err := a.repo.DeleteBranch(branch); err != nil {
			return errors.WithContext(err, "reset branch config")
		}
	}

	err = a.repo.CreateBranch(&gitconfig.Branch{
		Name:   branch,
		Remote: remote,
		Merge:  plumbing.NewBranchReferenceName(branch),
	})
	if err != nil {
		return errors.WithContext(err, "set tracking branch")
	}
	return nil
}

func (a *Adapter) checkoutNewBranch(branchRef plumbing.ReferenceName, target plumbing.Hash) Result {
	if err := a.repo.Storer.SetReference(plumbing.NewHashReference(branchRef, target)); err != nil {
		return Result{Outcome: Unknown, Err: err}
	}

	worktree, err := a.repo.Worktree()
	if err != nil {
		return Result{Outcome: Unknown, Err: err}
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: branchRef}); err != nil {
		return Result{Outcome: Unknown, Err: err}
	}
	return success()
}

func (a *Adapter) fastForward(branchRef plumbing.ReferenceName, target plumbing.Hash) Result {
	if err := a.repo.Storer.SetReference(plumbing.NewHashReference(branchRef, target)); err != nil {
		return Result{Outcome: Unknown, Err: err}
	}

	worktree, err := a.repo.Worktree()
	if err != nil {
		return Result{Outcome: Unknown, Err: err}
	}
	err = worktree.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: target})
	if err != nil {
		return Result{Outcome: Unknown, Err: err}
	}
	return success()
}

// mergeDivergent reconciles truly divergent histories by three-way merging
// the tracked document and recording a two-parent merge commit.
func (a *Adapter) mergeDivergent(local, remote *object.Commit) Result {
	if a.opts.Merge == nil || a.opts.TrackedFile == "" {
		return Result{Outcome: ConflictError,
			Err: errors.New("histories have diverged and no merge strategy is configured")}
	}

	base, err := a.mergeBaseContents(local, remote)
	if err != nil {
		return Result{Outcome: Unknown, Err: err}
	}
	ours, err := fileContents(local, a.opts.TrackedFile)
	if err != nil {
		return Result{Outcome: Unknown, Err: err}
	}
	theirs, err := fileContents(remote, a.opts.TrackedFile)
	if err != nil {
		return Result{Outcome: Unknown, Err: err}
	}

	merged, ok, err := a.opts.Merge(base, ours, theirs)
	if err != nil {
		return Result{Outcome: Unknown, Err: errors.WithContext(err, "merge documents")}
	}
	if !ok {
		return Result{Outcome: ConflictError,
			Err: errors.New("concurrent edits to the same machine's packages")}
	}

	worktree, err := a.repo.Worktree()
	if err != nil {
		return Result{Outcome: Unknown, Err: err}
	}

	file, err := worktree.Filesystem.Create(a.opts.TrackedFile)
	if err != nil {
		return Result{Outcome: Unknown, Err: errors.WithContext(err, "write merged document")}
	}
	if _, err := file.Write(merged); err != nil {
		file.Close()
		return Result{Outcome: Unknown, Err: errors.WithContext(err, "write merged document")}
	}
	if err := file.Close(); err != nil {
		return Result{Outcome: Unknown, Err: err}
	}

	if _, err := worktree.Add(a.opts.TrackedFile); err != nil {
		return Result{Outcome: Unknown, Err: errors.WithContext(err, "stage merged document")}
	}

	message := "Merge remote changes into " + a.opts.TrackedFile
	_, err = worktree.Commit(message, &git.CommitOptions{
		Author:  a.signature(),
		Parents: []plumbing.Hash{local.Hash, remote.Hash},
	})
	if err != nil {
		return Result{Outcome: Unknown, Err: errors.WithContext(err, "commit merge")}
	}
	return success()
}

// mergeBaseContents returns the tracked file as of the common ancestor, or
// nil when the histories are unrelated.
func (a *Adapter) mergeBaseContents(local, remote *object.Commit) ([]byte, error) {
	bases, err := local.MergeBase(remote)
	if err != nil {
		return nil, errors.WithContext(err, "find merge base")
	}
	if len(bases) == 0 {
		return nil, nil
	}
	return fileContents(bases[0], a.opts.TrackedFile)
}

func fileContents(commit *object.Commit, path string) ([]byte, error) {
	file, err := commit.File(path)
	if err != nil {
		if err == object.ErrFileNotFound {
			return nil, nil
		}
		return nil, err
	}

	reader, err := file.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return ioutil.ReadAll(reader)
}

// History returns the most recent commits on HEAD, newest first. The slice
// is at most limit long; calling again restarts from the current tip.
func (a *Adapter) History(limit int) ([]CommitInfo, error) {
	head, err := a.repo.Head()
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return nil, nil
		}
		return nil, errors.WithContext(err, "resolve head")
	}

	iter, err := a.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, errors.WithContext(err, "read log")
	}
	defer iter.Close()

	var commits []CommitInfo
	err = iter.ForEach(func(commit *object.Commit) error {
		if len(commits) >= limit {
			return storer.ErrStop
		}
		commits = append(commits, CommitInfo{
			Hash:    commit.Hash.String()[:8],
			Message: strings.TrimSpace(commit.Message),
			Author:  commit.Author.Name,
			When:    commit.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, errors.WithContext(err, "iterate log")
	}
	return commits, nil
}

// Status returns a porcelain-style summary of the worktree, empty when
// clean.
func (a *Adapter) Status() (string, error) {
	worktree, err := a.repo.Worktree()
	if err != nil {
		return "", err
	}
	status, err := worktree.Status()
	if err != nil {
		return "", err
	}
	if status.IsClean() {
		return "", nil
	}
	return status.String(), nil
}

// Remotes lists the configured remotes as name → URL.
func (a *Adapter) Remotes() (map[string]string, error) {
	remotes, err := a.repo.Remotes()
	if err != nil {
		return nil, err
	}

	urls := map[string]string{}
	for _, remote := range remotes {
		cfg := remote.Config()
		if len(cfg.URLs) > 0 {
			urls[cfg.Name] = cfg.URLs[0]
		}
	}
	return urls, nil
}

func (a *Adapter) signature() *object.Signature {
	name, email := a.opts.AuthorName, a.opts.AuthorEmail
	if name == "" {
		name = defaultAuthorName
	}
	if email == "" {
		email = defaultAuthorEmail
	}
	return &object.Signature{Name: name, Email: email, When: now()}
}
