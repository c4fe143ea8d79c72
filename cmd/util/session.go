package util

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/pkg/config"
	"github.com/jorisdejosselin/install-sync/pkg/errors"
	"github.com/jorisdejosselin/install-sync/pkg/machine"
	"github.com/jorisdejosselin/install-sync/pkg/pkgmgr"
	"github.com/jorisdejosselin/install-sync/pkg/sync"
	"github.com/jorisdejosselin/install-sync/pkg/vcs"
)

// GitFlags are the persistent git overrides from the command line.
type GitFlags struct {
	// NoGit skips all git operations for this invocation.
	NoGit bool

	// AutoGit commits and pushes without prompting.
	AutoGit bool
}

// GetGitFlags reads the persistent git flags from any command in the tree.
func GetGitFlags(cmd *cobra.Command) GitFlags {
	noGit, _ := cmd.Flags().GetBool("no-git")
	autoGit, _ := cmd.Flags().GetBool("auto-git")
	return GitFlags{NoGit: noGit, AutoGit: autoGit}
}

// Session is the loaded state every command operates on: the tracking
// directory, its document, this machine's profile, and the user's global
// preferences.
type Session struct {
	Dir      string
	Tracking config.Tracking
	Profile  machine.Profile
	Global   config.Global
}

// LoadSession resolves the tracking directory and loads everything in it.
// The current machine is registered in the document as a side effect.
func LoadSession() (*Session, error) {
	dir, err := config.TrackingDir()
	if err != nil {
		return nil, errors.WithContext(err, "resolve tracking directory")
	}

	profile, err := machine.Current()
	if err != nil {
		return nil, errors.WithContext(err, "identify machine")
	}

	session := &Session{
		Dir:      dir,
		Tracking: config.ParseTracking(dir),
		Profile:  profile,
		Global:   config.ParseGlobal(),
	}
	session.Tracking.EnsureMachine(profile)
	return session, nil
}

// Save persists the tracking document.
func (s *Session) Save() error {
	return config.WriteTracking(s.Dir, s.Tracking)
}

// Adapter opens the tracking repository with the document merge strategy
// wired in.
func (s *Session) Adapter() (*vcs.Adapter, error) {
	return vcs.Open(s.Dir, vcs.Options{
		TrackedFile: config.TrackingFileName,
		Merge:       config.MergeTracking,
	})
}

// Engine builds a sync engine over the tracking repository.
func (s *Session) Engine(pullBeforeRead bool) (*sync.Engine, error) {
	adapter, err := s.Adapter()
	if err != nil {
		return nil, err
	}
	return sync.New(adapter, sync.Options{PullBeforeRead: pullBeforeRead}), nil
}

// ShouldSync decides whether this invocation performs git operations,
// honoring the command-line overrides, the global preferences, and finally
// an interactive prompt.
func (s *Session) ShouldSync(flags GitFlags) bool {
	if flags.NoGit {
		log.Debug("Git operations disabled by --no-git")
		return false
	}
	if flags.AutoGit {
		return true
	}

	if s.Global.GitAutoCommit != nil && !*s.Global.GitAutoCommit {
		return false
	}
	if s.Global.GitAutoPush != nil && !*s.Global.GitAutoPush {
		return false
	}

	if s.Global.GitPrompt {
		return Confirm("Commit and push this change to git?", true)
	}
	return true
}

// RecordChange writes the tracking document and reconciles it with the
// remote when the policy allows. Git failures are reported but never fail
// the package operation that triggered them; the local record is already
// safe on disk.
func (s *Session) RecordChange(flags GitFlags, message string) error {
	if err := s.Save(); err != nil {
		return err
	}

	if !s.ShouldSync(flags) || !s.Tracking.Git.AutoCommit {
		return nil
	}

	adapter, err := s.Adapter()
	if err == errors.ErrNotARepository {
		fmt.Println("Not a git repository. " +
			"Run `install-sync repo setup` to enable git tracking.")
		return nil
	} else if err != nil {
		log.WithError(err).Warn("Git operations failed")
		return nil
	}

	if !s.Tracking.Git.AutoPush {
		if res := adapter.Commit(message); !res.OK() {
			log.WithError(res.Err).Warn("Git commit failed")
		}
		return nil
	}

	engine := sync.New(adapter, sync.Options{})
	if _, err := engine.CommitAndPush(message); err != nil {
		fmt.Println(errors.GetPrintableMessage(err))
		log.Debug("Continuing; the change is recorded locally")
	}
	return nil
}

// SyncBeforeRead does a best-effort pull ahead of a read-only command.
func (s *Session) SyncBeforeRead(reason string) {
	if !s.Global.GitAutoSyncOnList {
		return
	}

	engine, err := s.Engine(true)
	if err != nil {
		// No repository yet; nothing to sync.
		return
	}
	if state := engine.SyncBeforeOperation(reason); state == sync.StatePulled {
		// Remote changes arrived; reload the document.
		s.Tracking = config.ParseTracking(s.Dir)
		s.Tracking.EnsureMachine(s.Profile)
	}
}

// ResolveManager picks the package manager for an operation: the explicit
// flag wins, then the manager recorded for the package, then the OS default.
func (s *Session) ResolveManager(flag, pkg, projectPath string) (pkgmgr.Manager, error) {
	if flag == "poetry" && projectPath != "" {
		return pkgmgr.Poetry{ProjectPath: projectPath}, nil
	}
	if flag != "" {
		return pkgmgr.ForName(flag)
	}

	if pkg != "" {
		if record, ok := s.Tracking.FindPackage(s.Profile.ProfileID, pkg); ok {
			if record.PackageManager == "poetry" && projectPath != "" {
				return pkgmgr.Poetry{ProjectPath: projectPath}, nil
			}
			return pkgmgr.ForName(record.PackageManager)
		}
	}

	return pkgmgr.Default(s.Global.PackageManagers)
}
