package repo

import (
	"fmt"
	"sort"

	"github.com/buger/goterm"
	"github.com/spf13/cobra"

	"github.com/jorisdejosselin/install-sync/cmd/util"
)

func newStatus() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the status of the tracking repository.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := runStatus(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func runStatus() error {
	session, err := util.LoadSession()
	if err != nil {
		return err
	}

	adapter, err := session.Adapter()
	if err != nil {
		return err
	}

	status, err := adapter.Status()
	if err != nil {
		return err
	}
	if status == "" {
		fmt.Println("Working tree clean")
	} else {
		fmt.Print(status)
	}

	remotes, err := adapter.Remotes()
	if err != nil {
		return err
	}
	fmt.Println("\nRemotes:")
	if len(remotes) == 0 {
		fmt.Println("  No remotes configured")
	} else {
		var names []string
		for name := range remotes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s: %s\n", name, remotes[name])
		}
	}

	fmt.Printf("\nTracking directory:\n  %s\n", session.Dir)
	return nil
}

func newHistory() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the commit history of the tracking repository.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := runHistory(limit); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Number of commits to show")
	return cmd
}

func runHistory(limit int) error {
	session, err := util.LoadSession()
	if err != nil {
		return err
	}

	adapter, err := session.Adapter()
	if err != nil {
		return err
	}

	commits, err := adapter.History(limit)
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		fmt.Println("No commits found")
		return nil
	}

	table := goterm.NewTable(0, 10, 3, ' ', 0)
	fmt.Fprintf(table, "Hash\tMessage\tAuthor\tDate\n")
	for _, commit := range commits {
		message := commit.Message
		if len(message) > 50 {
			message = message[:50] + "..."
		}
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\n",
			commit.Hash, message, commit.Author,
			commit.When.Format("2006-01-02 15:04"))
	}
	goterm.Println(table)
	goterm.Flush()
	return nil
}
