package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinkerhq/tinker/session"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage saved sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			return printSessions(store)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted session %q\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show a saved session's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			file, err := store.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("saved: %s  provider: %s  model: %s  cwd: %s\n\n",
				file.SavedAt.Format("2006-01-02 15:04:05"), file.Provider, file.Model, file.Cwd)
			for _, m := range file.History {
				fmt.Printf("[%s] %s\n", m.Role, firstLine(m.Content))
			}
			return nil
		},
	})

	return cmd
}

func openStore() (*session.Store, error) {
	dir, err := session.DefaultDir()
	if err != nil {
		return nil, err
	}
	return session.NewStore(dir), nil
}
