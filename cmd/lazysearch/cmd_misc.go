package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rebeliceyang/lazysearch/internal/db/connection"
	"github.com/rebeliceyang/lazysearch/internal/history"
	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historySearch string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent searches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		h, err := e.openHistory()
		if err != nil {
			return err
		}
		if h == nil {
			return fmt.Errorf("search history is disabled")
		}

		var entries []history.Entry
		if historySearch != "" {
			entries, err = h.Search(cmd.Context(), historySearch, historyLimit)
		} else {
			entries, err = h.GetRecent(cmd.Context(), historyLimit)
		}
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(entries))
		for _, entry := range entries {
			records := strconv.Itoa(entry.RecordCount)
			if !entry.Success {
				records = "error: " + entry.ErrorMessage
			}
			rows = append(rows, []string{
				entry.ExecutedAt.Local().Format(time.DateTime),
				entry.ProfileName,
				entry.EntityType,
				records,
				entry.Duration.Round(time.Millisecond).String(),
				entry.Filter,
			})
		}
		renderTable(cmd.OutOrStdout(), []string{"When", "Profile", "Entity", "Records", "Duration", "Filter"}, rows)
		return nil
	},
}

var entitiesCmd = &cobra.Command{
	Use:   "entities [entity]",
	Short: "List searchable entity types, or the fields of one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		cat, err := e.loadCatalog(ctx)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			entity, err := cat.Entity(ctx, args[0])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entity.Fields))
			for _, f := range entity.Fields {
				rows = append(rows, []string{f.Name, string(f.Type), f.Relation})
			}
			renderTable(cmd.OutOrStdout(), []string{"Field", "Type", "Relation"}, rows)
			return nil
		}

		entities, err := cat.Entities(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(entities))
		for _, entity := range entities {
			rows = append(rows, []string{entity.Name, entity.DisplayLabel(), strconv.FormatBool(entity.Searchable)})
		}
		renderTable(cmd.OutOrStdout(), []string{"Name", "Label", "Searchable"}, rows)
		return nil
	},
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Manage the database password kept in the system keyring",
}

var passwordSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the password of the configured database",
	Long: `Reads a password from stdin and stores it in the system keyring under
the configured host, port, database and user.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return fmt.Errorf("empty password")
		}

		if err := connection.NewPasswordStore().Save(e.cfg.Database, password); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Password stored")
		return nil
	},
}

var passwordDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored password of the configured database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := connection.NewPasswordStore().Delete(e.cfg.Database); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Password removed")
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show")
	historyCmd.Flags().StringVarP(&historySearch, "search", "s", "", "only entries whose profile, entity or filter contains this text")

	passwordCmd.AddCommand(passwordSetCmd, passwordDeleteCmd)
}
