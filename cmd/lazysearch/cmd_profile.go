package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rebeliceyang/lazysearch/internal/export"
	"github.com/rebeliceyang/lazysearch/internal/models"
	"github.com/rebeliceyang/lazysearch/internal/profile"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	profileListAll    bool
	profileExportFmt  string
	profileNoValidate bool
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage search profiles",
	Long: `Lists, shows, deletes, imports and exports search profiles.

Profiles are written as YAML files:

  actions:
    - id: open-parties
      name: Parties
      entity_type: party
      domain: "[('active', '=', True)]"
  profiles:
    - name: Acme
      entity_type: party
      action_id: open-parties
      lines:
        - {sequence: 10, group: AND, field: name, operator: ilike, value: "%acme%"}`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the profiles available to you",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		var profiles []models.Profile
		if profileListAll {
			profiles, err = e.store.List(cmd.Context())
		} else {
			profiles, err = e.store.ListVisible(cmd.Context(), e.cfg.User.Groups)
		}
		if err != nil {
			return err
		}
		if len(profiles) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No profiles.")
			return nil
		}

		rows := make([][]string, 0, len(profiles))
		for _, p := range profiles {
			cond := p.Condition()
			if p.UseExpression {
				cond = p.Expression
			}
			rows = append(rows, []string{p.Name, p.EntityType, cond, strings.Join(p.Groups, ",")})
		}
		renderTable(cmd.OutOrStdout(), []string{"Name", "Entity", "Condition", "Groups"}, rows)
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <profile>",
	Short: "Show a profile as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		p, err := e.store.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(p)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <profile>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		p, err := e.store.Find(ctx, args[0])
		if err != nil {
			return err
		}
		if err := e.store.Delete(ctx, p.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %q\n", p.Name)
		return nil
	},
}

var profileImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import actions and profiles from a YAML file",
	Long: `Imports the actions and profiles of a YAML file. Every profile is
checked against the entity catalog first; use --no-validate to skip it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		var check func(context.Context, models.Profile) error
		if !profileNoValidate {
			cat, err := e.loadCatalog(ctx)
			if err != nil {
				return err
			}
			check = func(ctx context.Context, p models.Profile) error {
				return profile.Validate(ctx, cat, e.store, p)
			}
		}

		n, err := profile.Import(ctx, e.store, args[0], check)
		if err != nil {
			return fmt.Errorf("imported %d profiles before failing: %w", n, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d profiles\n", n)
		return nil
	},
}

var profileExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export profiles to a file",
	Long: `Exports every profile. The format follows the file extension (.yaml,
.yml, .csv, .json) unless --format is given. Only YAML files can be
imported again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		path := args[0]
		format := profileExportFmt
		if format == "" {
			format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		}

		switch format {
		case "yaml", "yml":
			n, err := profile.Export(ctx, e.store, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d profiles to %s\n", n, path)
			return nil
		case "csv", "json":
			profiles, err := e.store.List(ctx)
			if err != nil {
				return err
			}
			if format == "csv" {
				err = export.ProfilesToCSV(profiles, path)
			} else {
				err = export.ProfilesToJSON(profiles, path)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d profiles to %s\n", len(profiles), path)
			return nil
		}
		return fmt.Errorf("unsupported export format %q, use yaml, csv or json", format)
	},
}

var profileValidateCmd = &cobra.Command{
	Use:   "validate [profile]",
	Short: "Check profiles against the entity catalog",
	Long: `Checks that a profile's entity type is searchable, its lines name
existing fields with values of the right type, and its expression is a
filter. Without a name every profile is checked.`,
	Args: cobra.MaximumNArgs(1),
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

		var profiles []models.Profile
		if len(args) == 1 {
			p, err := e.store.Find(ctx, args[0])
			if err != nil {
				return err
			}
			profiles = []models.Profile{p}
		} else if profiles, err = e.store.List(ctx); err != nil {
			return err
		}

		failed := 0
		for _, p := range profiles {
			if err := profile.Validate(ctx, cat, e.store, p); err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "✗ %s\n", err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", p.Name)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d profiles are invalid", failed, len(profiles))
		}
		return nil
	},
}

var actionCmd = &cobra.Command{
	Use:   "action",
	Short: "Inspect the actions profiles can be bound to",
}

var actionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List actions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		actions, err := e.store.ListActions(cmd.Context())
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(actions))
		for _, a := range actions {
			rows = append(rows, []string{a.ID, a.Name, a.EntityType, a.Domain})
		}
		renderTable(cmd.OutOrStdout(), []string{"ID", "Name", "Entity", "Domain"}, rows)
		return nil
	},
}

func init() {
	profileListCmd.Flags().BoolVarP(&profileListAll, "all", "a", false, "include profiles restricted to other groups")
	profileExportCmd.Flags().StringVar(&profileExportFmt, "format", "", "yaml, csv or json")
	profileImportCmd.Flags().BoolVar(&profileNoValidate, "no-validate", false, "import without checking profiles against the catalog")

	profileCmd.AddCommand(profileListCmd, profileShowCmd, profileDeleteCmd, profileImportCmd, profileExportCmd, profileValidateCmd)
	actionCmd.AddCommand(actionListCmd)
}
