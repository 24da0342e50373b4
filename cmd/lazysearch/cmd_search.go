package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rebeliceyang/lazysearch/internal/app"
	"github.com/rebeliceyang/lazysearch/internal/domain"
	"github.com/rebeliceyang/lazysearch/internal/export"
	"github.com/rebeliceyang/lazysearch/internal/models"
	"github.com/rebeliceyang/lazysearch/internal/session"
	"github.com/spf13/cobra"
)

var (
	searchNoTUI      bool
	searchExpression string
	searchFormat     string
	searchOutput     string
	compileJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [profile]",
	Short: "Search with a profile",
	Long: `Runs a search profile. With no profile name the interactive picker is
shown. With --no-tui the profile (or the --expression override) is
compiled and executed once, and the result descriptor is printed.

Example:
  lazysearch search "Acme customers" --no-tui --format csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		if !searchNoTUI {
			return runInteractive(cmd.Context(), name)
		}
		if name == "" {
			return fmt.Errorf("a profile name is required with --no-tui")
		}
		return runSearch(cmd.Context(), name, cmd.OutOrStdout())
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile <profile>",
	Short: "Print the filter a profile compiles to",
	Long: `Compiles a profile's conditions, conjoined with the filter of its bound
action, without executing them.`,
	Args: cobra.ExactArgs(1),
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
		comp, err := e.compiler(ctx)
		if err != nil {
			return err
		}
		d, err := comp.EffectiveFilter(ctx, p)
		if err != nil {
			return err
		}

		if compileJSON {
			encoded, err := domain.Encode(d)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), d.String())
		return nil
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchNoTUI, "no-tui", false, "run once and print the result instead of opening the interface")
	searchCmd.Flags().StringVarP(&searchExpression, "expression", "e", "", "filter expression replacing the profile's conditions")
	searchCmd.Flags().StringVarP(&searchFormat, "format", "f", "json", "result format with --no-tui: json or csv")
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", "", "write the result to a file instead of stdout")

	compileCmd.Flags().BoolVar(&compileJSON, "json", false, "print the filter in its JSON encoding")
}

// runInteractive shows the picker, or the condition editor of name when set
func runInteractive(ctx context.Context, name string) error {
	e, err := openEnv(true)
	if err != nil {
		return err
	}
	defer e.Close()

	sessCfg, err := e.sessionConfig(ctx)
	if err != nil {
		return err
	}

	deps := app.Deps{
		Context:    ctx,
		Profiles:   e.store,
		Session:    sessCfg,
		UserGroups: e.cfg.User.Groups,
		Theme:      e.cfg.UI.Theme,
		Logger:     e.logger.Named("ui"),
	}
	if name != "" {
		p, err := e.store.Find(ctx, name)
		if err != nil {
			return err
		}
		if !p.VisibleTo(e.cfg.User.Groups) {
			return fmt.Errorf("profile %q is not available to your groups", p.Name)
		}
		deps.Initial = &p
	}

	a := app.New(deps)
	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if e.cfg.UI.MouseEnabled {
		opts = append(opts, tea.WithMouseCellMotion())
	}

	if _, err := tea.NewProgram(a, opts...).Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}

	if result, ok := a.Outcome(); ok {
		return export.WriteResultJSON(os.Stdout, result)
	}
	return nil
}

// runSearch executes a profile once without the interface
func runSearch(ctx context.Context, name string, stdout io.Writer) error {
	e, err := openEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	p, err := e.store.Find(ctx, name)
	if err != nil {
		return err
	}
	if !p.VisibleTo(e.cfg.User.Groups) {
		return fmt.Errorf("profile %q is not available to your groups", p.Name)
	}

	sessCfg, err := e.sessionConfig(ctx)
	if err != nil {
		return err
	}
	sess, err := session.New(ctx, sessCfg, p)
	if err != nil {
		return err
	}
	if searchExpression != "" {
		if err := sess.SetOverrideExpression(searchExpression); err != nil {
			return err
		}
	}

	result, err := sess.Confirm(ctx)
	if err != nil {
		return err
	}

	w := stdout
	if searchOutput != "" {
		f, err := os.Create(searchOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return writeResult(w, result, searchFormat)
}

func writeResult(w io.Writer, result models.ResultDescriptor, format string) error {
	switch format {
	case "json":
		return export.WriteResultJSON(w, result)
	case "csv":
		return export.WriteResultCSV(w, result)
	}
	return fmt.Errorf("unsupported format %q, use json or csv", format)
}
