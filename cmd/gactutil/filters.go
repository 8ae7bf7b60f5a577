package main

import (
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/inodb/gactutil/internal/filter"
	"github.com/inodb/gactutil/internal/output"
	"github.com/inodb/gactutil/internal/tabular"
	"github.com/inodb/gactutil/internal/yamldoc"
)

func (a *app) newFiltersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Inspect filters and filter configurations",
		Example: `  gactutil filters list                  # registered filters
  gactutil filters check filters.yaml    # validate a configuration
  gactutil filters fmt --diff filters.yaml`,
		Args: cobra.NoArgs,
	}

	cmd.AddCommand(a.newFiltersListCmd())
	cmd.AddCommand(a.newFiltersCheckCmd())
	cmd.AddCommand(a.newFiltersFmtCmd())

	return cmd
}

// tableDialect returns the dialect of the tables printed by filters list
// and check.
func (a *app) tableDialect() (tabular.Dialect, error) {
	delim, err := tabular.ParseDelimiter(a.v.GetString(keyReportDelimiter))
	if err != nil {
		return tabular.Dialect{}, usageError(fmt.Errorf("report delimiter: %w", err))
	}
	return tabular.Dialect{Delimiter: delim, Header: true}, nil
}

func (a *app) newFiltersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered filters and their parameters",
		Long: `List the registered filters. Parameters are shown as name:type; required
parameters are marked with a trailing '!'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.tableDialect()
			if err != nil {
				return err
			}
			tw, err := output.NewTabWriter(cmd.OutOrStdout(), d, output.DefinitionColumns)
			if err != nil {
				return err
			}
			if err := tw.WriteHeader(); err != nil {
				return err
			}
			return output.WriteDefinitions(tw, filter.DefaultRegistry().Definitions())
		},
	}
}

func (a *app) newFiltersCheckCmd() *cobra.Command {
	var noShortCircuit bool

	cmd := &cobra.Command{
		Use:   "check <filters.yaml>",
		Short: "Validate a filter configuration",
		Long: `Load a filter configuration and build its chain without reading any
records. Every configuration error is reported with its position. On success
one row per filter is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.tableDialect()
			if err != nil {
				return err
			}
			chain, err := buildChain(filterOptions{configPath: args[0], noShortCircuit: noShortCircuit}, filter.DefaultRegistry())
			if err != nil {
				return usageError(err)
			}

			tw, err := output.NewTabWriter(cmd.OutOrStdout(), d, output.SpecColumns)
			if err != nil {
				return err
			}
			if err := tw.WriteHeader(); err != nil {
				return err
			}
			return output.WriteSpecs(tw, chain.Specs())
		},
	}

	cmd.Flags().BoolVar(&noShortCircuit, "no-short-circuit", false, "build the chain without short-circuiting")

	return cmd
}

func (a *app) newFiltersFmtCmd() *cobra.Command {
	var showDiff, write bool

	cmd := &cobra.Command{
		Use:   "fmt <filters.yaml>",
		Short: "Print a filter configuration in normalised form",
		Long: `Decode a filter configuration and encode it again. Comments are dropped,
merge keys and aliases are expanded and tuples are written with the !tuple tag.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			formatted, err := formatConfig(data)
			if err != nil {
				return usageError(err)
			}

			switch {
			case write:
				if err := os.WriteFile(path, formatted, 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}
				return nil
			case showDiff:
				diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
					A:        difflib.SplitLines(string(data)),
					B:        difflib.SplitLines(string(formatted)),
					FromFile: path,
					ToFile:   path + " (formatted)",
					Context:  3,
				})
				if err != nil {
					return fmt.Errorf("computing diff: %w", err)
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), diff)
				return err
			default:
				_, err := cmd.OutOrStdout().Write(formatted)
				return err
			}
		},
	}

	cmd.Flags().BoolVar(&showDiff, "diff", false, "print a unified diff instead of the formatted document")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the formatted document back to the file")

	return cmd
}

// formatConfig validates a filter configuration and returns it re-encoded.
func formatConfig(data []byte) ([]byte, error) {
	specs, err := filter.ParseSpecs(data)
	if err != nil {
		return nil, err
	}

	doc := yamldoc.Sequence()
	for _, s := range specs {
		doc.Items = append(doc.Items, s.Document())
	}
	return yamldoc.Encode(doc)
}
