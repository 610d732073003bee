package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/imagedata"
	"github.com/hammamikhairi/badbar/internal/recipe"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Principal string
	Format    string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print a principal's recipes",
		Long: `Print the recipes owned by a principal.

Without --principal a fresh anonymous principal is used, which owns nothing.
Pass the principal printed by "badbar add" to see its recipes.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return fmt.Errorf("invalid format %q: must be text or json", opts.Format)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Principal, "principal", "", "principal whose recipes to list")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	b, err := opts.openBackend()
	if err != nil {
		return err
	}
	defer b.close()

	eng, err := startEngine(cmd.Context(), b, opts.RootOptions, opts.Principal)
	if err != nil {
		return err
	}
	recipes := eng.Recipes()
	eng.Stop()

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(recipes)
	}
	printRecipes(out, recipes)
	return nil
}

func printRecipes(out io.Writer, recipes []domain.Recipe) {
	if len(recipes) == 0 {
		fmt.Fprintln(out, "No recipes yet.")
		return
	}
	for i, r := range recipes {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, r.Name)
		for _, in := range r.Ingredients {
			fmt.Fprintf(out, "  - %s\n", recipe.FormatIngredient(in))
		}
		if r.Instructions != "" {
			fmt.Fprintf(out, "  %s\n", r.Instructions)
		}
		if r.Image != "" {
			if mime, size, err := imagedata.Info(r.Image); err == nil {
				fmt.Fprintf(out, "  [%s, %s]\n", mime, humanize.Bytes(uint64(size)))
			}
		}
	}
}
