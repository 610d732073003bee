package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/hammamikhairi/badbar/internal/engine"
	"github.com/hammamikhairi/badbar/internal/imagedata"
	"github.com/hammamikhairi/badbar/internal/notify"
	"github.com/hammamikhairi/badbar/internal/recipe"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Name         string
	Ingredients  []string
	Instructions string
	Image        string
	Principal    string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a recipe without the interactive UI",
		Long: `Add a recipe and wait until it is stored.

Ingredients are given as name=amount and keep their order.

Example:
  badbar add --name Mojito --ingredient Rum=50ml --ingredient "Mint=6 leaves" \
    --instructions "Muddle, add rum, top with soda" --image mojito.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "recipe name (required)")
	cmd.Flags().StringArrayVarP(&opts.Ingredients, "ingredient", "i", nil, "ingredient as name=amount (repeatable)")
	cmd.Flags().StringVar(&opts.Instructions, "instructions", "", "how to make it (required)")
	cmd.Flags().StringVar(&opts.Image, "image", "", "path to a picture")
	cmd.Flags().StringVar(&opts.Principal, "principal", "", "add as a previously issued principal")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("instructions")

	return cmd
}

func runAdd(cmd *cobra.Command, opts *AddOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	b, err := opts.openBackend()
	if err != nil {
		return err
	}
	defer b.close()

	var printOpts []notify.CLIOption
	if f, ok := out.(*os.File); !ok || !term.IsTerminal(f.Fd()) {
		printOpts = append(printOpts, notify.WithPlain())
	}
	printer := notify.NewCLINotifier(opts.log.Named("notify"), func(format string, a ...any) {
		fmt.Fprintf(out, format+"\n", a...)
	}, printOpts...)

	var stored atomic.Bool
	eng, err := startEngine(ctx, b, opts.RootOptions, opts.Principal, engine.WithNotifier(notify.Multi{
		printer,
		notify.Func(func(context.Context, string) error {
			stored.Store(true)
			return nil
		}),
	}))
	if err != nil {
		return err
	}

	if err := fillDraft(eng, opts); err != nil {
		eng.Stop()
		return err
	}
	if err := eng.SubmitDraft(ctx); err != nil {
		eng.Stop()
		return err
	}
	principal := eng.Principal()
	eng.Stop()

	if !stored.Load() {
		return errors.New("recipe was not stored, see the log for details")
	}
	fmt.Fprintf(out, "principal: %s\n", principal)
	return nil
}

func fillDraft(eng *engine.Engine, opts *AddOptions) error {
	d := eng.Draft()
	d.SetName(opts.Name)
	d.SetInstructions(opts.Instructions)

	for _, raw := range opts.Ingredients {
		in, ok := recipe.ParseIngredient(raw)
		if !ok || !d.Add(in.Name, in.Amount) {
			return fmt.Errorf("invalid ingredient %q, want name=amount", raw)
		}
	}

	if opts.Image != "" {
		uri, err := imagedata.FromFile(opts.Image)
		if err != nil {
			return err
		}
		d.SetImage(uri)
	}
	return nil
}
