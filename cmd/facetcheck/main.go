// Command facetcheck loads an options file, applies selections given as
// flags and prints what the authoring service would allow and submit.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/matst80/slask-audience/pkg/common/jsoncompat"
	"github.com/matst80/slask-audience/pkg/criteria"
	"github.com/matst80/slask-audience/pkg/facet"
	"github.com/matst80/slask-audience/pkg/options"
	"github.com/matst80/slask-audience/pkg/reconcile"
	"github.com/matst80/slask-audience/pkg/selection"
	"github.com/matst80/slask-audience/pkg/types"
	"github.com/spf13/cobra"
)

const (
	exitSuccess = 0
	exitInvalid = 1
	exitError   = 2
)

type checkFlags struct {
	optionsPath string
	maxPasses   int
	values      map[types.Dimension]*[]string

	name         string
	start        string
	end          string
	mode         string
	purchaseType string
	rfmMode      string
	segments     []string
}

func newRootCmd() *cobra.Command {
	flags := &checkFlags{values: map[types.Dimension]*[]string{}}
	root := &cobra.Command{
		Use:           "facetcheck",
		Short:         "Check campaign selections against an options file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.optionsPath, "options", "data/options.json", "options file (.json, .yaml or .gz snapshot)")
	root.PersistentFlags().IntVar(&flags.maxPasses, "max-passes", reconcile.DefaultMaxPasses, "reconciliation pass ceiling")
	for _, d := range types.AllDimensions {
		v := []string{}
		flags.values[d] = &v
		root.PersistentFlags().StringSliceVar(flags.values[d], string(d), nil, fmt.Sprintf("selected %s values", d))
	}

	allowed := &cobra.Command{
		Use:   "allowed",
		Short: "Reconcile the selections and print the allowed sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, res, err := flags.reconcile(cmd.Context())
			if err != nil {
				return err
			}
			return writeJson(cmd.OutOrStdout(), allowedOutput{
				Selections: store.Selections(),
				Allowed:    res.Allowed,
				Pruned:     res.Pruned,
				Passes:     res.Passes,
				Converged:  res.Converged,
				Deferred:   res.Deferred,
			})
		},
	}

	criteriaCmd := &cobra.Command{
		Use:   "criteria",
		Short: "Reconcile the selections and print the campaign payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := flags.reconcile(cmd.Context())
			if err != nil {
				return err
			}
			if err := flags.applyScalars(store); err != nil {
				return err
			}
			c, err := criteria.Assemble(store)
			if err != nil {
				return err
			}
			return writeJson(cmd.OutOrStdout(), c)
		},
	}
	criteriaCmd.Flags().StringVar(&flags.name, "name", "", "campaign name")
	criteriaCmd.Flags().StringVar(&flags.start, "start", "", "campaign start date (YYYY-MM-DD)")
	criteriaCmd.Flags().StringVar(&flags.end, "end", "", "campaign end date (YYYY-MM-DD)")
	criteriaCmd.Flags().StringVar(&flags.mode, "mode", string(types.AudienceCustomerBase), "audience mode: \"Customer Base\" or upload")
	criteriaCmd.Flags().StringVar(&flags.purchaseType, "purchase-type", string(types.PurchaseAny), "purchase type: any or recent")
	criteriaCmd.Flags().StringVar(&flags.rfmMode, "rfm-mode", string(types.RfmCustomized), "rfm mode: customized or segmented")
	criteriaCmd.Flags().StringSliceVar(&flags.segments, "segment", nil, "rfm segments")

	root.AddCommand(allowed, criteriaCmd)
	return root
}

type allowedOutput struct {
	Selections types.Selections                 `json:"selections"`
	Allowed    facet.AllowedSets                `json:"allowed"`
	Pruned     map[types.Dimension]types.Values `json:"pruned,omitempty"`
	Passes     int                              `json:"passes"`
	Converged  bool                             `json:"converged"`
	Deferred   []types.Domain                   `json:"deferred,omitempty"`
}

func (f *checkFlags) reconcile(ctx context.Context) (*selection.Store, reconcile.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	idx := facet.NewIndexes()
	if err := idx.Load(ctx, options.NewFileSource(f.optionsPath)); err != nil {
		return nil, reconcile.Result{}, err
	}
	store := selection.NewStore()
	sel := types.Selections{}
	for d, v := range f.values {
		if len(*v) > 0 {
			sel.Set(d, *v)
		}
	}
	store.Apply(sel)
	res := reconcile.NewReconciler(idx, f.maxPasses).Reconcile(ctx, store)
	return store, res, nil
}

func (f *checkFlags) applyScalars(store *selection.Store) error {
	start, err := types.ParseDate(f.start)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := types.ParseDate(f.end)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	period := types.DateRange{Start: start, End: end}
	store.SetScalars(selection.ScalarPatch{Name: &f.name, Period: &period, Segments: f.segments})
	store.SetAudienceMode(types.ParseAudienceMode(f.mode))
	store.SetPurchaseType(types.ParsePurchaseType(f.purchaseType))
	store.SetRfmMode(types.ParseRfmMode(f.rfmMode))
	return nil
}

func writeJson(w io.Writer, v any) error {
	data, err := jsoncompat.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var validation *criteria.ValidationError
	if errors.As(err, &validation) {
		return exitInvalid
	}
	return exitError
}

func main() {
	err := newRootCmd().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}
