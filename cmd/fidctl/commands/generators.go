package commands

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"funcid/internal/app"
	"funcid/internal/domain/functionalid"
	"funcid/pkg/numerator"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the generator table if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withBackend(cmd, func(ctx context.Context, b *app.Backend) error {
				if err := b.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema ready (%s)\n", b.Name)
				return nil
			})
		},
	}
}

func newCreateCommand(opts *rootOptions) *cobra.Command {
	var start int64
	cmd := &cobra.Command{
		Use:   "create <label> <prefix>",
		Short: "Define a generator for a label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *functionalid.Service) error {
				g, err := svc.Create(ctx, args[0], args[1], start)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Generator %s created, sequence %d (%s)\n", g.Label, g.Sequence, g.UID)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&start, "start", 0, "Initial sequence value; the first issued id is start+1")
	return cmd
}

func newNextCommand(opts *rootOptions) *cobra.Command {
	var (
		numeric   bool
		count     int
		rangeSize int64
	)
	cmd := &cobra.Command{
		Use:   "next <label>",
		Short: "Issue the next identifier",
		Long: `Issue the next identifier, or --count identifiers one at a time.

With --range R the identifiers are drawn from ranges of R reserved by a
single batch allocation. Ids left in the last range are not returned to
the generator, so the stored sequence may run ahead of what was printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("invalid count %d: must be at least 1", count)
			}
			if rangeSize < 0 {
				return fmt.Errorf("invalid range %d: must not be negative", rangeSize)
			}
			numOpts := numerator.Options{Strategy: numerator.StrategyStrict, Numeric: numeric}
			if rangeSize > 0 {
				numOpts.Strategy = numerator.StrategyCached
				numOpts.RangeSize = rangeSize
			}

			return opts.withService(cmd, func(ctx context.Context, svc *functionalid.Service) error {
				num := numerator.New(svc, numOpts)
				for range count {
					id, err := num.Next(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&numeric, "numeric", false, "Issue the bare decimal sequence number")
	cmd.Flags().IntVar(&count, "count", 1, "Number of identifiers to issue")
	cmd.Flags().Int64Var(&rangeSize, "range", 0, "Reserve ids in ranges of this size (0 allocates each id)")
	return cmd
}

func newNextBatchCommand(opts *rootOptions) *cobra.Command {
	var numeric bool
	cmd := &cobra.Command{
		Use:   "next-batch <label> <size>",
		Short: "Issue a batch of consecutive identifiers, one per line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid batch size %q: %w", args[1], err)
			}
			return opts.withService(cmd, func(ctx context.Context, svc *functionalid.Service) error {
				ids, err := svc.NextBatch(ctx, args[0], size, numeric)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, id := range ids {
					fmt.Fprintln(out, id)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&numeric, "numeric", false, "Issue bare decimal sequence numbers")
	return cmd
}

func newSetSequenceCommand(opts *rootOptions) *cobra.Command {
	var numeric bool
	cmd := &cobra.Command{
		Use:   "set-sequence <label> <number>",
		Short: "Move a generator's sequence; the next id will be number+1",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid sequence number %q: %w", args[1], err)
			}
			return opts.withService(cmd, func(ctx context.Context, svc *functionalid.Service) error {
				id, err := svc.SetSequence(ctx, args[0], n, numeric)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&numeric, "numeric", false, "Print the bare decimal value")
	return cmd
}

func newCurrentCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "current <label>",
		Short: "Show the stored state of a generator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *functionalid.Service) error {
				g, err := svc.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if !g.IsDefined() {
					fmt.Fprintf(cmd.OutOrStdout(), "No generator defined for label %s\n", args[0])
					return nil
				}
				return printGenerators(cmd, []*functionalid.Generator{g})
			})
		},
	}
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all generators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *functionalid.Service) error {
				items, err := svc.List(ctx)
				if err != nil {
					return err
				}
				return printGenerators(cmd, items)
			})
		},
	}
}

func newDropCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <label>",
		Short: "Delete a generator definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *functionalid.Service) error {
				res, err := svc.Drop(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.Message)
				return nil
			})
		},
	}
}

func printGenerators(cmd *cobra.Command, items []*functionalid.Generator) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tPREFIX\tSEQUENCE\tLAST ID")
	for _, g := range items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", g.Label, g.Prefix, g.Sequence, g.UID)
	}
	return w.Flush()
}
