// Package commands implements the fidctl command tree.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"funcid/internal/app"
	"funcid/internal/config"
	"funcid/internal/domain/functionalid"
	"funcid/pkg/logger"
)

// StoreOpener opens the backend for a command invocation.
type StoreOpener func(ctx context.Context, cfg config.Config, log *logger.Logger) (*app.Backend, error)

type rootOptions struct {
	envFile  string
	store    string
	logLevel string
	open     StoreOpener
}

// NewRootCommand builds the fidctl command tree. A nil open uses app.OpenStore.
func NewRootCommand(open StoreOpener) *cobra.Command {
	if open == nil {
		open = app.OpenStore
	}
	opts := &rootOptions{open: open}

	root := &cobra.Command{
		Use:   "fidctl",
		Short: "Manage functional id generators",
		Long: `fidctl defines, inspects and drives functional id generators.

Identifiers are the generator prefix followed by the sequence number in
Crockford base 32. Store settings come from the environment (see .env).`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Optional dotenv file to load")
	root.PersistentFlags().StringVar(&opts.store, "store", "", "Store backend (postgres or memory), overrides STORE")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")

	root.AddCommand(
		newMigrateCommand(opts),
		newCreateCommand(opts),
		newNextCommand(opts),
		newNextBatchCommand(opts),
		newSetSequenceCommand(opts),
		newCurrentCommand(opts),
		newListCommand(opts),
		newDropCommand(opts),
		newDecodeCommand(),
		newTokenCommand(opts),
	)
	return root
}

// loadConfig resolves configuration with flag overrides applied.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.LoadEnv(o.envFile)
	if err != nil {
		return config.Config{}, err
	}
	if o.store != "" {
		cfg.Store = o.store
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// withBackend opens the configured store for the duration of fn.
func (o *rootOptions) withBackend(cmd *cobra.Command, fn func(ctx context.Context, b *app.Backend) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: o.logLevel, OutputPaths: []string{"stderr"}})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx := logger.WithLogger(cmd.Context(), log)
	b, err := o.open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	return fn(ctx, b)
}

// withService is withBackend for commands that only need the service.
func (o *rootOptions) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *functionalid.Service) error) error {
	return o.withBackend(cmd, func(ctx context.Context, b *app.Backend) error {
		return fn(ctx, b.Service())
	})
}
