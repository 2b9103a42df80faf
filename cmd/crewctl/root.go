package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/crewscore/internal/adapters/repository"
	app "github.com/okian/crewscore/internal/app"
	"github.com/okian/crewscore/internal/config"
	"github.com/okian/crewscore/pkg/logger"
)

// newRootCmd assembles the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "crewctl",
		Short:         "Crew score administration",
		Long:          "Migrate the schema, seed synthetic cohorts and run crew score calculations against the configured database.",
		SilenceUsage:  true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := logger.Init(); err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync()
		},
	}
	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newRecalcCmd(),
		newScoreCmd(),
	)
	return root
}

// env is the configuration and store shared by subcommands.
type env struct {
	cfg   *config.Config
	store *repository.SQLStore
	log   logger.Logger
}

// openEnv loads configuration and connects to the configured database.
func openEnv(ctx context.Context, migrate bool) (*env, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	store, err := repository.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return &env{cfg: cfg, store: store, log: logger.Get()}, nil
}

func (e *env) Close() error {
	return e.store.Close()
}

// withService starts a service over the environment, runs fn and drains
// pending notifications before returning.
func (e *env) withService(ctx context.Context, fn func(*app.Service) error) (err error) {
	sender, closeSender, err := app.NewPushSender(ctx, e.cfg, e.log)
	if err != nil {
		return err
	}
	defer func() { _ = closeSender() }()

	opts, err := app.ConfigOptions(e.cfg)
	if err != nil {
		return err
	}
	// one-shot commands never run the periodic sweep
	opts = append(opts, app.WithSchedule(""), app.WithPushSender(sender), app.WithLogger(e.log))
	svc := app.New(e.store, opts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if stopErr := svc.Stop(context.WithoutCancel(ctx)); err == nil {
			err = stopErr
		}
	}()
	return fn(svc)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
