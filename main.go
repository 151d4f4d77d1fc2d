package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/alufers/paystat-bot/internal/backup"
	"github.com/alufers/paystat-bot/internal/clock"
	"github.com/alufers/paystat-bot/internal/ledger"
	"github.com/alufers/paystat-bot/internal/logger"
	"github.com/alufers/paystat-bot/internal/schedule"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var path string
	root := &cobra.Command{
		Use:           "paystat-bot",
		Short:         "Telegram bot recording pay runs, daily and weekly pay stats and pay voids",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&path, "config", "c", configPath(), "config file (env PAYSTAT_CONFIG_FILE)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(path, true, func(ctx context.Context, app *App) error {
				return serveBot(ctx, app)
			})
		},
	}
	root.RunE = serve.RunE

	root.AddCommand(serve)
	root.AddCommand(&cobra.Command{
		Use:   "backup",
		Short: "Back up the current ledger period and prune old backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(path, false, func(ctx context.Context, app *App) error {
				now := app.now(app.settings.Load())
				if _, err := app.shelf.At(now); err != nil {
					return err
				}
				res, err := app.backups.Create(ctx, now)
				if err != nil {
					return err
				}
				if res.Skipped {
					fmt.Fprintf(cmd.OutOrStdout(), "%v unchanged since last backup\n", res.Period)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "wrote %v\n", res.Path)
				}
				if res.UploadErr != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "off-site copy failed: %v\n", res.UploadErr)
				}
				removed, err := app.backups.Prune(now)
				for _, f := range removed {
					fmt.Fprintf(cmd.OutOrStdout(), "pruned %v\n", f)
				}
				return err
			})
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "resetvoids",
		Short: "Clear every recorded void and ban",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(path, false, func(ctx context.Context, app *App) error {
				return app.resetVoids()
			})
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Check settings, recompute every period's totals and test the IMAP login",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(path, false, func(ctx context.Context, app *App) error {
				return verify(cmd, app)
			})
		},
	})
	return root
}

// withApp loads the config, opens the stores and runs fn until SIGINT or
// SIGTERM.
func withApp(path string, needToken bool, fn func(ctx context.Context, app *App) error) error {
	cfg, created, err := loadConfig(path)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()
	if created {
		log.Info("created default config file", zap.String("path", path))
	}
	if err := cfg.validate(needToken); err != nil {
		return err
	}

	app, err := openApp(cfg, clock.Real{}, log)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, app)
}

func serveMetrics(ctx context.Context, app *App) {
	if app.cfg.MetricsAddress == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())
	srv := &http.Server{Addr: app.cfg.MetricsAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		app.log.Info("serving metrics", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.log.Error("metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

func serveBot(ctx context.Context, app *App) error {
	api, err := tgbotapi.NewBotAPI(app.cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	app.log.Info("authorized on account", zap.String("account", api.Self.UserName))

	if _, err := api.Request(tgbotapi.NewSetMyCommands(botCommands...)); err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}

	bot := newBot(app, api, api.Self.ID)
	serveMetrics(ctx, app)
	bot.runJobs(ctx, schedule.NewRunner(app.clock, app.log))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query", "chat_member"}
	updates := api.GetUpdatesChan(u)

	defer func() {
		api.StopReceivingUpdates()
		bot.autoReply.Stop()
		bot.Wait()
	}()
	for {
		select {
		case <-ctx.Done():
			app.log.Info("shutting down")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			bot.HandleUpdate(ctx, update)
		}
	}
}

// recentAuditLimit is how many audit entries verify looks back over.
const recentAuditLimit = 50

func verify(cmd *cobra.Command, app *App) error {
	out := cmd.OutOrStdout()
	failed := false

	if err := app.settings.Load().Validate(); err != nil {
		fmt.Fprintf(out, "settings: %v\n", err)
		failed = true
	} else {
		fmt.Fprintln(out, "settings: ok")
	}

	files, err := filepath.Glob(filepath.Join(app.cfg.StorageDir, "[A-Z][A-Z][A-Z]_[0-9][0-9][0-9][0-9].json"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		name := filepath.Base(f)
		name = name[:len(name)-len(".json")]
		book, err := ledger.Open(name, ledger.FileStorage{Path: f})
		if err != nil {
			fmt.Fprintf(out, "%v: %v\n", name, err)
			failed = true
			continue
		}
		snap := book.Snapshot()
		if drift := snap.Drift(); len(drift) == 0 {
			fmt.Fprintf(out, "%v: %d records, totals ok\n", name, snap.Len())
		} else {
			failed = true
			for _, d := range drift {
				fmt.Fprintf(out, "%v: %v\n", name, d)
			}
		}
		if logged, err := app.state.Backups(name); err != nil {
			fmt.Fprintf(out, "%v: backup log: %v\n", name, err)
			failed = true
		} else if len(logged) > 0 {
			last := logged[0]
			fmt.Fprintf(out, "%v: %d backups, last %v (uploaded: %v)\n", name, len(logged), last.FileName, last.Uploaded)
		}
	}

	if entries, err := app.state.RecentAudit(recentAuditLimit); err != nil {
		fmt.Fprintf(out, "audit: %v\n", err)
		failed = true
	} else {
		errs := 0
		for _, e := range entries {
			if e.Kind == "error" {
				errs++
				fmt.Fprintf(out, "audit: %v /%v by %v: %v\n", e.CreatedAt.Format(time.RFC3339), e.Command, e.UserName, e.Error)
			}
		}
		fmt.Fprintf(out, "audit: %d errors in the last %d entries\n", errs, len(entries))
	}

	if up, ok := app.backups.Uploader.(*backup.IMAPUploader); ok {
		if mailboxes, err := up.Check(); err != nil {
			fmt.Fprintf(out, "imap: %v\n", err)
			failed = true
		} else {
			fmt.Fprintf(out, "imap: ok (%d mailboxes)\n", len(mailboxes))
		}
	}

	if failed {
		return errors.New("verification failed")
	}
	return nil
}
