package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/jobagent/config"
	"github.com/mohammad-safakhou/jobagent/internal/boards"
	"github.com/mohammad-safakhou/jobagent/internal/browser"
	"github.com/mohammad-safakhou/jobagent/internal/flow"
	"github.com/mohammad-safakhou/jobagent/internal/humanloop"
	"github.com/mohammad-safakhou/jobagent/internal/intent"
	"github.com/mohammad-safakhou/jobagent/internal/planner"
	"github.com/mohammad-safakhou/jobagent/internal/ranker"
	"github.com/mohammad-safakhou/jobagent/internal/store"
	"github.com/mohammad-safakhou/jobagent/internal/telemetry"
	"github.com/mohammad-safakhou/jobagent/provider"
)

func runCMD() *cobra.Command {
	var boardURL string
	var run = &cobra.Command{
		Use:   "run",
		Short: "Run one search-and-apply session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if boardURL != "" {
				cfg.Search.BoardURL = boardURL
			}
			if cfg.Search.BoardURL == "" {
				return fmt.Errorf("no board url configured (search.board_url or --board-url)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			telemetry.SetDebug(cfg.General.Debug || strings.EqualFold(cfg.General.LogLevel, "debug"))
			logger := telemetry.NewLogger("SESSION")

			prov, err := provider.NewProvider(cfg.LLM)
			if err != nil {
				return err
			}
			if prov == nil {
				logger.Printf("no language model configured, heuristics only")
			}

			st, err := store.Open(cfg.Storage.SQLitePath)
			if err != nil {
				return err
			}
			defer st.Close()

			tel := telemetry.NewTelemetry(cfg.Telemetry)
			tel.Serve()

			session, err := browser.NewChromeSession(ctx, cfg.Browser)
			if err != nil {
				return err
			}
			defer session.Close(ctx)

			page, err := session.NewPage(ctx, cfg.Search.BoardURL)
			if err != nil {
				return fmt.Errorf("failed to open board: %w", err)
			}
			session.SetActive(page)

			board := boards.Lookup(cfg.Search.Board)
			cls := intent.New(cfg.Profile, prov, telemetry.NewLogger("INTENT"))
			cls.SetMetrics(tel)
			rk := ranker.NewRanker(prov, telemetry.NewLogger("RANKER"))
			rk.SetMetrics(tel)
			pl := planner.New(prov, cfg.Profile, cfg.Search, telemetry.NewLogger("PLANNER"))
			pl.SetMetrics(tel)
			prompter := humanloop.NewConsole()
			settle := cfg.Browser.SettleDelay

			controller := flow.NewController(flow.ControllerParams{
				Session:    session,
				Board:      board,
				BoardURL:   cfg.Search.BoardURL,
				Classifier: cls,
				Modal:      flow.NewModalDriver(board, cls, prompter, cfg.Profile.ResumePath, settle, telemetry.NewLogger("MODAL")),
				External: flow.NewExternalDriver(session, board, cls, rk,
					cfg.Profile.ResumePath, settle, telemetry.NewLogger("EXTERNAL")),
				Decider:         pl,
				Recorder:        st,
				Metrics:         tel,
				Logger:          logger,
				MaxApplications: cfg.Search.MaxApplications,
				Settle:          settle,
			})

			counters, err := controller.Run(ctx)
			logger.Printf("session done: applied=%d failed=%d manual-help=%d skipped=%d",
				counters.Applied, counters.Failed, counters.ManualHelp, counters.Skipped)
			return err
		},
	}
	run.Flags().StringVar(&boardURL, "board-url", "", "search-results url to drive")
	return run
}
