package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jask/skillmatch/internal/config"
	"github.com/jask/skillmatch/internal/devapi"
	"github.com/jask/skillmatch/internal/logging"
	"github.com/jask/skillmatch/internal/model"
	"github.com/jask/skillmatch/internal/notify"
	"github.com/jask/skillmatch/internal/tui"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "skillmatch",
		Short:         "Search matching jobs or candidates by skill",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context())
		},
	}
	root.AddCommand(
		newTUICmd(),
		newSearchCmd(),
		newServeDevCmd(),
		newVersionCmd(),
	)
	return root
}

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal UI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context())
		},
	}
}

func runTUI(ctx context.Context) error {
	a, err := wireApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	notes, stop := a.bus.Channel(16)
	defer stop()

	p := tea.NewProgram(tui.New(ctx, a.search, a.nav, notes), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func newSearchCmd() *cobra.Command {
	var (
		modeFlag   string
		skills     []string
		experience string
		pages      int
		stats      bool
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one search and print the matches",
		Example: `  skillmatch search --mode seeker --skill go --skill kafka
  skillmatch search --mode recruiter --skill java --experience SENIOR --pages 3 --stats`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := model.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			if len(skills) == 0 {
				return errors.New("at least one --skill is required")
			}
			ctx := cmd.Context()
			a, err := wireApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			stopNotes := a.bus.Subscribe(func(n notify.Notification) {
				if n.Level == notify.LevelError {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "error:", n.Message)
				}
			})
			defer stopNotes()

			if err := a.search.SwitchMode(mode); err != nil {
				return err
			}
			if experience != "" {
				a.sessions.SetExperience(mode, strings.ToUpper(experience))
			}
			if err := a.search.RunSearch(ctx, mode, skills, ""); err != nil {
				return err
			}
			for i := 1; i < pages && a.sessions.Get(mode).HasMore; i++ {
				time.Sleep(a.cfg.Search.LoadMoreCooldown)
				if err := a.search.LoadMore(ctx, mode); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			ms := a.sessions.Get(mode)
			for _, m := range ms.Matches {
				_, _ = fmt.Fprintf(out, "%5.1f\t%s\t%s\t%s\n", m.Score, m.ID, m.Title, m.Company)
			}
			if ms.TotalCount != nil {
				_, _ = fmt.Fprintf(out, "%d of %d shown\n", len(ms.Matches), *ms.TotalCount)
			}
			if stats {
				_, _ = fmt.Fprintln(out, "\ntop skills:")
				for _, f := range ms.TopSkills {
					_, _ = fmt.Fprintf(out, "  %-20s %5.1f%%  (%d)\n", f.Skill, f.Percentage, f.Count)
				}
				if err := a.search.LoadCategoryDistribution(ctx, mode); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, "\ncategories:")
				for _, sh := range a.sessions.Get(mode).CategoryShares {
					_, _ = fmt.Fprintf(out, "  %-20s %5.1f%%  %s\n", sh.Category, sh.Percentage, strings.Join(sh.MatchedSkills, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modeFlag, "mode", string(model.Seeker), "SEEKER or RECRUITER")
	cmd.Flags().StringArrayVar(&skills, "skill", nil, "skill to match (repeatable)")
	cmd.Flags().StringVar(&experience, "experience", "", "JUNIOR, MID or SENIOR")
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to fetch")
	cmd.Flags().BoolVar(&stats, "stats", false, "print top skills and categories of the search")
	return cmd
}

func newServeDevCmd() *cobra.Command {
	var (
		addr    string
		latency time.Duration
		seed    int64
		size    int
	)
	cmd := &cobra.Command{
		Use:   "serve-dev",
		Short: "Serve a synthetic match API for local development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return fmt.Errorf("logging: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			gin.SetMode(gin.ReleaseMode)
			srv := &http.Server{
				Addr:              addr,
				Handler:           devapi.NewRouter(devapi.Generate(seed, size), devapi.Options{Latency: latency, Logger: logger}),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "dev API listening on %s (POST /graphql)\n", addr)
			logger.Info("dev api listening", zap.String("addr", addr), zap.Int("records", size))

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().DurationVar(&latency, "latency", 0, "artificial delay per request")
	cmd.Flags().Int64Var(&seed, "seed", 1, "dataset seed")
	cmd.Flags().IntVar(&size, "size", 500, "records per mode")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}
