package cli

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"quiz-player/internal/config"
	"quiz-player/internal/gateway"
	"quiz-player/internal/player"
	"quiz-player/internal/tui"
)

type playOptions struct {
	quizID    string
	learnerID string
	baseURL   string
	logPath   string
}

// NewPlayCmd builds the subcommand that takes a quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var opts playOptions
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take a quiz",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlayer(cmd.Context(), *configPath, opts)
		},
	}
	cmd.Flags().StringVar(&opts.quizID, "quiz", "", "quiz to take")
	cmd.Flags().StringVar(&opts.learnerID, "learner", "", "learner id (overrides gateway.learnerId)")
	cmd.Flags().StringVar(&opts.baseURL, "url", "", "attempt service URL (overrides gateway.baseUrl)")
	cmd.Flags().StringVar(&opts.logPath, "log", "", "write player logs to this file")
	_ = cmd.MarkFlagRequired("quiz")
	return cmd
}

func runPlayer(ctx context.Context, configPath string, opts playOptions) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	if opts.baseURL != "" {
		cfg.Gateway.BaseURL = opts.baseURL
	}
	if opts.learnerID != "" {
		cfg.Gateway.LearnerID = opts.learnerID
	}
	if cfg.Gateway.LearnerID == "" {
		return errors.New("learner id not configured: pass --learner or set gateway.learnerId")
	}

	// The terminal belongs to the UI; logs go to a file or nowhere.
	logger := log.New(io.Discard, "", 0)
	if opts.logPath != "" {
		f, err := os.OpenFile(opts.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}
		defer f.Close()
		logger = log.New(f, "player ", log.LstdFlags)
	}

	timeout := config.TTLDuration(cfg.Gateway.RequestTimeout, 10*time.Second)
	client := gateway.New(cfg.Gateway.BaseURL, cfg.Gateway.LearnerID, timeout)

	quiz, err := client.FetchQuiz(ctx, opts.quizID)
	if err != nil {
		return errors.Wrapf(err, "load quiz %s", opts.quizID)
	}

	ctrl, err := player.NewController(quiz, client,
		player.WithDevice(gateway.DetectDevice()),
		player.WithFlushRetries(cfg.Gateway.FlushRetries),
		player.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()
	go func() {
		_ = ctrl.Run(ctx, time.Second)
	}()

	_, runErr := tea.NewProgram(tui.New(ctx, ctrl, updates)).Run()

	// Give pending answer writes a moment before exiting.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), timeout)
	defer drainCancel()
	if err := ctrl.Drain(drainCtx); err != nil {
		logger.Printf("drain: %v", err)
	}
	return runErr
}
