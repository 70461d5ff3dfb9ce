package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"GreenDeck/internal/logger"
	"GreenDeck/internal/progress"
	"GreenDeck/internal/report"
	"GreenDeck/internal/session"
)

var (
	progressLearner string
	progressReset   bool
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show or reset a learner's progress",
	Long: `Reads a learner's saved position and completed goals from the configured
store and prints them per section.

Examples:
  greendeck progress
  greendeck progress --learner 3f2b... --reset`,
	RunE: runProgress,
}

func init() {
	progressCmd.Flags().StringVar(&progressLearner, "learner", session.DefaultLearner, "Learner id")
	progressCmd.Flags().BoolVar(&progressReset, "reset", false, "Clear the learner's progress")
	rootCmd.AddCommand(progressCmd)
}

func runProgress(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	d, err := openDeck(cfg)
	if err != nil {
		return fmt.Errorf("load deck: %w", err)
	}
	store, err := openStore(cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	learnerID, ok := session.NormalizeLearnerID(progressLearner)
	if !ok {
		return fmt.Errorf("invalid learner id %q", progressLearner)
	}
	ctx := context.Background()
	ctrl, release, err := session.NewRegistry(store, d, log).Get(ctx, learnerID)
	if err != nil {
		return err
	}
	defer release()
	if progressReset {
		if _, err := ctrl.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "progress for %s cleared\n", learnerID)
	}

	state := ctrl.State()
	fmt.Fprint(cmd.OutOrStdout(), report.FormatProgress(d, state, progress.Derive(d, state)))
	return nil
}
