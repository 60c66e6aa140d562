package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Watch repeats the feedback pass on the configured schedule until ctx is cancelled.
// A tick that is still running when the next one fires is skipped.
func (b *Bot) Watch(ctx context.Context) error {
	logger := cron.VerbosePrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug))
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(logger)))

	_, err := c.AddFunc(b.Config.Schedule.Feedback, func() {
		slog.Debug("running scheduled feedback pass")
		if err := b.feedbackPass(ctx); err != nil {
			slog.Error("scheduled feedback pass failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("could not set up cron job: %w", err)
	}

	c.Start()
	slog.Info("watching ballots", "schedule", b.Config.Schedule.Feedback)

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("scheduler stopped")
	return nil
}

// feedbackPass reloads the roster and the open ballots and answers new replies. Feedback
// already sent is not recomputed, so quiet threads are not edited on every tick.
func (b *Bot) feedbackPass(ctx context.Context) error {
	roster, err := b.Coordinator.LoadRoster()
	if err != nil {
		return err
	}
	topics, err := b.Coordinator.OpenBallots()
	if err != nil {
		return err
	}

	summary, err := b.Coordinator.ProcessFeedback(ctx, topics, b.Coordinator.Eligible(roster), false)
	if err != nil {
		return err
	}
	if summary.Created > 0 || summary.Edited > 0 {
		slog.Info("feedback pass finished", "created", summary.Created, "edited", summary.Edited)
	}
	return nil
}
