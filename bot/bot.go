package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"ballot-bot/ballot"
	"ballot-bot/config"
	"ballot-bot/database"
	"ballot-bot/election"
	"ballot-bot/forum"
	"ballot-bot/forum/discord"
	"ballot-bot/forum/discourse"
	"ballot-bot/i18n"
	"ballot-bot/models"
	"ballot-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

// Exit codes of a run.
const (
	ExitOK                = 0
	ExitError             = 1
	ExitLoginFailed       = -1
	ExitMissingRoster     = -2
	ExitMalformedReminder = -3
	ExitEmptyRoster       = -4
)

// ErrLoginFailed wraps every failure of the login check.
var ErrLoginFailed = errors.New("could not perform login")

// ExitCode maps a run error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrLoginFailed), errors.Is(err, forum.ErrAuth):
		return ExitLoginFailed
	case errors.Is(err, election.ErrMissingRoster):
		return ExitMissingRoster
	case errors.Is(err, election.ErrMalformedReminder):
		return ExitMalformedReminder
	case errors.Is(err, election.ErrEmptyRoster):
		return ExitEmptyRoster
	default:
		return ExitError
	}
}

// Bot wires the forum, the store and the election passes of one run.
type Bot struct {
	Config      *models.Config
	Flags       models.Flags
	Forum       forum.Client
	Store       database.Store
	Coordinator *election.Coordinator
	Localizer   i18n.Localizer
	Marker      string
	Out         io.Writer
}

// NewBot creates a Bot from the configuration. session may be nil unless the Discord
// backend is selected.
func NewBot(cfg *models.Config, flags models.Flags, session *discordgo.Session, out io.Writer) (*Bot, error) {
	client, err := newForum(cfg.Forum, session)
	if err != nil {
		return nil, err
	}
	store, err := database.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("error opening store: %w", err)
	}
	return New(cfg, flags, client, store, out), nil
}

// New creates a Bot on an existing forum client and store.
func New(cfg *models.Config, flags models.Flags, client forum.Client, store database.Store, out io.Writer) *Bot {
	localizer := i18n.New(cfg.Election.Locale)
	marker := cfg.Election.ReminderKeyword
	if marker == "" {
		marker = localizer.Text(i18n.KeyReminderKeyword)
	}

	conversation := ballot.Conversation{Marker: marker, Texts: localizer.Texts()}
	return &Bot{
		Config:      cfg,
		Flags:       flags,
		Forum:       client,
		Store:       store,
		Coordinator: election.New(client, store, conversation, election.WithReserved(cfg.Election.ReservedUsernames...)),
		Localizer:   localizer,
		Marker:      marker,
		Out:         out,
	}
}

func newForum(cfg models.ForumConfig, session *discordgo.Session) (forum.Client, error) {
	switch cfg.Backend {
	case "discourse":
		client, err := discourse.NewClient(cfg.Discourse)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "discord":
		if session == nil {
			return nil, errors.New("forum.discord.token is required")
		}
		client, err := discord.NewClient(session, cfg.Discord.GuildID)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown forum backend %q", cfg.Backend)
	}
}

// Stop releases the store.
func (b *Bot) Stop() {
	if err := b.Store.Close(); err != nil {
		slog.Error("error closing store", "error", err)
	}
}

// ballot returns the opening post sent on initiation.
func (b *Bot) ballot() (election.Ballot, error) {
	var deadline time.Time
	if b.Config.Election.Deadline != "" {
		t, err := time.Parse(time.RFC3339, b.Config.Election.Deadline)
		if err != nil {
			return election.Ballot{}, fmt.Errorf("invalid election.deadline: %w", err)
		}
		deadline = t
	}

	title := b.Config.Election.Title
	if title == "" {
		title = b.Localizer.Text(i18n.KeyBallotTitle)
	}
	return election.Ballot{
		Title: title,
		Body:  b.Localizer.BallotBody(b.Config.Election.BallotMessage, deadline),
	}, nil
}

func (b *Bot) targets() []string {
	if len(b.Flags.Targets) > 0 {
		return b.Flags.Targets
	}
	return b.Config.Election.Targets
}

// RunOnce executes the passes requested by the flags in order: login check, roster,
// initiation, feedback, reminders, count and results.
func (b *Bot) RunOnce(ctx context.Context) error {
	// 1. Reject a bad reminder before talking to the forum.
	if b.Flags.Remind {
		if err := election.ValidateReminder(b.Flags.RemindMessage, b.Marker); err != nil {
			return err
		}
	}
	ballotPost, err := b.ballot()
	if err != nil {
		return err
	}

	// 2. Login check.
	if err := b.Forum.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	// 3. Roster.
	if b.Flags.FetchUsers {
		if _, err := b.Coordinator.FetchRoster(ctx); err != nil {
			return err
		}
	}
	roster, err := b.Coordinator.LoadRoster()
	if err != nil {
		return err
	}
	eligible := b.Coordinator.Eligible(roster)

	// 4. Initiation.
	if b.Flags.InitiateElection {
		ballots, err := b.Coordinator.Initiate(ctx, roster, election.AllowList(b.targets()), ballotPost)
		if err != nil {
			return err
		}
		slog.Info("election initiated", "ballots", len(ballots))
	}

	topics, err := b.Coordinator.OpenBallots()
	if err != nil {
		return err
	}

	// 5. Feedback.
	if !b.Flags.NoAnswer {
		summary, err := b.Coordinator.ProcessFeedback(ctx, topics, eligible, !b.Flags.NoUpdate)
		if err != nil {
			return err
		}
		slog.Info("feedback pass finished", "created", summary.Created, "edited", summary.Edited, "skipped", summary.Skipped)
	}

	// 6. Reminders.
	if b.Flags.Remind {
		sent, err := b.Coordinator.SendReminders(ctx, topics, b.Flags.RemindMessage)
		if err != nil {
			return err
		}
		slog.Info("reminders sent", "count", sent)
	}

	// 7. Count, every run.
	result, err := b.Coordinator.Tally(ctx, topics, eligible)
	if err != nil {
		return err
	}
	fmt.Fprintf(b.Out, "%d of %d people voted\n", result.Voted, result.Total)

	// 8. Results.
	if b.Flags.PrintResults {
		if err := b.Coordinator.SaveResults(result); err != nil {
			return err
		}
		lists, err := json.Marshal(result.Lists)
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		fmt.Fprintf(b.Out, "got the following list of votes:\n\n%s\n", lists)
	}
	return nil
}

// Run is the main entry point for the bot application and returns the exit code.
func Run(ctx context.Context, args []string, out io.Writer) int {
	flags, err := config.ParseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK
		}
		return ExitError
	}

	cfg, err := config.LoadConfig(flags.ConfigPath)
	if err != nil {
		slog.Error("error loading config", "error", err)
		return ExitError
	}

	var session *discordgo.Session
	var sender utils.EmbedSender
	if cfg.Forum.Discord.Token != "" {
		session, err = discord.NewSession(cfg.Forum.Discord.Token)
		if err != nil {
			slog.Error("error initializing Discord session", "error", err)
			return ExitError
		}
		sender = session
	}

	logger, closeLog, err := utils.InitLogger(cfg.Log, sender, cfg.Forum.Discord.AdminChannelID)
	if err != nil {
		slog.Error("error initializing logger", "error", err)
		return ExitError
	}
	defer closeLog()
	slog.SetDefault(logger.With("run_id", uuid.NewString()))

	b, err := NewBot(cfg, flags, session, out)
	if err != nil {
		slog.Error("error initializing bot", "error", err)
		return ExitError
	}
	defer b.Stop()

	if err := b.RunOnce(ctx); err != nil {
		slog.Error("run failed", "error", err)
		return ExitCode(err)
	}

	if flags.Watch {
		if err := b.Watch(ctx); err != nil {
			slog.Error("watch mode failed", "error", err)
			return ExitCode(err)
		}
	}
	return ExitOK
}
