package election

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"ballot-bot/ballot"
	"ballot-bot/database"
	"ballot-bot/forum"
	"ballot-bot/models"
)

// Selector decides whether an eligible voter receives a ballot.
type Selector func(record models.VoterRecord) bool

// AllowList selects the named users only. An empty list selects everybody.
func AllowList(names []string) Selector {
	if len(names) == 0 {
		return func(models.VoterRecord) bool { return true }
	}
	allowed := ballot.NewSet(names...)
	return func(record models.VoterRecord) bool {
		return allowed.Contains(record.Username)
	}
}

// Ballot is the opening post of every ballot thread.
type Ballot struct {
	Title string
	Body  string
}

// FeedbackSummary counts what a feedback pass did.
type FeedbackSummary struct {
	Created int
	Edited  int
	Skipped int
}

// Coordinator runs the election passes over the open ballots. Forum calls are issued
// one at a time; the first failing call aborts the pass.
type Coordinator struct {
	forum        forum.Client
	store        database.Store
	conversation ballot.Conversation
	reserved     ballot.Set
	shuffle      func(lists [][]string)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithReserved adds usernames that can never vote or be voted for.
func WithReserved(names ...string) Option {
	return func(c *Coordinator) {
		for _, name := range names {
			c.reserved[ballot.Normalize(name)] = struct{}{}
		}
	}
}

// WithShuffle replaces the permutation applied to the tally.
func WithShuffle(shuffle func(lists [][]string)) Option {
	return func(c *Coordinator) {
		c.shuffle = shuffle
	}
}

// New creates a Coordinator.
func New(client forum.Client, store database.Store, conversation ballot.Conversation, opts ...Option) *Coordinator {
	c := &Coordinator{
		forum:        client,
		store:        store,
		conversation: conversation,
		reserved:     ballot.NewSet(ballot.ReservedUsernames...),
		shuffle:      shuffleLists,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func shuffleLists(lists [][]string) {
	rand.Shuffle(len(lists), func(i, j int) {
		lists[i], lists[j] = lists[j], lists[i]
	})
}

// Eligible derives the eligible usernames of the roster.
func (c *Coordinator) Eligible(roster []models.VoterRecord) ballot.Set {
	return ballot.EligibleSet(roster, c.reserved)
}

// LoadRoster returns the saved roster snapshot.
func (c *Coordinator) LoadRoster() ([]models.VoterRecord, error) {
	var roster []models.VoterRecord
	if err := c.store.Load(database.KeyRoster, &roster); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrMissingRoster, err)
		}
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	return roster, nil
}

// FetchRoster lists the forum users and saves them as the roster snapshot.
func (c *Coordinator) FetchRoster(ctx context.Context) ([]models.VoterRecord, error) {
	roster, err := c.forum.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	if roster == nil {
		roster = []models.VoterRecord{}
	}
	if err := c.store.Save(database.KeyRoster, roster); err != nil {
		return nil, fmt.Errorf("failed to save roster: %w", err)
	}
	slog.Info("roster fetched", "users", len(roster))
	return roster, nil
}

// Initiate sends a ballot to every eligible voter accepted by selector. The list of open
// ballots starts empty and is saved after every created thread, so an interrupted run
// leaves a valid prefix behind.
func (c *Coordinator) Initiate(ctx context.Context, roster []models.VoterRecord, selector Selector, b Ballot) ([]models.BallotTopic, error) {
	if len(roster) == 0 {
		return nil, ErrEmptyRoster
	}
	if selector == nil {
		selector = AllowList(nil)
	}

	ballots := []models.BallotTopic{}
	open := []models.TopicID{}
	for _, record := range roster {
		if !ballot.IsEligible(record, c.reserved) || !selector(record) {
			continue
		}

		slog.Info("sending ballot", "user", record.Username)
		topic, err := c.forum.CreatePrivateThread(ctx, b.Title, b.Body, []string{record.Username})
		if err != nil {
			return ballots, fmt.Errorf("failed to send ballot to %s: %w", record.Username, err)
		}
		ballots = append(ballots, models.BallotTopic{TopicID: topic, TargetUsername: record.Username})
		open = append(open, topic)

		if err := c.store.Save(database.KeyOpenBallots, open); err != nil {
			return ballots, fmt.Errorf("failed to save open ballots: %w", err)
		}
	}

	if len(ballots) == 0 {
		slog.Warn("no eligible user was selected, no ballot sent")
	}
	return ballots, nil
}

// OpenBallots returns the saved open ballots. Before the first initiation there are none.
func (c *Coordinator) OpenBallots() ([]models.TopicID, error) {
	var topics []models.TopicID
	if err := c.store.Load(database.KeyOpenBallots, &topics); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return []models.TopicID{}, nil
		}
		return nil, fmt.Errorf("failed to load open ballots: %w", err)
	}
	return topics, nil
}

// ProcessFeedback answers every ballot thread whose voter wrote something new. With update
// set, the bot's own last feedback is recomputed and edited in place.
func (c *Coordinator) ProcessFeedback(ctx context.Context, topics []models.TopicID, eligible ballot.Set, update bool) (FeedbackSummary, error) {
	var summary FeedbackSummary
	for _, topic := range topics {
		posts, err := c.forum.ListPosts(ctx, topic)
		if err != nil {
			return summary, fmt.Errorf("topic %s: %w", topic, err)
		}

		d := c.conversation.Decide(posts, eligible, update)
		switch d.Action {
		case ballot.ActionCreate:
			slog.Debug("sending feedback", "topic", topic, "votes", d.Votes, "legal", d.Legal)
			if err := c.forum.CreatePost(ctx, topic, d.Message); err != nil {
				return summary, fmt.Errorf("topic %s: failed to send feedback: %w", topic, err)
			}
			summary.Created++
		case ballot.ActionEdit:
			slog.Debug("updating feedback", "topic", topic, "post", d.EditPostID, "votes", d.Votes, "legal", d.Legal)
			if err := c.forum.EditPost(ctx, topic, d.EditPostID, d.Message); err != nil {
				return summary, fmt.Errorf("topic %s: failed to update feedback: %w", topic, err)
			}
			summary.Edited++
		default:
			slog.Debug("no feedback needed", "topic", topic, "state", d.State)
			summary.Skipped++
		}
	}
	return summary, nil
}

// SendReminders posts message to every ballot thread without a vote and returns how many
// reminders were sent. The caller checks the message with ValidateReminder beforehand.
func (c *Coordinator) SendReminders(ctx context.Context, topics []models.TopicID, message string) (int, error) {
	sent := 0
	for _, topic := range topics {
		posts, err := c.forum.ListPosts(ctx, topic)
		if err != nil {
			return sent, fmt.Errorf("topic %s: %w", topic, err)
		}
		if !ballot.NeedsReminder(posts) {
			continue
		}
		if err := c.forum.CreatePost(ctx, topic, message); err != nil {
			return sent, fmt.Errorf("topic %s: failed to send reminder: %w", topic, err)
		}
		sent++
	}
	return sent, nil
}

// Tally collects the legal vote list of every ballot thread in random order, so that
// the position of a list says nothing about whose thread it came from.
func (c *Coordinator) Tally(ctx context.Context, topics []models.TopicID, eligible ballot.Set) (models.ElectionResult, error) {
	lists := make([][]string, 0, len(topics))
	for _, topic := range topics {
		posts, err := c.forum.ListPosts(ctx, topic)
		if err != nil {
			return models.ElectionResult{}, fmt.Errorf("topic %s: %w", topic, err)
		}
		lists = append(lists, ballot.FilterLegal(ballot.CurrentVotes(posts), eligible))
	}
	c.shuffle(lists)

	voted := 0
	for _, list := range lists {
		if len(list) > 0 {
			voted++
		}
	}
	return models.ElectionResult{Lists: lists, Voted: voted, Total: len(lists)}, nil
}

// SaveResults overwrites the result dump with the shuffled vote lists.
func (c *Coordinator) SaveResults(result models.ElectionResult) error {
	lists := result.Lists
	if lists == nil {
		lists = [][]string{}
	}
	if err := c.store.Save(database.KeyResults, lists); err != nil {
		return fmt.Errorf("failed to save election results: %w", err)
	}
	return nil
}
