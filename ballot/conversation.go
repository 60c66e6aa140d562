package ballot

import (
	"strings"

	"ballot-bot/models"
)

// State is where a ballot thread stands, judged from its last post.
type State int

const (
	// AwaitingFirstReply means the thread only holds the ballot itself.
	AwaitingFirstReply State = iota
	// NeedsFeedback means the voter wrote last, or a refresh of our feedback was requested.
	NeedsFeedback
	// FeedbackSent means our feedback is the last post and nothing is to be done.
	FeedbackSent
	// ReminderPosted means our reminder is the last post. Reminders are never edited.
	ReminderPosted
)

func (s State) String() string {
	switch s {
	case AwaitingFirstReply:
		return "awaiting_first_reply"
	case NeedsFeedback:
		return "needs_feedback"
	case FeedbackSent:
		return "feedback_sent"
	case ReminderPosted:
		return "reminder_posted"
	default:
		return "unknown"
	}
}

// Action is what the bot has to do on a thread.
type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionEdit
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionEdit:
		return "edit"
	default:
		return "none"
	}
}

// Decision is the outcome of evaluating one ballot thread.
type Decision struct {
	State      State
	Action     Action
	EditPostID string // set for ActionEdit
	Votes      []string
	Legal      []string
	Message    string
}

// Conversation decides how the bot answers inside a ballot thread.
type Conversation struct {
	// Marker tags reminder posts, e.g. "Erinnerung".
	Marker string
	Texts  Texts
}

// Decide looks at the last post of a thread and returns the action to take.
// With update set, the bot's own last feedback post is recomputed and edited unless
// it already reads the same; without it, a thread whose last post is ours is left alone.
func (c Conversation) Decide(posts []models.Post, eligible Set, update bool) Decision {
	if len(posts) <= 1 {
		return Decision{State: AwaitingFirstReply}
	}
	last := posts[len(posts)-1]
	if last.Self {
		if IsReminder(last.Body, c.Marker) {
			return Decision{State: ReminderPosted}
		}
		if !update {
			return Decision{State: FeedbackSent}
		}
	}

	votes := CurrentVotes(posts)
	legal := FilterLegal(votes, eligible)
	d := Decision{
		State:   NeedsFeedback,
		Action:  ActionCreate,
		Votes:   votes,
		Legal:   legal,
		Message: ComposeFeedback(votes, legal, c.Texts),
	}
	if last.Self {
		if last.Body == d.Message {
			return Decision{State: FeedbackSent, Votes: votes, Legal: legal}
		}
		d.Action = ActionEdit
		d.EditPostID = last.ID
	}
	return d
}

// IsReminder reports whether a post body carries the reminder marker.
func IsReminder(body, marker string) bool {
	return marker != "" && strings.Contains(body, marker)
}

// voteAccumulator folds the posts of a thread into the voter's current vote list.
type voteAccumulator struct {
	votes []string
}

// step lets a non-empty extraction from a voter post replace the current list. An
// empty one only replaces an empty list, so a blank follow-up keeps an earlier vote.
func (a voteAccumulator) step(post models.Post) voteAccumulator {
	if post.Self {
		return a
	}
	votes := ExtractMentions(post.Body)
	if len(votes) == 0 && len(a.votes) > 0 {
		return a
	}
	return voteAccumulator{votes: votes}
}

// CurrentVotes returns the vote list of the thread: the mentions of the last voter post
// that mentions anybody.
func CurrentVotes(posts []models.Post) []string {
	acc := voteAccumulator{votes: []string{}}
	for _, post := range posts {
		acc = acc.step(post)
	}
	return acc.votes
}

// NeedsReminder reports whether the voter has not cast a vote yet.
func NeedsReminder(posts []models.Post) bool {
	return len(CurrentVotes(posts)) == 0
}
