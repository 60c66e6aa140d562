package discord

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"ballot-bot/ballot"
	"ballot-bot/forum"
	"ballot-bot/models"

	"github.com/bwmarrin/discordgo"
)

const (
	membersPerRequest  = 1000
	messagesPerRequest = 100
)

// Client runs ballots over Discord direct messages: the guild members are the
// roster and each ballot thread is the part of the DM channel between the bot and
// one member that starts with the ballot message. Only the REST API is used; no
// gateway connection is opened.
type Client struct {
	session *discordgo.Session
	guildID string
	selfID  string
	members map[string]string // normalized username -> user ID

	memberPage  int
	messagePage int
}

var _ forum.Client = (*Client)(nil)

// NewSession creates a REST session for the bot token.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, errors.New("no bot token provided")
	}
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	return dg, nil
}

// NewClient creates a client on an existing session.
func NewClient(s *discordgo.Session, guildID string) (*Client, error) {
	if guildID == "" {
		return nil, errors.New("discord guild_id is required")
	}
	return &Client{
		session:     s,
		guildID:     guildID,
		memberPage:  membersPerRequest,
		messagePage: messagesPerRequest,
	}, nil
}

// topicID addresses a ballot thread as "<channel ID>/<ballot message ID>". A DM
// channel is reused across elections, so the ballot message marks where the thread starts.
func topicID(channelID, ballotID string) models.TopicID {
	return models.TopicID(channelID + "/" + ballotID)
}

func splitTopic(topic models.TopicID) (channelID, ballotID string, err error) {
	channelID, ballotID, ok := strings.Cut(string(topic), "/")
	if !ok || channelID == "" || ballotID == "" {
		return "", "", fmt.Errorf("malformed discord topic %q", topic)
	}
	return channelID, ballotID, nil
}

// Ping resolves the bot's own user, which fails on an invalid token.
func (c *Client) Ping(ctx context.Context) error {
	u, err := c.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return wrapError(err, "failed to fetch bot user")
	}
	c.selfID = u.ID
	slog.Debug("logged in to discord", "user", u.Username)
	return nil
}

// ListUsers pages through the guild members.
func (c *Client) ListUsers(ctx context.Context) ([]models.VoterRecord, error) {
	now := time.Now()
	members := make(map[string]string)
	var records []models.VoterRecord

	after := ""
	for {
		cursor := after
		page, err := c.session.GuildMembers(c.guildID, after, c.memberPage, discordgo.WithContext(ctx))
		if err != nil {
			return nil, wrapError(err, "failed to list guild members")
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			after = m.User.ID
			if !ballot.Mentionable(m.User.Username) {
				slog.Warn("username cannot be written as a mention, votes for this member will not be recognized", "user", m.User.Username)
			}
			records = append(records, memberRecord(m, now))
			members[ballot.Normalize(m.User.Username)] = m.User.ID
		}
		if len(page) < c.memberPage || after == cursor {
			break
		}
	}

	c.members = members
	return records, nil
}

// memberRecord maps a guild member onto a roster entry. Bots and members who have not
// passed membership screening are inactive; a running timeout counts as suspension.
func memberRecord(m *discordgo.Member, now time.Time) models.VoterRecord {
	record := models.VoterRecord{
		Username: m.User.Username,
		Active:   !m.Pending && !m.User.Bot,
	}
	if m.CommunicationDisabledUntil != nil && m.CommunicationDisabledUntil.After(now) {
		suspended := now
		record.SuspendedAt = &suspended
	}
	return record
}

// CreatePrivateThread opens the DM channel with a single member and sends the ballot.
func (c *Client) CreatePrivateThread(ctx context.Context, title, body string, usernames []string) (models.TopicID, error) {
	if len(usernames) != 1 {
		return "", fmt.Errorf("discord direct messages take exactly one recipient, got %d", len(usernames))
	}
	userID, err := c.userID(ctx, usernames[0])
	if err != nil {
		return "", err
	}

	ch, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapError(err, "failed to open direct message channel with "+usernames[0])
	}
	msg, err := c.session.ChannelMessageSend(ch.ID, fmt.Sprintf("**%s**\n\n%s", title, body), discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapError(err, "failed to send ballot to "+usernames[0])
	}
	return topicID(ch.ID, msg.ID), nil
}

func (c *Client) userID(ctx context.Context, username string) (string, error) {
	if c.members == nil {
		if _, err := c.ListUsers(ctx); err != nil {
			return "", err
		}
	}
	id, ok := c.members[ballot.Normalize(username)]
	if !ok {
		return "", fmt.Errorf("user %s is not a member of guild %s", username, c.guildID)
	}
	return id, nil
}

// ListPosts returns the ballot message and every message after it, oldest first.
// Earlier history of the DM channel is not part of the thread.
func (c *Client) ListPosts(ctx context.Context, topic models.TopicID) ([]models.Post, error) {
	channelID, ballotID, err := splitTopic(topic)
	if err != nil {
		return nil, err
	}
	if c.selfID == "" {
		if err := c.Ping(ctx); err != nil {
			return nil, err
		}
	}

	first, err := c.session.ChannelMessage(channelID, ballotID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapError(err, fmt.Sprintf("failed to fetch ballot of %s", topic))
	}

	messages := []*discordgo.Message{first}
	after := ballotID
	for {
		page, err := c.session.ChannelMessages(channelID, c.messagePage, "", after, "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, wrapError(err, fmt.Sprintf("failed to list messages of %s", topic))
		}
		for _, m := range page {
			if compareIDs(m.ID, after) > 0 {
				after = m.ID
			}
		}
		messages = append(messages, page...)
		if len(page) < c.messagePage {
			break
		}
	}

	// Discord does not promise an order for "after" pages; snowflakes sort by creation time.
	slices.SortFunc(messages, func(a, b *discordgo.Message) int {
		return compareIDs(b.ID, a.ID)
	})
	return chronological(messages, c.selfID, topic), nil
}

// compareIDs orders snowflake IDs numerically.
func compareIDs(a, b string) int {
	if len(a) != len(b) {
		return cmp.Compare(len(a), len(b))
	}
	return strings.Compare(a, b)
}

// chronological converts a newest-first message listing into posts, oldest first.
func chronological(messages []*discordgo.Message, selfID string, topic models.TopicID) []models.Post {
	posts := make([]models.Post, 0, len(messages))
	for _, m := range slices.Backward(messages) {
		posts = append(posts, models.Post{
			ID:      m.ID,
			TopicID: topic,
			Self:    m.Author != nil && m.Author.ID == selfID,
			Body:    m.ContentWithMentionsReplaced(),
		})
	}
	return posts
}

// CreatePost sends a message to the DM channel of the thread.
func (c *Client) CreatePost(ctx context.Context, topic models.TopicID, body string) error {
	channelID, _, err := splitTopic(topic)
	if err != nil {
		return err
	}
	if _, err := c.session.ChannelMessageSend(channelID, body, discordgo.WithContext(ctx)); err != nil {
		return wrapError(err, fmt.Sprintf("failed to send message to %s", topic))
	}
	return nil
}

// EditPost edits one of the bot's messages.
func (c *Client) EditPost(ctx context.Context, topic models.TopicID, postID, body string) error {
	channelID, _, err := splitTopic(topic)
	if err != nil {
		return err
	}
	if _, err := c.session.ChannelMessageEdit(channelID, postID, body, discordgo.WithContext(ctx)); err != nil {
		return wrapError(err, fmt.Sprintf("failed to edit message %s", postID))
	}
	return nil
}

// wrapError marks rejected tokens with forum.ErrAuth.
func wrapError(err error, msg string) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w: %v", msg, forum.ErrAuth, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
