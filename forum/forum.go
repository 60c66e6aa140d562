package forum

import (
	"context"
	"errors"

	"ballot-bot/models"
)

// ErrAuth is returned when the forum rejects the configured credentials.
var ErrAuth = errors.New("forum rejected credentials")

// Client is the set of authenticated forum operations the election needs.
// Implementations issue one request at a time; callers never overlap calls.
type Client interface {
	// Ping verifies the credentials. It returns an error wrapping ErrAuth if they are invalid.
	Ping(ctx context.Context) error
	// ListUsers returns the roster snapshot.
	ListUsers(ctx context.Context) ([]models.VoterRecord, error)
	// CreatePrivateThread opens a private conversation with the given users and returns its id.
	CreatePrivateThread(ctx context.Context, title, body string, usernames []string) (models.TopicID, error)
	// ListPosts returns all posts of a thread, oldest first.
	ListPosts(ctx context.Context, topic models.TopicID) ([]models.Post, error)
	// CreatePost appends a post to a thread.
	CreatePost(ctx context.Context, topic models.TopicID, body string) error
	// EditPost replaces the body of one of the bot's own posts.
	EditPost(ctx context.Context, topic models.TopicID, postID, body string) error
}
