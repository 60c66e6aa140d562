package election

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ballot-bot/models"
)

// memForum keeps ballot threads in memory. Posts by the bot are marked Self.
type memForum struct {
	users   []models.VoterRecord
	threads map[models.TopicID][]models.Post
	order   []models.TopicID
	nextID  int

	created int
	edited  int
	// failCreateThreadAt makes the n-th CreatePrivateThread call fail (1-based, 0 = never).
	failCreateThreadAt int
	threadCalls        int
}

var errForumDown = errors.New("forum down")

func newMemForum() *memForum {
	return &memForum{threads: make(map[models.TopicID][]models.Post)}
}

func (f *memForum) id() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

func (f *memForum) Ping(context.Context) error { return nil }

func (f *memForum) ListUsers(context.Context) ([]models.VoterRecord, error) {
	return f.users, nil
}

func (f *memForum) CreatePrivateThread(_ context.Context, title, body string, usernames []string) (models.TopicID, error) {
	f.threadCalls++
	if f.failCreateThreadAt > 0 && f.threadCalls == f.failCreateThreadAt {
		return "", errForumDown
	}
	topic := models.TopicID("t" + f.id())
	f.threads[topic] = []models.Post{{ID: f.id(), TopicID: topic, Self: true, Body: title + "\n" + body}}
	f.order = append(f.order, topic)
	return topic, nil
}

func (f *memForum) ListPosts(_ context.Context, topic models.TopicID) ([]models.Post, error) {
	posts, ok := f.threads[topic]
	if !ok {
		return nil, fmt.Errorf("topic %s: %w", topic, errForumDown)
	}
	return append([]models.Post(nil), posts...), nil
}

func (f *memForum) CreatePost(_ context.Context, topic models.TopicID, body string) error {
	f.created++
	f.threads[topic] = append(f.threads[topic], models.Post{ID: f.id(), TopicID: topic, Self: true, Body: body})
	return nil
}

func (f *memForum) EditPost(_ context.Context, topic models.TopicID, postID, body string) error {
	f.edited++
	for i, p := range f.threads[topic] {
		if p.ID == postID {
			f.threads[topic][i].Body = body
			return nil
		}
	}
	return fmt.Errorf("post %s not found", postID)
}

// reply appends a voter post.
func (f *memForum) reply(topic models.TopicID, body string) {
	f.threads[topic] = append(f.threads[topic], models.Post{ID: f.id(), TopicID: topic, Body: body})
}

func (f *memForum) last(topic models.TopicID) models.Post {
	posts := f.threads[topic]
	return posts[len(posts)-1]
}
