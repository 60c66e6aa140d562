package discourse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ballot-bot/forum"
	"ballot-bot/models"
)

// postsPerRequest is how many posts Discourse returns per /t/{id}/posts.json call.
const postsPerRequest = 20

// Client talks to the Discourse REST API with an admin API key.
type Client struct {
	baseURL     string
	apiKey      string
	apiUsername string
	httpClient  *http.Client
}

var _ forum.Client = (*Client)(nil)

// APIError is a non-success answer from Discourse.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Errors     []string `json:"errors"`
	ErrorType  string   `json:"error_type"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s returned %d", e.Method, e.Path, e.StatusCode)
	if len(e.Errors) > 0 {
		msg += ": " + strings.Join(e.Errors, "; ")
	}
	return msg
}

// NewClient creates a Discourse client from its configuration.
func NewClient(cfg models.DiscourseConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("discourse url is required")
	}
	if cfg.APIKey == "" || cfg.APIUsername == "" {
		return nil, errors.New("discourse api_key and api_username are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.URL, "/"),
		apiKey:      cfg.APIKey,
		apiUsername: cfg.APIUsername,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// do sends one request and decodes a JSON answer into out, if out is not nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Api-Username", c.apiUsername)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s %s returned %d", forum.ErrAuth, method, path, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); readErr == nil {
			_ = json.Unmarshal(data, apiErr)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

// Ping fetches the latest topics, which fails on bad credentials.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/latest.json", nil, nil, nil)
}

type adminUser struct {
	Username    string     `json:"username"`
	Active      bool       `json:"active"`
	SuspendedAt *time.Time `json:"suspended_at"`
}

// ListUsers pages through the admin list of active users.
func (c *Client) ListUsers(ctx context.Context) ([]models.VoterRecord, error) {
	var records []models.VoterRecord
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("show_emails", "false")

		var users []adminUser
		if err := c.do(ctx, http.MethodGet, "/admin/users/list/active.json", query, nil, &users); err != nil {
			return nil, fmt.Errorf("failed to list users (page %d): %w", page, err)
		}
		if len(users) == 0 {
			break
		}
		for _, u := range users {
			records = append(records, models.VoterRecord{
				Username:    u.Username,
				Active:      u.Active,
				SuspendedAt: u.SuspendedAt,
			})
		}
	}
	slog.Debug("listed discourse users", "count", len(records))
	return records, nil
}

type createPostRequest struct {
	Raw              string `json:"raw"`
	Title            string `json:"title,omitempty"`
	TopicID          int    `json:"topic_id,omitempty"`
	Archetype        string `json:"archetype,omitempty"`
	TargetRecipients string `json:"target_recipients,omitempty"`
}

type createPostResponse struct {
	ID      int `json:"id"`
	TopicID int `json:"topic_id"`
}

// CreatePrivateThread sends a private message and returns the id of the new topic.
func (c *Client) CreatePrivateThread(ctx context.Context, title, body string, usernames []string) (models.TopicID, error) {
	req := createPostRequest{
		Raw:              body,
		Title:            title,
		Archetype:        "private_message",
		TargetRecipients: strings.Join(usernames, ","),
	}
	var resp createPostResponse
	if err := c.do(ctx, http.MethodPost, "/posts.json", nil, req, &resp); err != nil {
		return "", fmt.Errorf("failed to create private message to %s: %w", req.TargetRecipients, err)
	}
	return models.TopicID(strconv.Itoa(resp.TopicID)), nil
}

type post struct {
	ID     int    `json:"id"`
	Cooked string `json:"cooked"`
	Yours  bool   `json:"yours"`
}

type postStream struct {
	PostStream struct {
		Posts  []post `json:"posts"`
		Stream []int  `json:"stream"`
	} `json:"post_stream"`
}

// ListPosts returns every post of the topic in stream order. The topic view only
// carries the first chunk of posts; the rest are fetched by id.
func (c *Client) ListPosts(ctx context.Context, topic models.TopicID) ([]models.Post, error) {
	var view postStream
	if err := c.do(ctx, http.MethodGet, "/t/"+url.PathEscape(string(topic))+".json", nil, nil, &view); err != nil {
		return nil, fmt.Errorf("failed to load topic %s: %w", topic, err)
	}

	byID := make(map[int]post, len(view.PostStream.Stream))
	for _, p := range view.PostStream.Posts {
		byID[p.ID] = p
	}

	var missing []int
	for _, id := range view.PostStream.Stream {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	for start := 0; start < len(missing); start += postsPerRequest {
		end := min(start+postsPerRequest, len(missing))
		query := url.Values{}
		for _, id := range missing[start:end] {
			query.Add("post_ids[]", strconv.Itoa(id))
		}
		var chunk postStream
		path := "/t/" + url.PathEscape(string(topic)) + "/posts.json"
		if err := c.do(ctx, http.MethodGet, path, query, nil, &chunk); err != nil {
			return nil, fmt.Errorf("failed to load posts of topic %s: %w", topic, err)
		}
		for _, p := range chunk.PostStream.Posts {
			byID[p.ID] = p
		}
	}

	order := view.PostStream.Stream
	if len(order) == 0 {
		for _, p := range view.PostStream.Posts {
			order = append(order, p.ID)
		}
	}
	posts := make([]models.Post, 0, len(order))
	for _, id := range order {
		p, ok := byID[id]
		if !ok {
			// Deleted or hidden posts are listed in the stream but never returned.
			continue
		}
		posts = append(posts, models.Post{
			ID:      strconv.Itoa(p.ID),
			TopicID: topic,
			Self:    p.Yours,
			Body:    PlainText(p.Cooked),
		})
	}
	return posts, nil
}

// CreatePost replies to a topic.
func (c *Client) CreatePost(ctx context.Context, topic models.TopicID, body string) error {
	id, err := strconv.Atoi(string(topic))
	if err != nil {
		return fmt.Errorf("invalid discourse topic id %q: %w", topic, err)
	}
	req := createPostRequest{Raw: body, TopicID: id}
	if err := c.do(ctx, http.MethodPost, "/posts.json", nil, req, nil); err != nil {
		return fmt.Errorf("failed to reply to topic %s: %w", topic, err)
	}
	return nil
}

type editPostRequest struct {
	Post struct {
		Raw string `json:"raw"`
	} `json:"post"`
}

// EditPost replaces the raw content of a post. The topic is not needed by Discourse.
func (c *Client) EditPost(ctx context.Context, _ models.TopicID, postID, body string) error {
	var req editPostRequest
	req.Post.Raw = body
	if err := c.do(ctx, http.MethodPut, "/posts/"+url.PathEscape(postID)+".json", nil, req, nil); err != nil {
		return fmt.Errorf("failed to edit post %s: %w", postID, err)
	}
	return nil
}
