package discord

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
)

const (
	testToken   = "secret"
	testGuildID = "77"
	testSelfID  = "99"
)

type fakeMember struct {
	ID       string // empty for a member without user object
	Username string
	Bot      bool
	Pending  bool
}

type fakeMessage struct {
	ID       string
	AuthorID string
	Content  string
	Mentions []string
}

// fakeDiscord serves the subset of the Discord REST API the client uses.
// Message listings are newest first, like Discord's.
type fakeDiscord struct {
	mu       sync.Mutex
	members  []fakeMember
	dms      map[string]string // user ID -> DM channel ID
	channels map[string][]*fakeMessage
	nextID   int

	memberRequests  int
	messageRequests int
}

func newFakeDiscord(members ...fakeMember) *fakeDiscord {
	return &fakeDiscord{
		members:  members,
		dms:      make(map[string]string),
		channels: make(map[string][]*fakeMessage),
		nextID:   1000,
	}
}

func (fd *fakeDiscord) newID() string {
	fd.nextID++
	return strconv.Itoa(fd.nextID)
}

// post appends a message to a channel and returns its ID.
func (fd *fakeDiscord) post(channelID, authorID, content string, mentions ...string) string {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	m := &fakeMessage{ID: fd.newID(), AuthorID: authorID, Content: content, Mentions: mentions}
	fd.channels[channelID] = append(fd.channels[channelID], m)
	return m.ID
}

// snapshot copies the messages of a channel, oldest first.
func (fd *fakeDiscord) snapshot(channelID string) []fakeMessage {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	var out []fakeMessage
	for _, m := range fd.channels[channelID] {
		out = append(out, *m)
	}
	return out
}

func (fd *fakeDiscord) requests() (members, messages int) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.memberRequests, fd.messageRequests
}

func (fd *fakeDiscord) message(channelID, id string) *fakeMessage {
	for _, m := range fd.channels[channelID] {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (fd *fakeDiscord) user(id string) map[string]any {
	if id == testSelfID {
		return map[string]any{"id": id, "username": "flipbot", "bot": true}
	}
	for _, m := range fd.members {
		if m.ID == id {
			return map[string]any{"id": id, "username": m.Username, "bot": m.Bot}
		}
	}
	return map[string]any{"id": id, "username": "unknown"}
}

func (fd *fakeDiscord) render(channelID string, m *fakeMessage) map[string]any {
	mentions := []map[string]any{}
	for _, id := range m.Mentions {
		mentions = append(mentions, fd.user(id))
	}
	return map[string]any{
		"id":         m.ID,
		"channel_id": channelID,
		"content":    m.Content,
		"author":     fd.user(m.AuthorID),
		"mentions":   mentions,
	}
}

func (fd *fakeDiscord) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bot "+testToken {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"code": 0, "message": "401: Unauthorized"})
		return
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	api, _ := url.Parse(discordgo.EndpointAPI)
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, api.Path), "/"), "/")
	q := r.URL.Query()

	switch {
	case r.Method == http.MethodGet && len(parts) == 2 && parts[0] == "users":
		writeJSON(w, fd.user(testSelfID))

	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "guilds" && parts[2] == "members":
		fd.memberRequests++
		writeJSON(w, fd.listMembers(q))

	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "users" && parts[2] == "channels":
		var req struct {
			RecipientID string `json:"recipient_id"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		channelID, ok := fd.dms[req.RecipientID]
		if !ok {
			channelID = fd.newID()
			fd.dms[req.RecipientID] = channelID
		}
		writeJSON(w, map[string]any{"id": channelID, "type": 1})

	case len(parts) >= 3 && parts[0] == "channels" && parts[2] == "messages":
		fd.serveMessages(w, r, parts[1], parts[3:])

	default:
		http.NotFound(w, r)
	}
}

func (fd *fakeDiscord) listMembers(q url.Values) []map[string]any {
	limit, _ := strconv.Atoi(q.Get("limit"))
	start := 0
	if after := q.Get("after"); after != "" {
		start = slices.IndexFunc(fd.members, func(m fakeMember) bool { return m.ID == after }) + 1
	}
	end := min(start+limit, len(fd.members))

	page := []map[string]any{}
	for _, m := range fd.members[start:end] {
		if m.ID == "" {
			page = append(page, map[string]any{"nick": m.Username})
			continue
		}
		page = append(page, map[string]any{
			"user":    map[string]any{"id": m.ID, "username": m.Username, "bot": m.Bot},
			"pending": m.Pending,
		})
	}
	return page
}

func (fd *fakeDiscord) serveMessages(w http.ResponseWriter, r *http.Request, channelID string, rest []string) {
	var body struct {
		Content string `json:"content"`
	}

	switch {
	case r.Method == http.MethodGet && len(rest) == 0:
		fd.messageRequests++
		page := []map[string]any{}
		for _, m := range fd.listMessages(channelID, r.URL.Query()) {
			page = append(page, fd.render(channelID, m))
		}
		writeJSON(w, page)

	case r.Method == http.MethodGet && len(rest) == 1:
		m := fd.message(channelID, rest[0])
		if m == nil {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, fd.render(channelID, m))

	case r.Method == http.MethodPost && len(rest) == 0:
		json.NewDecoder(r.Body).Decode(&body)
		m := &fakeMessage{ID: fd.newID(), AuthorID: testSelfID, Content: body.Content}
		fd.channels[channelID] = append(fd.channels[channelID], m)
		writeJSON(w, fd.render(channelID, m))

	case r.Method == http.MethodPatch && len(rest) == 1:
		m := fd.message(channelID, rest[0])
		if m == nil {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&body)
		m.Content = body.Content
		writeJSON(w, fd.render(channelID, m))

	default:
		http.NotFound(w, r)
	}
}

func (fd *fakeDiscord) listMessages(channelID string, q url.Values) []*fakeMessage {
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit == 0 {
		limit = 50
	}

	var page []*fakeMessage
	if after := q.Get("after"); after != "" {
		for _, m := range fd.channels[channelID] {
			if compareIDs(m.ID, after) > 0 && len(page) < limit {
				page = append(page, m)
			}
		}
	} else {
		before := q.Get("before")
		for _, m := range fd.channels[channelID] {
			if before == "" || compareIDs(m.ID, before) < 0 {
				page = append(page, m)
			}
		}
		page = page[max(0, len(page)-limit):]
	}
	slices.Reverse(page)
	return page
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// rewriteTransport sends every request to the test server.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	r.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func newTestClient(t *testing.T, fd *fakeDiscord, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(fd)
	t.Cleanup(srv.Close)

	target, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("Failed to parse server url: %v", err)
	}
	s, err := NewSession(token)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	s.Client = &http.Client{Transport: rewriteTransport{target: target}}

	c, err := NewClient(s, testGuildID)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	c.memberPage = 2
	c.messagePage = 2
	return c
}
