package discourse

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"ballot-bot/forum"
	"ballot-bot/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Api-Key") != "secret" || r.Header.Get("Api-Username") != "flipbot" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(models.DiscourseConfig{URL: server.URL + "/", APIKey: "secret", APIUsername: "flipbot"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("Failed to encode response: %v", err)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.DiscourseConfig
	}{
		{"missing url", models.DiscourseConfig{APIKey: "k", APIUsername: "u"}},
		{"missing key", models.DiscourseConfig{URL: "https://forum.example", APIUsername: "u"}},
		{"missing username", models.DiscourseConfig{URL: "https://forum.example", APIKey: "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(tt.cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(t, w, map[string]any{"topic_list": map[string]any{}})
	})
	if err := client.Ping(t.Context()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	client.apiKey = "wrong"
	err := client.Ping(t.Context())
	if !errors.Is(err, forum.ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", err)
	}
}

func TestListUsersPages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/users/list/active.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch r.URL.Query().Get("page") {
		case "1":
			w.Write([]byte(`[
				{"id": 1, "username": "anselm", "active": true},
				{"id": 2, "username": "bob", "active": true, "suspended_at": "2024-02-01T08:00:00.000Z"}
			]`))
		case "2":
			w.Write([]byte(`[{"id": 3, "username": "Carl", "active": false, "suspended_at": null}]`))
		default:
			w.Write([]byte(`[]`))
		}
	})

	users, err := client.ListUsers(t.Context())
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	if users[0].Username != "anselm" || !users[0].Active || users[0].SuspendedAt != nil {
		t.Errorf("unexpected first user %+v", users[0])
	}
	if users[1].SuspendedAt == nil {
		t.Error("expected bob to be suspended")
	}
	if users[2].Active || users[2].SuspendedAt != nil {
		t.Errorf("unexpected third user %+v", users[2])
	}
}

func TestCreatePrivateThread(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/posts.json" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req createPostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			return
		}
		if req.Archetype != "private_message" || req.TargetRecipients != "anselm" {
			t.Errorf("unexpected request %+v", req)
		}
		if req.Title != "Abstimmung" || req.Raw != "Bitte abstimmen" {
			t.Errorf("unexpected title/body %+v", req)
		}
		writeJSON(t, w, createPostResponse{ID: 900, TopicID: 77})
	})

	topic, err := client.CreatePrivateThread(t.Context(), "Abstimmung", "Bitte abstimmen", []string{"anselm"})
	if err != nil {
		t.Fatalf("CreatePrivateThread failed: %v", err)
	}
	if topic != "77" {
		t.Errorf("expected topic 77, got %s", topic)
	}
}

func TestListPostsFetchesWholeStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/t/77.json":
			w.Write([]byte(`{"post_stream": {
				"posts": [
					{"id": 10, "cooked": "<p>Bitte abstimmen</p>", "yours": true},
					{"id": 11, "cooked": "<p><a class=\"mention\" href=\"/u/anselm\">@anselm</a> &amp; <a class=\"mention\" href=\"/u/bob\">@Bob</a></p>", "yours": false}
				],
				"stream": [10, 11, 12, 13]
			}}`))
		case "/t/77/posts.json":
			ids := r.URL.Query()["post_ids[]"]
			if !slices.Equal(ids, []string{"12", "13"}) {
				t.Errorf("unexpected post ids %v", ids)
			}
			w.Write([]byte(`{"post_stream": {"posts": [
				{"id": 12, "cooked": "<p>Du hast abgestimmt</p>", "yours": true}
			]}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	posts, err := client.ListPosts(t.Context(), "77")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts (13 was never returned), got %d", len(posts))
	}
	wantIDs := []string{"10", "11", "12"}
	for i, p := range posts {
		if p.ID != wantIDs[i] {
			t.Errorf("post %d: expected id %s, got %s", i, wantIDs[i], p.ID)
		}
		if p.TopicID != "77" {
			t.Errorf("post %d: expected topic 77, got %s", i, p.TopicID)
		}
	}
	if !posts[0].Self || posts[1].Self || !posts[2].Self {
		t.Errorf("unexpected authorship %+v", posts)
	}
	if posts[1].Body != "@anselm & @Bob" {
		t.Errorf("unexpected rendered body %q", posts[1].Body)
	}
}

func TestCreateAndEditPost(t *testing.T) {
	var calls []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			var req map[string]any
			json.NewDecoder(r.Body).Decode(&req)
			if req["topic_id"] != float64(77) || req["raw"] != "danke" {
				t.Errorf("unexpected create request %v", req)
			}
		case http.MethodPut:
			var req editPostRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Post.Raw != "neu" {
				t.Errorf("unexpected edit request %+v", req)
			}
		}
		writeJSON(t, w, map[string]any{})
	})

	if err := client.CreatePost(t.Context(), "77", "danke"); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if err := client.EditPost(t.Context(), "77", "12", "neu"); err != nil {
		t.Fatalf("EditPost failed: %v", err)
	}
	if want := []string{"POST /posts.json", "PUT /posts/12.json"}; !slices.Equal(calls, want) {
		t.Errorf("expected calls %v, got %v", want, calls)
	}

	if err := client.CreatePost(t.Context(), "not-a-number", "x"); err == nil {
		t.Error("expected an error for a non-numeric topic id")
	}
}

func TestAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors": ["Body is too short"], "error_type": "invalid_parameters"}`))
	})

	err := client.CreatePost(t.Context(), "77", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || len(apiErr.Errors) != 1 {
		t.Errorf("unexpected error %+v", apiErr)
	}
	if errors.Is(err, forum.ErrAuth) {
		t.Error("a validation error must not be reported as ErrAuth")
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name   string
		cooked string
		want   string
	}{
		{"paragraphs", "<p>eins</p><p>zwei</p>", "eins\nzwei"},
		{"line breaks", "<p>@anna<br>@bob</p>", "@anna\n@bob"},
		{"entities", "<p>Tom &amp; Jerry</p>", "Tom & Jerry"},
		{"list", "<ol><li>@anna</li><li>@bob</li></ol>", "@anna\n@bob"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.cooked); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.cooked, got, tt.want)
			}
		})
	}
}
