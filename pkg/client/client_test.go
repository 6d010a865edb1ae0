package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/snehjoshi/mdbridge/pkg/client"
)

// stubServer records the last request and replies with a canned response.
type stubServer struct {
	*httptest.Server
	lastMethod string
	lastPath   string
	lastAuth   string
	lastBody   map[string]any
}

func newStub(t *testing.T, status int, response string) *stubServer {
	t.Helper()
	s := &stubServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.lastMethod = r.Method
		s.lastPath = r.URL.Path
		s.lastAuth = r.Header.Get("Authorization")
		s.lastBody = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&s.lastBody)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if response != "" {
			_, _ = w.Write([]byte(response))
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func TestClient_Enqueue(t *testing.T) {
	stub := newStub(t, http.StatusOK, `{"success":true,"id":"01ARZ3NDEKTSV4RRFFQ69G5FAV"}`)
	c := client.New(stub.URL, client.WithToken("sekrit"))

	id, err := c.Enqueue(context.Background(), client.EnqueueRequest{
		Content: "# Note",
		Action:  "append",
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if id != "01ARZ3NDEKTSV4RRFFQ69G5FAV" {
		t.Errorf("id: got %s", id)
	}
	if stub.lastMethod != "POST" || stub.lastPath != "/queue" {
		t.Errorf("request: %s %s, want POST /queue", stub.lastMethod, stub.lastPath)
	}
	if stub.lastAuth != "Bearer sekrit" {
		t.Errorf("auth header: got %q", stub.lastAuth)
	}
	if stub.lastBody["content"] != "# Note" || stub.lastBody["action"] != "append" {
		t.Errorf("body: %+v", stub.lastBody)
	}
}

func TestClient_Enqueue_OmitsEmptyOptionalFields(t *testing.T) {
	stub := newStub(t, http.StatusOK, `{"success":true,"id":"x"}`)
	c := client.New(stub.URL)

	if _, err := c.Enqueue(context.Background(), client.EnqueueRequest{Content: "x"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	for _, k := range []string{"action", "collection", "title"} {
		if _, present := stub.lastBody[k]; present {
			t.Errorf("empty %s should be omitted from the wire body", k)
		}
	}
}

func TestClient_Pending_EmptyQueueIsNotAnError(t *testing.T) {
	stub := newStub(t, http.StatusNoContent, "")
	c := client.New(stub.URL)

	item, err := c.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if item != nil {
		t.Errorf("empty queue: got %+v, want nil", item)
	}
}

func TestClient_Pending_DecodesItem(t *testing.T) {
	stub := newStub(t, http.StatusOK, `{
		"id": "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		"content": "hello",
		"markdown": "hello",
		"action": "append",
		"collection": "Inbox",
		"createdAt": "2025-06-01T12:00:00Z"
	}`)
	c := client.New(stub.URL)

	item, err := c.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if item.Content != "hello" || item.Action != "append" || item.Collection != "Inbox" {
		t.Errorf("item: %+v", item)
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !item.CreatedAt.Equal(want) {
		t.Errorf("createdAt: got %v, want %v", item.CreatedAt, want)
	}
}

func TestClient_Peek(t *testing.T) {
	stub := newStub(t, http.StatusOK, `{"count":12,"items":[{"id":"a","content":"x"},{"id":"b","content":"y"}]}`)
	c := client.New(stub.URL)

	got, err := c.Peek(context.Background())
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if got.Count != 12 || len(got.Items) != 2 || got.Items[0].ID != "a" {
		t.Errorf("peek: %+v", got)
	}
	if stub.lastMethod != "GET" || stub.lastPath != "/peek" {
		t.Errorf("request: %s %s, want GET /peek", stub.lastMethod, stub.lastPath)
	}
}

func TestClient_APIError(t *testing.T) {
	stub := newStub(t, http.StatusUnauthorized, `{"error":"unauthorized"}`)
	c := client.New(stub.URL, client.WithToken("wrong"))

	_, err := c.Enqueue(context.Background(), client.EnqueueRequest{Content: "x"})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}

	var ae *client.APIError
	if !errors.As(err, &ae) {
		t.Fatalf("error type: got %T, want *APIError", err)
	}
	if ae.StatusCode != http.StatusUnauthorized || ae.Message != "unauthorized" {
		t.Errorf("APIError: %+v", ae)
	}
	if !client.IsUnauthorized(err) {
		t.Error("IsUnauthorized should report true for a 401")
	}
}

func TestClient_APIError_NonJSONBody(t *testing.T) {
	stub := newStub(t, http.StatusBadGateway, "upstream exploded")
	c := client.New(stub.URL)

	err := c.Health(context.Background())
	var ae *client.APIError
	if !errors.As(err, &ae) {
		t.Fatalf("error type: got %T, want *APIError", err)
	}
	if ae.StatusCode != http.StatusBadGateway || ae.Message != "upstream exploded" {
		t.Errorf("APIError: %+v", ae)
	}
}

func TestClient_Health_NoToken(t *testing.T) {
	stub := newStub(t, http.StatusOK, `{"status":"ok"}`)
	c := client.New(stub.URL) // no token configured

	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if stub.lastAuth != "" {
		t.Errorf("unexpected auth header: %q", stub.lastAuth)
	}
}

func TestItem_TextFallsBackToLegacyField(t *testing.T) {
	it := &client.Item{Markdown: "legacy body"}
	if got := it.Text(); got != "legacy body" {
		t.Errorf("Text: got %q, want legacy body", got)
	}
	it.Content = "new body"
	if got := it.Text(); got != "new body" {
		t.Errorf("Text: got %q, want new body", got)
	}
}
