package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gurdaan/agentic-workflow-backend/internal/chat"
	"github.com/gurdaan/agentic-workflow-backend/internal/httpapi"
	"github.com/gurdaan/agentic-workflow-backend/internal/session"
)

type fakeClient struct{ reply string }

func (c *fakeClient) Complete(ctx context.Context, messages []chat.Message, opts *chat.Options) (*chat.Response, error) {
	return &chat.Response{
		Messages:     []chat.Message{chat.NewAssistantMessage(c.reply)},
		FinishReason: chat.FinishReasonStop,
	}, nil
}

type memStore struct {
	snapshots map[string]*session.Snapshot
}

func newMemStore() *memStore {
	return &memStore{snapshots: make(map[string]*session.Snapshot)}
}

func (s *memStore) Save(ctx context.Context, sessionID string, messages []session.TranscriptMessage) (string, error) {
	key := "chat_session_" + sessionID + ".json"
	s.snapshots[key] = &session.Snapshot{SessionID: sessionID, SavedAt: time.Now(), Messages: messages}
	return key, nil
}

func (s *memStore) Load(ctx context.Context, key string) (*session.Snapshot, error) {
	snap, ok := s.snapshots[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", session.ErrSnapshotNotFound, key)
	}
	return snap, nil
}

func (s *memStore) List(ctx context.Context) ([]session.SnapshotInfo, error) {
	var infos []session.SnapshotInfo
	for key, snap := range s.snapshots {
		infos = append(infos, session.SnapshotInfo{Key: key, SessionID: snap.SessionID})
	}
	return infos, nil
}

func (s *memStore) Delete(ctx context.Context, key string) (bool, error) {
	if _, ok := s.snapshots[key]; !ok {
		return false, nil
	}
	delete(s.snapshots, key)
	return true, nil
}

func newTestServer(t *testing.T, opts ...session.Option) *httpapi.Server {
	t.Helper()
	manager := session.NewManager(&fakeClient{reply: `{"content": "ack", "metadata": {}}`}, opts...)
	if err := manager.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return httpapi.New(manager)
}

func doRequest(srv *httpapi.Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	rec := doRequest(newTestServer(t), "GET", "/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "healthy" {
		t.Errorf("body = %v", body)
	}
}

func TestChat(t *testing.T) {
	rec := doRequest(newTestServer(t), "POST", "/api/chat", `{"query":"hello"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["response"] != "ack" {
		t.Errorf("response = %v", body["response"])
	}
	if body["session_id"] != "main_session" {
		t.Errorf("session_id = %v", body["session_id"])
	}

	meta, ok := body["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("metadata = %T", body["metadata"])
	}
	for _, key := range []string{"userstory", "testcase", "devtask", "needs_clarification", "needs_save_confirmation"} {
		if _, present := meta[key]; !present {
			t.Errorf("metadata missing %q", key)
		}
	}
}

func TestChat_MissingQuery(t *testing.T) {
	rec := doRequest(newTestServer(t), "POST", "/api/chat", `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestNewSession(t *testing.T) {
	srv := newTestServer(t, session.WithStore(newMemStore()))
	rec := doRequest(srv, "POST", "/api/sessions/new", `{"session_name":"My Project"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["session_id"] != "My_Project" {
		t.Errorf("session_id = %v", body["session_id"])
	}
}

func TestSwitchSession_MissingID(t *testing.T) {
	rec := doRequest(newTestServer(t), "POST", "/api/sessions/switch", `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCurrentSession(t *testing.T) {
	rec := doRequest(newTestServer(t), "GET", "/api/sessions/current", "")

	body := decodeBody(t, rec)
	if body["session_id"] != "main_session" {
		t.Errorf("session_id = %v", body["session_id"])
	}
	if body["message_count"] != float64(1) {
		t.Errorf("message_count = %v", body["message_count"])
	}
}

func TestSaveChat_NoStore(t *testing.T) {
	rec := doRequest(newTestServer(t), "POST", "/api/save-chat", "")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSaveChat(t *testing.T) {
	srv := newTestServer(t, session.WithStore(newMemStore()))
	rec := doRequest(srv, "POST", "/api/save-chat", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["blob_name"] != "chat_session_main_session.json" {
		t.Errorf("blob_name = %v", body["blob_name"])
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(t, session.WithStore(store))

	if rec := doRequest(srv, "POST", "/api/save-chat", ""); rec.Code != http.StatusOK {
		t.Fatalf("save status = %d", rec.Code)
	}

	rec := doRequest(srv, "GET", "/api/chat-sessions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	sessions, ok := body["sessions"].([]any)
	if !ok || len(sessions) != 1 {
		t.Fatalf("sessions = %v", body["sessions"])
	}

	key := "chat_session_main_session.json"
	rec = doRequest(srv, "GET", "/api/chat-sessions/"+key, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if snap := decodeBody(t, rec); snap["session_id"] != "main_session" {
		t.Errorf("session_id = %v", snap["session_id"])
	}

	rec = doRequest(srv, "DELETE", "/api/chat-sessions/"+key, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doRequest(srv, "GET", "/api/chat-sessions/"+key, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}

func TestDeleteSnapshot_NotFound(t *testing.T) {
	srv := newTestServer(t, session.WithStore(newMemStore()))
	rec := doRequest(srv, "DELETE", "/api/chat-sessions/nope.json", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4200" {
		t.Errorf("allow-origin = %q", got)
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin = %q, want unset", got)
	}
}
