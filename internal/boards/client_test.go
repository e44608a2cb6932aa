package boards_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gurdaan/agentic-workflow-backend/internal/boards"
	"github.com/gurdaan/agentic-workflow-backend/internal/chat"
)

type mockTransportFunc func(*http.Request) (*http.Response, error)

func (f mockTransportFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body any) *http.Response {
	b, _ := json.Marshal(body)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func newTestClient(fn func(*http.Request) (*http.Response, error)) *boards.Client {
	return boards.New("https://dev.azure.com/contoso", "DemoProject", "secret-pat",
		boards.WithHTTPClient(&http.Client{Transport: mockTransportFunc(fn)}),
	)
}

func wantAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(":secret-pat"))
}

func TestCreateWorkItem(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.Method != "POST" {
			t.Errorf("method = %q", req.Method)
		}
		if req.URL.Path != "/DemoProject/_apis/wit/workitems/$User Story" {
			t.Errorf("path = %q", req.URL.Path)
		}
		if got := req.Header.Get("Content-Type"); got != "application/json-patch+json" {
			t.Errorf("content type = %q", got)
		}
		if got := req.Header.Get("Authorization"); got != wantAuth() {
			t.Errorf("auth = %q", got)
		}

		body, _ := io.ReadAll(req.Body)
		var patch []map[string]any
		if err := json.Unmarshal(body, &patch); err != nil {
			t.Fatalf("body is not a JSON patch: %v", err)
		}
		if patch[0]["op"] != "add" || patch[0]["path"] != "/fields/System.Title" || patch[0]["value"] != "Login story" {
			t.Errorf("title patch = %v", patch[0])
		}
		if patch[1]["path"] != "/fields/System.Description" || patch[1]["value"] != "<h1>Story</h1>" {
			t.Errorf("description patch = %v", patch[1])
		}

		return jsonResponse(200, map[string]any{
			"id":  42,
			"url": "https://dev.azure.com/contoso/_apis/wit/workItems/42",
			"fields": map[string]any{
				"System.Title":        "Login story",
				"System.State":        "New",
				"System.WorkItemType": "User Story",
			},
		}), nil
	})

	item, err := client.CreateWorkItem(context.Background(), "User Story", "Login story", "<h1>Story</h1>")
	if err != nil {
		t.Fatalf("CreateWorkItem: %v", err)
	}

	if item.ID != 42 || item.Type != "User Story" || item.State != "New" {
		t.Errorf("item = %+v", item)
	}
}

func TestQueryWorkItems(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(req.URL.Path, "/wiql"):
			body, _ := io.ReadAll(req.Body)
			var q map[string]string
			json.Unmarshal(body, &q)
			if !strings.Contains(q["query"], "SELECT") {
				t.Errorf("wiql = %q", q["query"])
			}
			return jsonResponse(200, map[string]any{
				"workItems": []map[string]any{{"id": 7}, {"id": 9}},
			}), nil

		default:
			if got := req.URL.Query().Get("ids"); got != "7,9" {
				t.Errorf("ids = %q", got)
			}
			return jsonResponse(200, map[string]any{
				"value": []map[string]any{
					{"id": 7, "fields": map[string]any{"System.Title": "First", "System.State": "Active", "System.WorkItemType": "Task"}},
					{"id": 9, "fields": map[string]any{"System.Title": "Second", "System.State": "New", "System.WorkItemType": "Bug"}},
				},
			}), nil
		}
	})

	items, err := client.QueryWorkItems(context.Background(), "SELECT [System.Id] FROM WorkItems")
	if err != nil {
		t.Fatalf("QueryWorkItems: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].ID != 7 || items[0].Title != "First" || items[1].Type != "Bug" {
		t.Errorf("items = %+v", items)
	}
}

func TestQueryWorkItems_Empty(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, map[string]any{"workItems": []map[string]any{}}), nil
	})

	items, err := client.QueryWorkItems(context.Background(), "SELECT [System.Id] FROM WorkItems")
	if err != nil {
		t.Fatalf("QueryWorkItems: %v", err)
	}
	if items != nil {
		t.Errorf("items = %v, want nil", items)
	}
}

func TestCreateWorkItem_AuthError(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(401, map[string]any{"message": "bad token"}), nil
	})

	_, err := client.CreateWorkItem(context.Background(), "Task", "x", "")
	if !errors.Is(err, chat.ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
}

func TestTools_CreateRequiresFields(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		t.Error("no request expected")
		return jsonResponse(500, nil), nil
	})

	tools := boards.Tools(client)
	if len(tools) != 2 {
		t.Fatalf("tools = %d, want 2", len(tools))
	}

	create := tools[0]
	if create.Name() != "create_work_item" {
		t.Fatalf("name = %q", create.Name())
	}
	if _, err := create.Invoke(context.Background(), json.RawMessage(`{"title":"no type"}`)); err == nil {
		t.Fatal("expected error for missing work_item_type")
	}
}
