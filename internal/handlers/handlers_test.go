package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"ngabarin/realtime/internal/cache"
	"ngabarin/realtime/internal/messaging"
	"ngabarin/realtime/internal/models"
	"ngabarin/realtime/internal/notify"
	"ngabarin/realtime/internal/testutil"
	ws "ngabarin/realtime/internal/websocket"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func strPtr(s string) *string { return &s }

func newTestApp(t *testing.T) (*fiber.App, *testutil.Store) {
	t.Helper()
	store := testutil.NewStore()
	store.AddUser(models.User{ID: "alice", Username: "alice", Role: models.RoleMember, GroupID: strPtr("g1")})
	store.AddUser(models.User{ID: "bob", Username: "bob", Role: models.RoleMember, GroupID: strPtr("g1")})
	store.AddUser(models.User{ID: "carol", Username: "carol", Role: models.RoleMember, GroupID: strPtr("g2")})
	store.AddGroup(models.Group{ID: "g1", Name: "Jakarta Ops", Region: "JKT", Members: []string{"alice", "bob"}})
	store.AddGroup(models.Group{ID: "g2", Name: "Bandung Ops", Region: "BDG", Members: []string{"carol"}})

	clock := testutil.NewClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	hub := ws.NewHub()
	notifications := notify.NewStore(store.NotificationRepo(), cache.NewNotificationCache(testutil.NewKV(), 0, 0))
	notifier := notify.NewService(notifications, hub, clock.Now)
	pipeline := messaging.NewPipeline(store.Groups(), store.MessageRepo(), notifier, hub, clock.Now)

	messages := NewMessageHandler(pipeline, store)
	notificationHandler := NewNotificationHandler(notifications)
	groups := NewGroupHandler(store.Groups(), store, hub)

	app := fiber.New()
	// Stand-in for the auth middleware
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-User"); id != "" {
			c.Locals("userID", id)
		}
		return c.Next()
	})
	app.Post("/messages", messages.SendMessage)
	app.Post("/messages/seen", messages.MarkSeen)
	app.Patch("/messages/:messageId", messages.EditMessage)
	app.Delete("/messages/:messageId", messages.DeleteMessage)
	app.Post("/messages/:messageId/forward", messages.ForwardMessage)
	app.Get("/groups/:groupId", groups.GetGroupDetails)
	app.Get("/groups/:groupId/messages", messages.GetGroupMessages)
	app.Get("/notifications", notificationHandler.GetNotifications)
	app.Delete("/notifications", notificationHandler.ClearNotifications)
	return app, store
}

func do(t *testing.T, app *fiber.App, method, path, user string, body interface{}) (int, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func TestSendEditDeleteFlow(t *testing.T) {
	app, store := newTestApp(t)

	status, resp := do(t, app, http.MethodPost, "/messages", "alice", map[string]interface{}{"text": "hello @BDG", "groupId": "g1"})
	if status != fiber.StatusCreated || !resp.Success {
		t.Fatalf("send status = %d, resp = %+v", status, resp)
	}
	var sent models.Message
	if err := json.Unmarshal(resp.Data, &sent); err != nil {
		t.Fatal(err)
	}
	if n := len(store.Messages()); n != 2 {
		t.Fatalf("expected primary and forwarded copy, got %d", n)
	}

	status, resp = do(t, app, http.MethodPatch, "/messages/"+sent.ID, "bob", map[string]string{"text": "nope"})
	if status != fiber.StatusForbidden || resp.Error.Code != "not_sender" {
		t.Errorf("edit by bob = %d %+v", status, resp)
	}

	status, _ = do(t, app, http.MethodPatch, "/messages/"+sent.ID, "alice", map[string]string{"text": "edited"})
	if status != fiber.StatusOK {
		t.Errorf("edit by alice = %d", status)
	}

	status, _ = do(t, app, http.MethodDelete, "/messages/"+sent.ID, "alice", nil)
	if status != fiber.StatusOK {
		t.Errorf("delete = %d", status)
	}
	for _, m := range store.Messages() {
		if !m.Deleted.IsDeleted {
			t.Errorf("message %s not tombstoned", m.ID)
		}
	}
}

func TestSendErrorsMapToStatus(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name   string
		user   string
		body   interface{}
		status int
		code   string
	}{
		{"no credential", "", map[string]string{"text": "hi"}, fiber.StatusUnauthorized, "missing_credential"},
		{"empty", "alice", map[string]string{"groupId": "g1"}, fiber.StatusBadRequest, "empty_message"},
		{"unknown group", "alice", map[string]string{"text": "hi", "groupId": "zz"}, fiber.StatusNotFound, "group_not_found"},
		{"not member", "carol", map[string]string{"text": "hi", "groupId": "g1"}, fiber.StatusForbidden, "not_group_member"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := do(t, app, http.MethodPost, "/messages", tt.user, tt.body)
			if status != tt.status || resp.Error.Code != tt.code {
				t.Errorf("got %d %q, want %d %q", status, resp.Error.Code, tt.status, tt.code)
			}
		})
	}
}

func TestForwardAndHistory(t *testing.T) {
	app, _ := newTestApp(t)

	_, resp := do(t, app, http.MethodPost, "/messages", "alice", map[string]string{"text": "report", "groupId": "g1"})
	var sent models.Message
	_ = json.Unmarshal(resp.Data, &sent)

	status, resp := do(t, app, http.MethodPost, "/messages/"+sent.ID+"/forward", "alice", map[string][]string{"groupIds": {"g2"}})
	if status != fiber.StatusCreated {
		t.Fatalf("forward = %d %+v", status, resp)
	}

	status, resp = do(t, app, http.MethodGet, "/groups/g2/messages?limit=10", "carol", nil)
	if status != fiber.StatusOK {
		t.Fatalf("history = %d", status)
	}
	var views []models.MessageView
	if err := json.Unmarshal(resp.Data, &views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || !views[0].IsForwarded || views[0].Text != messaging.ForwardPrefix+"report" {
		t.Errorf("history = %+v", views)
	}

	status, resp = do(t, app, http.MethodGet, "/groups/g2/messages?before=yesterday", "carol", nil)
	if status != fiber.StatusBadRequest || resp.Error.Code != "invalid_request" {
		t.Errorf("bad before = %d %+v", status, resp)
	}
}

func TestGroupDetails(t *testing.T) {
	app, _ := newTestApp(t)

	status, resp := do(t, app, http.MethodGet, "/groups/g1", "alice", nil)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var details GroupDetails
	if err := json.Unmarshal(resp.Data, &details); err != nil {
		t.Fatal(err)
	}
	if details.Name != "Jakarta Ops" || len(details.OnlineUserIDs) != 0 {
		t.Errorf("details = %+v", details)
	}

	status, _ = do(t, app, http.MethodGet, "/groups/g1", "carol", nil)
	if status != fiber.StatusForbidden {
		t.Errorf("outsider status = %d", status)
	}
}

func TestNotificationsEndpoints(t *testing.T) {
	app, _ := newTestApp(t)

	do(t, app, http.MethodPost, "/messages", "alice", map[string]string{"text": "ping", "groupId": "g1"})

	status, resp := do(t, app, http.MethodGet, "/notifications", "bob", nil)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var list []models.Notification
	_ = json.Unmarshal(resp.Data, &list)
	if len(list) != 1 || list[0].FromUserID != "alice" {
		t.Fatalf("notifications = %+v", list)
	}

	status, _ = do(t, app, http.MethodDelete, "/notifications", "bob", nil)
	if status != fiber.StatusOK {
		t.Fatalf("clear status = %d", status)
	}
	_, resp = do(t, app, http.MethodGet, "/notifications", "bob", nil)
	_ = json.Unmarshal(resp.Data, &list)
	if len(list) != 0 {
		t.Errorf("expected empty list after clear, got %+v", list)
	}

	_, resp = do(t, app, http.MethodGet, "/notifications", "nobody", nil)
	if string(resp.Data) != "[]" {
		t.Errorf("unknown user data = %s", resp.Data)
	}
}
