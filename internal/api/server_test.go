package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/nerrad567/gray-logic-smoothlights/internal/audit"
	"github.com/nerrad567/gray-logic-smoothlights/internal/auth"
	"github.com/nerrad567/gray-logic-smoothlights/internal/entry"
	"github.com/nerrad567/gray-logic-smoothlights/internal/flow"
	"github.com/nerrad567/gray-logic-smoothlights/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-smoothlights/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-smoothlights/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-smoothlights/internal/lights"
	"github.com/nerrad567/gray-logic-smoothlights/internal/service"
	"github.com/nerrad567/gray-logic-smoothlights/internal/smoothlights"
	"github.com/nerrad567/gray-logic-smoothlights/internal/transition"
	"github.com/nerrad567/gray-logic-smoothlights/migrations"
)

const (
	testSecret   = "test-secret-key-at-least-32-characters-long"
	testUser     = "admin"
	testPassword = "correct-horse-battery"
)

// testHashParams keep login fast in tests; the stored format is the same.
var testHashParams = auth.Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32}

// recordingPublisher captures light commands instead of sending them to a broker.
type recordingPublisher struct {
	mu       sync.Mutex
	commands []lights.CommandMessage
}

func (p *recordingPublisher) Publish(_ string, payload []byte, _ byte, _ bool) error {
	var msg lights.CommandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = append(p.commands, msg)
	return nil
}

func (p *recordingPublisher) last(t *testing.T) lights.CommandMessage {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.commands) == 0 {
		t.Fatal("no light command published")
	}
	return p.commands[len(p.commands)-1]
}

// testServer wires a Server over a real registry, light domain, integration
// and temp-dir SQLite entry store.
func testServer(t *testing.T) (*Server, *recordingPublisher) {
	t.Helper()
	return testServerWith(t)
}

// testServerWith is testServer with extra options for the integration.
func testServerWith(t *testing.T, opts ...smoothlights.Option) (*Server, *recordingPublisher) {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "api.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}

	reg := service.NewRegistry()
	pub := &recordingPublisher{}
	if err := lights.New(pub).Register(reg); err != nil {
		t.Fatalf("registering lights: %v", err)
	}
	entries := entry.NewManager(entry.NewSQLiteRepository(db.DB), smoothlights.New(reg, opts...))
	flows := flow.NewManager(entries, transition.DefaultConfig())
	auditRepo := audit.NewSQLiteRepository(db.DB)
	entries.AddObserver(audit.NewTrail(auditRepo))

	log := logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)

	passwordHash, err := auth.HashPasswordWith(testPassword, testHashParams)
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}

	srv, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:     config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Security: config.SecurityConfig{
			JWT:  config.JWTConfig{Secret: testSecret, AccessTokenTTL: 15},
			Auth: config.AuthConfig{AdminUsername: testUser, AdminPasswordHash: passwordHash},
		},
		Logger:   log,
		Services: reg,
		Entries:  entries,
		Flows:    flows,
		Audit:    auditRepo,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	reg.AddObserver(srv.Hub())
	entries.AddObserver(srv.Hub())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)

	return srv, pub
}

// doRequest sends a request through the router. token may be empty.
func doRequest(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	w := doRequest(t, h, http.MethodPost, "/api/v1/auth/login", "",
		`{"username": "`+testUser+`", "password": "`+testPassword+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d; body: %s", w.Code, w.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal login: %v", err)
	}
	return resp.AccessToken
}

func decodeFlow(t *testing.T, w *httptest.ResponseRecorder) flow.Result {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var res flow.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal flow result: %v", err)
	}
	return res
}

// setUp runs the setup flow with body and returns the created entry.
func setUp(t *testing.T, h http.Handler, token, body string) *entry.Entry {
	t.Helper()
	start := decodeFlow(t, doRequest(t, h, http.MethodPost, "/api/v1/config/flows", token, `{"handler": "smooth_lights"}`))
	res := decodeFlow(t, doRequest(t, h, http.MethodPost, "/api/v1/config/flows/"+start.FlowID, token, body))
	if res.Type != flow.ResultCreateEntry || res.Entry == nil {
		t.Fatalf("flow result = %+v, want create_entry", res)
	}
	return res.Entry
}

// ─── Health & Middleware ───────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	w := doRequest(t, srv.buildRouter(), http.MethodGet, "/api/v1/health", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" || resp["version"] != "test" {
		t.Errorf("health = %v", resp)
	}
}

func TestRequestID(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doRequest(t, router, http.MethodGet, "/api/v1/health", "", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-id")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "client-id" {
		t.Errorf("X-Request-ID = %q, want client-id", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/config/entries", nil)
	req.Header.Set("Origin", "http://panel.local")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

// ─── Auth ──────────────────────────────────────────────────────────

func TestLogin(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"username": "admin", "password": "correct-horse-battery"}`, http.StatusOK},
		{"wrong password", `{"username": "admin", "password": "admin"}`, http.StatusUnauthorized},
		{"wrong user", `{"username": "root", "password": "correct-horse-battery"}`, http.StatusUnauthorized},
		{"empty password", `{"username": "admin", "password": ""}`, http.StatusUnauthorized},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestLogin_DisabledWithoutPassword(t *testing.T) {
	srv, _ := testServer(t)
	srv.secCfg.Auth.AdminPasswordHash = ""

	w := doRequest(t, srv.buildRouter(), http.MethodPost, "/api/v1/auth/login", "", `{"username": "admin", "password": ""}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestLogin_UnusableHash(t *testing.T) {
	srv, _ := testServer(t)
	srv.secCfg.Auth.AdminPasswordHash = "$argon2id$v=19$broken"

	w := doRequest(t, srv.buildRouter(), http.MethodPost, "/api/v1/auth/login", "",
		`{"username": "admin", "password": "correct-horse-battery"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	expired, err := generateAccessToken("admin", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}
	foreign, err := generateAccessToken("admin", "another-secret-that-is-32-characters-long", time.Minute)
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"wrong secret", foreign, http.StatusUnauthorized},
		{"valid", login(t, router), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodGet, "/api/v1/config/entries", tt.token, "")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestWSTicket_SingleUse(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doRequest(t, router, http.MethodPost, "/api/v1/auth/ws-ticket", login(t, router), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ticket, _ := resp["ticket"].(string)
	if ticket == "" {
		t.Fatal("expected ticket to be a non-empty string")
	}

	te, ok := srv.tickets.redeem(ticket)
	if !ok || te.subject != testUser {
		t.Errorf("first redeem = (%+v, %v), want valid ticket for admin", te, ok)
	}
	if _, ok := srv.tickets.redeem(ticket); ok {
		t.Error("ticket should not be valid on second use")
	}
}

func TestWSTicket_Expiry(t *testing.T) {
	ts := newTicketStore()
	ticket := ts.issue("admin")
	ts.mu.Lock()
	ts.tickets[ticket] = ticketEntry{subject: "admin", expiresAt: time.Now().Add(-time.Second)}
	ts.mu.Unlock()

	if _, ok := ts.redeem(ticket); ok {
		t.Error("expired ticket should not be valid")
	}

	stale := ts.issue("admin")
	ts.sweep(time.Now().Add(2 * ticketTTL))
	if _, ok := ts.redeem(stale); ok {
		t.Error("sweep should have removed the stale ticket")
	}
}

func TestWebSocket_RequiresTicket(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	for _, path := range []string{"/api/v1/ws", "/api/v1/ws?ticket=bogus"} {
		w := doRequest(t, router, http.MethodGet, path, "", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, http.StatusUnauthorized)
		}
	}
}

// ─── Config Flows & Entries ────────────────────────────────────────

func TestConfigFlow_SetupInjectsTransition(t *testing.T) {
	srv, pub := testServer(t)
	router := srv.buildRouter()
	token := login(t, router)

	start := decodeFlow(t, doRequest(t, router, http.MethodPost, "/api/v1/config/flows", token, `{"handler": "smooth_lights"}`))
	if start.Type != flow.ResultForm || start.StepID != flow.StepUser {
		t.Fatalf("start = %+v, want user form", start)
	}

	e := setUpFromFlow(t, router, token, start.FlowID, `{"transition_time": 2, "exclude_entities": "light.porch"}`)
	if e.State != entry.StateLoaded || e.Data.TransitionTime != 2 {
		t.Errorf("entry = %+v, want loaded at 2s", e)
	}

	w := doRequest(t, router, http.MethodPost, "/api/v1/services/light/turn_on", token, `{"entity_id": "light.kitchen"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("call status = %d; body: %s", w.Code, w.Body.String())
	}
	cmd := pub.last(t)
	if cmd.DeviceID != "light.kitchen" || cmd.Parameters["transition"] != 2.0 || cmd.Parameters["fade_ms"] != 2000.0 {
		t.Errorf("command = %+v, want kitchen with 2s transition", cmd)
	}

	doRequest(t, router, http.MethodPost, "/api/v1/services/light/turn_on", token, `{"entity_id": "light.porch"}`)
	if cmd := pub.last(t); cmd.DeviceID != "light.porch" || cmd.Parameters["transition"] != nil {
		t.Errorf("excluded command = %+v, want no transition", cmd)
	}

	again := decodeFlow(t, doRequest(t, router, http.MethodPost, "/api/v1/config/flows", token, `{"handler": "smooth_lights"}`))
	if again.Type != flow.ResultAbort || again.Reason != flow.ReasonSingleInstance {
		t.Errorf("second setup = %+v, want single_instance_allowed abort", again)
	}
}

func setUpFromFlow(t *testing.T, h http.Handler, token, flowID, body string) *entry.Entry {
	t.Helper()
	res := decodeFlow(t, doRequest(t, h, http.MethodPost, "/api/v1/config/flows/"+flowID, token, body))
	if res.Type != flow.ResultCreateEntry || res.Entry == nil {
		t.Fatalf("flow result = %+v, want create_entry", res)
	}
	return res.Entry
}

func TestConfigFlow_FieldErrors(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	token := login(t, router)

	start := decodeFlow(t, doRequest(t, router, http.MethodPost, "/api/v1/config/flows", token, `{"handler": "smooth_lights"}`))
	res := decodeFlow(t, doRequest(t, router, http.MethodPost, "/api/v1/config/flows/"+start.FlowID, token,
		`{"transition_time": 120, "exclude_entities": ["porch"]}`))

	if res.Type != flow.ResultForm {
		t.Fatalf("type = %q, want form", res.Type)
	}
	if res.Errors["transition_time"] != flow.ErrorOutOfRange || res.Errors["exclude_entities"] != flow.ErrorInvalidEntityID {
		t.Errorf("errors = %v", res.Errors)
	}

	progress := decodeFlow(t, doRequest(t, router, http.MethodGet, "/api/v1/config/flows/"+start.FlowID, token, ""))
	if progress.FlowID != start.FlowID {
		t.Error("flow closed after field errors")
	}
}

func TestConfigFlow_UnknownHandlerAndFlow(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	token := login(t, router)

	if w := doRequest(t, router, http.MethodPost, "/api/v1/config/flows", token, `{"handler": "hue"}`); w.Code != http.StatusBadRequest {
		t.Errorf("unknown handler status = %d, want 400", w.Code)
	}
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		if w := doRequest(t, router, method, "/api/v1/config/flows/nope", token, ""); w.Code != http.StatusNotFound {
			t.Errorf("%s unknown flow status = %d, want 404", method, w.Code)
		}
	}
}

func TestConfigFlow_AbortAndList(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	token := login(t, router)

	start := decodeFlow(t, doRequest(t, router, http.MethodPost, "/api/v1/config/flows", token, `{"handler": "smooth_lights"}`))

	w := doRequest(t, router, http.MethodGet, "/api/v1/config/flows", token, "")
	var list struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || list.Count != 1 {
		t.Fatalf("flows count = %d (%v), want 1", list.Count, err)
	}

	if w := doRequest(t, router, http.MethodDelete, "/api/v1/config/flows/"+start.FlowID, token, ""); w.Code != http.StatusNoContent {
		t.Errorf("abort status = %d, want 204", w.Code)
	}
	w = doRequest(t, router, http.MethodGet, "/api/v1/config/flows", token, "")
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || list.Count != 0 {
		t.Errorf("flows count after abort = %d, want 0", list.Count)
	}
}

func TestOptionsFlow_ReconfiguresEntry(t *testing.T) {
	srv, pub := testServer(t)
	router := srv.buildRouter()
	token := login(t, router)

	e := setUp(t, router, token, `{"transition_time": 3}`)

	start := decodeFlow(t, doRequest(t, router, http.MethodPost, "/api/v1/config/entries/"+e.ID+"/options", token, ""))
	if start.StepID != flow.StepInit || start.DataSchema[0].Default != 3.0 {
		t.Fatalf("options start = %+v, want init form pre-filled with 3", start)
	}
	res := decodeFlow(t, doRequest(t, router, http.MethodPost, "/api/v1/config/flows/"+start.FlowID, token, `{"transition_time": "8"}`))
	if res.Type != flow.ResultCreateEntry || res.Entry.Data.TransitionTime != 8 {
		t.Fatalf("options result = %+v, want entry at 8s", res)
	}

	doRequest(t, router, http.MethodPost, "/api/v1/services/light/turn_on", token, `{"entity_id": "light.desk"}`)
	if cmd := pub.last(t); cmd.Parameters["transition"] != 8.0 {
		t.Errorf("transition after reconfigure = %v, want 8", cmd.Parameters["transition"])
	}

	if w := doRequest(t, router, http.MethodPost, "/api/v1/config/entries/missing/options", token, ""); w.Code != http.StatusNotFound {
		t.Errorf("options for missing entry status = %d, want 404", w.Code)
	}
}

func TestEntries_GetReloadDelete(t *testing.T) {
	srv, pub := testServer(t)
	router := srv.buildRouter()
	token := login(t, router)

	e := setUp(t, router, token, `{"transition_time": 5}`)

	w := doRequest(t, router, http.MethodGet, "/api/v1/config/entries/"+e.ID, token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if w := doRequest(t, router, http.MethodPost, "/api/v1/config/entries/"+e.ID+"/reload", token, ""); w.Code != http.StatusOK {
		t.Errorf("reload status = %d, want 200", w.Code)
	}

	if w := doRequest(t, router, http.MethodDelete, "/api/v1/config/entries/"+e.ID, token, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}
	if w := doRequest(t, router, http.MethodGet, "/api/v1/config/entries/"+e.ID, token, ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
	if w := doRequest(t, router, http.MethodDelete, "/api/v1/config/entries/"+e.ID, token, ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}

	doRequest(t, router, http.MethodPost, "/api/v1/services/light/turn_on", token, `{"entity_id": "light.desk"}`)
	if cmd := pub.last(t); cmd.Parameters["transition"] != nil {
		t.Errorf("transition after removal = %v, want none", cmd.Parameters["transition"])
	}
}

// ─── Services ──────────────────────────────────────────────────────

func TestListServices(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doRequest(t, router, http.MethodGet, "/api/v1/services", login(t, router), "")
	var resp struct {
		Services []service.Key `json:"services"`
		Count    int           `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 3 || resp.Services[0] != (service.Key{Domain: "light", Service: "toggle"}) {
		t.Errorf("services = %+v, want three light services sorted", resp.Services)
	}
}

func TestCallService_Errors(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	token := login(t, router)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown service", "/api/v1/services/switch/turn_on", `{"entity_id": "switch.a"}`, http.StatusNotFound},
		{"no target", "/api/v1/services/light/turn_on", ``, http.StatusBadRequest},
		{"bad entity ref", "/api/v1/services/light/turn_on", `{"entity_id": 7}`, http.StatusBadRequest},
		{"bad json", "/api/v1/services/light/turn_on", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodPost, tt.path, token, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestCallService_RecordsUser(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doRequest(t, router, http.MethodPost, "/api/v1/services/light/turn_off", login(t, router), `{"entity_id": "light.a"}`)
	var resp callServiceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Context.ID == "" || resp.Context.UserID != testUser || resp.Context.Origin != service.OriginAPI {
		t.Errorf("context = %+v, want api origin for admin", resp.Context)
	}
}

// ─── WebSocket Hub ─────────────────────────────────────────────────

func newTestClient(hub *Hub, channels ...string) *WSClient {
	c := newWSClient(hub, nil, "test")
	for _, ch := range channels {
		c.subscriptions[ch] = struct{}{}
	}
	hub.Register(c)
	return c
}

func receive(t *testing.T, c *WSClient) WSMessage {
	t.Helper()
	select {
	case raw := <-c.send:
		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return WSMessage{}
	}
}

func TestHub_BroadcastOnlyToSubscribed(t *testing.T) {
	srv, _ := testServer(t)

	subscribed := newTestClient(srv.hub, ChannelEntryUpdated)
	other := newTestClient(srv.hub, ChannelServiceCalled)

	srv.hub.Broadcast(ChannelEntryUpdated, map[string]any{"entry_id": "x"})

	if msg := receive(t, subscribed); msg.EventType != ChannelEntryUpdated {
		t.Errorf("event_type = %q, want %q", msg.EventType, ChannelEntryUpdated)
	}
	select {
	case <-other.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_ClientCount(t *testing.T) {
	log := logging.NewWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard)
	hub := NewHub(config.WebSocketConfig{}, log)

	c := newTestClient(hub)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}
	hub.Unregister(c)
	hub.Unregister(c)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
}

func TestHub_Events(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()
	token := login(t, router)

	c := newTestClient(srv.hub, ChannelServiceCalled, ChannelEntryUpdated)

	e := setUp(t, router, token, `{"transition_time": 1}`)
	msg := receive(t, c)
	if msg.EventType != ChannelEntryUpdated {
		t.Fatalf("event_type = %q, want entry.updated", msg.EventType)
	}
	payload, _ := msg.Payload.(map[string]any)
	if payload["change"] != string(entry.ChangeCreated) {
		t.Errorf("change = %v, want created", payload["change"])
	}

	doRequest(t, router, http.MethodPost, "/api/v1/services/light/turn_on", token, `{"entity_id": "light.a"}`)
	msg = receive(t, c)
	payload, _ = msg.Payload.(map[string]any)
	if msg.EventType != ChannelServiceCalled || payload["domain"] != "light" || payload["service"] != "turn_on" {
		t.Errorf("event = %+v, want service.called for light.turn_on", msg)
	}

	doRequest(t, router, http.MethodDelete, "/api/v1/config/entries/"+e.ID, token, "")
	msg = receive(t, c)
	payload, _ = msg.Payload.(map[string]any)
	if payload["change"] != string(entry.ChangeRemoved) {
		t.Errorf("change = %v, want removed", payload["change"])
	}
}

func TestWSClient_Subscription(t *testing.T) {
	srv, _ := testServer(t)
	c := newTestClient(srv.hub)

	c.handleMessage([]byte(`{"type": "subscribe", "id": "1", "payload": {"channels": ["service.called"]}}`))
	if msg := receive(t, c); msg.Type != WSTypeResponse || !c.isSubscribed(ChannelServiceCalled) {
		t.Errorf("subscribe response = %+v, subscribed = %v", msg, c.isSubscribed(ChannelServiceCalled))
	}

	c.handleMessage([]byte(`{"type": "unsubscribe", "id": "2", "payload": {"channels": ["service.called"]}}`))
	receive(t, c)
	if c.isSubscribed(ChannelServiceCalled) {
		t.Error("still subscribed after unsubscribe")
	}

	c.handleMessage([]byte(`{"type": "ping", "id": "3"}`))
	if msg := receive(t, c); msg.Type != WSTypePong || msg.ID != "3" {
		t.Errorf("ping response = %+v, want pong 3", msg)
	}

	c.handleMessage([]byte(`{"type": "bogus"}`))
	if msg := receive(t, c); msg.Type != WSTypeError {
		t.Errorf("unknown type response = %+v, want error", msg)
	}

	c.handleMessage([]byte(`{"type": "subscribe", "id": "4", "payload": {"channels": ["entry.updated", "device.state"]}}`))
	if msg := receive(t, c); msg.Type != WSTypeError {
		t.Errorf("unknown channel response = %+v, want error", msg)
	}
	if c.isSubscribed(ChannelEntryUpdated) {
		t.Error("partial subscription applied despite unknown channel")
	}
}

func TestWSClient_SendAfterClose(t *testing.T) {
	log := logging.NewWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard)
	hub := NewHub(config.WebSocketConfig{}, log)
	c := newTestClient(hub, ChannelServiceCalled)

	hub.Unregister(c)
	hub.Broadcast(ChannelServiceCalled, map[string]any{"domain": "light"})
	c.closeSend()

	if _, ok := <-c.send; ok {
		t.Error("send queue still open after unregister")
	}
}

func TestHub_RunDisconnectsClients(t *testing.T) {
	log := logging.NewWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard)
	hub := NewHub(config.WebSocketConfig{}, log)
	c := newTestClient(hub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after Run, want 0", hub.ClientCount())
	}
	if _, ok := <-c.send; ok {
		t.Error("client send queue still open")
	}
}

func TestWSTimings_Defaults(t *testing.T) {
	got := newWSTimings(config.WebSocketConfig{})
	if got.pingInterval != defaultPingInterval || got.pongWait != defaultPongTimeout {
		t.Errorf("timings = %+v, want defaults", got)
	}
	got = newWSTimings(config.WebSocketConfig{PingInterval: 5, PongTimeout: 2})
	if got.pingInterval != 5*time.Second || got.pongWait != 2*time.Second {
		t.Errorf("timings = %+v, want 5s/2s", got)
	}
}

type fakeConn bool

func (f fakeConn) IsConnected() bool { return bool(f) }

func TestMetrics(t *testing.T) {
	srv, _ := testServer(t)
	srv.mqtt = fakeConn(true)
	router := srv.buildRouter()
	setUp(t, router, login(t, router), `{"transition_time": 2}`)

	w := doRequest(t, router, http.MethodGet, "/api/v1/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	var m SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Entries.Total != 1 || m.Entries.ByState[string(entry.StateLoaded)] != 1 {
		t.Errorf("entries = %+v, want one loaded", m.Entries)
	}
	if m.MQTT == nil || !m.MQTT.Connected || m.Services != 3 || m.Version != "test" {
		t.Errorf("metrics = %+v", m)
	}
}

func TestMetrics_InterceptionCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	srv, pub := testServerWith(t, smoothlights.WithMeter(mp.Meter("test")))
	srv.telemetry = reader
	router := srv.buildRouter()
	token := login(t, router)
	setUp(t, router, token, `{"transition_time": 2}`)

	for _, id := range []string{"light.kitchen", "light.hall"} {
		w := doRequest(t, router, http.MethodPost, "/api/v1/services/light/turn_on", token, `{"entity_id": "`+id+`"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("turn_on %s status = %d", id, w.Code)
		}
	}
	pub.mu.Lock()
	published := len(pub.commands)
	pub.mu.Unlock()
	if published != 2 {
		t.Fatalf("published %d commands, want 2", published)
	}

	w := doRequest(t, router, http.MethodGet, "/api/v1/metrics", "", "")
	var m SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Interception == nil {
		t.Fatal("interception section missing")
	}
	if m.Interception.Calls != 2 || m.Interception.MutateErrors != 0 {
		t.Errorf("interception = %+v, want 2 calls, 0 errors", *m.Interception)
	}
}

func TestMetrics_WithoutCollector(t *testing.T) {
	srv, _ := testServer(t)
	w := doRequest(t, srv.buildRouter(), http.MethodGet, "/api/v1/metrics", "", "")
	if strings.Contains(w.Body.String(), `"interception"`) {
		t.Errorf("interception reported without a collector: %s", w.Body.String())
	}
}

func TestAudit_RecordsEntryChanges(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.buildRouter()
	token := login(t, h)

	te := setUp(t, h, token, `{"transition_time": 3}`)
	if w := doRequest(t, h, http.MethodDelete, "/api/v1/config/entries/"+te.ID, token, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}

	w := doRequest(t, h, http.MethodGet, "/api/v1/audit?entry_id="+te.ID, token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var page audit.ListResult
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("Total = %d, want 2 (created, removed)", page.Total)
	}
	actions := map[string]bool{}
	for _, rec := range page.Records {
		actions[rec.Action] = true
	}
	if !actions["created"] || !actions["removed"] {
		t.Errorf("actions = %v, want created and removed", actions)
	}

	w = doRequest(t, h, http.MethodGet, "/api/v1/audit?action=created&limit=1", token, "")
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if page.Limit != 1 || len(page.Records) != 1 || page.Records[0].Action != "created" {
		t.Errorf("filtered page = %+v", page)
	}
}

func TestAudit_Errors(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.buildRouter()
	token := login(t, h)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"no token", "/api/v1/audit", "", http.StatusUnauthorized},
		{"bad limit", "/api/v1/audit?limit=ten", token, http.StatusBadRequest},
		{"bad offset", "/api/v1/audit?offset=x", token, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doRequest(t, h, http.MethodGet, tt.path, tt.token, ""); w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}

	srv.audit = nil
	if w := doRequest(t, srv.buildRouter(), http.MethodGet, "/api/v1/audit", token, ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status without repository = %d, want 503", w.Code)
	}
}
