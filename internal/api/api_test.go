package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/inbox/internal/auth"
	"github.com/yanizio/inbox/internal/config"
	"github.com/yanizio/inbox/internal/logger"
	"github.com/yanizio/inbox/internal/message"
	"github.com/yanizio/inbox/internal/metrics"
	"github.com/yanizio/inbox/internal/source"
)

const testPassword = "correct horse"

type fixture struct {
	handler http.Handler
	issuer  *auth.Issuer
	store   message.Store
}

func newFixture(t *testing.T, policy string, store message.Store, dev bool) *fixture {
	t.Helper()
	iss := auth.NewIssuer(&config.Auth{
		AdminPassword: testPassword,
		JWTSecret:     "test-secret",
		TokenTTL:      24 * time.Hour,
		Issuer:        "inbox",
	})
	if store == nil {
		store = message.NewMemoryStore("davidadebanwo.com")
	}
	h := NewRouter(Deps{
		Issuer:         iss,
		Store:          store,
		Sources:        source.New("davidadebanwo.com", []string{"davidadebanwo.com", "emmanueladama.com"}, policy),
		Development:    dev,
		AllowedOrigins: []string{"https://davidadebanwo.com"},
	})
	return &fixture{handler: h, issuer: iss, store: store}
}

func (f *fixture) do(t *testing.T, method, path, body, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)

	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: body %q is not JSON: %v", method, path, rr.Body.String(), err)
	}
	return rr, out
}

func (f *fixture) token(t *testing.T) string {
	t.Helper()
	tok, err := f.issuer.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

const goodBody = `{"name":"Ada Lovelace","email":"ada@example.com","subject":"Hi","message":"Nice site"}`

//
// ── Submission ─────────────────────────────────────────────────────────
//

func TestSubmitCreatesWithPrimarySource(t *testing.T) {
	f := newFixture(t, config.PolicyLenient, nil, false)

	rr, body := f.do(t, http.MethodPost, "/api/messages", goodBody, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", rr.Code, body)
	}
	if body["success"] != true || body["message"] != msgSaved {
		t.Fatalf("body = %v", body)
	}
	data := body["data"].(map[string]any)
	if data["id"].(float64) != 1 || data["source"] != "davidadebanwo.com" {
		t.Fatalf("data = %v", data)
	}
	if data["createdAt"] == nil || data["updatedAt"] == nil {
		t.Fatalf("timestamps missing: %v", data)
	}
}

func TestSubmitMissingFields(t *testing.T) {
	f := newFixture(t, config.PolicyLenient, nil, false)

	for _, b := range []string{
		`{}`,
		`{"name":"Ada","email":"a@b.co","subject":"x"}`,
		`{"name":"","email":"a@b.co","subject":"x","message":"y"}`,
	} {
		rr, body := f.do(t, http.MethodPost, "/api/messages", b, "")
		if rr.Code != http.StatusBadRequest || body["message"] != msgMissingFields {
			t.Errorf("%s: status %d body %v", b, rr.Code, body)
		}
	}
}

func TestSubmitValidationCollectsErrors(t *testing.T) {
	f := newFixture(t, config.PolicyLenient, nil, false)

	rr, body := f.do(t, http.MethodPost, "/api/messages",
		`{"name":"A","email":"not-an-email","subject":"x","message":"y"}`, "")
	if rr.Code != http.StatusBadRequest || body["message"] != msgValidation {
		t.Fatalf("status %d body %v", rr.Code, body)
	}
	errs := body["errors"].([]any)
	if len(errs) != 2 {
		t.Fatalf("errors = %v, want 2 entries", errs)
	}

	all, _ := f.store.FindAll(context.Background(), message.Filter{})
	if len(all) != 0 {
		t.Fatal("invalid submission was stored")
	}
}

func TestSubmitSourcePolicy(t *testing.T) {
	unknown := `{"name":"Ada","email":"a@b.co","subject":"x","message":"y","source":"new-site.example"}`

	lenient := newFixture(t, config.PolicyLenient, nil, false)
	rr, body := lenient.do(t, http.MethodPost, "/api/messages", unknown, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("lenient status %d body %v", rr.Code, body)
	}
	if body["data"].(map[string]any)["source"] != "new-site.example" {
		t.Fatalf("source not kept: %v", body)
	}

	strict := newFixture(t, config.PolicyStrict, nil, false)
	rr, body = strict.do(t, http.MethodPost, "/api/messages", unknown, "")
	if rr.Code != http.StatusBadRequest || body["message"] != msgValidation {
		t.Fatalf("strict status %d body %v", rr.Code, body)
	}
	if !strings.Contains(body["errors"].([]any)[0].(string), "new-site.example") {
		t.Fatalf("errors = %v", body["errors"])
	}

	known := `{"name":"Ada","email":"a@b.co","subject":"x","message":"y","source":"emmanueladama.com"}`
	if rr, _ := strict.do(t, http.MethodPost, "/api/messages", known, ""); rr.Code != http.StatusCreated {
		t.Fatalf("strict known source status %d", rr.Code)
	}
}

func TestSubmitUnknownSourcesShareMetricLabel(t *testing.T) {
	f := newFixture(t, config.PolicyLenient, nil, false)
	unknown := metrics.MessagesCreatedTotal.WithLabelValues(unknownSourceLabel)
	before := testutil.ToFloat64(unknown)

	const n = 20
	for i := 0; i < n; i++ {
		var b bytes.Buffer
		_ = json.NewEncoder(&b).Encode(map[string]string{
			"name": "Ada", "email": "a@b.co", "subject": "x", "message": "y",
			"source": fmt.Sprintf("junk-%d.example", i),
		})
		if rr, body := f.do(t, http.MethodPost, "/api/messages", b.String(), ""); rr.Code != http.StatusCreated {
			t.Fatalf("submit %d: status %d body %v", i, rr.Code, body)
		}
	}

	if got := testutil.ToFloat64(unknown) - before; got != n {
		t.Fatalf("unknown label grew by %v, want %d", got, n)
	}
	// Two registered sources plus the shared label.
	if series := testutil.CollectAndCount(metrics.MessagesCreatedTotal); series > 3 {
		t.Fatalf("created counter has %d series", series)
	}

	_, body := f.do(t, http.MethodGet, "/api/messages?source=junk-7.example", "", f.token(t))
	if body["count"].(float64) != 1 {
		t.Fatalf("unknown source not stored as sent: %v", body)
	}
}

func TestSubmitBadBodies(t *testing.T) {
	f := newFixture(t, config.PolicyLenient, nil, false)

	rr, body := f.do(t, http.MethodPost, "/api/messages", `{"name":`, "")
	if rr.Code != http.StatusBadRequest || body["message"] != msgInvalidJSON {
		t.Fatalf("status %d body %v", rr.Code, body)
	}

	huge := `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	rr, body = f.do(t, http.MethodPost, "/api/messages", huge, "")
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status %d body %v", rr.Code, body)
	}
}

type failingStore struct{ err error }

func (s failingStore) Create(context.Context, message.Fields) (*message.Message, error) {
	return nil, &message.PersistenceError{Op: "create", Err: s.err}
}

func (s failingStore) FindAll(context.Context, message.Filter) ([]message.Message, error) {
	return nil, &message.PersistenceError{Op: "find", Err: s.err}
}

func (s failingStore) Ping(context.Context) error { return s.err }

func TestPersistenceErrorDetailOnlyInDevelopment(t *testing.T) {
	store := failingStore{err: errors.New("dial tcp: connection refused")}

	prod := newFixture(t, config.PolicyLenient, store, false)
	rr, body := prod.do(t, http.MethodPost, "/api/messages", goodBody, "")
	if rr.Code != http.StatusInternalServerError || body["message"] != msgSaveFailed {
		t.Fatalf("status %d body %v", rr.Code, body)
	}
	if _, leaked := body["error"]; leaked {
		t.Fatalf("detail leaked in production: %v", body)
	}

	dev := newFixture(t, config.PolicyLenient, store, true)
	rr, body = dev.do(t, http.MethodGet, "/api/messages", "", dev.token(t))
	if rr.Code != http.StatusInternalServerError || body["message"] != msgFetchFailed {
		t.Fatalf("status %d body %v", rr.Code, body)
	}
	if !strings.Contains(body["error"].(string), "connection refused") {
		t.Fatalf("detail missing in development: %v", body)
	}
}

//
// ── Login ──────────────────────────────────────────────────────────────
//

func TestLogin(t *testing.T) {
	f := newFixture(t, config.PolicyLenient, nil, false)

	rr, body := f.do(t, http.MethodPost, "/api/login", `{"password":"correct horse"}`, "")
	if rr.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("status %d body %v", rr.Code, body)
	}
	tok := body["token"].(string)
	if _, err := f.issuer.Verify(tok); err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}

	rr, body = f.do(t, http.MethodPost, "/api/login", `{"password":"wrong"}`, "")
	if rr.Code != http.StatusUnauthorized || body["message"] != msgBadPassword {
		t.Fatalf("status %d body %v", rr.Code, body)
	}
	if _, ok := body["token"]; ok {
		t.Fatal("token issued on bad password")
	}
}

//
// ── Retrieval ──────────────────────────────────────────────────────────
//

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newFixture(t, config.PolicyLenient, nil, false)

	for _, path := range []string{"/api/messages", "/api/messages/davidadebanwo.com", "/api/sources"} {
		rr, body := f.do(t, http.MethodGet, path, "", "")
		if rr.Code != http.StatusForbidden || body["message"] != "No token provided" {
			t.Errorf("%s without token: %d %v", path, rr.Code, body)
		}
		rr, _ = f.do(t, http.MethodGet, path, "", "garbage")
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s with bad token: %d", path, rr.Code)
		}
	}
}

func TestListFilters(t *testing.T) {
	f := newFixture(t, config.PolicyLenient, nil, false)
	for _, src := range []string{"", "emmanueladama.com", ""} {
		var b bytes.Buffer
		_ = json.NewEncoder(&b).Encode(map[string]string{
			"name": "Ada", "email": "a@b.co", "subject": "x", "message": "y", "source": src,
		})
		if rr, _ := f.do(t, http.MethodPost, "/api/messages", b.String(), ""); rr.Code != http.StatusCreated {
			t.Fatalf("seed status %d", rr.Code)
		}
	}
	tok := f.token(t)

	_, all := f.do(t, http.MethodGet, "/api/messages", "", tok)
	if all["count"].(float64) != 3 || all["source"] != "all" {
		t.Fatalf("all = %v", all)
	}
	first := all["data"].([]any)[0].(map[string]any)
	if first["id"].(float64) != 3 {
		t.Fatalf("newest first violated: %v", first)
	}

	_, byQuery := f.do(t, http.MethodGet, "/api/messages?source=emmanueladama.com", "", tok)
	if byQuery["count"].(float64) != 1 || byQuery["source"] != "emmanueladama.com" {
		t.Fatalf("query filter = %v", byQuery)
	}

	_, byPath := f.do(t, http.MethodGet, "/api/messages/davidadebanwo.com", "", tok)
	if byPath["count"].(float64) != 2 || byPath["source"] != "davidadebanwo.com" {
		t.Fatalf("path filter = %v", byPath)
	}

	_, none := f.do(t, http.MethodGet, "/api/messages/nobody.example", "", tok)
	data, ok := none["data"].([]any)
	if !ok || len(data) != 0 || none["count"].(float64) != 0 {
		t.Fatalf("empty filter = %v", none)
	}
}

func TestListBySourceDecodesOnce(t *testing.T) {
	f := newFixture(t, config.PolicyLenient, nil, false)
	seed := `{"name":"Ada","email":"a@b.co","subject":"x","message":"y","source":"x%41"}`
	if rr, body := f.do(t, http.MethodPost, "/api/messages", seed, ""); rr.Code != http.StatusCreated {
		t.Fatalf("seed status %d body %v", rr.Code, body)
	}
	slash := `{"name":"Ada","email":"a@b.co","subject":"x","message":"y","source":"a/b"}`
	if rr, body := f.do(t, http.MethodPost, "/api/messages", slash, ""); rr.Code != http.StatusCreated {
		t.Fatalf("seed status %d body %v", rr.Code, body)
	}
	tok := f.token(t)

	for _, tc := range []struct{ path, want string }{
		{"/api/messages/x%2541", "x%41"},
		{"/api/messages/a%2Fb", "a/b"},
		{"/api/messages?source=x%2541", "x%41"},
	} {
		rr, body := f.do(t, http.MethodGet, tc.path, "", tok)
		if rr.Code != http.StatusOK || body["source"] != tc.want || body["count"].(float64) != 1 {
			t.Errorf("%s: status %d body %v, want source %q count 1", tc.path, rr.Code, body, tc.want)
		}
	}
}

func TestListSources(t *testing.T) {
	f := newFixture(t, config.PolicyLenient, nil, false)

	rr, body := f.do(t, http.MethodGet, "/api/sources", "", f.token(t))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	got := body["sources"].([]any)
	if len(got) != 2 || got[0] != "davidadebanwo.com" || got[1] != "emmanueladama.com" {
		t.Fatalf("sources = %v", got)
	}
}

//
// ── Misc routes ────────────────────────────────────────────────────────
//

func TestUnknownRouteAndMethod(t *testing.T) {
	f := newFixture(t, config.PolicyLenient, nil, false)

	rr, body := f.do(t, http.MethodGet, "/api/nope", "", "")
	if rr.Code != http.StatusNotFound || body["message"] != "Route not found" || body["success"] != false {
		t.Fatalf("404: %d %v", rr.Code, body)
	}

	rr, body = f.do(t, http.MethodDelete, "/api/messages", "", "")
	if rr.Code != http.StatusMethodNotAllowed || body["success"] != false {
		t.Fatalf("405: %d %v", rr.Code, body)
	}
}

func TestIndexAndHealth(t *testing.T) {
	f := newFixture(t, config.PolicyLenient, nil, false)

	rr, body := f.do(t, http.MethodGet, "/", "", "")
	if rr.Code != http.StatusOK || body["endpoints"] == nil {
		t.Fatalf("index: %d %v", rr.Code, body)
	}

	rr, body = f.do(t, http.MethodGet, "/healthz", "", "")
	if rr.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("healthz: %d %v", rr.Code, body)
	}

	down := newFixture(t, config.PolicyLenient, failingStore{err: errors.New("down")}, false)
	rr, _ = down.do(t, http.MethodGet, "/healthz", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz with dead store: %d", rr.Code)
	}
}

func TestResponsesCarryHeaders(t *testing.T) {
	f := newFixture(t, config.PolicyLenient, nil, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://davidadebanwo.com")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-Id") == "" {
		t.Error("request id missing")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://davidadebanwo.com" {
		t.Error("CORS header missing for allowed origin")
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		t.Errorf("Content-Type = %q", rr.Header().Get("Content-Type"))
	}
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithContext(req.Context(), zap.New(core).Sugar()))
	rr := httptest.NewRecorder()

	writeJSON(rr, req, http.StatusOK, map[string]any{"bad": make(chan int)})

	entries := logs.FilterMessage("write response").All()
	if len(entries) != 1 || entries[0].Level != zapcore.DebugLevel {
		t.Fatalf("log entries = %v", logs.All())
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}
