package main

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/dyseo521/baepdoongi-bot-sub000/pkg/engine"
	"github.com/dyseo521/baepdoongi-bot-sub000/pkg/ingest"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewBuffer(b)
}

// uniqueName builds a letters-only applicant name so re-runs against the same
// database do not cross-match (digits would be stripped by normalization).
func uniqueName(prefix string) string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = 'a' + b%26
	}
	return prefix + string(buf)
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	_ = os.Setenv("ACCOUNT_KEYWORD", "동아리통장")
	cfg := loadConfig()
	jwtSecret = cfg.JWTSecret
	initDB(cfg)
	srv := &server{
		eng:    engine.New(newGormStore(db)),
		parser: ingest.NewParser(cfg.AccountKeyword),
		cfg:    cfg,
	}
	r := gin.Default()
	setupRoutes(r, srv)
	return r
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)

	// 1. Register operator
	resp := performRequest(r, http.MethodPost, "/register",
		jsonBody(t, map[string]string{"username": "op1", "password": "pass123"}), "")
	if resp.Code != 200 && resp.Code != 409 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 2. Login
	resp = performRequest(r, http.MethodPost, "/login",
		jsonBody(t, map[string]string{"username": "op1", "password": "pass123"}), "")
	if resp.Code != 200 {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}

	// 3. Application without student_id is rejected
	applicant := uniqueName("test적")
	resp = performRequest(r, http.MethodPost, "/applications",
		jsonBody(t, map[string]string{"name": applicant}), "")
	if resp.Code != 400 {
		t.Fatalf("expected 400 for missing student_id got %d body=%s", resp.Code, resp.Body.String())
	}

	// 4. Valid application; no deposits yet so it stays pending. A nested
	// extra field must survive as JSON.
	resp = performRequest(r, http.MethodPost, "/applications",
		jsonBody(t, map[string]any{
			"name":              applicant,
			"student_id":        "2023123456",
			"shirt_size":        "L",
			"emergency_contact": map[string]string{"name": "김보호", "phone": "010-0000-0000"},
		}), "")
	if resp.Code != 200 {
		t.Fatalf("create application failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var appResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &appResp)
	appID, _ := appResp["id"].(string)
	if appID == "" {
		t.Fatalf("empty application id: %+v", appResp)
	}

	// 5. Irrelevant notification is ignored and not persisted
	resp = performRequest(r, http.MethodPost, "/webhook/deposit",
		jsonBody(t, map[string]string{"title": "OO은행", "body": "입금 10,000원 아무개→개인통장(000-1111)"}), "")
	if resp.Code != 200 {
		t.Fatalf("webhook failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var hookResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &hookResp)
	if ignored, _ := hookResp["ignored"].(bool); !ignored {
		t.Fatalf("expected irrelevant notification to be ignored: %+v", hookResp)
	}

	// malformed webhook payloads are dropped the same way, never a hard error
	resp = performRequest(r, http.MethodPost, "/webhook/deposit",
		bytes.NewBufferString(`{"title": 42}`), "")
	if resp.Code != 200 {
		t.Fatalf("malformed webhook must answer 200 got %d body=%s", resp.Code, resp.Body.String())
	}
	hookResp = map[string]any{}
	_ = json.Unmarshal(resp.Body.Bytes(), &hookResp)
	if ignored, _ := hookResp["ignored"].(bool); !ignored {
		t.Fatalf("expected malformed notification to be ignored: %+v", hookResp)
	}

	// 6. Matching deposit triggers an auto match
	resp = performRequest(r, http.MethodPost, "/webhook/deposit",
		jsonBody(t, map[string]string{"title": "OO은행", "body": "입금 30,000원 " + applicant + "→동아리통장(356-0123)"}), "")
	if resp.Code != 200 {
		t.Fatalf("webhook failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	hookResp = map[string]any{}
	_ = json.Unmarshal(resp.Body.Bytes(), &hookResp)
	if outcome, _ := hookResp["outcome"].(string); outcome != "auto" {
		t.Fatalf("expected auto outcome got %+v", hookResp)
	}

	// 7. The application is now matched (notifier re-read path)
	resp = performRequest(r, http.MethodGet, "/applications/"+appID, nil, token)
	if resp.Code != 200 {
		t.Fatalf("get application failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var app map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &app)
	if app["Status"] != "matched" {
		t.Fatalf("expected matched application got %+v", app)
	}
	meta, _ := app["Metadata"].(map[string]any)
	contact, _ := meta["emergency_contact"].(string)
	if !strings.Contains(contact, "김보호") {
		t.Fatalf("nested extra field not preserved as JSON: %+v", meta)
	}

	// 8. Stats reflect the commit
	resp = performRequest(r, http.MethodGet, "/stats", nil, token)
	if resp.Code != 200 {
		t.Fatalf("stats failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var stats map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &stats)
	if rate, _ := stats["auto_match_rate"].(float64); rate == 0 {
		t.Fatalf("expected nonzero auto match rate: %+v", stats)
	}

	// 9. Unmatch reverts, and the ledger keeps history
	resp = performRequest(r, http.MethodPost, "/matches/unmatch",
		jsonBody(t, map[string]string{"application_id": appID}), token)
	if resp.Code != 200 {
		t.Fatalf("unmatch failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, "/matches", nil, token)
	if resp.Code != 200 {
		t.Fatalf("list matches failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var rows []map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &rows)
	if len(rows) < 2 {
		t.Fatalf("expected match row plus unmatch marker, got %d rows", len(rows))
	}
}
