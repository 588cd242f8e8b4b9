package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	aicore "github.com/stake-plus/crisistruth/src/ai/core"
	"github.com/stake-plus/crisistruth/src/api/config"
	"github.com/stake-plus/crisistruth/src/api/data"
	"github.com/stake-plus/crisistruth/src/api/types"
	"github.com/stake-plus/crisistruth/src/community"
	"github.com/stake-plus/crisistruth/src/factcheck"
	"github.com/stake-plus/crisistruth/src/realtime"
)

type testServer struct {
	router *gin.Engine
	store  *data.Store
	feed   *realtime.MemorySource
	relay  *realtime.Relay
}

func newTestServer(t *testing.T, engineOpts ...factcheck.Option) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := data.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := data.Migrate(db); err != nil {
		t.Fatal(err)
	}
	if err := data.SeedAccounts(context.Background(), db); err != nil {
		t.Fatal(err)
	}

	feed := realtime.NewMemorySource()
	store := data.NewStore(db, feed)
	votes := community.NewService(community.NewGormStore(db), community.WithPublisher(feed))
	relay := realtime.NewRelay(feed, realtime.WithCrisisStats(store.CrisisStats))
	t.Cleanup(relay.Close)

	tpls, err := data.LoadCrisisTemplates("")
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{
		JWTSecret:   "test-secret",
		VerifyRate:  100,
		CORSOrigins: []string{"http://localhost:3000"},
	}
	r := New(Deps{
		Config:    cfg,
		Store:     store,
		Engine:    factcheck.NewEngine(append([]factcheck.Option{factcheck.WithHeuristic(factcheck.NewHeuristic(rand.NewPCG(1, 2)))}, engineOpts...)...),
		Votes:     votes,
		Relay:     relay,
		Templates: tpls,
	})
	return &testServer{router: r, store: store, feed: feed, relay: relay}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	w, out := s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, w.Code, w.Body.String())
	}
	return out["token"].(string)
}

func TestVerifyEndpoint(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/verify", map[string]string{"claimText": "   "}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank claim: %d", w.Code)
	}
	w, _ = s.do(t, http.MethodPost, "/verify", map[string]string{"claimText": "<b></b>"}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("markup-only claim: %d", w.Code)
	}

	w, out := s.do(t, http.MethodPost, "/verify", map[string]string{
		"claimText": "HAARP caused the <i>earthquake</i> near Andheri",
		"userId":    "u1",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", w.Code, w.Body.String())
	}
	claimID, _ := out["claimId"].(string)
	if claimID == "" {
		t.Fatal("missing claimId")
	}
	v := out["verification"].(map[string]interface{})
	if v["status"] != "disputed" || v["method"] != "heuristic" {
		t.Fatalf("unexpected verification: %v", v)
	}
	if v["claim"] != "HAARP caused the earthquake near Andheri" {
		t.Fatalf("claim not sanitised: %q", v["claim"])
	}
	if v["location"] != "Andheri" {
		t.Fatalf("location = %v", v["location"])
	}
	score := v["confidenceScore"].(float64)
	if score < 10 || score > 29 {
		t.Fatalf("score %v out of band", score)
	}

	claim, err := s.store.GetClaim(context.Background(), claimID)
	if err != nil {
		t.Fatal(err)
	}
	if claim.Status != types.ClaimDisputed || claim.UserID != "u1" || len(claim.Verifications) != 1 {
		t.Fatalf("stored claim: %+v", claim)
	}
}

// cancelingClient stands in for a completion service whose caller goes away
// while the request is in flight.
type cancelingClient struct {
	cancel context.CancelFunc
}

func (c cancelingClient) Name() string { return "canceling" }

func (c cancelingClient) Complete(ctx context.Context, _ aicore.Request) (string, error) {
	c.cancel()
	<-ctx.Done()
	return "", ctx.Err()
}

func TestVerifyPersistsAfterClientCancels(t *testing.T) {
	reqCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestServer(t, factcheck.WithClient(cancelingClient{cancel: cancel}))

	body, _ := json.Marshal(map[string]string{"claimText": "Flooding reported near Andheri subway"})
	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(body)).WithContext(reqCtx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", w.Code, w.Body.String())
	}
	var out struct {
		ClaimID      string `json:"claimId"`
		Verification struct {
			Status string `json:"status"`
			Method string `json:"method"`
		} `json:"verification"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Verification.Method != string(factcheck.MethodFallback) {
		t.Fatalf("method = %q, want fallback", out.Verification.Method)
	}

	claim, err := s.store.GetClaim(context.Background(), out.ClaimID)
	if err != nil {
		t.Fatalf("get claim: %v", err)
	}
	if claim.Status == types.ClaimProcessing || claim.Status != out.Verification.Status {
		t.Fatalf("claim status = %q, want %q", claim.Status, out.Verification.Status)
	}
	if len(claim.Verifications) != 1 {
		t.Fatalf("stored %d verifications, want 1", len(claim.Verifications))
	}
}

func TestCommunityVoteEndpoints(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		body map[string]string
		code int
	}{
		{map[string]string{"userId": "u1", "vote": "agree"}, http.StatusBadRequest},
		{map[string]string{"claimId": "c1", "vote": "agree"}, http.StatusBadRequest},
		{map[string]string{"claimId": "c1", "userId": "u1"}, http.StatusBadRequest},
		{map[string]string{"claimId": "c1", "userId": "u1", "vote": "maybe"}, http.StatusBadRequest},
	}
	for _, c := range cases {
		if w, _ := s.do(t, http.MethodPost, "/community-vote", c.body, ""); w.Code != c.code {
			t.Errorf("%v: got %d want %d", c.body, w.Code, c.code)
		}
	}

	w, out := s.do(t, http.MethodPost, "/community-vote", map[string]string{
		"claimId": "c1", "userId": "u1", "vote": "agree", "comment": "Saw it <script>x</script>myself",
	}, "")
	if w.Code != http.StatusOK || out["success"] != true {
		t.Fatalf("vote: %d %s", w.Code, w.Body.String())
	}
	stats := out["stats"].(map[string]interface{})
	if stats["total_votes"].(float64) != 1 || stats["community_confidence"].(float64) != 100 || stats["user_vote"] != "agree" {
		t.Fatalf("stats: %v", stats)
	}

	if w, _ := s.do(t, http.MethodGet, "/community-vote", nil, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("missing claimId: %d", w.Code)
	}
	w, out = s.do(t, http.MethodGet, "/community-vote?claimId=c1", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("summary: %d", w.Code)
	}
	if _, ok := out["stats"].(map[string]interface{})["user_vote"]; ok {
		t.Fatal("user_vote present without a user")
	}

	w, out = s.do(t, http.MethodGet, "/community-vote/comments?claimId=c1", nil, "")
	comments := out["comments"].([]interface{})
	if w.Code != http.StatusOK || len(comments) != 1 {
		t.Fatalf("comments: %d %v", w.Code, out)
	}
	if got := comments[0].(map[string]interface{})["comment"]; got != "Saw it myself" {
		t.Fatalf("comment not sanitised: %q", got)
	}

	w, out = s.do(t, http.MethodGet, "/community-vote/history?userId=u1", nil, "")
	if w.Code != http.StatusOK || len(out["votes"].([]interface{})) != 1 {
		t.Fatalf("history: %d %v", w.Code, out)
	}
}

func TestVoteUsesTokenIdentity(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "reader@example.com", "pw")

	w, out := s.do(t, http.MethodPost, "/community-vote", map[string]string{"claimId": "c1", "vote": "disagree"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("vote: %d %s", w.Code, w.Body.String())
	}
	if out["stats"].(map[string]interface{})["user_vote"] != "disagree" {
		t.Fatalf("stats: %v", out["stats"])
	}

	w, _ = s.do(t, http.MethodGet, "/community-vote/history", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("history via token: %d", w.Code)
	}
}

func TestAuthAndAdmin(t *testing.T) {
	s := newTestServer(t)

	if w, _ := s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": "", "password": ""}, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("empty login: %d", w.Code)
	}

	admin := s.login(t, "admin@crisistruth.org", "admin123")
	user := s.login(t, "someone@example.com", "pw")

	if w, _ := s.do(t, http.MethodGet, "/admin/stats", nil, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous admin: %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodGet, "/admin/stats", nil, user); w.Code != http.StatusForbidden {
		t.Fatalf("user admin: %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodGet, "/admin/stats", nil, "garbage"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", w.Code)
	}
	w, out := s.do(t, http.MethodGet, "/admin/stats", nil, admin)
	if w.Code != http.StatusOK {
		t.Fatalf("admin stats: %d %s", w.Code, w.Body.String())
	}
	if _, ok := out["claims_by_status"]; !ok {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestCrisesEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "factchecker@crisistruth.org", "checker123")

	body := map[string]interface{}{"title": "Flood", "location": "Mumbai", "tags": []string{"flooding"}}
	if w, _ := s.do(t, http.MethodPost, "/crises", body, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create: %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodPost, "/crises", map[string]string{"title": "No location"}, token); w.Code != http.StatusBadRequest {
		t.Fatalf("missing location: %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodPost, "/crises", map[string]string{"title": "T", "location": "L", "priority": "urgent"}, token); w.Code != http.StatusBadRequest {
		t.Fatalf("bad priority: %d", w.Code)
	}
	w, out := s.do(t, http.MethodPost, "/crises", body, token)
	if w.Code != http.StatusCreated || out["priority"] != "medium" {
		t.Fatalf("create: %d %v", w.Code, out)
	}

	w, out = s.do(t, http.MethodGet, "/crises", nil, "")
	crises := out["crises"].([]interface{})
	if w.Code != http.StatusOK || len(crises) != 1 {
		t.Fatalf("list: %d %v", w.Code, out)
	}
	if _, ok := crises[0].(map[string]interface{})["statistics"]; !ok {
		t.Fatal("statistics missing")
	}

	w, out = s.do(t, http.MethodGet, "/crises/templates", nil, "")
	if w.Code != http.StatusOK || len(out["templates"].([]interface{})) != 3 {
		t.Fatalf("templates: %d %v", w.Code, out)
	}
}

func TestClaimsEndpoints(t *testing.T) {
	s := newTestServer(t)
	for _, text := range []string{"Metro services suspended", "Mithi river overflowing"} {
		s.do(t, http.MethodPost, "/verify", map[string]string{"claimText": text}, "")
	}

	w, out := s.do(t, http.MethodGet, "/claims?limit=1", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	p := out["pagination"].(map[string]interface{})
	if p["total"].(float64) != 2 || p["totalPages"].(float64) != 2 {
		t.Fatalf("pagination: %v", p)
	}
	id := out["claims"].([]interface{})[0].(map[string]interface{})["id"].(string)

	if w, _ := s.do(t, http.MethodGet, "/claims/"+id, nil, ""); w.Code != http.StatusOK {
		t.Fatalf("get: %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodGet, "/claims/nope", nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing claim: %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("burst rejected")
	}
	if rl.Allow("a") {
		t.Fatal("third request allowed")
	}
	if !rl.Allow("b") {
		t.Fatal("limit shared across keys")
	}
}

func TestSanitizeText(t *testing.T) {
	cases := map[string]string{
		"<b>Flood</b> in Kurla":        "Flood in Kurla",
		"Don't panic & stay safe":      "Don't panic & stay safe",
		"  <script>alert(1)</script> ": "",
	}
	for in, want := range cases {
		if got := sanitizeText(in); got != want {
			t.Errorf("sanitizeText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWebsocketFeed(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	if w, _ := s.do(t, http.MethodGet, "/ws?topic=weather:1", nil, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad topic: %d", w.Code)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?topic=claim:c1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var init wsMessage
	if err := conn.ReadJSON(&init); err != nil || init.Type != "init" {
		t.Fatalf("init: %v %+v", err, init)
	}

	_ = s.feed.Publish(context.Background(), realtime.ChangeEvent{
		Table: realtime.TableVerifications,
		Op:    realtime.OpInsert,
		Row:   map[string]any{"id": "v1", "claim_id": "c1", "status": "verified", "confidence_score": 91},
	})

	var msg struct {
		Type  string                      `json:"type"`
		Topic string                      `json:"topic"`
		Data  realtime.VerificationUpdate `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if msg.Type != realtime.TypeVerification || msg.Topic != "claim:c1" || msg.Data.ConfidenceScore != 91 {
		t.Fatalf("unexpected message: %+v", msg)
	}
}
