// Minimal end-to-end integration test for the CrisisTruth API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stake-plus/crisistruth/src/realtime"
)

var (
	baseURL  = getenv("API_URL", "http://localhost:8080")
	redisURL = getenv("REDIS_URL", "")
	email    = getenv("API_EMAIL", "factchecker@crisistruth.org")
	password = getenv("API_PASSWORD", "checker123")
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	ctx := context.Background()

	var events chan realtime.ChangeEvent
	if redisURL != "" {
		rdb := mustRedis()
		defer rdb.Close()
		events = watchVerifications(ctx, rdb)
	}

	token := login()
	claimID := verifyClaim(token)
	if events != nil {
		awaitEvent(events, claimID)
	}
	checkClaim(claimID)

	user := "it-" + uuid.NewString()
	castVote(claimID, user)
	checkVotes(claimID, user)

	fmt.Println("all endpoints passed")
}

// ----------------------------- auth

func login() string {
	var resp struct {
		Success  bool
		UserType string
		Token    string
	}
	doJSON("POST", "/auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, &resp, http.StatusOK)
	if resp.Token == "" {
		log.Fatal("login: empty token")
	}
	log.Printf("logged in as %s", resp.UserType)
	return resp.Token
}

// ----------------------------- verification

func verifyClaim(tok string) string {
	var resp struct {
		ClaimID      string
		Verification struct {
			Status          string
			ConfidenceScore int
			Method          string
		}
	}
	doAuth(tok, "POST", "/verify", map[string]any{
		"claimText": "Local train services suspended on the Western line due to waterlogging " + uuid.NewString()[:8],
	}, &resp, http.StatusOK)
	if resp.ClaimID == "" {
		log.Fatal("verify: empty claim id")
	}
	log.Printf("verify: %s %d (%s)", resp.Verification.Status, resp.Verification.ConfidenceScore, resp.Verification.Method)
	return resp.ClaimID
}

func checkClaim(id string) {
	var c struct {
		ID            string
		Verifications []struct{ ID string }
	}
	doJSON("GET", "/claims/"+id, nil, &c, http.StatusOK)
	if c.ID != id || len(c.Verifications) == 0 {
		log.Fatal("claims: stored verification not found")
	}
}

// ----------------------------- votes

func castVote(claimID, user string) {
	doJSON("POST", "/community-vote", map[string]any{
		"claimId": claimID,
		"userId":  user,
		"vote":    "agree",
		"comment": "integration-test",
	}, nil, http.StatusOK)
}

func checkVotes(claimID, user string) {
	var resp struct {
		Stats struct {
			TotalVotes int    `json:"total_votes"`
			UserVote   string `json:"user_vote"`
		}
	}
	q := url.Values{"claimId": {claimID}, "userId": {user}}
	doJSON("GET", "/community-vote?"+q.Encode(), nil, &resp, http.StatusOK)
	if resp.Stats.TotalVotes == 0 || resp.Stats.UserVote != "agree" {
		log.Fatalf("votes: unexpected summary %+v", resp.Stats)
	}
}

// ----------------------------- change feed

func watchVerifications(ctx context.Context, rdb *redis.Client) chan realtime.ChangeEvent {
	out := make(chan realtime.ChangeEvent, 8)
	src := realtime.NewRedisSource(rdb)
	_, err := src.Subscribe(ctx, realtime.TableVerifications, realtime.Filter{}, func(ev realtime.ChangeEvent) {
		select {
		case out <- ev:
		default:
		}
	})
	if err != nil {
		log.Fatalf("redis subscribe: %v", err)
	}
	return out
}

func awaitEvent(events chan realtime.ChangeEvent, claimID string) {
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev := <-events:
			if fmt.Sprint(ev.Row["claim_id"]) == claimID {
				return
			}
		case <-timeout:
			log.Fatal("change feed: no verification event for claim")
		}
	}
}

// ----------------------------- helpers

func mustRedis() *redis.Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("redis url: %v", err)
	}
	return redis.NewClient(opt)
}

func doAuth(token, method, path string, body, out any, want int) {
	doReq(method, path, token, body, out, want)
}

func doJSON(method, path string, body, out any, want int) {
	doReq(method, path, "", body, out, want)
}

func doReq(method, path, token string, body, out any, want int) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("%s %s encode: %v", method, path, err)
		}
	}
	req, _ := http.NewRequest(method, baseURL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		log.Fatalf("%s %s: want %d got %d", method, path, want, res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			log.Fatalf("%s %s decode: %v", method, path, err)
		}
	}
}
