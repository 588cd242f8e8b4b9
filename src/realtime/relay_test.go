package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) cb(u Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func (r *recorder) last() Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[len(r.updates)-1]
}

func publishVerification(t *testing.T, src *MemorySource, id, claimID, status string, score int) {
	t.Helper()
	err := src.Publish(context.Background(), ChangeEvent{
		Table: TableVerifications,
		Op:    OpInsert,
		Row:   map[string]any{"id": id, "claim_id": claimID, "status": status, "confidence_score": score},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestRelayClaimTopic(t *testing.T) {
	src := NewMemorySource()
	relay := NewRelay(src)
	defer relay.Close()

	var rec recorder
	unsub, err := relay.Subscribe("claim:c1", rec.cb)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	publishVerification(t, src, "v1", "c1", "verified", 87)
	publishVerification(t, src, "v2", "c2", "disputed", 12)

	if rec.len() != 1 {
		t.Fatalf("expected 1 update, got %d", rec.len())
	}
	u := rec.last()
	if u.Topic != "claim:c1" || u.Type != TypeVerification {
		t.Fatalf("unexpected envelope: %+v", u)
	}
	vu, ok := u.Payload.(VerificationUpdate)
	if !ok {
		t.Fatalf("payload is %T", u.Payload)
	}
	if vu.ClaimID != "c1" || vu.Status != "verified" || vu.ConfidenceScore != 87 || vu.Timestamp.IsZero() {
		t.Fatalf("unexpected update: %+v", vu)
	}
}

func TestRelaySharesUpstreamSubscription(t *testing.T) {
	src := NewMemorySource()
	relay := NewRelay(src)
	defer relay.Close()

	var a, b recorder
	unsubA, err := relay.Subscribe("claim:c1", a.cb)
	if err != nil {
		t.Fatal(err)
	}
	unsubB, err := relay.Subscribe("claim:c1", b.cb)
	if err != nil {
		t.Fatal(err)
	}
	if n := src.Subscribers(); n != 1 {
		t.Fatalf("expected one upstream subscription, got %d", n)
	}

	// Reference counted: dropping A leaves B attached.
	unsubA()
	unsubA()
	publishVerification(t, src, "v1", "c1", "verified", 90)
	if a.len() != 0 {
		t.Fatalf("unsubscribed callback received %d updates", a.len())
	}
	if b.len() != 1 {
		t.Fatalf("remaining subscriber received %d updates, want 1", b.len())
	}
	if n := src.Subscribers(); n != 1 {
		t.Fatalf("upstream released early: %d", n)
	}

	unsubB()
	if n := src.Subscribers(); n != 0 {
		t.Fatalf("upstream not released: %d", n)
	}
	if topics := relay.Topics(); len(topics) != 0 {
		t.Fatalf("registry not empty: %v", topics)
	}
}

func TestRelaySubscribeCyclesDoNotLeak(t *testing.T) {
	src := NewMemorySource()
	relay := NewRelay(src)
	defer relay.Close()

	for i := 0; i < 100; i++ {
		unsub, err := relay.Subscribe("crisis:x", func(Update) {})
		if err != nil {
			t.Fatal(err)
		}
		unsub()
		unsub()
	}
	if n := src.Subscribers(); n != 0 {
		t.Fatalf("leaked %d upstream subscriptions", n)
	}
}

func TestRelayConcurrentSubscribers(t *testing.T) {
	src := NewMemorySource()
	relay := NewRelay(src)
	defer relay.Close()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub, err := relay.Subscribe("verifications", func(Update) {})
			if err != nil {
				t.Error(err)
				return
			}
			unsub()
		}()
	}
	wg.Wait()
	if n := src.Subscribers(); n != 0 {
		t.Fatalf("leaked %d upstream subscriptions", n)
	}
}

func TestRelayDropsConsecutiveDuplicates(t *testing.T) {
	src := NewMemorySource()
	relay := NewRelay(src)
	defer relay.Close()

	var rec recorder
	unsub, _ := relay.Subscribe("claim:c1", rec.cb)
	defer unsub()

	publishVerification(t, src, "v1", "c1", "verified", 80)
	publishVerification(t, src, "v1", "c1", "verified", 80)
	publishVerification(t, src, "v2", "c1", "disputed", 20)
	publishVerification(t, src, "v1", "c1", "verified", 80)

	if rec.len() != 3 {
		t.Fatalf("expected 3 updates, got %d", rec.len())
	}
}

func TestRelayCrisisSecondaryRead(t *testing.T) {
	src := NewMemorySource()
	var reads int
	relay := NewRelay(src, WithCrisisStats(func(_ context.Context, id string) (CrisisUpdate, error) {
		reads++
		return CrisisUpdate{TotalClaims: 5, VerifiedCount: 2, DisputedCount: 1, UnverifiedCount: 2}, nil
	}))
	defer relay.Close()

	var rec recorder
	unsub, _ := relay.Subscribe("crisis:k1", rec.cb)
	defer unsub()

	_ = src.Publish(context.Background(), ChangeEvent{
		Table: TableClaims, Op: OpUpdate,
		Row: map[string]any{"id": "c1", "crisis_id": "k1", "status": "verified"},
	})
	_ = src.Publish(context.Background(), ChangeEvent{
		Table: TableClaims, Op: OpUpdate,
		Row: map[string]any{"id": "c2", "crisis_id": "other", "status": "verified"},
	})

	if reads != 1 || rec.len() != 1 {
		t.Fatalf("reads=%d updates=%d", reads, rec.len())
	}
	cu := rec.last().Payload.(CrisisUpdate)
	if cu.CrisisID != "k1" || cu.TotalClaims != 5 || cu.VerifiedCount != 2 || cu.Timestamp.IsZero() {
		t.Fatalf("unexpected crisis update: %+v", cu)
	}
}

func TestRelaySecondaryReadFailureSkipsUpdate(t *testing.T) {
	src := NewMemorySource()
	relay := NewRelay(src, WithCrisisStats(func(context.Context, string) (CrisisUpdate, error) {
		return CrisisUpdate{}, errors.New("db down")
	}))
	defer relay.Close()

	var rec recorder
	unsub, _ := relay.Subscribe("crisis:k1", rec.cb)
	defer unsub()

	_ = src.Publish(context.Background(), ChangeEvent{Table: TableClaims, Op: OpInsert, Row: map[string]any{"crisis_id": "k1"}})
	if rec.len() != 0 {
		t.Fatalf("expected no update, got %d", rec.len())
	}
}

func TestRelayVerificationsTopicOnlyInserts(t *testing.T) {
	src := NewMemorySource()
	relay := NewRelay(src)
	defer relay.Close()

	var rec recorder
	unsub, _ := relay.Subscribe("verifications", rec.cb)
	defer unsub()

	publishVerification(t, src, "v1", "c1", "verified", 80)
	_ = src.Publish(context.Background(), ChangeEvent{
		Table: TableVerifications, Op: OpUpdate,
		Row: map[string]any{"id": "v1", "claim_id": "c1", "status": "disputed"},
	})
	if rec.len() != 1 {
		t.Fatalf("expected 1 update, got %d", rec.len())
	}
}

func TestRelayVotesAndCrisesTopics(t *testing.T) {
	src := NewMemorySource()
	relay := NewRelay(src, WithVoteStats(func(_ context.Context, claimID string) (any, error) {
		return map[string]int{"total_votes": 3}, nil
	}))
	defer relay.Close()

	var votes, crises recorder
	u1, _ := relay.Subscribe("votes:c1", votes.cb)
	u2, _ := relay.Subscribe("crises", crises.cb)
	defer u1()
	defer u2()

	_ = src.Publish(context.Background(), ChangeEvent{
		Table: TableCommunityVotes, Op: OpInsert,
		Row: map[string]any{"claim_id": "c1", "user_id": "u1", "vote": "agree"},
	})
	_ = src.Publish(context.Background(), ChangeEvent{
		Table: TableCrises, Op: OpInsert,
		Row: map[string]any{"id": "k9", "title": "Flooding"},
	})

	if votes.len() != 1 {
		t.Fatalf("votes updates: %d", votes.len())
	}
	if vu := votes.last().Payload.(VoteUpdate); vu.ClaimID != "c1" {
		t.Fatalf("unexpected vote update: %+v", vu)
	}
	if crises.len() != 1 {
		t.Fatalf("crises updates: %d", crises.len())
	}
	if cc := crises.last().Payload.(CrisisChanged); cc.CrisisID != "k9" || cc.Op != OpInsert {
		t.Fatalf("unexpected crisis change: %+v", cc)
	}
}

func TestRelayRecoversFromPanickingCallback(t *testing.T) {
	src := NewMemorySource()
	relay := NewRelay(src)
	defer relay.Close()

	var rec recorder
	u1, _ := relay.Subscribe("claim:c1", func(Update) { panic("boom") })
	u2, _ := relay.Subscribe("claim:c1", rec.cb)
	defer u1()
	defer u2()

	publishVerification(t, src, "v1", "c1", "verified", 80)
	if rec.len() != 1 {
		t.Fatalf("healthy subscriber missed update")
	}
}

func TestRelayCloseAndTopicValidation(t *testing.T) {
	src := NewMemorySource()
	relay := NewRelay(src)

	if _, err := relay.Subscribe("weather:x", func(Update) {}); !errors.Is(err, ErrUnknownTopic) {
		t.Fatalf("expected ErrUnknownTopic, got %v", err)
	}
	if _, err := relay.Subscribe("claim:", func(Update) {}); !errors.Is(err, ErrUnknownTopic) {
		t.Fatalf("expected ErrUnknownTopic for empty id, got %v", err)
	}

	unsub, _ := relay.Subscribe("claim:c1", func(Update) {})
	_, _ = relay.Subscribe("crisis:k1", func(Update) {})
	relay.Close()
	relay.Close()

	if n := src.Subscribers(); n != 0 {
		t.Fatalf("close leaked %d subscriptions", n)
	}
	if _, err := relay.Subscribe("claim:c1", func(Update) {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	unsub()
}

func TestFilterMatches(t *testing.T) {
	cases := []struct {
		f    Filter
		row  map[string]any
		want bool
	}{
		{Filter{}, map[string]any{"a": 1}, true},
		{Filter{"claim_id", "c1"}, map[string]any{"claim_id": "c1"}, true},
		{Filter{"claim_id", "c1"}, map[string]any{"claim_id": "c2"}, false},
		{Filter{"claim_id", "c1"}, map[string]any{}, false},
		{Filter{"claim_id", "c1"}, map[string]any{"claim_id": nil}, false},
		{Filter{"n", "3"}, map[string]any{"n": 3}, true},
	}
	for i, c := range cases {
		if got := c.f.Matches(c.row); got != c.want {
			t.Errorf("case %d: got %v want %v", i, got, c.want)
		}
	}
}
