package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/charmbracelet/log"

	"github.com/stake-plus/crisistruth/src/logging"
)

var (
	ErrClosed       = errors.New("realtime: relay closed")
	ErrUnknownTopic = errors.New("realtime: unknown topic")
)

// CrisisStatsFunc recomputes the claim counts of a crisis. Raw claim events
// only signal that something changed.
type CrisisStatsFunc func(ctx context.Context, crisisID string) (CrisisUpdate, error)

// VoteStatsFunc recomputes the community stats of a claim.
type VoteStatsFunc func(ctx context.Context, claimID string) (any, error)

type Callback func(Update)

const (
	secondaryReadTimeout     = 5 * time.Second
	upstreamSubscribeTimeout = 10 * time.Second
)

// Relay turns raw change events into typed updates and fans them out to
// in-process subscribers. Each topic holds at most one upstream subscription
// no matter how many callbacks are attached. The upstream subscription is
// released when the last callback unsubscribes.
type Relay struct {
	source      ChangeSource
	crisisStats CrisisStatsFunc
	voteStats   VoteStatsFunc
	log         *log.Logger

	mu     sync.Mutex
	nextID uint64
	topics map[string]*topicState
	closed bool
}

type topicState struct {
	key       string
	cancel    func()
	callbacks map[uint64]Callback
	// ready is closed once the upstream subscription attempt has finished.
	ready chan struct{}

	dedupeMu sync.Mutex
	lastHash uint64
	hasLast  bool
}

type RelayOption func(*Relay)

func WithCrisisStats(fn CrisisStatsFunc) RelayOption {
	return func(r *Relay) { r.crisisStats = fn }
}

func WithVoteStats(fn VoteStatsFunc) RelayOption {
	return func(r *Relay) { r.voteStats = fn }
}

func NewRelay(source ChangeSource, opts ...RelayOption) *Relay {
	r := &Relay{
		source: source,
		log:    logging.Component("relay"),
		topics: make(map[string]*topicState),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// topicSpec describes how a topic key maps onto a table subscription.
type topicSpec struct {
	table  string
	filter Filter
	kind   string
	id     string
}

// ValidTopic reports whether key names a topic the relay can serve.
func ValidTopic(key string) error {
	_, err := parseTopic(key)
	return err
}

// parseTopic maps claim:<id>, crisis:<id>, votes:<claimId>, verifications and
// crises onto table subscriptions.
func parseTopic(key string) (topicSpec, error) {
	switch key {
	case "verifications":
		return topicSpec{table: TableVerifications, kind: TypeVerification}, nil
	case "crises":
		return topicSpec{table: TableCrises, kind: TypeCrisisChanged}, nil
	}

	prefix, id, ok := strings.Cut(key, ":")
	if !ok || strings.TrimSpace(id) == "" {
		return topicSpec{}, fmt.Errorf("%w: %q", ErrUnknownTopic, key)
	}
	switch prefix {
	case "claim":
		return topicSpec{table: TableVerifications, filter: Filter{Column: "claim_id", Value: id}, kind: TypeVerification, id: id}, nil
	case "crisis":
		return topicSpec{table: TableClaims, filter: Filter{Column: "crisis_id", Value: id}, kind: TypeCrisisStats, id: id}, nil
	case "votes":
		return topicSpec{table: TableCommunityVotes, filter: Filter{Column: "claim_id", Value: id}, kind: TypeVotes, id: id}, nil
	}
	return topicSpec{}, fmt.Errorf("%w: %q", ErrUnknownTopic, key)
}

// Subscribe attaches cb to topic. The returned unsubscribe func is idempotent
// and only detaches this callback. The upstream subscription is opened
// outside the registry lock; concurrent subscribers to the same topic wait
// for it.
//
// Callbacks run on the source's delivery goroutine and must not block.
func (r *Relay) Subscribe(topic string, cb Callback) (func(), error) {
	tp, err := parseTopic(topic)
	if err != nil {
		return nil, err
	}

	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrClosed
		}
		st, ok := r.topics[topic]
		if !ok {
			break
		}
		select {
		case <-st.ready:
			unsub := r.attach(st, cb)
			r.mu.Unlock()
			return unsub, nil
		default:
		}
		r.mu.Unlock()
		// Another caller is opening the upstream; it either installs the
		// topic or removes it, so look again afterwards.
		<-st.ready
	}

	// r.mu is held here and topic is absent.
	st := &topicState{key: topic, callbacks: make(map[uint64]Callback), ready: make(chan struct{})}
	r.topics[topic] = st
	r.mu.Unlock()

	ctx, cancelCtx := context.WithTimeout(context.Background(), upstreamSubscribeTimeout)
	upstream, err := r.source.Subscribe(ctx, tp.table, tp.filter, func(ev ChangeEvent) {
		r.dispatch(st, tp, ev)
	})
	cancelCtx()

	r.mu.Lock()
	defer close(st.ready)
	if err != nil {
		if r.topics[topic] == st {
			delete(r.topics, topic)
		}
		r.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	if r.closed || r.topics[topic] != st {
		r.mu.Unlock()
		upstream()
		return nil, ErrClosed
	}
	st.cancel = upstream
	unsub := r.attach(st, cb)
	r.mu.Unlock()
	r.log.Debug("upstream subscription opened", "topic", topic)
	return unsub, nil
}

// attach registers cb on st. Callers hold r.mu.
func (r *Relay) attach(st *topicState, cb Callback) func() {
	r.nextID++
	id := r.nextID
	st.callbacks[id] = cb

	var once sync.Once
	return func() {
		once.Do(func() { r.unsubscribe(st, id) })
	}
}

func (r *Relay) unsubscribe(st *topicState, id uint64) {
	r.mu.Lock()
	delete(st.callbacks, id)
	var release func()
	if len(st.callbacks) == 0 && r.topics[st.key] == st {
		delete(r.topics, st.key)
		release = st.cancel
	}
	r.mu.Unlock()

	// The source may block until its delivery goroutine exits, and that
	// goroutine may be waiting on r.mu.
	if release != nil {
		release()
		r.log.Debug("upstream subscription released", "topic", st.key)
	}
}

// Topics returns the keys with a live upstream subscription, sorted.
func (r *Relay) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.topics))
	for k, st := range r.topics {
		if st.cancel != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Close releases every upstream subscription. Later Subscribe calls fail with
// ErrClosed.
func (r *Relay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	cancels := make([]func(), 0, len(r.topics))
	for k, st := range r.topics {
		// Pending topics release their own upstream on seeing closed.
		if st.cancel != nil {
			cancels = append(cancels, st.cancel)
		}
		delete(r.topics, k)
	}
	r.mu.Unlock()

	for _, c := range cancels {
		c()
	}
}

func (r *Relay) dispatch(st *topicState, tp topicSpec, ev ChangeEvent) {
	if st.duplicate(ev) {
		return
	}

	upd, ok := r.normalize(tp, ev)
	if !ok {
		return
	}
	upd.Topic = st.key

	r.mu.Lock()
	cbs := make([]Callback, 0, len(st.callbacks))
	for _, cb := range st.callbacks {
		cbs = append(cbs, cb)
	}
	r.mu.Unlock()

	for _, cb := range cbs {
		r.invoke(st.key, cb, upd)
	}
}

func (r *Relay) invoke(topic string, cb Callback, upd Update) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("subscriber panicked", "topic", topic, "panic", p)
		}
	}()
	cb(upd)
}

// duplicate reports whether ev repeats the previous event seen on the topic.
func (st *topicState) duplicate(ev ChangeEvent) bool {
	h, err := fingerprint(ev)
	if err != nil {
		return false
	}
	st.dedupeMu.Lock()
	defer st.dedupeMu.Unlock()
	if st.hasLast && st.lastHash == h {
		return true
	}
	st.lastHash, st.hasLast = h, true
	return false
}

func fingerprint(ev ChangeEvent) (uint64, error) {
	// encoding/json sorts map keys, so equal rows hash equally.
	b, err := json.Marshal(struct {
		Table string         `json:"t"`
		Op    Op             `json:"o"`
		Row   map[string]any `json:"r"`
	}{ev.Table, ev.Op, ev.Row})
	if err != nil {
		return 0, err
	}
	return xxhash.Checksum64(b), nil
}

func (r *Relay) normalize(tp topicSpec, ev ChangeEvent) (Update, bool) {
	now := time.Now().UTC()

	switch tp.kind {
	case TypeVerification:
		if tp.id == "" && ev.Op != OpInsert {
			return Update{}, false
		}
		claimID := stringField(ev.Row, "claim_id")
		if claimID == "" {
			r.log.Warn("verification event without claim_id", "table", ev.Table)
			return Update{}, false
		}
		return Update{Type: TypeVerification, Payload: VerificationUpdate{
			ClaimID:         claimID,
			Status:          stringField(ev.Row, "status"),
			ConfidenceScore: intField(ev.Row, "confidence_score"),
			Timestamp:       now,
		}}, true

	case TypeCrisisStats:
		if r.crisisStats == nil {
			return Update{}, false
		}
		ctx, cancel := context.WithTimeout(context.Background(), secondaryReadTimeout)
		defer cancel()
		stats, err := r.crisisStats(ctx, tp.id)
		if err != nil {
			r.log.Error("crisis stats read failed", "crisis", tp.id, "err", err)
			return Update{}, false
		}
		stats.CrisisID = tp.id
		stats.Timestamp = now
		return Update{Type: TypeCrisisStats, Payload: stats}, true

	case TypeCrisisChanged:
		id := stringField(ev.Row, "id")
		if id == "" {
			return Update{}, false
		}
		return Update{Type: TypeCrisisChanged, Payload: CrisisChanged{CrisisID: id, Op: ev.Op, Timestamp: now}}, true

	case TypeVotes:
		if r.voteStats == nil {
			return Update{}, false
		}
		ctx, cancel := context.WithTimeout(context.Background(), secondaryReadTimeout)
		defer cancel()
		stats, err := r.voteStats(ctx, tp.id)
		if err != nil {
			r.log.Error("vote stats read failed", "claim", tp.id, "err", err)
			return Update{}, false
		}
		return Update{Type: TypeVotes, Payload: VoteUpdate{ClaimID: tp.id, Stats: stats, Timestamp: now}}, true
	}
	return Update{}, false
}
