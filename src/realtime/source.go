package realtime

import (
	"context"
	"fmt"
	"time"
)

// Op is the kind of row change.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Tables that publish change events.
const (
	TableClaims         = "claims"
	TableVerifications  = "verifications"
	TableCrises         = "crises"
	TableCommunityVotes = "community_votes"
)

// ChangeEvent is a raw row change. Row carries the new column values keyed
// by column name (the old values for deletes).
type ChangeEvent struct {
	Table string         `json:"table"`
	Op    Op             `json:"op"`
	Row   map[string]any `json:"row"`
	At    time.Time      `json:"at"`
}

// Filter restricts a subscription to rows whose Column equals Value. The
// zero Filter matches every row.
type Filter struct {
	Column string
	Value  string
}

func (f Filter) Matches(row map[string]any) bool {
	if f.Column == "" {
		return true
	}
	v, ok := row[f.Column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == f.Value
}

func (f Filter) String() string {
	if f.Column == "" {
		return "*"
	}
	return f.Column + "=eq." + f.Value
}

type Handler func(ChangeEvent)

// ChangeSource delivers row changes for one table. Any backend with a change
// stream (Postgres logical replication, Redis Pub/Sub, an in-process bus) can
// implement it. The returned cancel func releases the upstream subscription
// and must be safe to call more than once.
type ChangeSource interface {
	Subscribe(ctx context.Context, table string, filter Filter, h Handler) (cancel func(), err error)
}

// Publisher is the write side of a change feed.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// Feed is a change feed that can be both written and observed.
type Feed interface {
	ChangeSource
	Publisher
}
