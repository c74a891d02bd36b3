// Package memory implements the storage interfaces in process memory. It
// backs the test suites and STORAGE_DRIVER=memory; nothing survives a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sre-portfolio/notetrack/internal/model"
)

type DB struct {
	mu  sync.RWMutex
	now func() time.Time
	seq int64

	users   map[string]model.User
	tasks   map[string]model.Task
	entries map[string]model.TaskTimeEntry
	notes   map[string]model.Note
	tokens  map[string]token
	order   map[string]int64
}

type token struct {
	value     string
	expiresAt time.Time
}

func NewDB() *DB {
	return &DB{
		now:     time.Now,
		users:   make(map[string]model.User),
		tasks:   make(map[string]model.Task),
		entries: make(map[string]model.TaskTimeEntry),
		notes:   make(map[string]model.Note),
		tokens:  make(map[string]token),
		order:   make(map[string]int64),
	}
}

// WithClock sets the time source for row timestamps and token expiry.
func (db *DB) WithClock(now func() time.Time) *DB {
	db.mu.Lock()
	db.now = now
	db.mu.Unlock()
	return db
}

// WithinTx runs fn directly. There is no rollback: callers serialize their
// own writes and a failed fn may leave earlier writes in place.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (db *DB) Ping(ctx context.Context) error {
	return ctx.Err()
}

// track records insertion order; callers hold db.mu.
func (db *DB) track(id string) {
	db.seq++
	db.order[id] = db.seq
}

func copyStrings(list []string) []string {
	out := make([]string, len(list))
	copy(out, list)
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
