// Package app wires stores to their persistence and keeps one live store per
// deal for the lifetime of a process.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"dealroom/internal/config"
	"dealroom/internal/domain"
	"dealroom/internal/events"
	"dealroom/internal/persist"
	"dealroom/internal/store"
)

// Rooms hands out one Store per deal, loading the persisted snapshot on first
// use. Stores are cached so every caller in the process shares the same
// in-memory aggregate.
type Rooms struct {
	DB     *sql.DB
	Config *config.Config
	Logger *log.Logger

	mu     sync.Mutex
	stores map[string]*store.Store
}

func NewRooms(db *sql.DB, cfg *config.Config, logger *log.Logger) *Rooms {
	return &Rooms{
		DB:     db,
		Config: cfg,
		Logger: logger,
		stores: map[string]*store.Store{},
	}
}

func (r *Rooms) persister() *persist.SQLite {
	return &persist.SQLite{DB: r.DB}
}

// Open returns the store for an existing deal. Unlike Create it never seeds:
// a deal that was never created is an error.
func (r *Rooms) Open(ctx context.Context, dealID string) (*store.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.stores[dealID]; ok {
		return st, nil
	}
	snap, err := r.persister().Load(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("load deal %s: %w", dealID, err)
	}
	if snap == nil {
		return nil, fmt.Errorf("deal %s not found", dealID)
	}
	st := r.wrap(*snap)
	r.stores[dealID] = st
	return st, nil
}

// Create seeds a new deal and persists its initial snapshot. Creating a deal
// id that already exists returns the existing store untouched.
func (r *Rooms) Create(ctx context.Context, dealID, tenant, property string) (*store.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.stores[dealID]; ok {
		return st, nil
	}
	p := r.persister()
	if snap, err := p.Load(ctx, dealID); err != nil {
		return nil, fmt.Errorf("load deal %s: %w", dealID, err)
	} else if snap != nil {
		st := r.wrap(*snap)
		r.stores[dealID] = st
		return st, nil
	}
	snap := store.Seed(dealID, tenant, property, r.Config, time.Now())
	if err := p.Save(ctx, dealID, snap); err != nil {
		return nil, fmt.Errorf("persist deal %s: %w", dealID, err)
	}
	st := r.wrap(snap)
	r.stores[dealID] = st
	return st, nil
}

// List returns the ids of all persisted deals.
func (r *Rooms) List(ctx context.Context) ([]string, error) {
	return r.persister().ListDealIDs(ctx)
}

// Snapshots returns a copy of every persisted deal's snapshot, for listings.
func (r *Rooms) Snapshots(ctx context.Context) ([]domain.Snapshot, error) {
	ids, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Snapshot, 0, len(ids))
	for _, id := range ids {
		st, err := r.Open(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, st.Snapshot())
	}
	return out, nil
}

func (r *Rooms) wrap(snap domain.Snapshot) *store.Store {
	st := store.New(snap, r.persister(), r.Config)
	st.Audit = &events.Writer{DB: r.DB}
	st.Logger = r.Logger
	return st
}
