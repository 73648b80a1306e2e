// Package memory provides an in-process record store for local development
// and tests. It honours the same contract as the PostgreSQL store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JonMunkholm/pokedex/internal/core"
)

// Store keeps records in a map guarded by a mutex. Id assignment happens
// under the write lock, so concurrent creates never collide.
type Store struct {
	mu      sync.RWMutex
	records map[int64]core.Record
	maxID   int64
}

var _ core.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{records: make(map[int64]core.Record)}
}

// Create stores f under max id + 1.
func (s *Store) Create(ctx context.Context, f core.Fields) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return core.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := core.Record{ID: s.nextID(), Fields: clone(f)}
	s.put(rec)
	return copyRecord(rec), nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id int64) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return core.Record{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return core.Record{}, &core.NotFoundError{ID: id}
	}
	return copyRecord(rec), nil
}

// List filters, orders by id and paginates.
func (s *Store) List(ctx context.Context, q core.ListQuery) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Empty() {
		return []core.Record{}, nil
	}

	s.mu.RLock()
	matched := make([]core.Record, 0, len(s.records))
	for _, rec := range s.records {
		if q.Search != nil && !q.Search.Matches(rec) {
			continue
		}
		matched = append(matched, rec)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if q.Descending {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].ID < matched[j].ID
	})

	if q.Offset >= len(matched) {
		return []core.Record{}, nil
	}
	end := len(matched)
	if q.Limit < end-q.Offset {
		end = q.Offset + q.Limit
	}

	page := make([]core.Record, 0, end-q.Offset)
	for _, rec := range matched[q.Offset:end] {
		page = append(page, copyRecord(rec))
	}
	return page, nil
}

// Replace overwrites every attribute of an existing record.
func (s *Store) Replace(ctx context.Context, id int64, f core.Fields) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return core.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return core.Record{}, &core.NotFoundError{ID: id}
	}
	rec := core.Record{ID: id, Fields: clone(f)}
	s.records[id] = rec
	return copyRecord(rec), nil
}

// Patch overwrites the supplied attributes of an existing record.
func (s *Store) Patch(ctx context.Context, id int64, p core.Patch) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return core.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return core.Record{}, &core.NotFoundError{ID: id}
	}
	rec.Fields = clone(rec.Fields)
	p.Apply(&rec.Fields)
	s.records[id] = rec
	return copyRecord(rec), nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return &core.NotFoundError{ID: id}
	}
	delete(s.records, id)
	s.recomputeMax()
	return nil
}

// BulkCreate inserts every entry with consecutive ids, or nothing when ctx
// is already done.
func (s *Store) BulkCreate(ctx context.Context, batch []core.Fields) (core.BulkResult, error) {
	if err := ctx.Err(); err != nil {
		return core.BulkResult{}, &core.StoreError{Op: "bulk insert", Err: err}
	}
	if len(batch) == 0 {
		return core.BulkResult{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	first := s.nextID()
	for i, f := range batch {
		s.put(core.Record{ID: first + int64(i), Fields: clone(f)})
	}

	return core.BulkResult{
		FirstID:  first,
		LastID:   first + int64(len(batch)) - 1,
		Inserted: len(batch),
	}, nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// nextID must be called with the write lock held.
func (s *Store) nextID() int64 {
	return s.maxID + 1
}

func (s *Store) put(rec core.Record) {
	s.records[rec.ID] = rec
	if rec.ID > s.maxID {
		s.maxID = rec.ID
	}
}

// recomputeMax keeps the max+1 rule exact after deleting the highest id.
func (s *Store) recomputeMax() {
	s.maxID = 0
	for id := range s.records {
		if id > s.maxID {
			s.maxID = id
		}
	}
}

func clone(f core.Fields) core.Fields {
	if f.Type2 != nil {
		f.Type2 = core.StringPtr(*f.Type2)
	}
	return f
}

func copyRecord(r core.Record) core.Record {
	r.Fields = clone(r.Fields)
	return r
}
