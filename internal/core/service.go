package core

import (
	"context"
	"fmt"
)

// Service provides the record operations used by every transport.
type Service struct {
	store     Store
	validator *Validator
	importer  *Importer
}

// NewService creates a Service. importer may be nil when bulk import is
// not offered.
func NewService(store Store, importer *Importer) *Service {
	return &Service{
		store:     store,
		validator: NewValidator(),
		importer:  importer,
	}
}

// List returns one page of records ordered by id.
func (s *Service) List(ctx context.Context, params ListParams) ([]Record, error) {
	q, err := BuildListQuery(params)
	if err != nil {
		return nil, err
	}
	if q.Empty() {
		return []Record{}, nil
	}

	records, err := s.store.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Get returns the record with the given id.
func (s *Service) Get(ctx context.Context, id int64) (Record, error) {
	return s.store.Get(ctx, id)
}

// Create validates in and stores it under the next free id.
func (s *Service) Create(ctx context.Context, in RecordInput) (Record, error) {
	fields, err := s.validator.ValidateInput(in)
	if err != nil {
		return Record{}, err
	}
	return s.store.Create(ctx, fields)
}

// Replace overwrites every attribute of an existing record.
func (s *Service) Replace(ctx context.Context, id int64, in RecordInput) (Record, error) {
	fields, err := s.validator.ValidateInput(in)
	if err != nil {
		return Record{}, err
	}
	return s.store.Replace(ctx, id, fields)
}

// Patch overwrites only the supplied attributes. An empty patch returns the
// record unchanged.
func (s *Service) Patch(ctx context.Context, id int64, p Patch) (Record, error) {
	if err := s.validator.ValidatePatch(p); err != nil {
		return Record{}, err
	}
	if p.Empty() {
		return s.store.Get(ctx, id)
	}
	return s.store.Patch(ctx, id, p)
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// Import runs a bulk import from the configured source.
func (s *Service) Import(ctx context.Context) (ImportResult, error) {
	if s.importer == nil {
		return ImportResult{}, &FetchError{Source: "none", Err: fmt.Errorf("import is not configured")}
	}
	return s.importer.Run(ctx)
}

// Importer returns the bulk importer, or nil.
func (s *Service) Importer() *Importer {
	return s.importer
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
