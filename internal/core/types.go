package core

import "context"

// DefaultGeneration is applied when a create or replace request omits generation.
const DefaultGeneration = 2

// Fields holds every attribute of a creature record except its identifier.
type Fields struct {
	Name       string  `json:"name"`
	Type1      string  `json:"type_1"`
	Type2      *string `json:"type_2"`
	Total      int     `json:"total"`
	HP         int     `json:"hp"`
	Attack     int     `json:"attack"`
	Defense    int     `json:"defense"`
	SpAtk      int     `json:"sp_atk"`
	SpDef      int     `json:"sp_def"`
	Speed      int     `json:"speed"`
	Generation int     `json:"generation"`
	Legendary  bool    `json:"legendary"`
}

// Record is a stored creature.
type Record struct {
	ID int64 `json:"id"`
	Fields
}

// BulkResult describes a committed multi-row insert.
type BulkResult struct {
	FirstID  int64 // Identifier assigned to the first inserted record
	LastID   int64 // Identifier assigned to the last inserted record
	Inserted int
}

// Store is the persistence contract for creature records.
//
// Implementations assign identifiers as (current max id + 1) and must
// serialize that read with the following insert so concurrent writers never
// compute the same identifier.
type Store interface {
	Create(ctx context.Context, f Fields) (Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	List(ctx context.Context, q ListQuery) ([]Record, error)
	Replace(ctx context.Context, id int64, f Fields) (Record, error)
	Patch(ctx context.Context, id int64, p Patch) (Record, error)
	Delete(ctx context.Context, id int64) error

	// BulkCreate inserts all records in one transaction, assigning
	// consecutive identifiers in input order. Nothing is committed on error.
	BulkCreate(ctx context.Context, fields []Fields) (BulkResult, error)

	Ping(ctx context.Context) error
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
