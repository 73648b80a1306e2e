// Package core provides the business logic for the creature record service.
//
// The package holds all domain rules independent of transport and storage.
// Web handlers, the CLI and tests use it through [Service].
//
// # Records
//
// A [Record] is a flat set of attributes plus an integer id. Ids are assigned
// by the application as the current maximum plus one, so every [Store]
// implementation serializes its read-max-then-insert sequence.
//
// # Listing
//
// [BuildListQuery] turns raw listing parameters into a [ListQuery]:
//
//  1. Sort by id, descending unless the order is "asc"
//  2. When a keyword is present, filter by case-insensitive substring on one
//     column from [Columns]
//  3. Skip (page-1)*limit rows and take limit rows
//
// # Bulk Import
//
// An [Importer] fetches the external dataset from a [Source], maps every
// entry with [MapExternal] and hands the whole batch to [Store.BulkCreate],
// which inserts all or nothing. An [ImportLimiter] bounds parallel imports.
//
// # Error Handling
//
// Operations return typed errors ([ValidationError], [NotFoundError],
// [InvalidColumnError], [FetchError], [MappingError], [StoreError]).
// [MapError] turns any error into a [UserMessage] with a support code.
package core
