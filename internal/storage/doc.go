// Package storage defines the persistence interfaces for tastebook.
//
// It abstracts user accounts, recipes, ratings, and shopping list items
// behind narrow interfaces. The SQLite implementation lives in the sqlite
// subpackage and is the only one shipped today.
//
// # Error Types
//
// The package defines common error types used across implementations:
//   - ErrNotFound: a requested record is missing.
//   - ErrAlreadyExists: an insert collided with an existing record.
package storage
