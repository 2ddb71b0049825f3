// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values let higher layers distinguish
// failure scenarios without inspecting driver errors: ErrNotFound replaces
// sql.ErrNoRows at the repository boundary for domain entities, and
// ErrConflict signals that a write lost a race against conflicting state
// (for example inserting a row another caller just inserted).
package repository

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write cannot be performed because of
// conflicting existing state, such as inserting a second admission request
// for the same (event, user) pair.
var ErrConflict = errors.New("conflict")
