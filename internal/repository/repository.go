// Package repository contains the sqlx-backed persistence layer. Every query
// on tenant-owned tables filters on tenant_id.
package repository

import "errors"

// ErrDuplicate is returned when a unique constraint rejects an insert.
// Services translate it into a conflict response.
var ErrDuplicate = errors.New("duplicate row")
