// Package repository implements data access over MySQL, one repository per
// collection. This file defines sentinel error values reused across the
// repositories so that handlers can map failures onto HTTP statuses
// without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a referenced row does not exist. Handlers
// translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert or state transition collides with
// existing data: duplicate username, duplicate option value, attendance
// already recorded. Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")
