// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers
// to distinguish between different failure scenarios and translate them to
// HTTP statuses.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist. Handlers
// translate this into a 404 (or fold it into a uniform 401 on auth paths).
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert collides with the unique email
// constraint. Handlers translate this into a 409.
var ErrEmailExists = errors.New("email already exists")

// ErrCPFExists is returned when an insert collides with the unique cpf
// constraint. Handlers translate this into a 409.
var ErrCPFExists = errors.New("cpf already exists")

// ErrProcessNumberExists is returned when a process insert or update
// collides with the unique process number constraint.
var ErrProcessNumberExists = errors.New("process number already exists")

// ErrUserHasProcesses is returned when deleting a user that still has
// processes referencing it. Handlers translate this into a 409.
var ErrUserHasProcesses = errors.New("user has associated processes")
