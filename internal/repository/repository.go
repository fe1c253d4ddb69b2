package repository

import "errors"

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres here); hand-written testify
// mocks live in mocks/.

// ErrConflict is returned (wrapped) by Create operations that hit a storage
// uniqueness constraint: a document number already taken by a concurrent
// allocation, or a second active signature session for the same document.
var ErrConflict = errors.New("conflict")

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
