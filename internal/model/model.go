package model

// Package model contains pure domain models with no database-specific
// dependencies or tags beyond JSON. They are shared across the HTTP,
// service and repository layers without coupling to persistence.
