//go:build cgo && !purego
// +build cgo,!purego

package storage

// Compiled for CGO builds. Uses the C SQLite bindings, which are faster
// on large audit logs.
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
