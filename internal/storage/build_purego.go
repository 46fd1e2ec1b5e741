//go:build purego || !cgo
// +build purego !cgo

package storage

// Compiled when building without CGO or with the purego tag. Uses the
// pure Go SQLite implementation.
//
// Build command:
//
//	CGO_ENABLED=0 go build -tags "purego" ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
