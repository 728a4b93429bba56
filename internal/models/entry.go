// Package models defines the domain types for the journal.
package models

import "time"

// Entry is one encrypted note listed from the journal directory.
type Entry struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}
