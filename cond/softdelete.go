package cond

import "fmt"

// DefaultDeletedColumn is the soft-delete marker column used when none is given.
const DefaultDeletedColumn = "deleted"

// Mode selects which rows a soft-delete policy lets through.
type Mode string

const (
	// Include leaves the marker column unconstrained.
	Include Mode = "include"
	// Exclude keeps rows whose marker IS NULL.
	Exclude Mode = "exclude"
	// Only keeps rows whose marker IS NOT NULL.
	Only Mode = "only"
)

// ParseMode parses include, exclude or only.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Include, Exclude, Only:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid soft-delete mode %q: must be include, exclude or only", s)
}

// SoftDelete is a soft-delete policy. Default marks a table-level default
// as opposed to an explicit caller choice.
type SoftDelete struct {
	Column  string
	Mode    Mode
	Default bool
}

// TableDefault returns the default policy for a soft-delete table: exclude
// deleted rows.
func TableDefault(column string) *SoftDelete {
	if column == "" {
		column = DefaultDeletedColumn
	}
	return &SoftDelete{Column: column, Mode: Exclude, Default: true}
}

// Explicit returns a copy of the policy set to mode and marked as a caller
// choice. A nil receiver uses the default column.
func (sd *SoftDelete) Explicit(mode Mode) *SoftDelete {
	column := DefaultDeletedColumn
	if sd != nil && sd.Column != "" {
		column = sd.Column
	}
	return &SoftDelete{Column: column, Mode: mode}
}
