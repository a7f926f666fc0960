package csvfile

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSection matches every *MissingSectionError.
	ErrMissingSection = errors.New("missing section")
	// ErrInvalidRow matches every *InvalidRowError.
	ErrInvalidRow = errors.New("invalid row")
)

// MissingSectionError reports an absent #FOLDERS or #BOOKMARKS marker.
type MissingSectionError struct {
	Section string
}

func (e *MissingSectionError) Error() string {
	return fmt.Sprintf("missing %s section", e.Section)
}

func (e *MissingSectionError) Is(target error) bool { return target == ErrMissingSection }

// InvalidRowError reports a row with fewer fields than its section needs.
type InvalidRowError struct {
	Section string
	Line    int
	Fields  int
	Want    int
	Row     string
}

func (e *InvalidRowError) Error() string {
	return fmt.Sprintf("invalid row at line %d in %s section: got %d fields, want at least %d: %q",
		e.Line, e.Section, e.Fields, e.Want, e.Row)
}

func (e *InvalidRowError) Is(target error) bool { return target == ErrInvalidRow }
