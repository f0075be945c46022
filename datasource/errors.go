package datasource

import "fmt"

// Error is a failure reported by the backend about a request: constraint
// violations, permissions, malformed filters, single-row violations.
type Error struct {
	Code    string
	Message string
	Details string
	Hint    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeSingleRow is the error code for single-row violations.
const CodeSingleRow = "PGRST116"

var (
	// ErrNoRows is reported when Single matched no rows.
	ErrNoRows = &Error{
		Code:    CodeSingleRow,
		Message: "JSON object requested, multiple (or no) rows returned",
		Details: "The result contains 0 rows",
	}

	// ErrMultipleRows is reported when Single matched more than one row.
	ErrMultipleRows = &Error{
		Code:    CodeSingleRow,
		Message: "JSON object requested, multiple (or no) rows returned",
		Details: "The result contains more than one row",
	}
)
