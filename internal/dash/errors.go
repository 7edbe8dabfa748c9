package dash

import "fmt"

// ParseError reports a manifest document that could not be turned into a
// usable MPD tree: malformed markup, no Periods, or a Period missing one of
// the two required track types.
type ParseError struct {
	Location string
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse manifest %s: %s: %v", e.Location, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse manifest %s: %s", e.Location, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SelectionError reports an AdaptationSet with no Representation to choose
// from.
type SelectionError struct {
	SetID       string
	ContentType string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("adaptation set %q (%s) has no representations", e.SetID, e.ContentType)
}

// AddressingError reports a Representation whose segments cannot be resolved
// into fetchable locations.
type AddressingError struct {
	RepID  string
	Reason string
}

func (e *AddressingError) Error() string {
	return fmt.Sprintf("representation %q: %s", e.RepID, e.Reason)
}
