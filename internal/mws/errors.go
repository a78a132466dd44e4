package mws

import "fmt"

// FetchError is returned when records cannot be listed from a datasheet.
type FetchError struct {
	Datasheet string
	Status    int    // HTTP status, 0 when the request never completed
	Body      string // remote error body or message
	Err       error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("fetch datasheet %s: %v", e.Datasheet, e.Err)
	default:
		return fmt.Sprintf("fetch datasheet %s: status %d: %s", e.Datasheet, e.Status, e.Body)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError is returned when the remote table rejects a create or update.
type WriteError struct {
	Datasheet string
	Op        string
	Status    int
	Body      string
	Err       error
}

func (e *WriteError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s record in datasheet %s: %v", e.Op, e.Datasheet, e.Err)
	default:
		return fmt.Sprintf("%s record in datasheet %s: status %d: %s", e.Op, e.Datasheet, e.Status, e.Body)
	}
}

func (e *WriteError) Unwrap() error { return e.Err }
