package tablecache

import "fmt"

// NotFoundError reports a post id absent from a table snapshot.
type NotFoundError struct {
	Table  string
	PostID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("post %q not found in table %s", e.PostID, e.Table)
}

// EmptyUpdateError reports an update request without any fields.
type EmptyUpdateError struct {
	Table  string
	PostID string
}

func (e *EmptyUpdateError) Error() string {
	return fmt.Sprintf("update of post %q in table %s has no fields", e.PostID, e.Table)
}
