package domain

// Change is a row-level notification for one user's bookmarks.
// The set of implementations is closed: Inserted, Updated and Deleted.
type Change interface {
	// BookmarkID is never empty for a validated change.
	BookmarkID() string
	// OwnerID is the user the row belongs to.
	OwnerID() string

	isChange()
}

// Inserted reports a newly created row.
type Inserted struct {
	Record Bookmark
}

// Updated reports a new title/url for an existing row.
type Updated struct {
	Record Bookmark
}

// Deleted reports a removed row. Only the identity is known.
type Deleted struct {
	ID     string
	UserID string
}

func (c Inserted) BookmarkID() string { return c.Record.ID }
func (c Inserted) OwnerID() string    { return c.Record.UserID }
func (Inserted) isChange()            {}

func (c Updated) BookmarkID() string { return c.Record.ID }
func (c Updated) OwnerID() string    { return c.Record.UserID }
func (Updated) isChange()            {}

func (c Deleted) BookmarkID() string { return c.ID }
func (c Deleted) OwnerID() string    { return c.UserID }
func (Deleted) isChange()            {}

// ChangeKind returns a short label for logs.
func ChangeKind(c Change) string {
	switch c.(type) {
	case Inserted:
		return "insert"
	case Updated:
		return "update"
	case Deleted:
		return "delete"
	default:
		return "unknown"
	}
}
