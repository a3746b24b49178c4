package domain

// List is a named, user-defined grouping of pages or annotations.
// Names are unique case-insensitively. IDs are generated as now-ms
// timestamps at creation time.
type List struct {
	// ID is the canonical unique identifier.
	ID int64 `json:"id"`

	// Name is the user-facing label. Unique (case-insensitive).
	Name string `json:"name"`

	IsDeletable bool `json:"isDeletable"`
	IsNestable  bool `json:"isNestable"`

	// CreatedAt is Unix milliseconds.
	CreatedAt int64 `json:"createdAt"`

	// Pages and Active are display fields attached when entries are
	// joined in: member page URLs and whether a queried page belongs.
	Pages  []string `json:"pages,omitempty"`
	Active bool     `json:"active"`
}

// ListEntry is the join row putting a page into a list.
// Identity is the (listId, pageUrl) composite; inserting a duplicate is a
// harmless merge, not an error.
type ListEntry struct {
	ListID    int64  `json:"listId"`
	PageURL   string `json:"pageUrl"`
	FullURL   string `json:"fullUrl"`
	CreatedAt int64  `json:"createdAt"`
}

// AnnotListEntry is the same join pattern for annotations.
type AnnotListEntry struct {
	ListID    int64  `json:"listId"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"createdAt"`
}
