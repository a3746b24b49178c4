package domain

// Annotation is a user-authored highlight/comment anchored to a page via a
// positional selector. The annotation URL is a derived per-annotation
// identifier and serves as primary key; PageURL links it to its page without
// referential enforcement (orphans are reconciled at query time).
type Annotation struct {
	// URL is the canonical unique identifier.
	URL string `json:"url"`

	PageURL   string `json:"pageUrl"`
	PageTitle string `json:"pageTitle"`

	// Body is the quoted (highlighted) text. Immutable after creation.
	Body string `json:"body"`

	// Comment is the user's note. The only field edits may change.
	Comment string `json:"comment"`

	// Selector is the positional anchor, stored as an opaque payload.
	Selector map[string]any `json:"selector,omitempty"`

	// CreatedWhen and LastEdited are Unix milliseconds. LastEdited equals
	// CreatedWhen until the first edit.
	CreatedWhen int64 `json:"createdWhen"`
	LastEdited  int64 `json:"lastEdited"`

	// Display metadata attached by enrichment, never persisted.
	Tags        []string `json:"tags,omitempty"`
	HasBookmark bool     `json:"hasBookmark,omitempty"`
}

// Bookmark marks an annotation as bookmarked. Presence of the row is the
// state: there is no flag field.
type Bookmark struct {
	URL       string `json:"url"`
	CreatedAt int64  `json:"createdAt"`
}

// Tag associates a name with any taggable URL (page or annotation).
// Identity is the (name, url) composite.
type Tag struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
