package domain

// Page represents a visited or saved web resource, keyed by normalized URL.
// Pages are created lazily: the first annotation, tag or list-add for a URL
// creates a stub holding little more than the URL itself. A stub is promoted
// to a full record when the page is deliberately indexed.
type Page struct {
	// URL is the canonical unique identifier (normalized form).
	URL string `json:"url"`

	// FullURL is the original URL as the user saw it.
	FullURL string `json:"fullUrl"`

	// Title of the page, empty for stubs.
	Title string `json:"pageTitle"`

	// IsStub marks a page that holds only a URL until fully indexed.
	IsStub bool `json:"isStub"`

	// Latest is the most recent interaction time (visit or bookmark),
	// Unix milliseconds. Pages without a visit never surface in results.
	Latest int64 `json:"latest"`

	// Thumbnail is a base64-encoded screenshot, populated only when a
	// caller asks for it at resolution time.
	Thumbnail string `json:"thumbnail,omitempty"`
}

// AnnotPage is a Page enriched for search results: its display time and,
// in term-search mode, the matching annotations attached to it.
type AnnotPage struct {
	Page

	// DisplayTime is the interaction time shown for this result.
	DisplayTime int64 `json:"displayTime"`

	// Annotations carry tags and bookmark state; only populated in
	// term-search mode (day-clustered results group them separately).
	Annotations []Annotation `json:"annotations,omitempty"`
}
