package domain

// AnnotSearchParams carries the free-text and structural filters for an
// annotation search. TermsInc decides the retrieval mode: empty means
// day-clustered results, non-empty means a flat term search.
type AnnotSearchParams struct {
	// TermsInc are free-text inclusion terms; all must match.
	TermsInc []string `json:"termsInc,omitempty"`

	// TagsInc requires every listed tag; TagsExc drops any annotation
	// whose enriched display tags carry one of them.
	TagsInc []string `json:"tagsInc,omitempty"`
	TagsExc []string `json:"tagsExc,omitempty"`

	// Lists restricts results to annotations that are members of any of
	// the given lists.
	Lists []int64 `json:"lists,omitempty"`

	// StartDate and EndDate bound lastEdited, Unix milliseconds.
	// Zero means unbounded.
	StartDate int64 `json:"startDate,omitempty"`
	EndDate   int64 `json:"endDate,omitempty"`

	// Limit caps matching annotations before clustering (clustered
	// mode) or result pages (term mode). Skip offsets the same unit.
	Limit int `json:"limit,omitempty"`
	Skip  int `json:"skip,omitempty"`

	// Base64Img asks page resolution to include thumbnails.
	Base64Img bool `json:"base64Img,omitempty"`

	// BookmarksOnly restricts to bookmarked annotations.
	BookmarksOnly bool `json:"bookmarksOnly,omitempty"`
}
