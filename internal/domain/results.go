package domain

// PageGroup holds one page's matching annotations inside a day bucket.
type PageGroup struct {
	PageURL     string       `json:"pageUrl"`
	Annotations []Annotation `json:"annotations"`
}

// DayBucket groups annotations by calendar day (UTC midnight, Unix ms),
// then by page. Buckets are ordered newest-first; a bucket is never empty.
type DayBucket struct {
	Day   int64       `json:"day"`
	Pages []PageGroup `json:"pages"`
}

// AnnotSearchResult is the clustering engine's output. AnnotsByDay is
// populated in day-clustered mode; in term-search mode annotations ride on
// the Docs entries instead and AnnotsByDay is nil.
type AnnotSearchResult struct {
	AnnotsByDay []DayBucket `json:"annotsByDay,omitempty"`
	Docs        []AnnotPage `json:"docs"`
}

// FindBucket returns the bucket for a day, or nil. Test/display helper.
func (r *AnnotSearchResult) FindBucket(day int64) *DayBucket {
	for i := range r.AnnotsByDay {
		if r.AnnotsByDay[i].Day == day {
			return &r.AnnotsByDay[i]
		}
	}
	return nil
}

// FindGroup returns the page group for a URL within a bucket, or nil.
func (b *DayBucket) FindGroup(pageURL string) *PageGroup {
	for i := range b.Pages {
		if b.Pages[i].PageURL == pageURL {
			return &b.Pages[i]
		}
	}
	return nil
}
