package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/webstash/webstash/internal/annots"
	"github.com/webstash/webstash/internal/domain"
	"github.com/webstash/webstash/internal/tags"
)

// Lister fetches and filters the annotation candidate set for a search:
// date window, list membership, tag inclusion and bookmark state. Tag
// exclusion happens later, against enriched display tags. Clustering and
// page resolution stay in the engine.
type Lister struct {
	annots *annots.Store
	tags   *tags.Store
}

func NewLister(annotStore *annots.Store, tagStore *tags.Store) *Lister {
	return &Lister{annots: annotStore, tags: tagStore}
}

// Filtered returns annotations matching every filter in params except
// terms and tag exclusion, sorted by lastEdited descending. Skip/Limit
// from params are NOT applied here; the engine paginates after clustering
// decisions.
func (l *Lister) Filtered(ctx context.Context, params domain.AnnotSearchParams) ([]domain.Annotation, error) {
	list, err := l.annots.ListAnnotationsInRange(ctx, params.StartDate, params.EndDate)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	if len(params.Lists) > 0 {
		member, err := l.annots.AnnotURLsInLists(ctx, params.Lists)
		if err != nil {
			return nil, err
		}
		list = keep(list, func(a domain.Annotation) bool { return member[a.URL] })
	}

	if len(params.TagsInc) > 0 {
		tagsByURL, err := l.tags.FetchTagsByURLs(ctx, annotURLs(list))
		if err != nil {
			return nil, err
		}
		list = keep(list, func(a domain.Annotation) bool {
			return matchesTags(tagsByURL[a.URL], params.TagsInc, nil)
		})
	}

	if params.BookmarksOnly {
		bookmarked, err := l.annots.FetchBookmarkedURLs(ctx, annotURLs(list))
		if err != nil {
			return nil, err
		}
		list = keep(list, func(a domain.Annotation) bool { return bookmarked[a.URL] })
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].LastEdited > list[j].LastEdited
	})
	return list, nil
}

// ExcludeTags drops enriched annotations carrying any excluded tag. The
// check runs over the capped display tag list an annotation ends up with,
// so a tag falling beyond the display cap does not exclude.
func ExcludeTags(list []domain.Annotation, exc []string) []domain.Annotation {
	if len(exc) == 0 {
		return list
	}
	return keep(list, func(a domain.Annotation) bool {
		return matchesTags(a.Tags, nil, exc)
	})
}

// FilterTerms keeps annotations where every term matches the body, comment
// or page title, case-insensitively.
func FilterTerms(list []domain.Annotation, terms []string) []domain.Annotation {
	if len(terms) == 0 {
		return list
	}
	return keep(list, func(a domain.Annotation) bool { return matchesTerms(a, terms) })
}

func matchesTerms(a domain.Annotation, terms []string) bool {
	haystack := strings.ToLower(a.Body + " " + a.Comment + " " + a.PageTitle)
	for _, term := range terms {
		if !strings.Contains(haystack, strings.ToLower(term)) {
			return false
		}
	}
	return true
}

func matchesTags(have, inc, exc []string) bool {
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	for _, t := range inc {
		if !set[t] {
			return false
		}
	}
	for _, t := range exc {
		if set[t] {
			return false
		}
	}
	return true
}

// ClusterByDay groups annotations into UTC-day buckets keyed by the Unix-ms
// timestamp of the day's midnight, newest day first. Within a day,
// annotations group by page; input order (lastEdited descending) is kept.
func ClusterByDay(list []domain.Annotation) []domain.DayBucket {
	var buckets []domain.DayBucket
	index := make(map[int64]int)

	for _, a := range list {
		day := dayOf(a.LastEdited)
		i, ok := index[day]
		if !ok {
			i = len(buckets)
			index[day] = i
			buckets = append(buckets, domain.DayBucket{Day: day})
		}
		b := &buckets[i]

		var group *domain.PageGroup
		for gi := range b.Pages {
			if b.Pages[gi].PageURL == a.PageURL {
				group = &b.Pages[gi]
				break
			}
		}
		if group == nil {
			b.Pages = append(b.Pages, domain.PageGroup{PageURL: a.PageURL})
			group = &b.Pages[len(b.Pages)-1]
		}
		group.Annotations = append(group.Annotations, a)
	}

	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Day > buckets[j].Day })
	return buckets
}

// dayOf truncates a Unix-ms timestamp to its UTC midnight in Unix-ms.
func dayOf(ms int64) int64 {
	t := time.UnixMilli(ms).UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.UnixMilli()
}

func annotURLs(list []domain.Annotation) []string {
	urls := make([]string, len(list))
	for i, a := range list {
		urls[i] = a.URL
	}
	return urls
}

func keep(list []domain.Annotation, pred func(domain.Annotation) bool) []domain.Annotation {
	out := list[:0:0]
	for _, a := range list {
		if pred(a) {
			out = append(out, a)
		}
	}
	return out
}
