// Package scheduler runs the periodic orphan reconciler. Deletes in the
// stores are intentionally non-cascading; the reconciler sweeps the
// leftovers: entries pointing at deleted lists, bookmarks and tags pointing
// at deleted annotations or pages.
package scheduler

import (
	"context"
	"time"

	"github.com/webstash/webstash/internal/annots"
	"github.com/webstash/webstash/internal/lists"
	"github.com/webstash/webstash/internal/logger"
	"github.com/webstash/webstash/internal/pages"
	"github.com/webstash/webstash/internal/registry"
	"github.com/webstash/webstash/internal/storage"
	"github.com/webstash/webstash/internal/tags"
)

type Reconciler struct {
	reg    *registry.Registry
	lists  *lists.Store
	pages  *pages.Store
	annots *annots.Store
	log    logger.Logger

	interval time.Duration
	stopCh   chan struct{}
}

func NewReconciler(reg *registry.Registry, listStore *lists.Store, pageStore *pages.Store, annotStore *annots.Store, interval time.Duration, log logger.Logger) (*Reconciler, error) {
	r := &Reconciler{
		reg:      reg,
		lists:    listStore,
		pages:    pageStore,
		annots:   annotStore,
		log:      log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}

	ops := map[string]registry.Operation{
		"sweepListEntriesNotInLists": {
			Collection: lists.EntriesCollection,
			Kind:       registry.DeleteObjects,
			Where: []registry.Cond{
				{Field: "listId", Op: storage.OpNotIn, Param: "listIds", Type: registry.TIntSlice},
			},
		},
		"sweepAnnotListEntriesNotInLists": {
			Collection: annots.ListEntriesColl,
			Kind:       registry.DeleteObjects,
			Where: []registry.Cond{
				{Field: "listId", Op: storage.OpNotIn, Param: "listIds", Type: registry.TIntSlice},
			},
		},
		"sweepAnnotListEntriesNotInAnnots": {
			Collection: annots.ListEntriesColl,
			Kind:       registry.DeleteObjects,
			Where: []registry.Cond{
				{Field: "url", Op: storage.OpNotIn, Param: "urls", Type: registry.TStringSlice},
			},
		},
		"sweepAnnotBookmarksNotInAnnots": {
			Collection: annots.BookmarksColl,
			Kind:       registry.DeleteObjects,
			Where: []registry.Cond{
				{Field: "url", Op: storage.OpNotIn, Param: "urls", Type: registry.TStringSlice},
			},
		},
		"sweepTagsNotInUrls": {
			Collection: tags.Collection,
			Kind:       registry.DeleteObjects,
			Where: []registry.Cond{
				{Field: "url", Op: storage.OpNotIn, Param: "urls", Type: registry.TStringSlice},
			},
		},
	}
	for name, op := range ops {
		if err := reg.Define(name, op); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Start sweeps once immediately, then on every tick until Stop.
func (r *Reconciler) Start(ctx context.Context) {
	go func() {
		r.sweep(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sweep(ctx)
			case <-r.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (r *Reconciler) Stop() {
	close(r.stopCh)
}

// RunOnce runs a single sweep. Exposed for tests and manual triggers.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	return r.sweepErr(ctx)
}

func (r *Reconciler) sweep(ctx context.Context) {
	if err := r.sweepErr(ctx); err != nil {
		r.log.Error("orphan sweep failed", logger.Error(err))
	}
}

func (r *Reconciler) sweepErr(ctx context.Context) error {
	listIDs, err := r.lists.AllIDs(ctx)
	if err != nil {
		return err
	}
	if listIDs == nil {
		listIDs = []int64{}
	}

	allAnnots, err := r.annots.ListAnnotationsInRange(ctx, 0, 0)
	if err != nil {
		return err
	}
	annotURLs := make([]string, len(allAnnots))
	for i, a := range allAnnots {
		annotURLs[i] = a.URL
	}

	allPages, err := r.pages.All(ctx)
	if err != nil {
		return err
	}
	taggable := make([]string, 0, len(allPages)+len(annotURLs))
	taggable = append(taggable, annotURLs...)
	for _, p := range allPages {
		taggable = append(taggable, p.URL)
	}

	removed := 0
	sweeps := []struct {
		op     string
		params map[string]any
	}{
		{"sweepListEntriesNotInLists", map[string]any{"listIds": listIDs}},
		{"sweepAnnotListEntriesNotInLists", map[string]any{"listIds": listIDs}},
		{"sweepAnnotListEntriesNotInAnnots", map[string]any{"urls": annotURLs}},
		{"sweepAnnotBookmarksNotInAnnots", map[string]any{"urls": annotURLs}},
		{"sweepTagsNotInUrls", map[string]any{"urls": taggable}},
	}
	for _, s := range sweeps {
		res, err := r.reg.Execute(ctx, s.op, s.params)
		if err != nil {
			return err
		}
		removed += res.Count
	}

	if removed > 0 {
		r.log.Info("orphan sweep removed records", logger.Int("removed", removed))
	} else {
		r.log.Debug("orphan sweep found nothing to remove")
	}
	return nil
}
