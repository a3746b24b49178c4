// Package seedfile loads an optional YAML seed of lists and member pages at
// startup. Seeding is idempotent: existing lists are reused by name and
// duplicate memberships merge, so the same file can load on every boot.
package seedfile

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/webstash/webstash/internal/lists"
	"github.com/webstash/webstash/internal/logger"
)

type Loader struct {
	lists *lists.Store
	log   logger.Logger
}

func NewLoader(listStore *lists.Store, log logger.Logger) *Loader {
	return &Loader{lists: listStore, log: log}
}

// Parse reads and validates a seed file.
func Parse(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if err := seed.validate(); err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return &seed, nil
}

// Load parses the file and applies it to the list store.
func (l *Loader) Load(ctx context.Context, path string) error {
	seed, err := Parse(path)
	if err != nil {
		return err
	}
	return l.Apply(ctx, seed)
}

// Apply ensures every seeded list exists and adds the seeded pages to it.
func (l *Loader) Apply(ctx context.Context, seed *Seed) error {
	if len(seed.Lists) == 0 {
		return nil
	}

	names := make([]string, len(seed.Lists))
	for i, list := range seed.Lists {
		names[i] = list.Name
	}
	ids, err := l.lists.InsertMissingLists(ctx, names)
	if err != nil {
		return err
	}

	for i, list := range seed.Lists {
		if len(list.Pages) == 0 {
			continue
		}
		tabs := make([]lists.Tab, len(list.Pages))
		for j, page := range list.Pages {
			tabs[j] = lists.Tab{URL: page.URL, Title: page.Title}
		}
		if err := l.lists.AddTabsToList(ctx, ids[i], tabs); err != nil {
			return err
		}
	}

	l.log.Info("applied seed file", logger.Int("lists", len(seed.Lists)))
	return nil
}
