package seedfile

import "fmt"

// Seed is the YAML shape of a seed file: lists with optional member pages.
type Seed struct {
	Lists []SeedList `yaml:"lists"`
}

type SeedList struct {
	Name  string     `yaml:"name"`
	Pages []SeedPage `yaml:"pages,omitempty"`
}

type SeedPage struct {
	URL   string `yaml:"url"`
	Title string `yaml:"title,omitempty"`
}

func (s *Seed) validate() error {
	seen := make(map[string]bool, len(s.Lists))
	for i, list := range s.Lists {
		if list.Name == "" {
			return fmt.Errorf("seed list %d: missing name", i)
		}
		if seen[list.Name] {
			return fmt.Errorf("seed list %q: duplicate name", list.Name)
		}
		seen[list.Name] = true
		for j, page := range list.Pages {
			if page.URL == "" {
				return fmt.Errorf("seed list %q: page %d: missing url", list.Name, j)
			}
		}
	}
	return nil
}
