package grouping

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/desertthunder/radiosync/internal/shared"
)

// ShowFilter decides which shows of a station are synced.
type ShowFilter struct {
	shows   []string
	ignores []*regexp.Regexp
}

// NewShowFilter compiles the ignore patterns. An invalid pattern is an [shared.ErrInvalidConfig].
func NewShowFilter(cfg shared.StationConfig) (*ShowFilter, error) {
	f := &ShowFilter{shows: cfg.Shows}
	for _, pattern := range cfg.Ignores {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: ignore pattern %q: %v", shared.ErrInvalidConfig, pattern, err)
		}
		f.ignores = append(f.ignores, re)
	}
	return f, nil
}

// Allow reports whether a show title passes the allow-list and no ignore pattern matches it.
func (f *ShowFilter) Allow(title string) bool {
	if len(f.shows) > 0 && !slices.Contains(f.shows, title) {
		return false
	}
	for _, re := range f.ignores {
		if re.MatchString(title) {
			return false
		}
	}
	return true
}
