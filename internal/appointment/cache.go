package appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/medassist/scheduling/internal/schedule"
)

// suggestionCache memoizes suggestion results per doctor. Entries are keyed
// by the search parameters and the anchor day, and every entry for a doctor
// is dropped as soon as that doctor's schedule changes.
type suggestionCache struct {
	entries *lru.Cache[string, []schedule.SuggestionRecord]
}

func newSuggestionCache(size int) (*suggestionCache, error) {
	entries, err := lru.New[string, []schedule.SuggestionRecord](size)
	if err != nil {
		return nil, fmt.Errorf("create suggestion cache: %w", err)
	}
	return &suggestionCache{entries: entries}, nil
}

func suggestionKey(doctorID uuid.UUID, day time.Time, priority schedule.Priority, topK, horizonDays int) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", doctorID, day.Format("2006-01-02"), priority, topK, horizonDays)
}

func (c *suggestionCache) Get(key string) ([]schedule.SuggestionRecord, bool) {
	return c.entries.Get(key)
}

func (c *suggestionCache) Store(key string, records []schedule.SuggestionRecord) {
	c.entries.Add(key, records)
}

// InvalidateDoctor removes every cached result for one doctor.
func (c *suggestionCache) InvalidateDoctor(doctorID uuid.UUID) {
	prefix := doctorID.String() + "|"
	for _, key := range c.entries.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.entries.Remove(key)
		}
	}
}
