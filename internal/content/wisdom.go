package content

import (
	"context"
	"strings"

	"github.com/bharatverse/bharatverse/internal/models"
)

// CategoryAll disables category filtering.
const CategoryAll = "all"

// ListWisdom returns library entries in category (or every category for "all" or "")
// whose title, content or tags contain search, ignoring case.
func (s *Service) ListWisdom(ctx context.Context, category, search string) ([]models.WisdomEntry, error) {
	entries, err := s.store.ListWisdom(ctx)
	if err != nil {
		return nil, err
	}
	return FilterWisdom(entries, category, search), nil
}

func FilterWisdom(entries []models.WisdomEntry, category, search string) []models.WisdomEntry {
	category = strings.TrimSpace(category)
	needle := strings.ToLower(strings.TrimSpace(search))

	out := make([]models.WisdomEntry, 0, len(entries))
	for _, entry := range entries {
		if category != "" && category != CategoryAll && entry.Category != category {
			continue
		}
		if needle != "" && !matchesWisdom(entry, needle) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func matchesWisdom(entry models.WisdomEntry, needle string) bool {
	if strings.Contains(strings.ToLower(entry.Title), needle) ||
		strings.Contains(strings.ToLower(entry.Content), needle) {
		return true
	}
	for _, tag := range entry.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
