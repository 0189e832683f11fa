package tool

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jonwraymond/pageops/page"
)

// normalizeCursor maps the distinguished start tokens to the empty cursor.
func normalizeCursor(cursor string) string {
	if cursor == "start" {
		return ""
	}
	return cursor
}

// parseCursor decodes a list-slicing cursor into a starting offset. The
// empty cursor is position zero.
func parseCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	pos, err := strconv.Atoi(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadCursor, cursor)
	}
	if pos < 0 {
		return 0, fmt.Errorf("%w: position must be non-negative, got %d", ErrBadCursor, pos)
	}
	return pos, nil
}

// slicePage cuts one page out of the full result list at the cursor
// position, applying the item cap and then the token budget. The next cursor
// is the position one past the returned slice, absent when the slice reaches
// the end.
func (t *Tool) slicePage(pages []page.Page, cursor string) ([]page.Page, string, bool, error) {
	start, err := parseCursor(cursor)
	if err != nil {
		return nil, "", false, err
	}
	if start >= len(pages) {
		return nil, "", false, nil
	}

	end := start + t.cfg.MaxItems
	if end > len(pages) {
		end = len(pages)
	}
	slice := trimToBudget(pages[start:end], t.cfg.MaxTokens)

	next := start + len(slice)
	if next < len(pages) {
		return slice, strconv.Itoa(next), true, nil
	}
	return slice, "", false, nil
}

// trimToBudget drops trailing items until the slice fits the token budget.
// At least one item always survives so pagination can make progress.
func trimToBudget(pages []page.Page, maxTokens int) []page.Page {
	if maxTokens <= 0 || len(pages) == 0 {
		return pages
	}
	total := 0
	for i, p := range pages {
		total += estimatePageTokens(p)
		if total > maxTokens && i > 0 {
			return pages[:i]
		}
	}
	return pages
}

// estimatePageTokens approximates a page's token cost from its serialized
// length.
func estimatePageTokens(p page.Page) int {
	raw, err := json.Marshal(p)
	if err != nil {
		return 0
	}
	return page.EstimateTokens(string(raw))
}
