package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/pageops/cache"
	"github.com/jonwraymond/pageops/page"
)

func notePages(t *testing.T, n int) []page.Page {
	t.Helper()
	pages := make([]page.Page, n)
	for i := range pages {
		addr, err := page.New("vault", "note", fmt.Sprintf("n%d", i), 1)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		pages[i] = page.NewTextPage(addr, fmt.Sprintf("note body %d", i))
	}
	return pages
}

func listFunc(calls *atomic.Int32, pages []page.Page) ListFunc {
	return func(ctx context.Context, args map[string]any) ([]page.Page, error) {
		calls.Add(1)
		return pages, nil
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	okFn := func(ctx context.Context, args map[string]any) ([]page.Page, error) {
		return nil, nil
	}

	if _, err := New(okFn); !errors.Is(err, ErrMissingName) {
		t.Errorf("missing name error = %v, want ErrMissingName", err)
	}
	if _, err := New(func() {}, WithName("broken")); !errors.Is(err, ErrUnsupportedFunc) {
		t.Errorf("bad shape error = %v, want ErrUnsupportedFunc", err)
	}
	if _, err := New(okFn, WithName("bad_page"), WithMaxItems(0)); err == nil {
		t.Error("pagination with zero max items must fail construction")
	}

	pagedFn := func(ctx context.Context, args map[string]any, cursor string) ([]page.Page, string, error) {
		return nil, "", nil
	}
	if _, err := New(pagedFn, WithName("native")); !errors.Is(err, ErrUnsupportedFunc) {
		t.Errorf("native function without pagination error = %v, want ErrUnsupportedFunc", err)
	}
}

func TestCallCacheIdempotence(t *testing.T) {
	var calls atomic.Int32
	pages := notePages(t, 3)
	tl, err := New(listFunc(&calls, pages), WithName("search"), WithCache())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	args := map[string]any{"query": "hello"}
	first, err := tl.Call(context.Background(), args)
	if err != nil {
		t.Fatalf("first Call() error = %v", err)
	}
	second, err := tl.Call(context.Background(), args)
	if err != nil {
		t.Fatalf("second Call() error = %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("function ran %d times, want 1", got)
	}
	if len(first) != len(second) || first[0].Address() != second[0].Address() {
		t.Error("cached result differs from fresh result")
	}
}

func TestTTLExpiry(t *testing.T) {
	var calls atomic.Int32
	tl, err := New(listFunc(&calls, notePages(t, 1)), WithName("search"), WithTTL(100*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	mem := cache.NewMemory()
	now := time.Now()
	clock := func() time.Time { return now }
	mem.SetClock(clock)
	tl.SetCache(mem)
	tl.SetClock(clock)

	args := map[string]any{"query": "x"}
	if _, err := tl.Call(context.Background(), args); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	now = now.Add(150 * time.Millisecond)
	if _, err := tl.Call(context.Background(), args); err != nil {
		t.Fatalf("Call() after expiry error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("function ran %d times, want 2 (TTL expiry must re-execute)", got)
	}
}

func TestErrorsNeverCached(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, args map[string]any) ([]page.Page, error) {
		calls.Add(1)
		return nil, errors.New("flaky backend")
	}
	tl, err := New(ListFunc(fn), WithName("flaky"), WithCache())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := tl.Call(context.Background(), nil); err == nil {
			t.Fatal("Call() should propagate the function error")
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("function ran %d times, want 2 (errors must not cache)", got)
	}
}

func TestEmptyResultIsCached(t *testing.T) {
	var calls atomic.Int32
	tl, err := New(listFunc(&calls, []page.Page{}), WithName("empty"), WithCache())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := tl.Call(context.Background(), map[string]any{"q": "none"}); err != nil {
			t.Fatalf("Call() error = %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("function ran %d times, want 1 (empty results cache too)", got)
	}
}

func TestInvalidatorEvicts(t *testing.T) {
	var calls atomic.Int32
	tl, err := New(listFunc(&calls, notePages(t, 1)), WithName("guarded"),
		WithInvalidator(func(key string, cached []page.Page) bool { return false }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := tl.Call(context.Background(), nil); err != nil {
			t.Fatalf("Call() error = %v", err)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("function ran %d times, want 2 (invalidator rejects every hit)", got)
	}
}

func TestDirectAndInvokeShareCacheEntry(t *testing.T) {
	var calls atomic.Int32
	tl, err := New(listFunc(&calls, notePages(t, 2)), WithName("search"),
		WithParams("query"), WithCache())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := tl.Call(context.Background(), map[string]any{"query": "hello"}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if _, err := tl.Invoke(context.Background(), "hello"); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("function ran %d times, want 1 (paths must share entries)", got)
	}
}

func TestInvokeStringBindsFirstParam(t *testing.T) {
	var gotArgs map[string]any
	fn := func(ctx context.Context, args map[string]any) ([]page.Page, error) {
		gotArgs = args
		return notePages(t, 1), nil
	}
	tl, err := New(ListFunc(fn), WithName("search"), WithParams("query", "limit"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := tl.Invoke(context.Background(), "kittens"); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if gotArgs["query"] != "kittens" {
		t.Errorf("args = %v, want query bound to kittens", gotArgs)
	}
}

func TestInvokeStringWithoutParamsFails(t *testing.T) {
	tl, err := New(listFunc(new(atomic.Int32), nil), WithName("bare"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := tl.Invoke(context.Background(), "oops"); err == nil {
		t.Error("string input without declared parameters must fail")
	}
}

func TestInvokePaginationCursorWalk(t *testing.T) {
	pages := notePages(t, 10)
	tl, err := New(listFunc(new(atomic.Int32), pages), WithName("walk"), WithMaxItems(3))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	wantSizes := []int{3, 3, 3, 1}
	wantNext := []any{"3", "6", "9", nil}

	cursor := "start"
	for step := range wantSizes {
		resp, err := tl.Invoke(context.Background(), map[string]any{"cursor": cursor})
		if err != nil {
			t.Fatalf("step %d: Invoke() error = %v", step, err)
		}
		results := resp["results"].([]map[string]any)
		if len(results) != wantSizes[step] {
			t.Errorf("step %d: len(results) = %d, want %d", step, len(results), wantSizes[step])
		}
		next, present := resp["next_cursor"]
		if !present {
			t.Fatalf("step %d: paginated envelope is missing next_cursor", step)
		}
		if next != wantNext[step] {
			t.Errorf("step %d: next_cursor = %v, want %v", step, next, wantNext[step])
		}
		if next == nil {
			break
		}
		cursor = next.(string)
	}
}

func TestInvokeBadCursor(t *testing.T) {
	tl, err := New(listFunc(new(atomic.Int32), notePages(t, 3)), WithName("walk"), WithMaxItems(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, cursor := range []string{"abc", "-1"} {
		if _, err := tl.Invoke(context.Background(), map[string]any{"cursor": cursor}); !errors.Is(err, ErrBadCursor) {
			t.Errorf("cursor %q: error = %v, want ErrBadCursor", cursor, err)
		}
	}
}

func TestTokenBudgetTrimsSlice(t *testing.T) {
	addr1, _ := page.New("vault", "note", "small", 1)
	addr2, _ := page.New("vault", "note", "huge", 1)
	addr3, _ := page.New("vault", "note", "tail", 1)
	pages := []page.Page{
		page.NewTextPage(addr1, "tiny"),
		page.NewTextPage(addr2, strings.Repeat("lorem ipsum ", 500)),
		page.NewTextPage(addr3, "tiny"),
	}
	tl, err := New(listFunc(new(atomic.Int32), pages), WithName("budget"),
		WithMaxItems(10), WithMaxTokens(50))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := tl.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	results := resp["results"].([]map[string]any)
	// The huge second page blows the budget; only the first survives.
	if len(results) != 1 {
		t.Errorf("len(results) = %d, want 1", len(results))
	}
	if resp["next_cursor"] != "1" {
		t.Errorf("next_cursor = %v, want 1", resp["next_cursor"])
	}
}

func TestTokenBudgetKeepsAtLeastOneItem(t *testing.T) {
	addr, _ := page.New("vault", "note", "huge", 1)
	pages := []page.Page{page.NewTextPage(addr, strings.Repeat("x", 10000))}
	tl, err := New(listFunc(new(atomic.Int32), pages), WithName("budget"),
		WithMaxItems(5), WithMaxTokens(10))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := tl.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if len(resp["results"].([]map[string]any)) != 1 {
		t.Error("an over-budget single item must still be returned")
	}
}

func TestInvokeNoResults(t *testing.T) {
	t.Run("empty result set", func(t *testing.T) {
		tl, err := New(listFunc(new(atomic.Int32), nil), WithName("empty"))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		resp, err := tl.Invoke(context.Background(), nil)
		if err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
		if resp["response_code"] != "error_no_results_found" {
			t.Errorf("response_code = %v", resp["response_code"])
		}
	})

	t.Run("sentinel error", func(t *testing.T) {
		fn := func(ctx context.Context, args map[string]any) ([]page.Page, error) {
			return nil, fmt.Errorf("%w: query too narrow", ErrNoResults)
		}
		tl, err := New(ListFunc(fn), WithName("narrow"))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		resp, err := tl.Invoke(context.Background(), nil)
		if err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
		if resp["response_code"] != "error_no_results_found" {
			t.Errorf("response_code = %v", resp["response_code"])
		}
		if msg, _ := resp["error_message"].(string); !strings.Contains(msg, "query too narrow") {
			t.Errorf("error_message = %v", resp["error_message"])
		}
	})
}

func TestInvokeWrapsOtherErrors(t *testing.T) {
	wantErr := errors.New("backend exploded")
	fn := func(ctx context.Context, args map[string]any) ([]page.Page, error) {
		return nil, wantErr
	}
	tl, err := New(ListFunc(fn), WithName("exploding"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = tl.Invoke(context.Background(), nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want wrapped %v", err, wantErr)
	}
	if !strings.Contains(err.Error(), "tool execution failed") {
		t.Errorf("error = %v, want tool execution failed context", err)
	}
}

func TestNativePaginationPassThrough(t *testing.T) {
	var gotCursors []string
	fn := func(ctx context.Context, args map[string]any, cursor string) ([]page.Page, string, error) {
		gotCursors = append(gotCursors, cursor)
		if cursor == "" {
			return notePages(t, 2), "opaque-token", nil
		}
		return notePages(t, 1), "", nil
	}
	tl, err := New(PagedFunc(fn), WithName("native"), WithPagination())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := tl.Invoke(context.Background(), map[string]any{"cursor": "start"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp["next_cursor"] != "opaque-token" {
		t.Errorf("next_cursor = %v, want opaque-token", resp["next_cursor"])
	}

	resp, err = tl.Invoke(context.Background(), map[string]any{"cursor": "opaque-token"})
	if err != nil {
		t.Fatalf("second Invoke() error = %v", err)
	}
	if resp["next_cursor"] != nil {
		t.Errorf("final next_cursor = %v, want nil", resp["next_cursor"])
	}

	// The provider token flows through unchanged; the start alias maps to "".
	want := []string{"", "opaque-token"}
	if len(gotCursors) != len(want) || gotCursors[0] != want[0] || gotCursors[1] != want[1] {
		t.Errorf("cursors seen = %v, want %v", gotCursors, want)
	}
}

func TestNativePaginationCachesPerCursor(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, args map[string]any, cursor string) ([]page.Page, string, error) {
		calls.Add(1)
		return notePages(t, 1), "next-" + cursor, nil
	}
	tl, err := New(PagedFunc(fn), WithName("native"), WithPagination(), WithCache())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	for _, cursor := range []string{"start", "start", "a", "a"} {
		if _, err := tl.Invoke(ctx, map[string]any{"cursor": cursor}); err != nil {
			t.Fatalf("Invoke(%q) error = %v", cursor, err)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("function ran %d times, want 2 (one per distinct cursor)", got)
	}
}

func TestDescriptionAnnotatesPagination(t *testing.T) {
	tl, err := New(listFunc(new(atomic.Int32), nil), WithName("search"),
		WithDescription("Search notes."), WithMaxItems(5), WithMaxTokens(100))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	desc := tl.Description()
	if !strings.Contains(desc, "Search notes.") || !strings.Contains(desc, "5 items per page") {
		t.Errorf("Description() = %q", desc)
	}
}
