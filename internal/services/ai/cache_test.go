package ai

import (
	"testing"
	"time"
)

func TestFuzzyKey_NormalizesWhitespaceAndCase(t *testing.T) {
	t.Parallel()

	base := FuzzyKey("Summarize observations for Child A")

	variants := []string{
		"summarize observations for child a",
		"Summarize   observations\n for Child A",
		"  Summarize observations for Child A  ",
	}
	for _, v := range variants {
		if FuzzyKey(v) != base {
			t.Errorf("expected %q to share a fuzzy key with the base prompt", v)
		}
	}

	if FuzzyKey("Summarize observations for Child B") == base {
		t.Error("different prompts must not collide")
	}
}

func TestResponseCache_GetSet(t *testing.T) {
	t.Parallel()

	cache := NewResponseCache(time.Minute)
	if _, ok := cache.Get("nothing here"); ok {
		t.Fatal("empty cache should miss")
	}

	cache.Set("a prompt", map[string]any{"insight": "x"})
	got, ok := cache.Get("A   PROMPT")
	if !ok {
		t.Fatal("fuzzy-equivalent prompt should hit")
	}
	if got["insight"] != "x" {
		t.Errorf("unexpected cached payload: %v", got)
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", cache.Len())
	}
}

func TestResponseCache_Expiry(t *testing.T) {
	t.Parallel()

	cache := NewResponseCache(time.Minute)
	base := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	cache.Set("a prompt", map[string]any{"insight": "x"})

	cache.now = func() time.Time { return base.Add(time.Minute + time.Second) }
	if _, ok := cache.Get("a prompt"); ok {
		t.Error("expired entry should miss")
	}
	if cache.Len() != 0 {
		t.Error("expired entry should be removed on read")
	}
}

func TestResponseCache_SetWithTTL(t *testing.T) {
	t.Parallel()

	cache := NewResponseCache(time.Minute)
	base := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	cache.SetWithTTL("a prompt", map[string]any{"insight": "x"}, time.Hour)

	cache.now = func() time.Time { return base.Add(30 * time.Minute) }
	if _, ok := cache.Get("a prompt"); !ok {
		t.Error("entry with extended TTL should still be live")
	}
}
