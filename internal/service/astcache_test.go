package service

import "testing"

func TestASTCache_MissThenHit(t *testing.T) {
	t.Parallel()

	c := newASTCache(8)
	_, hit, err := c.compile("age > 18")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if hit {
		t.Error("first compile of an expression should be a miss")
	}

	_, hit, err = c.compile("age > 18")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if !hit {
		t.Error("second compile of the same expression should be a hit")
	}
}

func TestASTCache_SyntaxErrorNotCached(t *testing.T) {
	t.Parallel()

	c := newASTCache(8)
	_, _, err := c.compile("age >")
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	if len(c.entries) != 0 {
		t.Errorf("a failed compile should not populate the cache, len = %d", len(c.entries))
	}
}

func TestASTCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := newASTCache(2)
	if _, _, err := c.compile("a == 1"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.compile("b == 2"); err != nil {
		t.Fatal(err)
	}
	// Touch "a == 1" so it becomes most-recently-used.
	if _, hit, err := c.compile("a == 1"); err != nil || !hit {
		t.Fatalf("expected a cache hit, got hit=%v err=%v", hit, err)
	}
	// Adding a third entry should evict "b == 2", the least recently used.
	if _, _, err := c.compile("c == 3"); err != nil {
		t.Fatal(err)
	}

	if len(c.entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(c.entries))
	}
	if _, hit, err := c.compile("b == 2"); err != nil || hit {
		t.Errorf("expected 'b == 2' to have been evicted, got hit=%v err=%v", hit, err)
	}
	if _, hit, err := c.compile("a == 1"); err != nil || !hit {
		t.Errorf("expected 'a == 1' to still be cached, got hit=%v err=%v", hit, err)
	}
}

func TestASTCache_DistinctExpressionsDoNotCollide(t *testing.T) {
	t.Parallel()

	c := newASTCache(8)
	p1, _, err := c.compile("a == 1")
	if err != nil {
		t.Fatal(err)
	}
	p2, _, err := c.compile("b == 2")
	if err != nil {
		t.Fatal(err)
	}
	if p1 == p2 {
		t.Error("distinct expressions should not share a cached program")
	}
}
