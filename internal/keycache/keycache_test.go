package keycache

import (
	"testing"

	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/pagecrypto"
)

func testSecret(b byte) model.MasterSecret {
	var s model.MasterSecret
	for i := range s {
		s[i] = b
	}
	return s
}

func testSalt(b byte) model.Salt {
	var s model.Salt
	for i := range s {
		s[i] = b
	}
	return s
}

func TestGetOrCompute_HitsAfterFirstMiss(t *testing.T) {
	c := New(pagecrypto.V4, 0)
	secret, salt := testSecret(1), testSalt(2)

	got1 := c.GetOrCompute(secret, salt)
	got2 := c.GetOrCompute(secret, salt)

	if got1 != got2 {
		t.Fatalf("expected identical derived keys across calls")
	}

	stats := c.Stats()
	if stats.CacheMisses != 1 || stats.CacheHits != 1 || stats.PBKDF2Runs != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestGetOrCompute_DifferentInputsMiss(t *testing.T) {
	c := New(pagecrypto.V4, 0)
	c.GetOrCompute(testSecret(1), testSalt(1))
	c.GetOrCompute(testSecret(2), testSalt(1))
	c.GetOrCompute(testSecret(1), testSalt(2))

	if c.Size() != 3 {
		t.Fatalf("expected 3 distinct entries, got %d", c.Size())
	}
}

func TestEvictIfFull_BoundsSize(t *testing.T) {
	c := New(pagecrypto.V4, 4)
	for i := byte(0); i < 10; i++ {
		c.GetOrCompute(testSecret(i), testSalt(0))
	}
	if c.Size() > 4 {
		t.Fatalf("expected cache to stay bounded at 4, got %d", c.Size())
	}
}

func TestClear(t *testing.T) {
	c := New(pagecrypto.V4, 0)
	c.GetOrCompute(testSecret(1), testSalt(1))
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("expected empty cache after Clear, got %d", c.Size())
	}
}

func TestBatchPrecompute_EmptyInput(t *testing.T) {
	// BatchPrecompute reads salts from real files; here we only check
	// that an empty path list is handled without panicking, since
	// exercising the file-reading path needs on-disk fixtures that
	// belong in a decryptengine-level test instead.
	c := New(pagecrypto.V4, 0)
	results := c.BatchPrecompute(testSecret(1), nil)
	if len(results) != 0 {
		t.Fatalf("expected no results for empty input, got %d", len(results))
	}
}
