package metadata

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "metadata.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	content := []byte(`{"title":"summarizer","model":"gpt-4"}`)

	ref, err := store.Put(content)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(ref, "b3:") {
		t.Fatalf("ref = %q, want b3 prefix", ref)
	}
	if ref != Ref(content) {
		t.Fatalf("stored ref %q differs from computed ref %q", ref, Ref(content))
	}

	got, err := store.Get(ref)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestPutIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	content := []byte("same document")
	first, err := store.Put(content)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := store.Put(content)
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if first != second {
		t.Fatalf("refs differ: %q vs %q", first, second)
	}
}

func TestGetUnknownRef(t *testing.T) {
	store := newTestStore(t)
	ref := Ref([]byte("never stored"))
	if _, err := store.Get(ref); !errors.Is(err, ErrMetadataUnavailable) {
		t.Fatalf("error = %v, want ErrMetadataUnavailable", err)
	}
	ok, err := store.Has(ref)
	if err != nil || ok {
		t.Fatalf("has = %v err=%v, want false", ok, err)
	}
}

func TestInvalidRefs(t *testing.T) {
	store := newTestStore(t)
	for _, ref := range []string{"", "ipfs://something", "b3:xyz", "b3:abcd"} {
		if _, err := store.Get(ref); !errors.Is(err, ErrInvalidRef) {
			t.Fatalf("ref %q error = %v, want ErrInvalidRef", ref, err)
		}
	}
}

func TestDistinctContentDistinctRefs(t *testing.T) {
	store := newTestStore(t)
	a, err := store.Put([]byte("document a"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	b, err := store.Put([]byte("document b"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if a == b {
		t.Fatalf("distinct documents share a ref")
	}
}
