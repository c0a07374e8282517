package valueobjects

import (
	"testing"
)

func mustCategoryID(t *testing.T, s string) CategoryID {
	t.Helper()
	id, err := NewCategoryIDFromString(s)
	if err != nil {
		t.Fatalf("NewCategoryIDFromString(%q) error = %v", s, err)
	}
	return id
}

func TestNewSimilarityEdge_Canonical(t *testing.T) {
	// "0a..." orders before "7b..." lexicographically
	low := mustCategoryID(t, "0a8b9c0d-1e2f-4a3b-8c4d-5e6f7a8b9c0d")
	high := mustCategoryID(t, "7b8b9c0d-1e2f-4a3b-8c4d-5e6f7a8b9c0d")

	forward, err := NewSimilarityEdge(low, high)
	if err != nil {
		t.Fatalf("NewSimilarityEdge(low, high) error = %v", err)
	}
	reverse, err := NewSimilarityEdge(high, low)
	if err != nil {
		t.Fatalf("NewSimilarityEdge(high, low) error = %v", err)
	}

	if !forward.Equals(reverse) {
		t.Error("edges built from swapped operands should be equal")
	}
	if !forward.First().Equals(low) {
		t.Errorf("First() = %s, want the smaller ID %s", forward.First(), low)
	}
	if !forward.Second().Equals(high) {
		t.Errorf("Second() = %s, want the larger ID %s", forward.Second(), high)
	}
	if forward.Key() != reverse.Key() {
		t.Errorf("Key() differs across operand order: %q vs %q", forward.Key(), reverse.Key())
	}
}

func TestNewSimilarityEdge_Rejections(t *testing.T) {
	id := mustCategoryID(t, "0a8b9c0d-1e2f-4a3b-8c4d-5e6f7a8b9c0d")

	if _, err := NewSimilarityEdge(id, id); err == nil {
		t.Error("expected self-link to be rejected")
	}
	if _, err := NewSimilarityEdge(id, CategoryID{}); err == nil {
		t.Error("expected zero endpoint to be rejected")
	}
	if _, err := NewSimilarityEdge(CategoryID{}, id); err == nil {
		t.Error("expected zero endpoint to be rejected")
	}
}

func TestSimilarityEdge_Other(t *testing.T) {
	a := mustCategoryID(t, "0a8b9c0d-1e2f-4a3b-8c4d-5e6f7a8b9c0d")
	b := mustCategoryID(t, "7b8b9c0d-1e2f-4a3b-8c4d-5e6f7a8b9c0d")
	c := mustCategoryID(t, "9c8b9c0d-1e2f-4a3b-8c4d-5e6f7a8b9c0d")

	edge, err := NewSimilarityEdge(a, b)
	if err != nil {
		t.Fatalf("NewSimilarityEdge() error = %v", err)
	}

	if other, ok := edge.Other(a); !ok || !other.Equals(b) {
		t.Errorf("Other(a) = %v, %v; want %v, true", other, ok, b)
	}
	if other, ok := edge.Other(b); !ok || !other.Equals(a) {
		t.Errorf("Other(b) = %v, %v; want %v, true", other, ok, a)
	}
	if _, ok := edge.Other(c); ok {
		t.Error("Other() on a non-member ID should report false")
	}

	if !edge.Contains(a) || !edge.Contains(b) {
		t.Error("Contains() should be true for both endpoints")
	}
	if edge.Contains(c) {
		t.Error("Contains() should be false for a non-member ID")
	}
}
