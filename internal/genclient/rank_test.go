package genclient

import (
	"context"
	"fmt"
	"testing"
)

func TestRankContextDropsInvalidIndices(t *testing.T) {
	provider := &fakeProvider{response: `{"ranked_indices": [5, 1, 2], "reasoning": "test"}`}
	client := New(provider, "test-model")

	items := []string{"a", "b", "c", "d"}
	got := client.RankContext(context.Background(), "query", items, 3)
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("expected [b c], got %v", got)
	}
}

func TestRankContextFallsBackOnMalformedResponse(t *testing.T) {
	provider := &fakeProvider{response: "not json at all"}
	client := New(provider, "test-model")

	items := []string{"a", "b", "c", "d"}
	got := client.RankContext(context.Background(), "query", items, 3)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("expected positional fallback [a b c], got %v", got)
	}
}

func TestRankContextFallsBackOnTransportError(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("unreachable")}
	client := New(provider, "test-model")

	items := []string{"a", "b"}
	got := client.RankContext(context.Background(), "query", items, 3)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected fallback [a b], got %v", got)
	}
}

func TestRankContextEmptyItems(t *testing.T) {
	provider := &fakeProvider{response: `{"ranked_indices": [0]}`}
	client := New(provider, "test-model")

	if got := client.RankContext(context.Background(), "query", nil, 3); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestRankContextRespectsTopK(t *testing.T) {
	provider := &fakeProvider{response: `{"ranked_indices": [3, 2, 1, 0]}`}
	client := New(provider, "test-model")

	items := []string{"a", "b", "c", "d"}
	got := client.RankContext(context.Background(), "query", items, 2)
	if len(got) != 2 || got[0] != "d" || got[1] != "c" {
		t.Fatalf("expected [d c], got %v", got)
	}
}
