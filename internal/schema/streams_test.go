package schema

import "testing"

func TestStreamOrdering(t *testing.T) {
	if StreamOrdering(StreamInteraction) != "fifo" {
		t.Fatalf("expected fifo for interaction")
	}
	if StreamOrdering(StreamRefresh) != "lifo" {
		t.Fatalf("expected lifo for refresh")
	}
	if StreamOrdering("unknown") != "lifo" {
		t.Fatalf("expected lifo for unknown")
	}
}

func TestValidStream(t *testing.T) {
	for _, s := range ProviderStreams {
		if !ValidStream(s) {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if ValidStream("task_input") {
		t.Fatalf("expected task_input to be rejected")
	}
}

func TestGetMeta(t *testing.T) {
	meta := map[string]any{MetaItemID: "a", MetaVisible: true, "n": 3}
	if GetMetaString(meta, MetaItemID) != "a" {
		t.Fatalf("expected item id")
	}
	if GetMetaString(meta, "n") != "" {
		t.Fatalf("expected empty string for non-string value")
	}
	if !GetMetaBool(meta, MetaVisible) || GetMetaBool(nil, MetaVisible) {
		t.Fatalf("unexpected bool lookup")
	}
}
