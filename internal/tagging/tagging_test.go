package tagging

import "testing"

func TestNormalizeLowercasesAndSingularizes(t *testing.T) {
	got := Normalize("Machine Learning : Transformers")
	want := "machine-learning:transformer"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if Normalize("   ") != "" {
		t.Fatal("expected empty normalization for blank input")
	}
}

func TestValidRejectsBadSegments(t *testing.T) {
	if Valid("topic::ml") {
		t.Fatal("expected empty segment to be invalid")
	}
	if !Valid("topic:ml-basics") {
		t.Fatal("expected well-formed tag to be valid")
	}
}

func TestValidRejectsTooDeep(t *testing.T) {
	if Valid("a:b:c:d:e") {
		t.Fatal("expected a tag deeper than MaxDepth to be invalid")
	}
	if !Valid("a:b:c:d") {
		t.Fatal("expected a tag exactly at MaxDepth to be valid")
	}
}

func TestValidRejectsDuplicateSegments(t *testing.T) {
	if Valid("ai:llm:llm") {
		t.Fatal("expected a repeated segment to be invalid")
	}
}

func TestValidRejectsSelfContainment(t *testing.T) {
	if Valid("ai:ai") {
		t.Fatal("expected first segment == last segment to be invalid")
	}
}

func TestChainReturnsAncestorInclusivePrefixes(t *testing.T) {
	got := Chain("topic:ml:transformer")
	want := []string{"topic", "topic:ml", "topic:ml:transformer"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestExpandWithDescendantsDedupes(t *testing.T) {
	descendants := func(name string) []string {
		if name == "topic" {
			return []string{"topic:ml", "topic:ml"}
		}
		return nil
	}
	got := ExpandWithDescendants([]string{"topic", "topic:ml"}, descendants)
	if len(got) != 2 {
		t.Fatalf("expected dedup to 2 entries, got %v", got)
	}
}
