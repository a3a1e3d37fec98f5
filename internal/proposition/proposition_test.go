package proposition

import "testing"

func TestParseStripsBulletsAndFiltersMeta(t *testing.T) {
	raw := "- The circuit breaker has three states.\n" +
		"* Here are the propositions extracted from this document.\n" +
		"1) Half-open probes require consecutive successes to close.\n" +
		"ok\n"
	got := Parse(raw)
	want := []string{
		"The circuit breaker has three states.",
		"Half-open probes require consecutive successes to close.",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %q want %q", got[i], want[i])
		}
	}
}

func TestValidRejectsTooShort(t *testing.T) {
	if Valid("ok") {
		t.Fatal("expected short proposition to be invalid")
	}
}

func TestValidRejectsFewerThanFiveWords(t *testing.T) {
	if Valid("four words right here") {
		t.Fatal("expected a four-word proposition to be invalid")
	}
}

func TestValidRejectsNoAlphabeticRun(t *testing.T) {
	if Valid("12 34 56 78 90 11 22") {
		t.Fatal("expected a proposition with no real word to be invalid")
	}
}

func TestParseDeduplicatesPreservingOrder(t *testing.T) {
	raw := "The circuit breaker has three states.\n" +
		"Half-open probes require consecutive successes to close.\n" +
		"The circuit breaker has three states.\n"
	got := Parse(raw)
	want := []string{
		"The circuit breaker has three states.",
		"Half-open probes require consecutive successes to close.",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %q want %q", got[i], want[i])
		}
	}
}
