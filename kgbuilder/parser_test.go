package kgbuilder

import "testing"

func TestParseRelationsDirectJSON(t *testing.T) {
	resp := `[{"From": "Cars", "To": "Climate change", "Relation": "drive"}]`
	rels := ParseRelations(resp)
	if len(rels) != 1 {
		t.Fatalf("expected 1 relation, got %d", len(rels))
	}
	if rels[0].From != "Cars" || rels[0].To != "Climate change" || rels[0].Relation != "drive" {
		t.Fatalf("unexpected relation: %+v", rels[0])
	}
}

func TestParseRelationsDirectJSONWithSurroundingProse(t *testing.T) {
	resp := "Sure, here is the answer:\n[{\"From\": \"A\", \"To\": \"B\", \"Relation\": \"rel\"}]\nHope that helps!"
	rels := ParseRelations(resp)
	if len(rels) != 1 {
		t.Fatalf("expected 1 relation, got %d", len(rels))
	}
}

func TestParseRelationsTolerantFallbackMissingQuotes(t *testing.T) {
	resp := `{From: "A", To: "B", Relation: "rel"}`
	rels := ParseRelations(resp)
	if len(rels) != 1 {
		t.Fatalf("expected 1 relation via tolerant fallback, got %d", len(rels))
	}
	if rels[0].From != "A" || rels[0].To != "B" || rels[0].Relation != "rel" {
		t.Fatalf("unexpected relation: %+v", rels[0])
	}
}

func TestParseRelationsTolerantFallbackSplitsConcatenatedDicts(t *testing.T) {
	resp := `{From: "A", To: "B", Relation: "rel1"}{From: "C", To: "D", Relation: "rel2"}`
	rels := ParseRelations(resp)
	if len(rels) != 2 {
		t.Fatalf("expected 2 relations, got %d: %+v", len(rels), rels)
	}
}

func TestParseRelationsCharSubstitution(t *testing.T) {
	resp := `{From: "München", To: "Köln & Bonn", Relation: "connects"}`
	rels := ParseRelations(resp)
	if len(rels) != 1 {
		t.Fatalf("expected 1 relation, got %d", len(rels))
	}
	if rels[0].From != "Muenchen" {
		t.Fatalf("expected umlaut substitution, got %q", rels[0].From)
	}
	if rels[0].To != "Koeln and Bonn" {
		t.Fatalf("expected ampersand/umlaut substitution, got %q", rels[0].To)
	}
}

func TestParseRelationsReturnsNilForGarbage(t *testing.T) {
	rels := ParseRelations("not a relation at all, just prose.")
	if rels != nil {
		t.Fatalf("expected nil for unparseable garbage, got %+v", rels)
	}
}

func TestSanitiseReplacesWhitespaceAndStripsDisallowed(t *testing.T) {
	got := Sanitise("New York City!?")
	want := "New_York_City!"
	if got != want {
		t.Fatalf("Sanitise() = %q, want %q", got, want)
	}
}

func TestSanitiseDropsEverythingForEmptyAfterCleanup(t *testing.T) {
	got := Sanitise("   ")
	if got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}
