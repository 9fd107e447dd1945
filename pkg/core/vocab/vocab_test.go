package vocab

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTableShape(t *testing.T) {
	v := Default()

	if v.Len() != 35 {
		t.Errorf("Expected 35 canonical items, got %d", v.Len())
	}

	keys := v.Keys()
	if keys[0] != "revenue" {
		t.Errorf("Expected first key 'revenue', got %q", keys[0])
	}
	if keys[len(keys)-1] != "liabilities_and_equity" {
		t.Errorf("Expected last key 'liabilities_and_equity', got %q", keys[len(keys)-1])
	}

	// Preference order inside a synonym list must survive construction.
	syns := v.Synonyms("total_equity")
	expected := []string{"Total Stockholder Equity", "Stockholders Equity", "Total Equity", "totalStockholderEquity"}
	if len(syns) != len(expected) {
		t.Fatalf("Expected %d total_equity synonyms, got %d", len(expected), len(syns))
	}
	for i := range expected {
		if syns[i] != expected[i] {
			t.Errorf("total_equity synonym %d: expected %q, got %q", i, expected[i], syns[i])
		}
	}

	if v.Has("free_cash_flow") {
		t.Error("Expected 'free_cash_flow' to be outside the vocabulary")
	}
}

func TestResolveTakesFirstSynonym(t *testing.T) {
	v := Default()

	// Both spellings present: the earlier one in the preference list must
	// win no matter how the map iterates.
	raw := map[string]float64{
		"Revenue":       200,
		"Total Revenue": 100,
	}

	for i := 0; i < 50; i++ {
		resolved := v.Resolve(raw)
		m, ok := resolved["revenue"]
		if !ok {
			t.Fatal("Expected revenue to resolve")
		}
		if m.Value != 100 {
			t.Fatalf("Expected revenue 100 from 'Total Revenue', got %f from %q", m.Value, m.Label)
		}
		if m.Label != "Total Revenue" {
			t.Fatalf("Expected source label 'Total Revenue', got %q", m.Label)
		}
	}
}

func TestResolveLeavesUnmatchedAbsent(t *testing.T) {
	v := Default()

	resolved := v.Resolve(map[string]float64{
		"Total Revenue": 500,
		"Made Up Label": 1,
	})

	if len(resolved) != 1 {
		t.Errorf("Expected exactly one resolved item, got %d", len(resolved))
	}
	if _, ok := resolved["net_income"]; ok {
		t.Error("net_income must stay absent, not default to zero")
	}
}

func TestResolveMutationSafety(t *testing.T) {
	v := Default()

	syns := v.Synonyms("revenue")
	syns[0] = "Hacked"

	resolved := v.Resolve(map[string]float64{"Total Revenue": 42})
	if m := resolved["revenue"]; m.Value != 42 {
		t.Errorf("Vocabulary was mutated through Synonyms(); revenue = %+v", m)
	}
}

func TestWithOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.hjson")

	// Hjson: comments and unquoted keys are allowed.
	overlay := `{
  # vendor-specific spellings seen in the wild
  revenue: ["Sales Revenue Net"]
  inventory: ["Inventories"]
}`
	if err := os.WriteFile(path, []byte(overlay), 0644); err != nil {
		t.Fatal(err)
	}

	base := Default()
	v, err := base.WithOverlay(path)
	if err != nil {
		t.Fatalf("WithOverlay failed: %v", err)
	}

	// Overlay spellings resolve, but only after every built-in one.
	resolved := v.Resolve(map[string]float64{"Sales Revenue Net": 7})
	if m := resolved["revenue"]; m.Value != 7 {
		t.Errorf("Expected overlay synonym to resolve revenue=7, got %+v", m)
	}

	resolved = v.Resolve(map[string]float64{
		"Sales Revenue Net": 7,
		"totalRevenue":      9,
	})
	if m := resolved["revenue"]; m.Value != 9 {
		t.Errorf("Built-in synonym must outrank overlay; got %+v", m)
	}

	// The base vocabulary must be untouched.
	resolved = base.Resolve(map[string]float64{"Sales Revenue Net": 7})
	if _, ok := resolved["revenue"]; ok {
		t.Error("WithOverlay mutated the receiver")
	}
}

func TestWithOverlayRejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.hjson")
	if err := os.WriteFile(path, []byte(`{ebitda: ["EBITDA"]}`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Default().WithOverlay(path); err == nil {
		t.Error("Expected unknown canonical key to be rejected")
	}
}
