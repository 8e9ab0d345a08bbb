package catalog

import "testing"

func TestDefaultNormalize(t *testing.T) {
	c := Default()

	cases := []struct {
		in  string
		key string
		ok  bool
	}{
		{"Groceries", "groceries", true},
		{"groceries", "groceries", true},
		{"GROCERIES", "groceries", true},
		{" Transport ", "transport", true},
		{"Supermarket", "groceries", true},
		{"Bills", "utilities", true},
		{"Restaurants", "", false},
		{"", "", false},
		{"   ", "", false},
	}
	for _, tc := range cases {
		cat, ok := c.Normalize(tc.in)
		if ok != tc.ok {
			t.Fatalf("%q: expected ok=%v, got %v", tc.in, tc.ok, ok)
		}
		if ok && cat.Key != tc.key {
			t.Fatalf("%q: expected key %q, got %q", tc.in, tc.key, cat.Key)
		}
	}
}

func TestParseRejectsBadDocuments(t *testing.T) {
	if _, err := Parse([]byte("categories: []")); err == nil {
		t.Fatalf("expected error for empty catalog")
	}
	doc := []byte("categories:\n  - key: Groceries\n    display: Groceries\n")
	if _, err := Parse(doc); err == nil {
		t.Fatalf("expected error for non-lowercase key")
	}
}

func TestContains(t *testing.T) {
	c := Default()
	if !c.Contains("groceries") {
		t.Fatalf("expected groceries to be canonical")
	}
	if c.Contains("Groceries") {
		t.Fatalf("display name is not a canonical key")
	}
}
