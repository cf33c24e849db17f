package id

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewAndParseRoundTrip(t *testing.T) {
	original := NewPrincipalID()
	if original.IsNil() {
		t.Fatal("generated ID must not be nil")
	}
	if original.Prefix() != PrefixPrincipal {
		t.Fatalf("expected prefix %q, got %q", PrefixPrincipal, original.Prefix())
	}
	if !strings.HasPrefix(original.String(), "prin_") {
		t.Fatalf("expected prin_ string form, got %q", original.String())
	}

	parsed, err := Parse(original.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed != original {
		t.Fatalf("round trip mismatch: %s != %s", parsed, original)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not-a-typeid", "prin_"} {
		if _, err := Parse(s); err == nil {
			t.Errorf("expected Parse(%q) to fail", s)
		}
	}
}

func TestParseWithPrefixMismatch(t *testing.T) {
	tenant := NewTenantID()
	if _, err := ParsePrincipalID(tenant.String()); err == nil {
		t.Fatal("expected a prefix mismatch error")
	}

	got, err := ParseTenantID(tenant.String())
	if err != nil {
		t.Fatal(err)
	}
	if got != tenant {
		t.Fatalf("expected %s, got %s", tenant, got)
	}
}

func TestNilID(t *testing.T) {
	if !Nil.IsNil() {
		t.Fatal("Nil must report IsNil")
	}
	if Nil.String() != "" {
		t.Fatalf("expected empty string form for Nil, got %q", Nil.String())
	}
	if Nil.Prefix() != "" {
		t.Fatalf("expected empty prefix for Nil, got %q", Nil.Prefix())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	original := NewSiteID()
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}

	var decoded SiteID
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded != original {
		t.Fatalf("JSON round trip mismatch: %s != %s", decoded, original)
	}

	var fromEmpty ID
	if err := json.Unmarshal([]byte(`""`), &fromEmpty); err != nil {
		t.Fatal(err)
	}
	if !fromEmpty.IsNil() {
		t.Fatal("expected empty JSON string to decode as Nil")
	}
}

func TestSQLValueAndScan(t *testing.T) {
	original := NewAssignmentID()
	v, err := original.Value()
	if err != nil {
		t.Fatal(err)
	}
	s, ok := v.(string)
	if !ok {
		t.Fatalf("expected string driver value, got %T", v)
	}

	var scanned ID
	if err := scanned.Scan(s); err != nil {
		t.Fatal(err)
	}
	if scanned != original {
		t.Fatalf("scan mismatch: %s != %s", scanned, original)
	}

	// Nil stores NULL and scans back as Nil.
	v, err = Nil.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("expected NULL for Nil, got %v", v)
	}
	var fromNull ID
	if err := fromNull.Scan(nil); err != nil {
		t.Fatal(err)
	}
	if !fromNull.IsNil() {
		t.Fatal("expected NULL to scan as Nil")
	}

	if err := scanned.Scan(42); err == nil {
		t.Fatal("expected scanning an int to fail")
	}
}
