package semver

import "testing"

func mustParse(t *testing.T, s string) Version {
	t.Helper()
	v, err := ParseVersion(s)
	if err != nil {
		t.Fatalf("ParseVersion(%q) failed: %v", s, err)
	}
	return v
}

func TestParseVersionNumeric(t *testing.T) {
	cases := []struct {
		in              string
		major, min, pat int64
	}{
		{"1", 1, 0, 0},
		{"1.2", 1, 2, 0},
		{"1.2.3", 1, 2, 3},
	}

	for _, c := range cases {
		v := mustParse(t, c.in)
		if v.IsBranch() {
			t.Errorf("ParseVersion(%q) is a branch version, want numeric", c.in)
			continue
		}
		if v.sv.Major() != c.major || v.sv.Minor() != c.min || v.sv.Patch() != c.pat {
			t.Errorf("ParseVersion(%q) = %d.%d.%d, want %d.%d.%d",
				c.in, v.sv.Major(), v.sv.Minor(), v.sv.Patch(), c.major, c.min, c.pat)
		}
	}
}

func TestParseVersionBranch(t *testing.T) {
	v := mustParse(t, "master")
	if !v.IsBranch() {
		t.Fatalf("ParseVersion(%q) is numeric, want branch", "master")
	}
	if b, _ := v.Branch(); b != "master" {
		t.Errorf("Branch() = %q, want %q", b, "master")
	}
}

func TestParseVersionRejectsDigitLedIdentifiers(t *testing.T) {
	for _, s := range []string{"", "0foo", "1.2.3.4"} {
		if _, err := ParseVersion(s); err == nil {
			t.Errorf("ParseVersion(%q) succeeded, want error", s)
		}
	}
}

func TestCompatible(t *testing.T) {
	v120 := mustParse(t, "1.20.0")
	v121 := mustParse(t, "1.21.5")
	v200 := mustParse(t, "2.0.0")
	master := mustParse(t, "master")
	test := mustParse(t, "test")

	if !Compatible(v120, v121) {
		t.Errorf("expected 1.20.0 and 1.21.5 to be compatible")
	}
	if Compatible(v120, v200) {
		t.Errorf("expected 1.20.0 and 2.0.0 to be incompatible")
	}
	if !Compatible(master, master) {
		t.Errorf("expected master and master to be compatible")
	}
	if Compatible(master, test) {
		t.Errorf("expected master and test to be incompatible")
	}
	if Compatible(v120, master) {
		t.Errorf("expected numeric and branch versions to be incompatible")
	}
}

func TestMaxPatch(t *testing.T) {
	a := mustParse(t, "1.2.3")
	b := mustParse(t, "1.2.8")
	m, err := Max(a, b)
	if err != nil {
		t.Fatalf("Max: %v", err)
	}
	if !m.Equal(b) {
		t.Errorf("Max(1.2.3, 1.2.8) = %s, want 1.2.8", m)
	}
}

func TestMaxMinor(t *testing.T) {
	a := mustParse(t, "1.3.0")
	b := mustParse(t, "1.21.0")
	m, err := Max(a, b)
	if err != nil {
		t.Fatalf("Max: %v", err)
	}
	if !m.Equal(b) {
		t.Errorf("Max(1.3.0, 1.21.0) = %s, want 1.21.0", m)
	}
}

func TestMaxSame(t *testing.T) {
	a := mustParse(t, "1.2.3")
	m, err := Max(a, a)
	if err != nil {
		t.Fatalf("Max: %v", err)
	}
	if !m.Equal(a) {
		t.Errorf("Max(v, v) = %s, want %s", m, a)
	}
}

func TestMaxMajorConflict(t *testing.T) {
	a := mustParse(t, "1.2.3")
	b := mustParse(t, "2.0.0")
	if _, err := Max(a, b); err == nil {
		t.Fatalf("Max(1.2.3, 2.0.0) succeeded, want version-conflict")
	}
}
