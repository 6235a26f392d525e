package semver

import "testing"

func TestValidName(t *testing.T) {
	bad := []string{"", "-x", "0foo", "abc%"}
	for _, n := range bad {
		if ValidName(n) {
			t.Errorf("ValidName(%q) = true, want false", n)
		}
	}

	good := []string{"x", "X", "x-y", "x---", "a123", "a.test"}
	for _, n := range good {
		if !ValidName(n) {
			t.Errorf("ValidName(%q) = false, want true", n)
		}
	}
}

func TestDepRoundTrip(t *testing.T) {
	cases := map[string]string{
		"p@1.2":    "p@1.2.0",
		"p@1.2.3":  "p@1.2.3",
		"p@branch": "p@branch",
		"p":        "p",
	}

	for in, want := range cases {
		d, err := ParseDep(in)
		if err != nil {
			t.Errorf("ParseDep(%q) failed: %v", in, err)
			continue
		}
		if got := d.String(); got != want {
			t.Errorf("ParseDep(%q).String() = %q, want %q", in, got, want)
		}
	}
}

func TestParseDepEmptyVersionFails(t *testing.T) {
	if _, err := ParseDep("p@"); err == nil {
		t.Fatalf("ParseDep(\"p@\") succeeded, want error")
	}
}

func TestParseDepInvalidName(t *testing.T) {
	bad := []string{"@1.2", "-x@1.0", "0foo@1.0"}
	for _, s := range bad {
		if _, err := ParseDep(s); err == nil {
			t.Errorf("ParseDep(%q) succeeded, want package-error", s)
		}
	}
}

func TestDepEqual(t *testing.T) {
	a, _ := ParseDep("p@0.1.2")
	b, _ := ParseDep("p@0.1.8")
	x, _ := ParseDep("x@0.1.2")
	z, _ := ParseDep("z@branch")

	if a.Equal(b) {
		t.Errorf("p@0.1.2 should not equal p@0.1.8")
	}
	if a.Equal(x) {
		t.Errorf("p@0.1.2 should not equal x@0.1.2")
	}
	if a.Equal(z) {
		t.Errorf("p@0.1.2 should not equal z@branch")
	}

	a2, _ := ParseDep("p@0.1.2")
	if !a.Equal(a2) {
		t.Errorf("p@0.1.2 should equal itself")
	}
}
