package strings

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitSet(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		exclude []string
		want    []string
	}{
		{"empty", "", nil, nil},
		{"blank", "  ", nil, nil},
		{"duplicates collapse in order", "us,ci,us", nil, []string{"us", "ci"}},
		{"empty tokens dropped", ",id1,,id2,", nil, []string{"id1", "id2"}},
		{"self reference excluded", ",id1,id2,us1000abc,", []string{"us1000abc"}, []string{"id1", "id2"}},
		{"only self", "us1000abc", []string{"us1000abc"}, nil},
		{"trimmed", " nc , ak ", nil, []string{"nc", "ak"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if diff := cmp.Diff(c.want, SplitSet(c.in, ",", c.exclude...)); diff != "" {
				t.Fatalf("SplitSet(%q) mismatch (-want +got):\n%s", c.in, diff)
			}
		})
	}
}

func TestNFC(t *testing.T) {
	decomposed := "Sa\u0303o Paulo" // a + combining tilde
	if got := NFC(decomposed); got != "S\u00e3o Paulo" {
		t.Fatalf("NFC = %q", got)
	}
	plain := "10km SSW of Idyllwild, CA"
	if got := NFC(plain); got != plain {
		t.Fatalf("NFC changed ascii input: %q", got)
	}
}

func TestSQLNullPtrAndDeref(t *testing.T) {
	if SQLNullPtr(nil) != nil {
		t.Fatalf("nil ptr should be nil")
	}
	blank := " "
	if SQLNullPtr(&blank) != nil {
		t.Fatalf("blank ptr should be nil")
	}
	s := "reviewed"
	if SQLNullPtr(&s) != "reviewed" {
		t.Fatalf("value ptr should deref")
	}
	if Deref(nil) != "" || Deref(&s) != "reviewed" {
		t.Fatalf("Deref mismatch")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc…" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Fatalf("Truncate short = %q", got)
	}
	// "é" is two bytes; cutting inside it backs off to the rune start
	if got := Truncate("aé", 2); got != "a…" {
		t.Fatalf("Truncate utf8 = %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Fatalf("Truncate n=0 = %q", got)
	}
}
