package normalize

import "testing"

func TestTagName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"important", "important"},
		{"  Important  ", "Important"},
		{"to   read", "to read"},
		{"Slow Burn", "Slow Burn"},
		{"\tmethods\n", "methods"},
		{"   ", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := TagName(tt.in); got != tt.want {
			t.Errorf("TagName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFold_CaseInsensitiveIdentity(t *testing.T) {
	pairs := [][2]string{
		{"Important", "important"},
		{"IMPORTANT", "  important "},
		{"To Read", "to   read"},
	}

	for _, p := range pairs {
		if Fold(p[0]) != Fold(p[1]) {
			t.Errorf("Fold(%q) != Fold(%q): %q vs %q", p[0], p[1], Fold(p[0]), Fold(p[1]))
		}
	}
}

func TestFold_UnicodeNormalization(t *testing.T) {
	// Composed (U+00E9) vs decomposed (e + U+0301) spellings must fold equal.
	composed := "r\u00e9sum\u00e9"
	decomposed := "re\u0301sume\u0301"

	if Fold(composed) != Fold(decomposed) {
		t.Errorf("NFC fold mismatch: %q vs %q", Fold(composed), Fold(decomposed))
	}
}
