package slug

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Carta do Sindicato (1980)", "carta-do-sindicato-1980"},
		{"  Depoimento: João  ", "depoimento-joao"},
		{"Ação Católica Operária", "acao-catolica-operaria"},
		{"Volta Redonda — greve de 1988", "volta-redonda-greve-de-1988"},
		{"---", ""},
		{"", ""},
		{"já-canonico", "ja-canonico"},
		{"MÚLTIPLOS   espaços!!", "multiplos-espacos"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Carta do Sindicato (1980)",
		"çedilha & Água",
		"abc",
		"",
		strings.Repeat("x", 200),
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeIdentityOnCanonical(t *testing.T) {
	for _, in := range []string{"abc", "carta-do-sindicato-1980", "a1-b2-c3"} {
		if got := Normalize(in); got != in {
			t.Errorf("Normalize(%q) = %q, want identity", in, got)
		}
	}
}

func TestNormalizeMaxTruncation(t *testing.T) {
	long := strings.Repeat("ab-", 60)
	got := Normalize(long)
	if len(got) > MaxLength {
		t.Fatalf("normalized slug exceeds max: %d", len(got))
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("truncated slug ends in hyphen: %q", got)
	}
	if NormalizeMax("abcdef", 4) != "abcd" {
		t.Errorf("NormalizeMax(abcdef, 4) = %q", NormalizeMax("abcdef", 4))
	}
}

func TestCheck(t *testing.T) {
	if r := Check(""); !r.Empty || r.Valid || r.TooShort {
		t.Errorf("Check(\"\") = %+v, want empty", r)
	}
	if r := Check("ab"); !r.TooShort || r.Valid || r.Empty {
		t.Errorf("Check(\"ab\") = %+v, want tooShort", r)
	}
	if r := Check("abc"); !r.Valid || r.Empty || r.TooShort {
		t.Errorf("Check(\"abc\") = %+v, want valid", r)
	}
	// validity is judged on the normalized value, not the raw input
	if r := Check("!!"); !r.Empty {
		t.Errorf("Check(\"!!\") = %+v, want empty after normalization", r)
	}
}
