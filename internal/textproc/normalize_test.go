package textproc

import (
	"testing"
	"unicode/utf8"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercase", "Hello World", "hello world"},
		{"url", "Visit http://evil.example.com/login now", "visit URL now"},
		{"www", "go to www.bank.com today", "go to URL today"},
		{"email", "Contact me at bob@example.com", "contact me at EMAIL"},
		{"digits", "Order #12345", "order NUMBER"},
		{"money", "Pay $1,000 today", "pay NUMBER NUMBER today"},
		{"punctuation", "URGENT: Your account!", "urgent your account"},
		{"whitespace", "  spaced\t\nout  ", "spaced out"},
		{"underscore kept", "snake_case stays", "snake_case stays"},
		{"only punctuation", "!!! ??? ...", ""},
		{"unicode letters", "Ünïcode Straße", "ünïcode straße"},
		{"placeholder inside word", "CURLY braces", "curly braces"},
		{"placeholder prefix", "NUMBERS", "numbers"},
		{"placeholder infix", "FURLONG", "furlong"},
		{"placeholder plural", "EMAILS and URLs", "emails and urls"},
		{"url before nbsp", "visit www.bank.com\u00a0now", "visit URL now"},
		{"email before em space", "mail a@b.com\u2003today please", "mail EMAIL today please"},
		{"url before ideographic space", "see http://x.example\u3000ok", "see URL ok"},
		{"digit before url", "1http://x.example", "NUMBERURL"},
		{"digits inside word", "abc123def", "abcNUMBERdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"URGENT: Your account has been compromised! Click here immediately.",
		"Congratulations! You've won $1,000,000 in the lottery.",
		"Mail admin@corp.example or visit https://corp.example/reset?id=42",
		"Tracking number: ABC123, arriving in 3-5 business days.",
		"CURLY braces and NUMBERS like 7",
		"FURLONG EMAILS URLs",
		"1http://x.example abc123def",
		"visit www.bank.com\u00a0now or mail a@b.com\u2003today",
		"mixed_Under_Score and ÉLAN",
		"",
		"   ",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeInvalidUTF8(t *testing.T) {
	got := Normalize("bad\xffbyte \xc3")
	if !utf8.ValidString(got) {
		t.Fatalf("Normalize returned invalid UTF-8: %q", got)
	}
	if got != "badbyte" {
		t.Errorf("Normalize = %q, want %q", got, "badbyte")
	}
}

func TestNormalizeAll(t *testing.T) {
	got := NormalizeAll([]string{"A B", "", "C 1"})
	want := []string{"a b", "", "c NUMBER"}
	if len(got) != len(want) {
		t.Fatalf("got %d texts, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("text %d = %q, want %q", i, got[i], want[i])
		}
	}
}
