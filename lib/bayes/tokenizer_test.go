package bayes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "Free money NOW", []string{"free", "money", "now"}},
		{"punctuation collapsed", "win!!! cash,prize...", []string{"win", "cash", "prize"}},
		{"digits and underscore kept", "call 0800_555 now", []string{"call", "0800_555", "now"}},
		{"mixed separators", "free--money\t(now)", []string{"free", "money", "now"}},
		{"unicode letters", "Привет, МИР!", []string{"привет", "мир"}},
		{"accented", "déjà-vu", []string{"déjà", "vu"}},
		{"empty", "", []string{}},
		{"whitespace only", " \t\n", []string{}},
		{"symbols only", "!!! ??? ...", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestTokenize_NormalizedStable(t *testing.T) {
	// re-tokenizing already-normalized text is a no-op on the token sequence
	inputs := []string{
		"Free money!!! Now?",
		"WINNER!! As a valued network customer you have been selected",
		"Déjà vu, всё ok",
		"a_b 12x  ,,, end.",
		"",
	}
	for _, in := range inputs {
		tokens := Tokenize(in)
		rejoined := strings.Join(tokens, " ")
		assert.Equal(t, tokens, Tokenize(rejoined), "input %q", in)
	}
}
