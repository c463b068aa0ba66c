package keyword

import "strings"

// common single-character substitutions used to dodge wordlist matching
var leetReplacer = strings.NewReplacer(
	"0", "o",
	"1", "i",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"8", "b",
	"@", "a",
	"$", "s",
	"!", "i",
	"+", "t",
)

// Folds common "leetspeak" character substitutions back to their plain-ASCII
// letters. Applied after Slugify/TokenizeText, before wordlist lookup.
func FoldLeet(tok string) string {
	return leetReplacer.Replace(tok)
}

// Normalizes a single token for wordlist matching: lower-case, leet fold,
// and English de-pluralization.
func NormalizeToken(tok string) string {
	tok = FoldLeet(strings.ToLower(tok))
	return strings.TrimSuffix(tok, "s")
}
