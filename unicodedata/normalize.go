package unicodedata

import "golang.org/x/text/unicode/norm"

// Decompose returns the canonical decomposition of ab, if any. It mirrors
// the two-rune-result contract the shaper's normalizer needs (spec §4.2):
// most canonical decompositions are exactly two code points, which is all
// the recursive decomposer in ot_normalize.go consumes.
func Decompose(ab rune) (a, b rune, ok bool) {
	dec := norm.NFD.PropertiesString(string(ab)).Decomposition()
	if dec == nil {
		return 0, 0, false
	}
	runes := []rune(string(dec))
	if len(runes) != 2 {
		return 0, 0, false
	}
	return runes[0], runes[1], true
}

// Compose returns the canonical composition of the pair (a, b), if the
// Unicode Character Database records one and the composition is not
// excluded from canonical composition (e.g. it isn't marked
// Full_Composition_Exclusion).
func Compose(a, b rune) (ab rune, ok bool) {
	// norm doesn't expose a direct pairwise composer, so we drive its
	// streaming composer with the two runes and read back a single result.
	var buf []byte
	buf = append(buf, []byte(string(a))...)
	buf = append(buf, []byte(string(b))...)
	composed := norm.NFC.Bytes(buf)
	runes := []rune(string(composed))
	if len(runes) != 1 {
		return 0, false
	}
	return runes[0], true
}
