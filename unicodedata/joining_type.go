package unicodedata

// JoiningType mirrors the Unicode Arabic_Joining_Type property used by the
// Arabic/Syriac/N'Ko shaper's neighbour state machine (spec §4.7).
type JoiningType uint8

const (
	JoiningTypeU JoiningType = iota // Non_Joining
	JoiningTypeL                    // Left_Joining
	JoiningTypeR                    // Right_Joining
	JoiningTypeD                    // Dual_Joining
	JoiningTypeC                    // Join_Causing (e.g. ZWJ, tatweel)
	JoiningTypeT                    // Transparent (combining marks: invisible to joining)
	JoiningTypeG                    // Ignored_Group (e.g. ZWNJ)
)

// joiningRanges holds the common dual/right/transparent joining blocks:
// Arabic, Syriac, N'Ko, Mandaic. This is the subset that matters for the
// shaping decisions in harfbuzz/ot_arabic.go; a handful of rarely-seen script
// extensions are intentionally not enumerated.
var joiningRanges = []struct {
	lo, hi rune
	jt     JoiningType
}{
	{0x0600, 0x0605, JoiningTypeT}, // Arabic number signs, transparent
	{0x0610, 0x061A, JoiningTypeT}, // Arabic marks
	{0x064B, 0x065F, JoiningTypeT}, // Arabic combining marks (fatha..)
	{0x0670, 0x0670, JoiningTypeT}, // superscript alef
	{0x06D6, 0x06DC, JoiningTypeT},
	{0x06DF, 0x06E4, JoiningTypeT},
	{0x06E7, 0x06E8, JoiningTypeT},
	{0x06EA, 0x06ED, JoiningTypeT},

	{0x0621, 0x0621, JoiningTypeU}, // HAMZA
	{0x0622, 0x0623, JoiningTypeR}, // ALEF WITH MADDA/HAMZA ABOVE
	{0x0624, 0x0624, JoiningTypeR}, // WAW WITH HAMZA ABOVE
	{0x0625, 0x0625, JoiningTypeR}, // ALEF WITH HAMZA BELOW
	{0x0626, 0x0626, JoiningTypeD}, // YEH WITH HAMZA ABOVE
	{0x0627, 0x0627, JoiningTypeR}, // ALEF
	{0x0628, 0x0628, JoiningTypeD}, // BEH
	{0x0629, 0x0629, JoiningTypeR}, // TEH MARBUTA
	{0x062A, 0x062B, JoiningTypeD}, // TEH, THEH
	{0x062C, 0x062E, JoiningTypeD}, // JEEM, HAH, KHAH
	{0x062F, 0x0630, JoiningTypeR}, // DAL, THAL
	{0x0631, 0x0632, JoiningTypeR}, // REH, ZAIN
	{0x0633, 0x0634, JoiningTypeD}, // SEEN, SHEEN
	{0x0635, 0x0638, JoiningTypeD}, // SAD..ZAH
	{0x0639, 0x063A, JoiningTypeD}, // AIN, GHAIN
	{0x0641, 0x0642, JoiningTypeD}, // FEH, QAF
	{0x0643, 0x0643, JoiningTypeD}, // KAF
	{0x0644, 0x0644, JoiningTypeD}, // LAM
	{0x0645, 0x0645, JoiningTypeD}, // MEEM
	{0x0646, 0x0646, JoiningTypeD}, // NOON
	{0x0647, 0x0647, JoiningTypeD}, // HEH
	{0x0648, 0x0648, JoiningTypeR}, // WAW
	{0x0649, 0x064A, JoiningTypeD}, // ALEF MAKSURA, YEH

	{0x0671, 0x0673, JoiningTypeR}, // ALEF variants
	{0x0674, 0x0674, JoiningTypeU},
	{0x0675, 0x0677, JoiningTypeR},
	{0x0678, 0x0687, JoiningTypeD},
	{0x0688, 0x0699, JoiningTypeR},
	{0x069A, 0x06BF, JoiningTypeD},
	{0x06C0, 0x06C0, JoiningTypeR},
	{0x06C1, 0x06C2, JoiningTypeD},
	{0x06C3, 0x06CB, JoiningTypeR},
	{0x06CC, 0x06CC, JoiningTypeD},
	{0x06CD, 0x06CD, JoiningTypeR},
	{0x06CE, 0x06CE, JoiningTypeD},
	{0x06CF, 0x06CF, JoiningTypeR},
	{0x06D0, 0x06D1, JoiningTypeD},
	{0x06D2, 0x06D3, JoiningTypeR},
	{0x06D5, 0x06D5, JoiningTypeR},

	{0x200C, 0x200C, JoiningTypeG}, // ZWNJ
	{0x200D, 0x200D, JoiningTypeC}, // ZWJ
	{0x0640, 0x0640, JoiningTypeC}, // TATWEEL

	// Syriac
	{0x0710, 0x0710, JoiningTypeR},
	{0x0712, 0x0713, JoiningTypeD},
	{0x0714, 0x0715, JoiningTypeR},
	{0x0716, 0x0717, JoiningTypeR},
	{0x0718, 0x0719, JoiningTypeR},
	{0x071A, 0x071B, JoiningTypeD},
	{0x071D, 0x071D, JoiningTypeD},
	{0x071E, 0x071E, JoiningTypeR},
	{0x071F, 0x0723, JoiningTypeD},
	{0x0724, 0x0724, JoiningTypeR},
	{0x0725, 0x0727, JoiningTypeD},
	{0x0728, 0x0728, JoiningTypeR},
	{0x0729, 0x0729, JoiningTypeD},
	{0x072A, 0x072A, JoiningTypeR},
	{0x072B, 0x072B, JoiningTypeD},
	{0x072C, 0x072C, JoiningTypeR},
	{0x072D, 0x072E, JoiningTypeD},
	{0x072F, 0x072F, JoiningTypeR},

	// N'Ko
	{0x07CA, 0x07EA, JoiningTypeD},
	{0x07FA, 0x07FA, JoiningTypeC},

	// Mandaic
	{0x0840, 0x0840, JoiningTypeR},
	{0x0841, 0x0845, JoiningTypeD},
	{0x0846, 0x0846, JoiningTypeR},
	{0x0847, 0x0847, JoiningTypeD},
	{0x0848, 0x0848, JoiningTypeR},
	{0x0849, 0x0849, JoiningTypeD},
	{0x084A, 0x0857, JoiningTypeD},
	{0x0858, 0x0858, JoiningTypeR},
}

// JoiningTypeOf returns the Arabic-family joining type of r, defaulting to
// Non_Joining (U) for code points that don't participate in cursive joining,
// and Transparent (T) for general combining marks outside the curated
// Arabic/Syriac ranges above.
func JoiningTypeOf(r rune) JoiningType {
	for _, rg := range joiningRanges {
		if r >= rg.lo && r <= rg.hi {
			return rg.jt
		}
	}
	if GenCategory(r).IsMark() {
		return JoiningTypeT
	}
	return JoiningTypeU
}
