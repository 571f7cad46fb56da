package harfbuzz

import "github.com/textshape/complexshape/unicodedata"

// preprocessTextVowelConstraints runs ahead of GSUB for scripts whose vowel
// signs can land on the same cluster as another combining mark with no
// defined stacking order (Indic and USE-family scripts both call this from
// preprocessText). When two marks of equal canonical combining class share a
// cluster, the font has nothing to anchor the second one to, so a dotted
// circle placeholder is inserted between them the way an isolated stray mark
// gets one at the start of a run.
func preprocessTextVowelConstraints(buffer *Buffer) {
	if buffer.Flags&BufferFlagDoNotInsertDottedCircle != 0 {
		return
	}
	info := buffer.Info
	for i := 1; i < len(info); i++ {
		if info[i-1].Cluster != info[i].Cluster {
			continue
		}
		if !unicodedata.GenCategory(info[i-1].codepoint).IsMark() ||
			!unicodedata.GenCategory(info[i].codepoint).IsMark() {
			continue
		}
		if unicodedata.CombiningClass(info[i-1].codepoint) != unicodedata.CombiningClass(info[i].codepoint) {
			continue
		}

		dotted := GlyphInfo{codepoint: 0x25CC, Cluster: info[i].Cluster}
		dotted.setUnicodeProps(buffer)
		info = append(info[:i], append([]GlyphInfo{dotted}, info[i:]...)...)
		i++
	}
	buffer.Info = info
}
