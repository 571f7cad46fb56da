package harfbuzz

import (
	"github.com/textshape/complexshape/font"
	ot "github.com/textshape/complexshape/font/opentype"
	"github.com/textshape/complexshape/font/opentype/tables"
	"github.com/textshape/complexshape/language"
)

// ported in spirit from harfbuzz/src/hb-ot-tag.cc: maps a Unicode script
// plus a BCP 47 language tag to the OpenType script/language-system tags a
// font's GSUB/GPOS Layout actually indexes by (spec §4.3's script/language
// resolution, including the "new" vs "legacy" four-letter script tag and
// the DFLT/dflt fallback).

var tagDFLT = ot.MustNewTag("DFLT")
var tagDflt = ot.MustNewTag("dflt")

// scriptToOTTags names, for a handful of scripts, both the "new" OpenType
// script tag (the one a modern font indexes Indic/Myanmar scripts
// under) and the legacy v1 tag some older fonts still carry; most scripts
// only ever had one tag, constructed directly from the four-letter ISO
// 15924 code.
var scriptToOTTags = map[language.Script][]ot.Tag{
	language.Devanagari: {ot.MustNewTag("dev2"), ot.MustNewTag("deva")},
	language.Bengali:    {ot.MustNewTag("bng2"), ot.MustNewTag("beng")},
	language.Gurmukhi:   {ot.MustNewTag("gur2"), ot.MustNewTag("guru")},
	language.Gujarati:   {ot.MustNewTag("gjr2"), ot.MustNewTag("gujr")},
	language.Oriya:      {ot.MustNewTag("ory2"), ot.MustNewTag("orya")},
	language.Tamil:      {ot.MustNewTag("tml2"), ot.MustNewTag("taml")},
	language.Telugu:     {ot.MustNewTag("tel2"), ot.MustNewTag("telu")},
	language.Kannada:    {ot.MustNewTag("knd2"), ot.MustNewTag("knda")},
	language.Malayalam:  {ot.MustNewTag("mlm2"), ot.MustNewTag("mlym")},
	language.Myanmar:    {ot.MustNewTag("mym2"), ot.MustNewTag("mymr")},
}

// scriptOTTags returns script's OpenType script tag(s), newest first,
// deriving a plain lowercased ISO 15924 tag for scripts with no legacy/new
// split.
func scriptOTTags(script language.Script) []ot.Tag {
	if tags, ok := scriptToOTTags[script]; ok {
		return tags
	}
	if script == 0 || script == language.Common || script == language.Inherited || script == language.Unknown {
		return nil
	}
	s := script.String()
	return []ot.Tag{ot.NewTag(s[0]|0x20, s[1]|0x20, s[2]|0x20, s[3]|0x20)}
}

// newOTTagsFromScriptAndLanguage resolves the full fallback chain of
// script tags (from most to least specific, ending in DFLT then dflt) and
// language tags (the language, then each shorter prefix Strip yields) a
// shape plan tries in order. No empty language entry is appended; a
// language with no match falls back to the default LangSys in
// selectLanguage.
func newOTTagsFromScriptAndLanguage(script language.Script, lang language.Language) (scriptTags, languageTags []tables.Tag) {
	scriptTags = append(scriptOTTags(script), tagDFLT, tagDflt)

	for l := lang; ; {
		if !l.IsEmpty() {
			tag := ot.MustNewTag(padTag(string(l)))
			languageTags = append(languageTags, tag)
		}
		stripped, ok := l.Strip()
		if !ok {
			break
		}
		l = stripped
	}
	return scriptTags, languageTags
}

// padTag left-truncates/right-pads s to exactly four bytes the way
// OpenType language tags are stored, space-padded when shorter.
func padTag(s string) string {
	if len(s) > 4 {
		s = s[:4]
	}
	for len(s) < 4 {
		s += " "
	}
	return s
}

// selectScript finds the first of tags present in layout's Scripts list,
// returning its index, the tag that matched, and whether any non-DFLT tag
// matched at all (foundScript mirrors hb_ot_layout_table_select_script's
// "did we find the script, as opposed to falling back to DFLT" result).
func selectScript(layout *font.Layout, tags []tables.Tag) (index int, chosen tables.Tag, found bool) {
	for _, tag := range tags {
		if i, ok := layout.FindScript(tag); ok {
			return int(i), tag, tag != tagDFLT && tag != tagDflt
		}
	}
	if i, ok := layout.FindScript(tagDFLT); ok {
		return int(i), tagDFLT, false
	}
	if len(layout.Scripts) != 0 {
		return 0, layout.Scripts[0].Tag, false
	}
	return int(font.NoScriptIndex), 0, false
}

// selectLanguage finds the first of tags present in the chosen script's
// LangSys list, falling back to the script's default LangSys.
func selectLanguage(layout *font.Layout, scriptIndex int, tags []tables.Tag) (index int, found bool) {
	if scriptIndex < 0 || scriptIndex >= len(layout.Scripts) {
		return int(font.NoLangSysIndex), false
	}
	for _, tag := range tags {
		if i, ok := layout.FindLangSys(uint16(scriptIndex), tag); ok {
			return int(i), true
		}
	}
	return int(font.NoLangSysIndex), false
}

// getRequiredFeature returns the script/language's required feature index
// and tag, if any.
func getRequiredFeature(layout *font.Layout, scriptIndex, languageIndex int) (uint16, tables.Tag) {
	if scriptIndex < 0 {
		return font.NoFeatureIndex, 0
	}
	ls := layout.GetLangSys(uint16(scriptIndex), uint16(languageIndex))
	if ls.RequiredFeatureIndex == font.NoFeatureIndex {
		return font.NoFeatureIndex, 0
	}
	return ls.RequiredFeatureIndex, layout.FeatureTag(ls.RequiredFeatureIndex, -1)
}

// findFeatureForLang returns the index of feature tag within the given
// script/language's feature list, or NoFeatureIndex.
func findFeatureForLang(layout *font.Layout, scriptIndex, languageIndex int, tag tables.Tag) uint16 {
	if scriptIndex < 0 {
		return font.NoFeatureIndex
	}
	ls := layout.GetLangSys(uint16(scriptIndex), uint16(languageIndex))
	for _, fi := range ls.FeatureIndices {
		if int(fi) < len(layout.Features) && layout.Features[fi].Tag == tag {
			return fi
		}
	}
	return font.NoFeatureIndex
}

// findFeature returns the index of tag anywhere in the layout's global
// feature list, ignoring script/language scoping; used for the
// ffGlobalSearch fallback.
func findFeature(layout *font.Layout, tag tables.Tag) uint16 {
	if i, ok := layout.FindFeatureIndex(tag); ok {
		return i
	}
	return font.NoFeatureIndex
}

// getFeatureLookupsWithVar returns the lookup indices feature featureIndex
// turns on, resolved through any FeatureVariations substitution for
// variationsIndex.
func getFeatureLookupsWithVar(layout *font.Layout, featureIndex uint16, variationsIndex int) []uint16 {
	if featureIndex == font.NoFeatureIndex {
		return nil
	}
	return layout.FeatureLookups(featureIndex, variationsIndex)
}
