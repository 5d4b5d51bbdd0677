package textnorm

import "unicode"

// maxScriptChars bounds how many alphabetic code points script detection
// tallies before picking a winner, rather than scanning the whole part.
const maxScriptChars = 32

// langEntry is one row of the script-to-language table below.
type langEntry struct {
	code string
	name string
}

// languageCodes maps a Unicode script name (as keyed in unicode.Scripts)
// to the ISO-ish language code and display name the original source's
// detect_text_language table assigns it. Most scripts map to at most one
// plausible language and get an empty code/name, same as upstream; a
// script absent from this map (anything introduced to Unicode after the
// original table was written) is left undetected.
var languageCodes = map[string]langEntry{
	"Common":              {"", "english"},
	"Inherited":           {"", ""},
	"Arabic":              {"ar", "arabic"},
	"Armenian":            {"hy", "armenian"},
	"Bengali":             {"bn", "chineese"},
	"Bopomofo":            {"", ""},
	"Cherokee":            {"chr", ""},
	"Coptic":              {"cop", ""},
	"Cyrillic":            {"ru", "russian"},
	"Deseret":             {"", ""},
	"Devanagari":          {"hi", ""},
	"Ethiopic":            {"am", ""},
	"Georgian":            {"ka", ""},
	"Gothic":              {"", ""},
	"Greek":               {"el", "greek"},
	"Gujarati":            {"gu", ""},
	"Gurmukhi":            {"pa", ""},
	"Han":                 {"han", "chineese"},
	"Hangul":              {"ko", ""},
	"Hebrew":              {"he", "hebrew"},
	"Hiragana":            {"ja", ""},
	"Kannada":             {"kn", ""},
	"Katakana":            {"ja", ""},
	"Khmer":               {"km", ""},
	"Lao":                 {"lo", ""},
	"Latin":               {"en", "english"},
	"Malayalam":           {"ml", ""},
	"Mongolian":           {"mn", ""},
	"Myanmar":             {"my", ""},
	"Ogham":               {"", ""},
	"Old_Italic":          {"", ""},
	"Oriya":               {"or", ""},
	"Runic":               {"", ""},
	"Sinhala":             {"si", ""},
	"Syriac":              {"syr", ""},
	"Tamil":               {"ta", ""},
	"Telugu":              {"te", ""},
	"Thaana":              {"dv", ""},
	"Thai":                {"th", ""},
	"Tibetan":             {"bo", ""},
	"Canadian_Aboriginal":  {"iu", ""},
	"Yi":                  {"", ""},
	"Tagalog":             {"tl", ""},
	"Hanunoo":             {"hnn", ""},
	"Buhid":               {"bku", ""},
	"Tagbanwa":            {"tbw", ""},
	"Braille":             {"", ""},
	"Cypriot":             {"", ""},
	"Limbu":               {"", ""},
	"Osmanya":             {"", ""},
	"Shavian":             {"", ""},
	"Linear_B":            {"", ""},
	"Tai_Le":              {"", ""},
	"Ugaritic":            {"uga", ""},
	"New_Tai_Lue":         {"", ""},
	"Buginese":            {"bug", ""},
	"Glagolitic":          {"", ""},
	"Tifinagh":            {"", ""},
	"Syloti_Nagri":        {"syl", ""},
	"Old_Persian":         {"peo", ""},
	"Kharoshthi":          {"", ""},
	"Balinese":            {"", ""},
	"Cuneiform":           {"", ""},
	"Phoenician":          {"", ""},
	"Phags_Pa":            {"", ""},
	"Nko":                 {"nqo", ""},
}

// ScriptResult is the outcome of scanning a text part's leading
// characters for its dominant script.
type ScriptResult struct {
	Script   string // unicode.Scripts key, empty if no letter outside Common/Inherited was found
	Code     string
	Language string
}

// DetectScript tallies the Unicode script of the first maxScriptChars
// alphabetic runes in text and returns the plurality winner mapped
// through languageCodes. Non-alphabetic runes (digits, punctuation,
// whitespace) don't count toward the sample and don't reset it. Common
// and Inherited letters count toward the sample but are not tallied;
// when no other script is found, the result has an empty Script and Code
// and the Common entry's language, english.
func DetectScript(text string) ScriptResult {
	tally := make(map[string]int)
	processed := 0
	for _, r := range text {
		if processed >= maxScriptChars {
			break
		}
		if !unicode.IsLetter(r) {
			continue
		}
		processed++
		for name, table := range unicode.Scripts {
			if unicode.Is(table, r) {
				if name != "Common" && name != "Inherited" {
					tally[name]++
				}
				break
			}
		}
	}
	best := ""
	max := 0
	for name, n := range tally {
		if n > max {
			max = n
			best = name
		}
	}
	if best == "" {
		return ScriptResult{Language: languageCodes["Common"].name}
	}
	entry := languageCodes[best]
	return ScriptResult{Script: best, Code: entry.code, Language: entry.name}
}
