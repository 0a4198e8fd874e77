package language

// Letters that exist in Urdu script but not in standard Arabic. Their
// presence distinguishes Urdu text from generic Arabic-script text.
var urduMarkers = map[rune]struct{}{
	'ٹ': {}, // tteh
	'ڈ': {}, // ddal
	'ڑ': {}, // rreh
	'ں': {}, // noon ghunna
	'ے': {}, // baree yeh
	'پ': {}, // peh
	'چ': {}, // tcheh
	'ژ': {}, // jeh
	'گ': {}, // gaf
	'ھ': {}, // heh doachashmee
	'ہ': {}, // heh goal
}

// Detect classifies free text into a supported locale using character-range
// heuristics: Urdu-specific letters first, then the Arabic script block,
// otherwise English. Deterministic and total; empty input yields English.
func Detect(text string) Locale {
	sawArabicScript := false
	for _, r := range text {
		if _, ok := urduMarkers[r]; ok {
			return LocaleUrdu
		}
		if r >= 0x0600 && r <= 0x06FF {
			sawArabicScript = true
		}
	}
	if sawArabicScript {
		return LocaleArabic
	}
	return LocaleEnglish
}
