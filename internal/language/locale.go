package language

// Locale identifies one of the supported reply languages.
type Locale string

const (
	// LocaleEnglish is the default locale when detection finds no script markers.
	LocaleEnglish Locale = "en"
	LocaleArabic  Locale = "ar"
	LocaleUrdu    Locale = "ur"
)

// Supported lists every locale the gateway can render replies in.
func Supported() []Locale {
	return []Locale{LocaleEnglish, LocaleArabic, LocaleUrdu}
}

// Valid reports whether l is a supported locale.
func (l Locale) Valid() bool {
	switch l {
	case LocaleEnglish, LocaleArabic, LocaleUrdu:
		return true
	}
	return false
}

// OrDefault returns l when valid, otherwise the English default.
func (l Locale) OrDefault() Locale {
	if l.Valid() {
		return l
	}
	return LocaleEnglish
}
