package language

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Locale
	}{
		{"empty defaults to english", "", LocaleEnglish},
		{"latin text", "hello there", LocaleEnglish},
		{"digits and punctuation", "+971 50 123 4567!", LocaleEnglish},
		{"arabic greeting", "مرحبا", LocaleArabic},
		{"arabic sentence", "أريد تحليل هذا العقد", LocaleArabic},
		{"urdu marker wins over arabic block", "ہیلو", LocaleUrdu},
		{"urdu sentence", "مجھے اس دستاویز کا تجزیہ چاہیے", LocaleUrdu},
		{"mixed latin and arabic", "contract عقد", LocaleArabic},
		{"single urdu letter amid latin", "abc ے xyz", LocaleUrdu},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Fatalf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestLocaleOrDefault(t *testing.T) {
	if got := Locale("fr").OrDefault(); got != LocaleEnglish {
		t.Fatalf("unsupported locale should default to english, got %q", got)
	}
	if got := LocaleUrdu.OrDefault(); got != LocaleUrdu {
		t.Fatalf("supported locale should pass through, got %q", got)
	}
}
