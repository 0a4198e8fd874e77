package analysis

import "github.com/haidarlabs/qanuni-gateway/internal/i18n"

// Band is the coarse risk classification shown to users.
type Band string

const (
	BandLow    Band = "LOW"
	BandMedium Band = "MEDIUM"
	BandHigh   Band = "HIGH"
)

// BandFor classifies a numeric risk score: <=30 LOW, <=60 MEDIUM, else HIGH.
func BandFor(score int) Band {
	switch {
	case score <= 30:
		return BandLow
	case score <= 60:
		return BandMedium
	default:
		return BandHigh
	}
}

func (b Band) labelKey() i18n.Key {
	switch b {
	case BandLow:
		return i18n.KeyBandLow
	case BandMedium:
		return i18n.KeyBandMedium
	default:
		return i18n.KeyBandHigh
	}
}
