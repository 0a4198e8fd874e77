package analysis

import "testing"

func TestBandFor(t *testing.T) {
	tests := []struct {
		score int
		want  Band
	}{
		{0, BandLow},
		{30, BandLow},
		{31, BandMedium},
		{60, BandMedium},
		{61, BandHigh},
		{100, BandHigh},
	}
	for _, tt := range tests {
		if got := BandFor(tt.score); got != tt.want {
			t.Errorf("BandFor(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
