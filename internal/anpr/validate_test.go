package anpr

import "testing"

func TestPlateValidatorStandard(t *testing.T) {
	v := NewPlateValidator()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "standard plate", text: "MH12AB1234", want: true},
		{name: "single digit series", text: "DL1CA4455", want: true},
		{name: "single letter code", text: "MH12A1234", want: true},
		{name: "digit inside letter segment", text: "MH1A2B123", want: false},
		{name: "too short", text: "MH12AB123", want: false},
		{name: "too long", text: "MH12AB12345", want: false},
		{name: "confusable letter in series", text: "MH12OI1234", want: false},
		{name: "lowercase rejected", text: "mh12ab1234", want: false},
		{name: "empty", text: "", want: false},
		{name: "bharat shape without opt-in", text: "22BH1234AA", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Valid(tt.text); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestPlateValidatorBharatSeries(t *testing.T) {
	v := NewPlateValidator(WithBharatSeries())

	tests := []struct {
		text string
		want bool
	}{
		{text: "22BH1234AA", want: true},
		{text: "22BH1234A", want: true},
		{text: "MH12AB1234", want: true},
		{text: "22XY1234AA", want: false},
		{text: "2BH1234AA", want: false},
	}

	for _, tt := range tests {
		if got := v.Valid(tt.text); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestPlateValidatorRegionCodes(t *testing.T) {
	v := NewPlateValidator(WithRegionCodes([]string{"MH", "dl"}))

	tests := []struct {
		text string
		want bool
	}{
		{text: "MH12AB1234", want: true},
		{text: "DL12AB1234", want: true},
		{text: "KA12AB1234", want: false},
	}

	for _, tt := range tests {
		if got := v.Valid(tt.text); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
