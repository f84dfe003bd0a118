package anpr

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "uppercase and strip",
			raw:  "mh 12-ab 1234",
			want: "MH12A81234",
		},
		{
			name: "confusion substitutions",
			raw:  "O1Z5",
			want: "0125",
		},
		{
			name: "mixed noise",
			raw:  " up*14 pt.3456\n",
			want: "UP14P73456",
		},
		{
			name: "truncate to canonical length",
			raw:  "MH12AB1234EXTRA",
			want: "MH12A81234",
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
		{
			name: "only rejected characters",
			raw:  "-- . //",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw, DefaultMaxPlateLength)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"O1Z5", "MH12AB1234", "up14pt3456", "SOBIG", "ZZTOP99"}
	for _, in := range inputs {
		once := Normalize(in, DefaultMaxPlateLength)
		twice := Normalize(once, DefaultMaxPlateLength)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	first := Normalize("kA0l mn 4455", DefaultMaxPlateLength)
	for i := 0; i < 100; i++ {
		if got := Normalize("kA0l mn 4455", DefaultMaxPlateLength); got != first {
			t.Fatalf("Normalize output changed between calls: %q vs %q", first, got)
		}
	}
}
