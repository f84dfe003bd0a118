package anpr

import "testing"

func TestBoxBucketID(t *testing.T) {
	const factor = 20

	tests := []struct {
		name string
		a, b Box
		same bool
	}{
		{
			name: "jittered boxes share a bucket",
			a:    Box{X1: 100, Y1: 200, X2: 300, Y2: 260},
			b:    Box{X1: 105, Y1: 210, X2: 310, Y2: 265},
			same: true,
		},
		{
			name: "distant boxes have distinct buckets",
			a:    Box{X1: 100, Y1: 200, X2: 300, Y2: 260},
			b:    Box{X1: 400, Y1: 200, X2: 600, Y2: 260},
			same: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ida, idb := tt.a.BucketID(factor), tt.b.BucketID(factor)
			if (ida == idb) != tt.same {
				t.Errorf("BucketID: %q vs %q, same = %v, want %v", ida, idb, ida == idb, tt.same)
			}
		})
	}
}

func TestBoxGeometry(t *testing.T) {
	b := Box{X1: 10, Y1: 20, X2: 110, Y2: 60}
	if b.Width() != 100 || b.Height() != 40 {
		t.Errorf("Width/Height = %d/%d, want 100/40", b.Width(), b.Height())
	}
	if got := b.AspectRatio(); got != 2.5 {
		t.Errorf("AspectRatio = %v, want 2.5", got)
	}
}

func TestNewNotFoundRecord(t *testing.T) {
	rec := NewNotFoundRecord("MH12AB1234")
	if rec.PlateText != "MH12AB1234" {
		t.Errorf("PlateText = %q", rec.PlateText)
	}
	for _, field := range []string{rec.OwnerName, rec.VehicleModel, rec.RegistrationDate} {
		if field != "Not Found" {
			t.Errorf("placeholder field = %q, want %q", field, "Not Found")
		}
	}
	if rec.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}
