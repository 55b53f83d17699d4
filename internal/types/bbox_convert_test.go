package types

import "testing"

func TestBoundingBoxBoundRoundTrip(t *testing.T) {
	b := BoundingBox{SWLat: 49.0, SWLng: 14.1, NELat: 54.8, NELng: 24.2}
	if got := FromBound(b.Bound()); got != b {
		t.Fatalf("FromBound(Bound()) = %+v, want %+v", got, b)
	}
	if got := b.LonLatBounds(); got != [4]float64{14.1, 49.0, 24.2, 54.8} {
		t.Fatalf("LonLatBounds() = %v", got)
	}
}
