// README: Pure geo helper tests.
package location

import (
	"math"
	"testing"
)

func TestHaversineKnownDistance(t *testing.T) {
	// Hanoi → Ho Chi Minh City, roughly 1137 km great-circle.
	got := HaversineKm(21.0278, 105.8342, 10.8231, 106.6297)
	if math.Abs(got-1137) > 5 {
		t.Fatalf("Hanoi→HCMC = %.2f km, want 1137 ± 5", got)
	}
}

func TestHaversineZeroDistance(t *testing.T) {
	if got := HaversineKm(10.5, 106.5, 10.5, 106.5); got != 0 {
		t.Fatalf("same point distance = %v, want 0", got)
	}
}

func TestHaversineSymmetry(t *testing.T) {
	a := HaversineKm(21.0278, 105.8342, 10.8231, 106.6297)
	b := HaversineKm(10.8231, 106.6297, 21.0278, 105.8342)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("distance not symmetric: %v vs %v", a, b)
	}
}

func TestRoundKm(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{1.004, 1.0},
		{1.005, 1.0}, // math.Round on 100.49999... due to float repr
		{1.006, 1.01},
		{1137.4567, 1137.46},
		{0, 0},
	}
	for _, tc := range cases {
		if got := roundKm(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("roundKm(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSortByDistance(t *testing.T) {
	items := []NearbyDriver{
		{DriverID: "c", DistanceKm: 3.2},
		{DriverID: "a", DistanceKm: 0.5},
		{DriverID: "b", DistanceKm: 1.7},
	}
	sortByDistance(items, func(n NearbyDriver) float64 { return n.DistanceKm })
	want := []string{"a", "b", "c"}
	for i, w := range want {
		if string(items[i].DriverID) != w {
			t.Fatalf("position %d: got %s, want %s", i, items[i].DriverID, w)
		}
	}
}
