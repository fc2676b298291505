package core

import "testing"

func TestDistance(t *testing.T) {
	berlin := Coordinates{Lat: 52.52, Lng: 13.405}
	hamburg := Coordinates{Lat: 53.5511, Lng: 9.9937}

	if d := Distance(berlin, berlin); d != 0 {
		t.Fatalf("distance to self = %v", d)
	}
	d := Distance(berlin, hamburg)
	if d < 250 || d > 260 {
		t.Fatalf("Berlin-Hamburg distance = %v, want ~255km", d)
	}
	if Distance(hamburg, berlin) != d {
		t.Fatalf("distance must be symmetric")
	}
}

func TestQuantizeKey(t *testing.T) {
	cases := []struct {
		c      Coordinates
		places int
		want   string
	}{
		{Coordinates{Lat: 52.123456, Lng: 13.987654}, 5, "52.12346,13.98765"},
		{Coordinates{Lat: 52.123456, Lng: 13.987654}, 2, "52.12,13.99"},
		{Coordinates{Lat: -0.000001, Lng: 0}, 4, "0.0000,0.0000"},
		{Coordinates{Lat: 1.5, Lng: 2.5}, -1, "2,3"},
	}
	for _, tc := range cases {
		if got := QuantizeKey(tc.c, tc.places); got != tc.want {
			t.Errorf("QuantizeKey(%v, %d) = %q, want %q", tc.c, tc.places, got, tc.want)
		}
	}
}
