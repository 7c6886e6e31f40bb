package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	tests := []struct {
		name     string
		a        Point
		b        Point
		expected float64 // km
		epsilon  float64
	}{
		{
			name:     "same point",
			a:        Point{Lat: 28.6139, Lon: 77.2090},
			b:        Point{Lat: 28.6139, Lon: 77.2090},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name: "delhi center to north delhi",
			// Connaught Place
			a: Point{Lat: 28.6139, Lon: 77.2090},
			// Pitampura area
			b:        Point{Lat: 28.7041, Lon: 77.1025},
			expected: 14.5,
			epsilon:  1.0,
		},
		{
			name:     "pole to pole",
			a:        Point{Lat: 90, Lon: 0},
			b:        Point{Lat: -90, Lon: 0},
			expected: 20015.1, // half meridian
			epsilon:  50.0,
		},
		{
			name:     "one degree of longitude at the equator",
			a:        Point{Lat: 0, Lon: 0},
			b:        Point{Lat: 0, Lon: 1},
			expected: 111.19,
			epsilon:  0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.a, tt.b)

			diff := math.Abs(got - tt.expected)
			assert.True(t, diff <= tt.epsilon,
				"expected ~%.2f km, got %.2f km (diff %.4f > epsilon %.4f)",
				tt.expected, got, diff, tt.epsilon)
		})
	}
}

func TestHaversineKmSymmetry(t *testing.T) {
	pairs := []struct{ a, b Point }{
		{Point{Lat: 28.6139, Lon: 77.2090}, Point{Lat: 28.7041, Lon: 77.1025}},
		{Point{Lat: 52.5200, Lon: 13.4050}, Point{Lat: 48.8566, Lon: 2.3522}},
		{Point{Lat: -33.8688, Lon: 151.2093}, Point{Lat: 35.6762, Lon: 139.6503}},
	}

	for _, p := range pairs {
		forward := HaversineKm(p.a, p.b)
		backward := HaversineKm(p.b, p.a)

		assert.Equal(t, forward, backward)
		assert.GreaterOrEqual(t, forward, 0.0)
	}
}

func TestPointValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Point
		wantErr bool
	}{
		{"valid", Point{Lat: 28.6139, Lon: 77.2090}, false},
		{"boundary north pole", Point{Lat: 90, Lon: 180}, false},
		{"boundary south pole", Point{Lat: -90, Lon: -180}, false},
		{"lat too high", Point{Lat: 90.01, Lon: 0}, true},
		{"lat too low", Point{Lat: -91, Lon: 0}, true},
		{"lon too high", Point{Lat: 0, Lon: 180.5}, true},
		{"lon too low", Point{Lat: 0, Lon: -181}, true},
		{"nan lat", Point{Lat: math.NaN(), Lon: 0}, true},
		{"inf lon", Point{Lat: 0, Lon: math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate("geo.test")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRadius(t *testing.T) {
	assert.NoError(t, ValidateRadius(1, "geo.test"))
	assert.NoError(t, ValidateRadius(500, "geo.test"))
	assert.Error(t, ValidateRadius(0, "geo.test"))
	assert.Error(t, ValidateRadius(-5, "geo.test"))
	assert.Error(t, ValidateRadius(500.01, "geo.test"))
	assert.Error(t, ValidateRadius(math.NaN(), "geo.test"))
}
