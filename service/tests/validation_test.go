package service_test

import (
	"math"
	"testing"

	"github.com/jinukim/inkverse/service"
	"github.com/stretchr/testify/assert"
)

func TestValidatePoints(t *testing.T) {
	tests := []struct {
		name    string
		points  []float64
		wantErr bool
	}{
		{"two points", []float64{0, 0, 3, 4}, false},
		{"many points", []float64{0, 0, 1, 1, 2, 2, 3, 3}, false},
		{"empty", []float64{}, true},
		{"single point", []float64{10, 20}, true},
		{"odd length", []float64{0, 0, 1}, true},
		{"NaN coordinate", []float64{0, 0, math.NaN(), 1}, true},
		{"positive infinity", []float64{0, 0, math.Inf(1), 1}, true},
		{"negative infinity", []float64{0, 0, math.Inf(-1), 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.ValidatePoints(tt.points)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePoints_TooLong(t *testing.T) {
	points := make([]float64, 2002)
	assert.Error(t, service.ValidatePoints(points))
}

func TestStrokeLength(t *testing.T) {
	// 3-4-5 triangle
	assert.Equal(t, 5.0, service.StrokeLength([]float64{0, 0, 3, 4}))

	// Unit square perimeter minus the closing edge
	assert.InDelta(t, 3.0, service.StrokeLength([]float64{0, 0, 1, 0, 1, 1, 0, 1}), 1e-9)

	// Repeated identical points contribute nothing
	assert.Equal(t, 0.0, service.StrokeLength([]float64{5, 5, 5, 5, 5, 5}))
}
