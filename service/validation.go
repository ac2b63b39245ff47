package service

import (
	"errors"
	"math"
)

const maxStrokePoints = 1000

// ValidatePoints checks a flattened [x1,y1,x2,y2,...] sequence. A gesture
// with a single sample contributes zero length and is not worth persisting.
func ValidatePoints(points []float64) error {
	if len(points) < 4 {
		return errors.New("stroke needs at least two points")
	}

	if len(points)%2 != 0 {
		return errors.New("points must be x,y pairs")
	}

	if len(points) > maxStrokePoints*2 {
		return errors.New("stroke too long")
	}

	for _, v := range points {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("non-finite coordinate")
		}
	}

	return nil
}

// StrokeLength is the sum of Euclidean distances between consecutive points.
// Clients may track this incrementally while drawing, but the server always
// recomputes it from the full submitted sequence.
func StrokeLength(points []float64) float64 {
	var length float64
	for i := 2; i+1 < len(points); i += 2 {
		dx := points[i] - points[i-2]
		dy := points[i+1] - points[i-1]
		length += math.Sqrt(dx*dx + dy*dy)
	}
	return length
}
