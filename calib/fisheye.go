package calib

import (
	"math"

	"github.com/pkg/errors"
)

// Fisheye is the equidistant fisheye distortion model with four
// polynomial coefficients on the incidence angle.
type Fisheye struct {
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	K3 float64 `json:"k3"`
	K4 float64 `json:"k4"`
}

// NewFisheye takes in a slice of floats that will be passed into the struct in order.
func NewFisheye(inp []float64) (*Fisheye, error) {
	if len(inp) > 4 {
		return nil, errors.Errorf("list of parameters too long, expected max 4, got %d", len(inp))
	}
	if len(inp) == 0 {
		return &Fisheye{}, nil
	}
	for i := len(inp); i < 4; i++ { // fill missing values with 0.0
		inp = append(inp, 0.0)
	}
	return &Fisheye{inp[0], inp[1], inp[2], inp[3]}, nil
}

// Lens returns the lens model this Distorter implements.
func (fe *Fisheye) Lens() LensType {
	return LensFisheye
}

// CheckValid checks if the fields for Fisheye have valid inputs.
func (fe *Fisheye) CheckValid() error {
	if fe == nil {
		return InvalidDistortionError("Fisheye shaped distortion_parameters not provided")
	}
	return nil
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (fe *Fisheye) Parameters() []float64 {
	if fe == nil {
		return []float64{}
	}
	return []float64{fe.K1, fe.K2, fe.K3, fe.K4}
}

// Transform distorts the normalized undistorted coordinates (x,y).
// The incidence angle θ = atan(r) is scaled by the distortion polynomial
//
//	θ_d = θ * (1 + k1*θ² + k2*θ⁴ + k3*θ⁶ + k4*θ⁸)
//
// and the point is moved radially so its distance from the center is θ_d.
func (fe *Fisheye) Transform(x, y float64) (float64, float64) {
	if fe == nil {
		return x, y
	}
	r := math.Hypot(x, y)
	if r == 0 {
		return x, y
	}
	theta := math.Atan(r)
	t2 := theta * theta
	thetaD := theta * (1.0 + fe.K1*t2 + fe.K2*t2*t2 + fe.K3*t2*t2*t2 + fe.K4*t2*t2*t2*t2)
	scale := thetaD / r
	return x * scale, y * scale
}
