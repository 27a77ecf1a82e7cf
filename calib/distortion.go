// Package calib loads per-camera lens calibration and provides image
// undistortion for the supported lens models.
package calib

import "github.com/pkg/errors"

// LensType is the name of the lens distortion model.
type LensType string

const (
	// LensTelecam is for narrow field-of-view lenses modeled with the
	// forward Brown-Conrady distortion model.
	LensTelecam = LensType("telecam")
	// LensFisheye is for wide-angle lenses modeled with the equidistant
	// fisheye distortion model.
	LensFisheye = LensType("fisheye")
)

// Distorter maps normalized image coordinates from the rectified (pinhole)
// projection to the raw (distorted) projection according to the lens model.
type Distorter interface {
	Lens() LensType
	CheckValid() error
	Parameters() []float64
	Transform(x, y float64) (float64, float64)
}

// InvalidDistortionError is used when the distortion parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrapf(errors.New("invalid distortion_parameters"), "%s", msg)
}

// NewDistorter returns a Distorter given a valid LensType and its parameters.
func NewDistorter(lens LensType, parameters []float64) (Distorter, error) {
	switch lens {
	case LensTelecam:
		return NewBrownConrady(parameters)
	case LensFisheye:
		return NewFisheye(parameters)
	default:
		return nil, errors.Errorf("do not know how to parse %q lens model", lens)
	}
}

// BrownConrady is the forward Brown-Conrady distortion model with three
// radial and two tangential coefficients.
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// NewBrownConrady takes in a slice of floats that will be passed into the struct in order.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	if len(inp) > 5 {
		return nil, errors.Errorf("list of parameters too long, expected max 5, got %d", len(inp))
	}
	if len(inp) == 0 {
		return &BrownConrady{}, nil
	}
	for i := len(inp); i < 5; i++ { // fill missing values with 0.0
		inp = append(inp, 0.0)
	}
	return &BrownConrady{inp[0], inp[1], inp[2], inp[3], inp[4]}, nil
}

// Lens returns the lens model this Distorter implements.
func (bc *BrownConrady) Lens() LensType {
	return LensTelecam
}

// CheckValid checks if the fields for BrownConrady have valid inputs.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return InvalidDistortionError("BrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	return []float64{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// Transform distorts the normalized undistorted coordinates (x,y):
//
//	x_d = x * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p1*x*y + p2*(r² + 2*x²)
//	y_d = y * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p2*x*y + p1*(r² + 2*y²)
func (bc *BrownConrady) Transform(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	r2 := x*x + y*y
	radDist := 1.0 + bc.RadialK1*r2 + bc.RadialK2*r2*r2 + bc.RadialK3*r2*r2*r2
	radDistX := x * radDist
	radDistY := y * radDist
	tanDistX := 2.0*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2.0*x*x)
	tanDistY := 2.0*bc.TangentialP2*x*y + bc.TangentialP1*(r2+2.0*y*y)
	return radDistX + tanDistX, radDistY + tanDistY
}
