package calib

import (
	"encoding/json"
	"image"
	"io"
	"os"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/pairedscan/rimage"
)

// CameraModel pairs the pinhole intrinsics of a camera view with its lens
// distortion model.
type CameraModel struct {
	*PinholeCameraIntrinsics
	Distortion Distorter
}

// DistortionMap is a function that transforms a pixel coordinate (u,v) in the
// rectified projection to the pixel coordinate (x,y) in the raw (distorted)
// projection, according to the model in CameraModel.Distortion.
func (model *CameraModel) DistortionMap() func(u, v float64) (float64, float64) {
	return func(u, v float64) (float64, float64) {
		x := (u - model.Ppx) / model.Fx
		y := (v - model.Ppy) / model.Fy
		x, y = model.Distortion.Transform(x, y)
		x = x*model.Fx + model.Ppx
		y = y*model.Fy + model.Ppy
		return x, y
	}
}

// UndistortImage takes an input image in the raw (distorted) projection and
// creates a new image of the same size remapped to the rectified projection.
// A bilinear interpolation is used to interpolate values between image pixels.
func (model *CameraModel) UndistortImage(img image.Image) (*image.NRGBA, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	// Check dimensions, they should be equal between the image and what the intrinsics expect
	bounds := img.Bounds()
	if model.Width != bounds.Dx() || model.Height != bounds.Dy() {
		return nil, errors.Errorf("img dimension and intrinsics don't match Image(%d,%d) != Intrinsics(%d,%d)",
			bounds.Dx(), bounds.Dy(), model.Width, model.Height)
	}
	undistorted := image.NewNRGBA(image.Rect(0, 0, model.Width, model.Height))
	distortionMap := model.DistortionMap()
	for v := 0; v < model.Height; v++ {
		for u := 0; u < model.Width; u++ {
			x, y := distortionMap(float64(u), float64(v))
			if c := rimage.BilinearColor(r2.Point{X: x, Y: y}, img); c != nil {
				undistorted.SetNRGBA(u, v, *c)
			}
		}
	}
	return undistorted, nil
}

// UndistortProjection maps a (row, col) pixel coordinate from the raw
// (distorted) projection into the rectified projection, inverting the
// distortion model with a Newton-Raphson iteration seeded at the distorted
// point. The Jacobian is estimated with central differences so any Distorter
// can be inverted.
func (model *CameraModel) UndistortProjection(row, col float64) (float64, float64) {
	xd := (col - model.Ppx) / model.Fx
	yd := (row - model.Ppy) / model.Fy
	xu, yu := xd, yd

	const maxIterations = 20
	const tolerance = 1e-10
	const h = 1e-7

	for i := 0; i < maxIterations; i++ {
		xdEst, ydEst := model.Distortion.Transform(xu, yu)
		errX := xdEst - xd
		errY := ydEst - yd
		if errX*errX+errY*errY < tolerance*tolerance {
			break
		}

		xpx, ypx := model.Distortion.Transform(xu+h, yu)
		xmx, ymx := model.Distortion.Transform(xu-h, yu)
		xpy, ypy := model.Distortion.Transform(xu, yu+h)
		xmy, ymy := model.Distortion.Transform(xu, yu-h)
		dxdDxu := (xpx - xmx) / (2 * h)
		dydDxu := (ypx - ymx) / (2 * h)
		dxdDyu := (xpy - xmy) / (2 * h)
		dydDyu := (ypy - ymy) / (2 * h)

		det := dxdDxu*dydDyu - dxdDyu*dydDxu
		if det == 0 {
			break
		}
		xu -= (dydDyu*errX - dxdDyu*errY) / det
		yu -= (-dydDxu*errX + dxdDxu*errY) / det
	}

	return yu*model.Fy + model.Ppy, xu*model.Fx + model.Ppx
}

// Calibration is the read-only registry of camera models for every calibrated
// view, loaded once from a JSON calibration file.
type Calibration struct {
	cameras map[string]*CameraModel
}

type rawCameraModel struct {
	Intrinsics           *PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Lens                 LensType                 `json:"lens"`
	DistortionParameters []float64                `json:"distortion_parameters"`
}

type rawCalibration struct {
	Cameras map[string]rawCameraModel `json:"cameras"`
}

// LoadCalibration reads a JSON calibration file keyed by camera view name and
// returns the registry of camera models.
func LoadCalibration(jsonPath string) (*Calibration, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening calibration file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading calibration data")
	}
	raw := rawCalibration{}
	if err := json.Unmarshal(byteValue, &raw); err != nil {
		return nil, errors.Wrap(err, "error parsing calibration JSON")
	}
	if len(raw.Cameras) == 0 {
		return nil, errors.New("calibration file has no cameras")
	}
	cameras := make(map[string]*CameraModel, len(raw.Cameras))
	for view, rawCam := range raw.Cameras {
		if err := rawCam.Intrinsics.CheckValid(); err != nil {
			return nil, errors.Wrapf(err, "invalid intrinsics for view %q", view)
		}
		distortion, err := NewDistorter(rawCam.Lens, rawCam.DistortionParameters)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid distortion for view %q", view)
		}
		if err := distortion.CheckValid(); err != nil {
			return nil, errors.Wrapf(err, "invalid distortion for view %q", view)
		}
		cameras[view] = &CameraModel{rawCam.Intrinsics, distortion}
	}
	return &Calibration{cameras: cameras}, nil
}

// Views returns the names of all calibrated camera views.
func (c *Calibration) Views() []string {
	views := make([]string, 0, len(c.cameras))
	for view := range c.cameras {
		views = append(views, view)
	}
	return views
}

// Camera returns the camera model for the named view, or an error if the view
// is absent from the loaded calibration.
func (c *Calibration) Camera(view string) (*CameraModel, error) {
	model, ok := c.cameras[view]
	if !ok {
		return nil, errors.Errorf("no calibration entry for camera view %q", view)
	}
	return model, nil
}

// Undistort remaps an image captured by the named view into the rectified
// projection.
func (c *Calibration) Undistort(img image.Image, view string) (*image.NRGBA, error) {
	model, err := c.Camera(view)
	if err != nil {
		return nil, err
	}
	return model.UndistortImage(img)
}
