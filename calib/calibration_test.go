package calib

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func writeCalibrationFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cams_lidars.json")
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

const testCalibrationJSON = `{
	"cameras": {
		"front_center": {
			"intrinsic_parameters": {
				"width_px": 8, "height_px": 6,
				"fx": 10.0, "fy": 10.0, "ppx": 4.0, "ppy": 3.0
			},
			"lens": "telecam",
			"distortion_parameters": []
		},
		"side_left": {
			"intrinsic_parameters": {
				"width_px": 8, "height_px": 6,
				"fx": 10.0, "fy": 10.0, "ppx": 4.0, "ppy": 3.0
			},
			"lens": "fisheye",
			"distortion_parameters": [0.05, -0.01]
		}
	}
}`

func TestLoadCalibration(t *testing.T) {
	path := writeCalibrationFile(t, testCalibrationJSON)
	calibration, err := LoadCalibration(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, calibration.Views(), test.ShouldHaveLength, 2)

	cam, err := calibration.Camera("front_center")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cam.Width, test.ShouldEqual, 8)
	test.That(t, cam.Distortion.Lens(), test.ShouldEqual, LensTelecam)

	cam, err = calibration.Camera("side_left")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cam.Distortion.Lens(), test.ShouldEqual, LensFisheye)

	_, err = calibration.Camera("rear_center")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "rear_center")
}

func TestLoadCalibrationErrors(t *testing.T) {
	_, err := LoadCalibration(filepath.Join(t.TempDir(), "nope.json"))
	test.That(t, err, test.ShouldNotBeNil)

	path := writeCalibrationFile(t, "{ not json")
	_, err = LoadCalibration(path)
	test.That(t, err, test.ShouldNotBeNil)

	path = writeCalibrationFile(t, `{"cameras": {}}`)
	_, err = LoadCalibration(path)
	test.That(t, err, test.ShouldNotBeNil)

	// fx must be positive
	path = writeCalibrationFile(t, `{
		"cameras": {
			"front_center": {
				"intrinsic_parameters": {"width_px": 8, "height_px": 6, "fx": 0, "fy": 10, "ppx": 4, "ppy": 3},
				"lens": "telecam",
				"distortion_parameters": []
			}
		}
	}`)
	_, err = LoadCalibration(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "front_center")
}

func TestGetCameraMatrix(t *testing.T) {
	intrinsics := &PinholeCameraIntrinsics{Width: 8, Height: 6, Fx: 10, Fy: 11, Ppx: 4, Ppy: 3}
	m := intrinsics.GetCameraMatrix()
	test.That(t, m.At(0, 0), test.ShouldEqual, 10.0)
	test.That(t, m.At(1, 1), test.ShouldEqual, 11.0)
	test.That(t, m.At(0, 2), test.ShouldEqual, 4.0)
	test.That(t, m.At(1, 2), test.ShouldEqual, 3.0)
	test.That(t, m.At(2, 2), test.ShouldEqual, 1.0)
}

func zeroDistortionModel(width, height int) *CameraModel {
	distortion, _ := NewBrownConrady(nil)
	return &CameraModel{
		// power-of-two focal lengths keep the identity remap exact
		&PinholeCameraIntrinsics{
			Width: width, Height: height,
			Fx: 2, Fy: 2,
			Ppx: float64(width) / 2, Ppy: float64(height) / 2,
		},
		distortion,
	}
}

func TestUndistortImageIdentity(t *testing.T) {
	model := zeroDistortionModel(8, 6)
	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 40), B: 7, A: 255})
		}
	}

	undistorted, err := model.UndistortImage(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, undistorted.Bounds().Dx(), test.ShouldEqual, 8)
	test.That(t, undistorted.Bounds().Dy(), test.ShouldEqual, 6)
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			test.That(t, undistorted.NRGBAAt(x, y), test.ShouldResemble, img.NRGBAAt(x, y))
		}
	}
}

func TestUndistortImageErrors(t *testing.T) {
	model := zeroDistortionModel(8, 6)
	_, err := model.UndistortImage(nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = model.UndistortImage(image.NewNRGBA(image.Rect(0, 0, 4, 4)))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "don't match")
}

func TestUndistortProjectionInvertsDistortionMap(t *testing.T) {
	distortion, err := NewBrownConrady([]float64{-0.2, 0.1, 0, 0.001, -0.0005})
	test.That(t, err, test.ShouldBeNil)
	model := &CameraModel{
		&PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 500, Fy: 510, Ppx: 320, Ppy: 240},
		distortion,
	}
	distortionMap := model.DistortionMap()

	for _, pt := range [][2]float64{{400, 300}, {320, 240}, {100, 50}, {600, 460}} {
		u, v := pt[0], pt[1]
		x, y := distortionMap(u, v)
		row, col := model.UndistortProjection(y, x)
		test.That(t, row, test.ShouldAlmostEqual, v, 1e-6)
		test.That(t, col, test.ShouldAlmostEqual, u, 1e-6)
	}
}
