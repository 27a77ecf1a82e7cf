package dataset

import (
	"image"
	"testing"

	"go.viam.com/test"

	"go.viam.com/pairedscan/pointcloud"
)

func testAlignCloud(t *testing.T) *pointcloud.ProjectedCloud {
	t.Helper()
	points := []pointcloud.Point{
		{Pos: pointcloud.NewVector(1, 2, 3), Reflectance: 10},
		{Pos: pointcloud.NewVector(4, 5, 6), Reflectance: 20},
		{Pos: pointcloud.NewVector(7, 8, 9), Reflectance: 30},
	}
	projections := []pointcloud.Projection{
		{Row: 2, Col: 3},
		{Row: 10, Col: 14},
		{Row: 19.5, Col: 29.5},
	}
	cloud, err := pointcloud.NewProjectedCloud(points, projections)
	test.That(t, err, test.ShouldBeNil)
	return cloud
}

func TestRandomWindowContainment(t *testing.T) {
	bounds := image.Rect(0, 0, 30, 20)
	for i := 0; i < 1000; i++ {
		window := randomWindow(bounds, Size{Height: 8, Width: 12})
		test.That(t, window.Height, test.ShouldEqual, 8)
		test.That(t, window.Width, test.ShouldEqual, 12)
		test.That(t, window.Top, test.ShouldBeGreaterThanOrEqualTo, 0)
		test.That(t, window.Left, test.ShouldBeGreaterThanOrEqualTo, 0)
		test.That(t, window.Top+window.Height, test.ShouldBeLessThanOrEqualTo, 20)
		test.That(t, window.Left+window.Width, test.ShouldBeLessThanOrEqualTo, 30)
	}
}

func TestRandomWindowClampsToImage(t *testing.T) {
	bounds := image.Rect(0, 0, 10, 6)
	window := randomWindow(bounds, Size{Height: 50, Width: 50})
	test.That(t, window, test.ShouldResemble, CropWindow{Top: 0, Left: 0, Height: 6, Width: 10})
}

func TestAlignWindowFiltersAndRebases(t *testing.T) {
	aligner := NewCropAligner(&Size{Height: 10, Width: 12}, Size{Height: 10, Width: 12})
	img := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	cloud := testAlignCloud(t)

	window := CropWindow{Top: 5, Left: 10, Height: 10, Width: 12}
	outImage, outCloud, err := aligner.alignWindow(img, cloud, window)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, outImage.Bounds().Dx(), test.ShouldEqual, 12)
	test.That(t, outImage.Bounds().Dy(), test.ShouldEqual, 10)

	// only the middle point projects inside [5,15) x [10,22)
	test.That(t, outCloud.Size(), test.ShouldEqual, 1)
	p, proj := outCloud.At(0)
	test.That(t, p.Reflectance, test.ShouldEqual, 20.0)
	test.That(t, p.Pos, test.ShouldResemble, pointcloud.NewVector(4, 5, 6))
	// re-based to the window origin
	test.That(t, proj, test.ShouldResemble, pointcloud.Projection{Row: 5, Col: 4})
}

func TestAlignWindowFullImagePassesAllPoints(t *testing.T) {
	aligner := NewCropAligner(&Size{Height: 20, Width: 30}, Size{Height: 20, Width: 30})
	img := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	cloud := testAlignCloud(t)

	window := CropWindow{Top: 0, Left: 0, Height: 20, Width: 30}
	_, outCloud, err := aligner.alignWindow(img, cloud, window)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, outCloud, test.ShouldResemble, cloud)
}

func TestAlignWindowCanEmptyTheCloud(t *testing.T) {
	aligner := NewCropAligner(&Size{Height: 2, Width: 2}, Size{Height: 2, Width: 2})
	img := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	cloud := testAlignCloud(t)

	window := CropWindow{Top: 16, Left: 0, Height: 2, Width: 2}
	_, outCloud, err := aligner.alignWindow(img, cloud, window)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, outCloud.Size(), test.ShouldEqual, 0)
}

func TestAlignMonotonicPointCount(t *testing.T) {
	aligner := NewCropAligner(&Size{Height: 7, Width: 9}, Size{Height: 7, Width: 9})
	img := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	cloud := testAlignCloud(t)

	for i := 0; i < 200; i++ {
		_, outCloud, err := aligner.Align(img, cloud)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, outCloud.Size(), test.ShouldBeLessThanOrEqualTo, cloud.Size())
	}
}

func TestAlignWithoutCropPassesThrough(t *testing.T) {
	aligner := NewCropAligner(nil, Size{Height: 8, Width: 8})
	img := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	cloud := testAlignCloud(t)

	outImage, outCloud, err := aligner.Align(img, cloud)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, outCloud, test.ShouldEqual, cloud)
	test.That(t, outImage.Bounds().Dx(), test.ShouldEqual, 8)
	test.That(t, outImage.Bounds().Dy(), test.ShouldEqual, 8)
}

func TestCropWindowContains(t *testing.T) {
	window := CropWindow{Top: 5, Left: 10, Height: 10, Width: 12}
	test.That(t, window.Contains(pointcloud.Projection{Row: 5, Col: 10}), test.ShouldBeTrue)
	test.That(t, window.Contains(pointcloud.Projection{Row: 14.999, Col: 21.999}), test.ShouldBeTrue)
	// exclusive upper bounds
	test.That(t, window.Contains(pointcloud.Projection{Row: 15, Col: 10}), test.ShouldBeFalse)
	test.That(t, window.Contains(pointcloud.Projection{Row: 5, Col: 22}), test.ShouldBeFalse)
	test.That(t, window.Contains(pointcloud.Projection{Row: 4.999, Col: 10}), test.ShouldBeFalse)
}
