package dataset

import (
	"image"
	"math/rand"

	"go.viam.com/pairedscan/pointcloud"
	"go.viam.com/pairedscan/rimage"
)

// Size is a (height, width) extent in pixels.
type Size struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

// CropWindow is an axis-aligned crop rectangle in pixel coordinates, chosen
// fresh for every sample-retrieval attempt.
type CropWindow struct {
	Top    int
	Left   int
	Height int
	Width  int
}

// Rectangle returns the window as an image.Rectangle.
func (w CropWindow) Rectangle() image.Rectangle {
	return image.Rect(w.Left, w.Top, w.Left+w.Width, w.Top+w.Height)
}

// Contains reports whether a pixel projection falls inside the window.
func (w CropWindow) Contains(proj pointcloud.Projection) bool {
	return proj.Row >= float64(w.Top) && proj.Row < float64(w.Top+w.Height) &&
		proj.Col >= float64(w.Left) && proj.Col < float64(w.Left+w.Width)
}

// CropAligner spatially restricts an image and its paired projected point
// cloud to the same randomly placed window, keeping the pixel-to-point
// correspondence exact, then resizes the image to a fixed output size.
// Aligners hold no mutable state and are safe for concurrent use.
type CropAligner struct {
	crop   *Size // nil disables cropping
	output Size
}

// NewCropAligner returns an aligner cropping to crop (pass nil to disable)
// and resizing results to output.
func NewCropAligner(crop *Size, output Size) *CropAligner {
	return &CropAligner{crop: crop, output: output}
}

// Align crops the image and the point cloud to one uniformly random window
// and resizes the cropped image to the fixed output size. Points whose
// projection falls outside the window are dropped and the survivors'
// projections are re-based to the window origin; an empty result is normal
// and left to the caller to handle. Without a crop size the full image and
// cloud pass through (the image still resized).
func (a *CropAligner) Align(
	img image.Image,
	cloud *pointcloud.ProjectedCloud,
) (*image.NRGBA, *pointcloud.ProjectedCloud, error) {
	if a.crop == nil {
		return rimage.ResizeImage(img, a.output.Width, a.output.Height), cloud, nil
	}
	return a.alignWindow(img, cloud, randomWindow(img.Bounds(), *a.crop))
}

// randomWindow picks a window uniformly at random inside bounds. A target
// larger than the image in either dimension is clamped to the image extent.
func randomWindow(bounds image.Rectangle, target Size) CropWindow {
	height := target.Height
	if height > bounds.Dy() {
		height = bounds.Dy()
	}
	width := target.Width
	if width > bounds.Dx() {
		width = bounds.Dx()
	}
	return CropWindow{
		Top:    bounds.Min.Y + rand.Intn(bounds.Dy()-height+1),
		Left:   bounds.Min.X + rand.Intn(bounds.Dx()-width+1),
		Height: height,
		Width:  width,
	}
}

func (a *CropAligner) alignWindow(
	img image.Image,
	cloud *pointcloud.ProjectedCloud,
	window CropWindow,
) (*image.NRGBA, *pointcloud.ProjectedCloud, error) {
	cropped := rimage.CropImage(img, window.Rectangle())

	points := make([]pointcloud.Point, 0, cloud.Size())
	projections := make([]pointcloud.Projection, 0, cloud.Size())
	cloud.Iterate(func(_ int, p pointcloud.Point, proj pointcloud.Projection) bool {
		if window.Contains(proj) {
			points = append(points, p)
			projections = append(projections, pointcloud.Projection{
				Row: proj.Row - float64(window.Top),
				Col: proj.Col - float64(window.Left),
			})
		}
		return true
	})
	filtered, err := pointcloud.NewProjectedCloud(points, projections)
	if err != nil {
		return nil, nil, err
	}
	return rimage.ResizeImage(cropped, a.output.Width, a.output.Height), filtered, nil
}
