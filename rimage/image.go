// Package rimage defines image decoding, cropping, resizing and sampling
// helpers shared by the calibration and dataset packages.
package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/golang/geo/r2"
)

// ConvertToNRGBA converts an image to an NRGBA image, cloning it if it
// already is one.
func ConvertToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// CropImage returns the part of the image inside the given rectangle.
func CropImage(img image.Image, rect image.Rectangle) *image.NRGBA {
	return imaging.Crop(img, rect)
}

// ResizeImage resizes the image to the exact width and height using linear
// interpolation.
func ResizeImage(img image.Image, width, height int) *image.NRGBA {
	return imaging.Resize(img, width, height, imaging.Linear)
}

// NearestNeighborColor returns the color of the pixel closest to the given
// point, or nil if the point rounds outside the image bounds.
func NearestNeighborColor(pt r2.Point, img image.Image) *color.NRGBA {
	x, y := int(math.Round(pt.X)), int(math.Round(pt.Y))
	if !image.Pt(x, y).In(img.Bounds()) {
		return nil
	}
	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	return &c
}

// BilinearColor interpolates the color at the given point from its four
// neighboring pixels, or returns nil if the point falls outside the image
// bounds.
func BilinearColor(pt r2.Point, img image.Image) *color.NRGBA {
	bounds := img.Bounds()
	if pt.X < float64(bounds.Min.X) || pt.X > float64(bounds.Max.X-1) ||
		pt.Y < float64(bounds.Min.Y) || pt.Y > float64(bounds.Max.Y-1) {
		return nil
	}
	x0 := int(math.Floor(pt.X))
	y0 := int(math.Floor(pt.Y))
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > bounds.Max.X-1 {
		x1 = x0
	}
	if y1 > bounds.Max.Y-1 {
		y1 = y0
	}
	dx := pt.X - float64(x0)
	dy := pt.Y - float64(y0)

	c00 := color.NRGBAModel.Convert(img.At(x0, y0)).(color.NRGBA)
	c10 := color.NRGBAModel.Convert(img.At(x1, y0)).(color.NRGBA)
	c01 := color.NRGBAModel.Convert(img.At(x0, y1)).(color.NRGBA)
	c11 := color.NRGBAModel.Convert(img.At(x1, y1)).(color.NRGBA)

	blend := func(v00, v10, v01, v11 uint8) uint8 {
		top := float64(v00)*(1-dx) + float64(v10)*dx
		bottom := float64(v01)*(1-dx) + float64(v11)*dx
		return uint8(math.Round(top*(1-dy) + bottom*dy))
	}
	return &color.NRGBA{
		R: blend(c00.R, c10.R, c01.R, c11.R),
		G: blend(c00.G, c10.G, c01.G, c11.G),
		B: blend(c00.B, c10.B, c01.B, c11.B),
		A: blend(c00.A, c10.A, c01.A, c11.A),
	}
}
