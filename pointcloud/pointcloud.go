// Package pointcloud defines point clouds whose points carry a pixel
// projection into a paired camera image, and IO for the PSC scan format.
package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// NewVector convenience method for creating a vector.
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

// Point is one lidar return: its position and reflectance.
type Point struct {
	Pos         r3.Vector
	Reflectance float64
}

// Projection is the (row, col) pixel location a point maps to in the paired
// camera's image plane.
type Projection struct {
	Row float64
	Col float64
}

// ProjectedCloud is an ordered set of points with a parallel, index-aligned
// set of pixel projections. Both slices are immutable once constructed.
type ProjectedCloud struct {
	points      []Point
	projections []Projection
}

// NewProjectedCloud returns a cloud over the given points and projections.
// The two slices must be the same length; a mismatch means the scan decode
// broke the pairing contract.
func NewProjectedCloud(points []Point, projections []Projection) (*ProjectedCloud, error) {
	if len(points) != len(projections) {
		return nil, errors.Errorf("point count %d does not match projection count %d",
			len(points), len(projections))
	}
	return &ProjectedCloud{points: points, projections: projections}, nil
}

// Size returns the number of points in the cloud.
func (cloud *ProjectedCloud) Size() int {
	return len(cloud.points)
}

// At returns the point and its projection at index i.
func (cloud *ProjectedCloud) At(i int) (Point, Projection) {
	return cloud.points[i], cloud.projections[i]
}

// Iterate walks the cloud in order, stopping early if fn returns false.
func (cloud *ProjectedCloud) Iterate(fn func(i int, p Point, proj Projection) bool) {
	for i := range cloud.points {
		if !fn(i, cloud.points[i], cloud.projections[i]) {
			return
		}
	}
}
