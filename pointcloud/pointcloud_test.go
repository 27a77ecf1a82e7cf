package pointcloud

import (
	"testing"

	"go.viam.com/test"
)

func TestNewProjectedCloud(t *testing.T) {
	points := []Point{
		{Pos: NewVector(1, 2, 3), Reflectance: 40},
		{Pos: NewVector(4, 5, 6), Reflectance: 80},
	}
	projections := []Projection{{Row: 10, Col: 20}, {Row: 11, Col: 21}}

	cloud, err := NewProjectedCloud(points, projections)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 2)

	p, proj := cloud.At(1)
	test.That(t, p.Pos.X, test.ShouldEqual, 4.0)
	test.That(t, p.Reflectance, test.ShouldEqual, 80.0)
	test.That(t, proj, test.ShouldResemble, Projection{Row: 11, Col: 21})

	_, err = NewProjectedCloud(points, projections[:1])
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "does not match")
}

func TestProjectedCloudIterate(t *testing.T) {
	points := []Point{
		{Pos: NewVector(1, 0, 0)},
		{Pos: NewVector(2, 0, 0)},
		{Pos: NewVector(3, 0, 0)},
	}
	projections := make([]Projection, 3)
	cloud, err := NewProjectedCloud(points, projections)
	test.That(t, err, test.ShouldBeNil)

	var visited []float64
	cloud.Iterate(func(_ int, p Point, _ Projection) bool {
		visited = append(visited, p.Pos.X)
		return true
	})
	test.That(t, visited, test.ShouldResemble, []float64{1, 2, 3})

	visited = nil
	cloud.Iterate(func(i int, p Point, _ Projection) bool {
		visited = append(visited, p.Pos.X)
		return i < 1
	})
	test.That(t, visited, test.ShouldResemble, []float64{1, 2})
}

func TestEmptyProjectedCloud(t *testing.T) {
	cloud, err := NewProjectedCloud(nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 0)
}
