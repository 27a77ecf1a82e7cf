package rimage

import (
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestReadWriteImageFile(t *testing.T) {
	dir := t.TempDir()
	img := gradientImage(10, 8)

	pngPath := filepath.Join(dir, "img.png")
	test.That(t, WriteImageToFile(pngPath, img), test.ShouldBeNil)
	decoded, err := ReadImageFromFile(pngPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded.Bounds(), test.ShouldResemble, img.Bounds())
	got := ConvertToNRGBA(decoded)
	test.That(t, got.NRGBAAt(3, 2), test.ShouldResemble, img.NRGBAAt(3, 2))

	jpgPath := filepath.Join(dir, "img.jpg")
	test.That(t, WriteImageToFile(jpgPath, img), test.ShouldBeNil)
	decoded, err = ReadImageFromFile(jpgPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded.Bounds(), test.ShouldResemble, img.Bounds())

	test.That(t, WriteImageToFile(filepath.Join(dir, "img.bmp"), img), test.ShouldNotBeNil)

	_, err = ReadImageFromFile(filepath.Join(dir, "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
}
