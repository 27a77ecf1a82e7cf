package rimage

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// ReadImageFromFile extracts the RGB(A) image from the given file.
func ReadImageFromFile(fn string) (image.Image, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening image file %q", fn)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error decoding image file %q", fn)
	}
	return img, nil
}

// WriteImageToFile writes the image to the given file, encoded per the file
// extension (.png or .jpg/.jpeg).
func WriteImageToFile(fn string, img image.Image) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	switch filepath.Ext(fn) {
	case ".png":
		return png.Encode(f, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(f, img, nil)
	default:
		return errors.Errorf("do not know how to encode %q", fn)
	}
}
