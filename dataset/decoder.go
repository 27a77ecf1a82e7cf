package dataset

import (
	"image"

	"github.com/edaniels/golog"

	"go.viam.com/pairedscan/pointcloud"
	"go.viam.com/pairedscan/rimage"
)

// Decoder turns on-disk record identifiers into decoded arrays. The
// alignment core depends only on this capability, not on file formats.
type Decoder interface {
	DecodeImage(path string) (image.Image, error)
	DecodeScan(path string) (*pointcloud.ProjectedCloud, error)
}

// fileDecoder is the default Decoder over the dataset's native formats:
// png/jpeg images and psc scans.
type fileDecoder struct {
	logger golog.Logger
}

func (d *fileDecoder) DecodeImage(path string) (image.Image, error) {
	return rimage.ReadImageFromFile(path)
}

func (d *fileDecoder) DecodeScan(path string) (*pointcloud.ProjectedCloud, error) {
	return pointcloud.NewFromFile(path, d.logger)
}
