// Package dataset pairs synchronized camera images and lidar scans from a
// driving-sensor dataset and serves undistorted, consistently cropped
// (image, point cloud) samples split into train/val partitions.
package dataset

import (
	"fmt"
	"image"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/pairedscan/calib"
	"go.viam.com/pairedscan/pointcloud"
)

// Split selects which partition of the index a dataset serves.
type Split string

const (
	// SplitTrain serves the chronological prefix of every sequence.
	SplitTrain = Split("train")
	// SplitVal serves the chronological suffix of every sequence.
	SplitVal = Split("val")
)

const (
	// DefaultView is the camera/lidar view paired by default.
	DefaultView = "front_center"
	// DefaultMaxAttempts bounds the resampling search for a non-empty crop.
	DefaultMaxAttempts = 100

	defaultOutputHeight = 224
	defaultOutputWidth  = 224
)

// Config describes how to construct a Dataset. All paths are explicit; there
// are no implicit filesystem defaults.
type Config struct {
	Root             string  `json:"root"`
	CalibrationPath  string  `json:"calibration_path"`
	MissingScansPath string  `json:"missing_scans_path"`
	EmptyCloudsPath  string  `json:"empty_clouds_path"`
	View             string  `json:"view,omitempty"`
	Crop             *Size   `json:"crop_size,omitempty"`
	OutputSize       *Size   `json:"output_size,omitempty"`
	ValRatio         float64 `json:"val_ratio"`
	Split            Split   `json:"split"`
	Augment          bool    `json:"augment,omitempty"`
	RemapProjections bool    `json:"remap_projections,omitempty"`
	MaxAttempts      int     `json:"max_attempts,omitempty"`
}

// Validate checks that the config attributes are valid for a dataset.
func (cfg *Config) Validate() error {
	if cfg.Root == "" {
		return goutils.NewConfigValidationFieldRequiredError("", "root")
	}
	if cfg.CalibrationPath == "" {
		return goutils.NewConfigValidationFieldRequiredError("", "calibration_path")
	}
	if cfg.MissingScansPath == "" {
		return goutils.NewConfigValidationFieldRequiredError("", "missing_scans_path")
	}
	if cfg.EmptyCloudsPath == "" {
		return goutils.NewConfigValidationFieldRequiredError("", "empty_clouds_path")
	}
	if cfg.Split != SplitTrain && cfg.Split != SplitVal {
		return errors.Errorf("invalid split value: %q, use %q or %q", cfg.Split, SplitTrain, SplitVal)
	}
	if cfg.Crop != nil && (cfg.Crop.Height <= 0 || cfg.Crop.Width <= 0) {
		return errors.Errorf("invalid crop size (%d, %d)", cfg.Crop.Height, cfg.Crop.Width)
	}
	if cfg.OutputSize != nil && (cfg.OutputSize.Height <= 0 || cfg.OutputSize.Width <= 0) {
		return errors.Errorf("invalid output size (%d, %d)", cfg.OutputSize.Height, cfg.OutputSize.Width)
	}
	if cfg.MaxAttempts < 0 {
		return errors.Errorf("invalid max attempts %d", cfg.MaxAttempts)
	}
	return nil
}

// ImageTransform is an opaque image-to-image augmentation applied after
// alignment, supplied by an external collaborator.
type ImageTransform func(*image.NRGBA) *image.NRGBA

// Option configures optional dataset collaborators.
type Option func(*Dataset)

// WithDecoder replaces the default file-backed decoder.
func WithDecoder(decoder Decoder) Option {
	return func(d *Dataset) { d.decoder = decoder }
}

// WithAugmentation installs the augmentation transform applied when
// Config.Augment is set.
func WithAugmentation(transform ImageTransform) Option {
	return func(d *Dataset) { d.augment = transform }
}

// Sample is one paired retrieval: the processed image and the point subset
// whose projections survived the crop, re-based to the crop origin.
type Sample struct {
	Image  *image.NRGBA
	Cloud  *pointcloud.ProjectedCloud
	Record RawRecord
}

// ExhaustedError is returned when consecutive crops emptied the point cloud
// for every attempted index.
type ExhaustedError struct {
	Index    int
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("could not find a valid sample after %d attempts starting from index %d",
		e.Attempts, e.Index)
}

// Dataset serves one partition of the paired record index. All fields are
// read-only after construction, so concurrent Get calls need no locking.
type Dataset struct {
	cam              *calib.CameraModel
	view             string
	records          []RawRecord
	aligner          *CropAligner
	decoder          Decoder
	augment          ImageTransform
	applyAugment     bool
	remapProjections bool
	maxAttempts      int
	logger           golog.Logger
}

// NewDataset loads calibration and exclusions, builds the partitioned record
// index and returns the dataset serving cfg.Split.
func NewDataset(cfg Config, logger golog.Logger, opts ...Option) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	calibration, err := calib.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		return nil, err
	}
	view := cfg.View
	if view == "" {
		view = DefaultView
	}
	cam, err := calibration.Camera(view)
	if err != nil {
		return nil, err
	}
	exclusions, err := LoadExclusionSet(cfg.MissingScansPath, cfg.EmptyCloudsPath)
	if err != nil {
		return nil, err
	}
	index, err := BuildIndex(cfg.Root, view, exclusions, cfg.ValRatio, logger)
	if err != nil {
		return nil, err
	}
	records := index.Train
	if cfg.Split == SplitVal {
		records = index.Val
	}

	output := Size{Height: defaultOutputHeight, Width: defaultOutputWidth}
	if cfg.OutputSize != nil {
		output = *cfg.OutputSize
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}

	d := &Dataset{
		cam:              cam,
		view:             view,
		records:          records,
		aligner:          NewCropAligner(cfg.Crop, output),
		decoder:          &fileDecoder{logger: logger},
		applyAugment:     cfg.Augment,
		remapProjections: cfg.RemapProjections,
		maxAttempts:      maxAttempts,
		logger:           logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Len returns the number of records in the active partition.
func (d *Dataset) Len() int {
	return len(d.records)
}

// View returns the camera/lidar view the dataset pairs.
func (d *Dataset) View() string {
	return d.view
}

// Records returns the active partition in chronological order.
func (d *Dataset) Records() []RawRecord {
	return d.records
}

// Get retrieves the sample at index. A random crop can legitimately discard
// every point of a sparse cloud; rather than returning an empty sample, Get
// advances to the next index (wrapping around) and tries again, bounded by
// the configured attempt limit. Decode and undistortion failures are data
// errors and propagate immediately.
func (d *Dataset) Get(index int) (*Sample, error) {
	if len(d.records) == 0 {
		return nil, errors.New("dataset partition is empty")
	}
	if index < 0 || index >= len(d.records) {
		return nil, errors.Errorf("index %d out of range [0, %d)", index, len(d.records))
	}
	current := index
	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		sample, err := d.sampleAt(current)
		if err != nil {
			return nil, err
		}
		if sample.Cloud.Size() > 0 {
			return sample, nil
		}
		current = (current + 1) % len(d.records)
	}
	return nil, &ExhaustedError{Index: index, Attempts: d.maxAttempts}
}

func (d *Dataset) sampleAt(index int) (*Sample, error) {
	record := d.records[index]
	cloud, err := d.decoder.DecodeScan(record.ScanPath)
	if err != nil {
		return nil, err
	}
	img, err := d.decoder.DecodeImage(record.ImagePath)
	if err != nil {
		return nil, err
	}
	undistorted, err := d.cam.UndistortImage(img)
	if err != nil {
		return nil, err
	}
	if d.remapProjections {
		cloud, err = remapProjections(cloud, d.cam)
		if err != nil {
			return nil, err
		}
	}
	outImage, outCloud, err := d.aligner.Align(undistorted, cloud)
	if err != nil {
		return nil, err
	}
	if d.applyAugment && d.augment != nil {
		outImage = d.augment(outImage)
	}
	return &Sample{Image: outImage, Cloud: outCloud, Record: record}, nil
}

// remapProjections moves every projection through the camera's undistortion
// model so point filtering happens on the rectified pixel grid the image was
// remapped to. Raw scan projections live in the distorted grid; see
// Config.RemapProjections.
func remapProjections(
	cloud *pointcloud.ProjectedCloud,
	cam *calib.CameraModel,
) (*pointcloud.ProjectedCloud, error) {
	points := make([]pointcloud.Point, 0, cloud.Size())
	projections := make([]pointcloud.Projection, 0, cloud.Size())
	cloud.Iterate(func(_ int, p pointcloud.Point, proj pointcloud.Projection) bool {
		row, col := cam.UndistortProjection(proj.Row, proj.Col)
		points = append(points, p)
		projections = append(projections, pointcloud.Projection{Row: row, Col: col})
		return true
	})
	return pointcloud.NewProjectedCloud(points, projections)
}
