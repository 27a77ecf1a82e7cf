// Package main samples a paired camera/lidar dataset and reports
// point-retention statistics for the configured crop.
package main

import (
	"context"
	"math/rand"
	"sort"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/pairedscan/dataset"
	"go.viam.com/pairedscan/pointcloud"
)

var logger = golog.NewDevelopmentLogger("pairsample")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	Root        string  `flag:"root,usage=dataset root directory"`
	Calibration string  `flag:"calibration,usage=calibration JSON file"`
	Missing     string  `flag:"missing,usage=missing scans exclusion file"`
	Empty       string  `flag:"empty,usage=empty point cloud exclusion file"`
	Split       string  `flag:"split,default=train,usage=partition to sample (train|val)"`
	ValRatio    float64 `flag:"val-ratio,default=0.2,usage=validation ratio in [0 0.5]"`
	CropHeight  int     `flag:"crop-height,usage=crop height in pixels (0 disables cropping)"`
	CropWidth   int     `flag:"crop-width,usage=crop width in pixels (0 disables cropping)"`
	Samples     int     `flag:"samples,default=50,usage=number of samples to draw"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Samples <= 0 {
		return errors.New("samples must be positive")
	}

	cfg := dataset.Config{
		Root:             argsParsed.Root,
		CalibrationPath:  argsParsed.Calibration,
		MissingScansPath: argsParsed.Missing,
		EmptyCloudsPath:  argsParsed.Empty,
		ValRatio:         argsParsed.ValRatio,
		Split:            dataset.Split(argsParsed.Split),
	}
	if argsParsed.CropHeight > 0 && argsParsed.CropWidth > 0 {
		cfg.Crop = &dataset.Size{Height: argsParsed.CropHeight, Width: argsParsed.CropWidth}
	}

	return sampleDataset(ctx, cfg, argsParsed.Samples, logger)
}

func sampleDataset(ctx context.Context, cfg dataset.Config, numSamples int, logger golog.Logger) error {
	set, err := dataset.NewDataset(cfg, logger)
	if err != nil {
		return err
	}
	logger.Infow("dataset built", "split", cfg.Split, "records", set.Len())
	if set.Len() == 0 {
		return errors.New("no records in partition")
	}

	retained := make([]float64, 0, numSamples)
	counts := make([]float64, 0, numSamples)
	for i := 0; i < numSamples; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		index := rand.Intn(set.Len())
		sample, err := set.Get(index)
		if err != nil {
			var exhausted *dataset.ExhaustedError
			if errors.As(err, &exhausted) {
				logger.Warnw("skipping exhausted index", "index", exhausted.Index, "attempts", exhausted.Attempts)
				continue
			}
			return err
		}
		raw, err := pointcloud.NewFromFile(sample.Record.ScanPath, logger)
		if err != nil {
			return err
		}
		counts = append(counts, float64(sample.Cloud.Size()))
		if raw.Size() > 0 {
			retained = append(retained, float64(sample.Cloud.Size())/float64(raw.Size()))
		}
	}
	if len(counts) == 0 {
		return errors.New("no usable samples drawn")
	}

	sort.Float64s(counts)
	sort.Float64s(retained)
	logger.Infow("point counts",
		"samples", len(counts),
		"mean", stat.Mean(counts, nil),
		"median", stat.Quantile(0.5, stat.Empirical, counts, nil),
		"min", counts[0],
		"max", counts[len(counts)-1],
	)
	if len(retained) > 0 {
		logger.Infow("retention ratios",
			"mean", stat.Mean(retained, nil),
			"median", stat.Quantile(0.5, stat.Empirical, retained, nil),
			"stddev", stat.StdDev(retained, nil),
		)
	}
	return nil
}
