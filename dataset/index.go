package dataset

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

const (
	scanExt     = ".psc"
	imageExt    = ".png"
	lidarToken  = "lidar"
	cameraToken = "camera"
)

// RawRecord identifies one synchronized scan: the scan file, its derived
// paired image file and the sequence the capture belongs to. The image path
// is a pure function of the scan path: the modality token and the file
// suffix are swapped per the dataset naming convention.
type RawRecord struct {
	ScanPath  string
	ImagePath string
	Sequence  string
}

// PartitionedIndex is the chronological train/val split of all discovered
// records, flattened across sequences. It is immutable after construction
// and safe for concurrent reads.
type PartitionedIndex struct {
	Train []RawRecord
	Val   []RawRecord
}

// BuildIndex discovers all scan records for the given camera view under
// root, drops excluded scans, groups survivors by sequence and splits each
// sequence chronologically: the first records train, the last
// floor(n*valRatio) validate. Sequential captures make adjacent frames
// near-identical, so a random split would leak train frames into val.
func BuildIndex(
	root, view string,
	exclusions *ExclusionSet,
	valRatio float64,
	logger golog.Logger,
) (*PartitionedIndex, error) {
	if valRatio < 0 || valRatio > 0.5 {
		clamped := valRatio
		if clamped < 0 {
			clamped = 0
		}
		if clamped > 0.5 {
			clamped = 0.5
		}
		logger.Warnf("val ratio should be between 0 and 0.5, setting %v to %v", valRatio, clamped)
		valRatio = clamped
	}

	scanPaths, err := filepath.Glob(filepath.Join(root, "*", lidarToken, view, "*"+scanExt))
	if err != nil {
		return nil, errors.Wrapf(err, "error discovering scans under %q", root)
	}
	// Lexicographic order of scan identifiers is capture order.
	sort.Strings(scanPaths)

	var sequenceOrder []string
	groups := map[string][]RawRecord{}
	for _, scanPath := range scanPaths {
		if exclusions.Excluded(scanPath) {
			continue
		}
		sequence := sequenceName(scanPath)
		if _, ok := groups[sequence]; !ok {
			sequenceOrder = append(sequenceOrder, sequence)
		}
		groups[sequence] = append(groups[sequence], RawRecord{
			ScanPath:  scanPath,
			ImagePath: imagePathFor(root, sequence, view, scanPath),
			Sequence:  sequence,
		})
	}

	index := &PartitionedIndex{}
	for _, sequence := range sequenceOrder {
		records := groups[sequence]
		valCount := int(float64(len(records)) * valRatio)
		trainCount := len(records) - valCount
		index.Train = append(index.Train, records[:trainCount]...)
		index.Val = append(index.Val, records[trainCount:]...)
	}
	return index, nil
}

// sequenceName is the fourth path segment from the end, per the
// <root>/<sequence>/lidar/<view>/<id> layout convention.
func sequenceName(scanPath string) string {
	segments := strings.Split(filepath.ToSlash(scanPath), "/")
	if len(segments) < 4 {
		return ""
	}
	return segments[len(segments)-4]
}

func imagePathFor(root, sequence, view, scanPath string) string {
	name := filepath.Base(scanPath)
	name = strings.Replace(name, lidarToken, cameraToken, 1)
	name = strings.TrimSuffix(name, scanExt) + imageExt
	return filepath.Join(root, sequence, cameraToken, view, name)
}
