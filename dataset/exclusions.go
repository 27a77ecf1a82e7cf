package dataset

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ExclusionSet holds scan identifiers known to be unusable: scans with
// missing paired files and scans whose point clouds are empty. Both sets are
// precomputed offline and loaded once at construction.
type ExclusionSet struct {
	missingScans map[string]struct{}
	emptyClouds  map[string]struct{}
}

// LoadExclusionSet reads the two membership files, each a JSON array of scan
// identifiers. An unreadable or malformed file is fatal: an index built
// without the exclusions would pair unusable records.
func LoadExclusionSet(missingScansPath, emptyCloudsPath string) (*ExclusionSet, error) {
	missing, err := readStringSet(missingScansPath)
	if err != nil {
		return nil, errors.Wrap(err, "error loading missing scans exclusions")
	}
	empty, err := readStringSet(emptyCloudsPath)
	if err != nil {
		return nil, errors.Wrap(err, "error loading empty point cloud exclusions")
	}
	return &ExclusionSet{missingScans: missing, emptyClouds: empty}, nil
}

func readStringSet(path string) (map[string]struct{}, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	byteValue, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(byteValue, &ids); err != nil {
		return nil, errors.Wrapf(err, "error parsing exclusion file %q", path)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// Excluded reports whether the scan identifier appears in either the
// missing-scan set or the empty-point-cloud set.
func (s *ExclusionSet) Excluded(scanID string) bool {
	if _, ok := s.missingScans[scanID]; ok {
		return true
	}
	_, ok := s.emptyClouds[scanID]
	return ok
}

// Len returns the total number of excluded identifiers.
func (s *ExclusionSet) Len() int {
	return len(s.missingScans) + len(s.emptyClouds)
}
