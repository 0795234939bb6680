// Package clip turns reference recordings into ground-truth-labelled query
// clips. The file name is the only record of where a clip came from:
//
//	<song_id>_<start_time>_<duration>sec.<ext>
package clip

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/himanishpuri/dnabench/pkg/models"
)

// ErrBadName is returned for file names that do not follow the clip naming
// contract.
var ErrBadName = errors.New("not a clip file name")

// The song ID is matched greedily so identifiers containing underscores
// still parse: the two numeric fields are anchored to the end of the name.
var namePattern = regexp.MustCompile(`^(.+)_(\d+)_(\d+)sec\.([^./\\]+)$`)

// FileName encodes a clip's ground truth. ext may carry a leading dot.
func FileName(songID string, start, duration int, ext string) string {
	return fmt.Sprintf("%s_%d_%dsec.%s", songID, start, duration, strings.TrimPrefix(ext, "."))
}

// PathFor joins FileName onto dir.
func PathFor(dir string, gt models.GroundTruth) string {
	return filepath.Join(dir, FileName(gt.SongID, gt.StartTime, gt.Duration, gt.Ext))
}

// ParseName recovers the ground truth from a clip file name or path.
func ParseName(name string) (models.GroundTruth, error) {
	base := filepath.Base(name)
	m := namePattern.FindStringSubmatch(base)
	if m == nil {
		return models.GroundTruth{}, fmt.Errorf("%w: %q", ErrBadName, base)
	}

	start, err := strconv.Atoi(m[2])
	if err != nil {
		return models.GroundTruth{}, fmt.Errorf("%w: start time in %q: %v", ErrBadName, base, err)
	}
	duration, err := strconv.Atoi(m[3])
	if err != nil {
		return models.GroundTruth{}, fmt.Errorf("%w: duration in %q: %v", ErrBadName, base, err)
	}

	return models.GroundTruth{
		SongID:    m[1],
		StartTime: start,
		Duration:  duration,
		Ext:       m[4],
	}, nil
}
