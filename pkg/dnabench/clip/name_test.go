package clip

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/dnabench/pkg/models"
)

func TestNameRoundTrip(t *testing.T) {
	tests := []models.GroundTruth{
		{SongID: "Song_A", StartTime: 42, Duration: 5, Ext: "mp3"},
		{SongID: "Track1", StartTime: 10, Duration: 10, Ext: "mp3"},
		{SongID: "Daft Punk - Around the World", StartTime: 0, Duration: 15, Ext: "wav"},
		{SongID: "a_1_2", StartTime: 7, Duration: 3, Ext: "flac"},
		{SongID: "secret_seconds", StartTime: 99, Duration: 1, Ext: "ogg"},
	}

	for _, gt := range tests {
		name := FileName(gt.SongID, gt.StartTime, gt.Duration, gt.Ext)
		got, err := ParseName(name)
		if err != nil {
			t.Errorf("ParseName(%q): %v", name, err)
			continue
		}
		if got != gt {
			t.Errorf("round trip of %+v gave %+v (name %q)", gt, got, name)
		}
	}
}

func TestFileNameFormat(t *testing.T) {
	if got := FileName("Track1", 42, 10, ".mp3"); got != "Track1_42_10sec.mp3" {
		t.Errorf("FileName = %q", got)
	}
	gt := models.GroundTruth{SongID: "Song_A", StartTime: 42, Duration: 5, Ext: "mp3"}
	if got := PathFor("/clips", gt); got != filepath.Join("/clips", "Song_A_42_5sec.mp3") {
		t.Errorf("PathFor = %q", got)
	}
}

func TestParseNameAcceptsPaths(t *testing.T) {
	gt, err := ParseName(filepath.Join("some", "dir", "Track1_280_10sec.mp3"))
	if err != nil {
		t.Fatalf("ParseName: %v", err)
	}
	if gt.SongID != "Track1" || gt.StartTime != 280 || gt.Duration != 10 {
		t.Errorf("unexpected ground truth %+v", gt)
	}
}

func TestParseNameRejects(t *testing.T) {
	bad := []string{
		"Track1.mp3",
		"Track1_42_5.mp3",
		"Track1_x_5sec.mp3",
		"_42_5sec.mp3",
		"Track1_42_5sec",
		".DS_Store",
		"Track1_-4_5sec.mp3",
	}
	for _, name := range bad {
		if _, err := ParseName(name); !errors.Is(err, ErrBadName) {
			t.Errorf("ParseName(%q) err = %v, want ErrBadName", name, err)
		}
	}
}
