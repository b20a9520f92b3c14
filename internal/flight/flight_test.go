package flight

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadPoses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.txt")
	content := "view craft\n" +
		"start 1 2 3 4 5 6\n" +
		"# a comment line\n" +
		"start -1.5 0 2.25 90 -45 0.5\n" +
		"\n" +
		"start 0 0 0 0 0 0\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	poses, err := ReadPoses(path)
	if err != nil {
		t.Fatalf("ReadPoses: %v", err)
	}
	want := []Pose{
		{1, 2, 3, 4, 5, 6},
		{-1.5, 0, 2.25, 90, -45, 0.5},
		{0, 0, 0, 0, 0, 0},
	}
	if diff := cmp.Diff(want, poses); diff != "" {
		t.Errorf("pose mismatch (-want +got):\n%s", diff)
	}
}

func TestReadPosesCRLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.txt")
	content := "view craft\r\nstart 1 2 3 4 5 6\r\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	poses, err := ReadPoses(path)
	if err != nil {
		t.Fatalf("ReadPoses: %v", err)
	}
	if len(poses) != 1 || poses[0] != (Pose{1, 2, 3, 4, 5, 6}) {
		t.Errorf("got %+v", poses)
	}
}

func TestReadPosesBadValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.txt")
	os.WriteFile(path, []byte("start 1 2 three 4 5 6\n"), 0o644)
	if _, err := ReadPoses(path); err == nil {
		t.Error("expected error for non-numeric pose value")
	}
}

func TestReadPosesMissingFile(t *testing.T) {
	if _, err := ReadPoses(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteLinearRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linear.txt")
	start := Pose{0, 0, 100, 0, -90, 0}
	end := Pose{10, 20, 100, 0, -90, 0}
	if err := WriteLinear(path, 4, start, end); err != nil {
		t.Fatalf("WriteLinear: %v", err)
	}

	poses, err := ReadPoses(path)
	if err != nil {
		t.Fatalf("ReadPoses: %v", err)
	}
	if len(poses) != 4 {
		t.Fatalf("wrote %d poses, want 4", len(poses))
	}
	if poses[0] != start {
		t.Errorf("first pose = %+v, want %+v", poses[0], start)
	}
	// Step i moves i/frames of the way towards end.
	if got, want := poses[2].X, 5.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("pose[2].X = %v, want %v", got, want)
	}
	if got, want := poses[3].Y, 15.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("pose[3].Y = %v, want %v", got, want)
	}
}

func TestWriteEquatorialOrbit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orbit.txt")
	target := Target{X: 100, Y: -50, Z: 25}
	radius := 40.0
	if err := WriteEquatorialOrbit(path, 8, target, radius, 0, 360); err != nil {
		t.Fatalf("WriteEquatorialOrbit: %v", err)
	}

	poses, err := ReadPoses(path)
	if err != nil {
		t.Fatalf("ReadPoses: %v", err)
	}
	if len(poses) != 8 {
		t.Fatalf("wrote %d poses, want 8", len(poses))
	}
	for i, p := range poses {
		dx := p.X - target.X
		dy := p.Y - target.Y
		r := math.Hypot(dx, dy)
		if math.Abs(r-radius) > 1e-9 {
			t.Errorf("pose %d: distance from target = %v, want %v", i, r, radius)
		}
		if p.Z != target.Z {
			t.Errorf("pose %d: Z = %v, want %v", i, p.Z, target.Z)
		}
		if p.Pitch != 0 || p.Roll != 0 {
			t.Errorf("pose %d: pitch/roll = %v/%v, want 0/0", i, p.Pitch, p.Roll)
		}
	}

	// Frame 0 at azimuth 0 sits north of the target facing back at it.
	if math.Abs(poses[0].X-target.X) > 1e-9 || math.Abs(poses[0].Y-(target.Y+radius)) > 1e-9 {
		t.Errorf("pose 0 position = (%v, %v)", poses[0].X, poses[0].Y)
	}
	if math.Abs(poses[0].Yaw-180) > 1e-9 {
		t.Errorf("pose 0 yaw = %v, want 180", poses[0].Yaw)
	}

	// Azimuths advance by span/frames = 45 degrees.
	if math.Abs(poses[2].X-(target.X+radius)) > 1e-9 {
		t.Errorf("pose 2 should sit due east of target, X = %v", poses[2].X)
	}
}
