// Package flight handles camera pose sequences: the line-oriented flight
// files a run is driven by, and the offline generators that write them.
package flight

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Pose is a camera position and attitude. Angles are in degrees, matching
// the flight-file format and the render protocol's degree-based viewpoint
// call.
type Pose struct {
	X     float64
	Y     float64
	Z     float64
	Yaw   float64
	Pitch float64
	Roll  float64
}

// ReadPoses parses a flight file into its ordered pose sequence. Lines
// beginning with the token "start" carry six whitespace-separated decimals;
// all other lines (the "view craft" header included) are ignored.
func ReadPoses(path string) ([]Pose, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open flight file: %w", err)
	}
	defer f.Close()

	var poses []Pose
	scan := bufio.NewScanner(f)
	lineNo := 0
	for scan.Scan() {
		lineNo++
		fields := strings.Fields(scan.Text())
		if len(fields) == 0 || fields[0] != "start" {
			continue
		}
		if len(fields) < 7 {
			return nil, fmt.Errorf("line %d: start line has %d values, want 6", lineNo, len(fields)-1)
		}
		var vals [6]float64
		for i := 0; i < 6; i++ {
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid value %q: %w", lineNo, fields[i+1], err)
			}
			vals[i] = v
		}
		poses = append(poses, Pose{vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]})
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("failed to read flight file: %w", err)
	}
	return poses, nil
}
