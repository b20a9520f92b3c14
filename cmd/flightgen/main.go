// Command flightgen writes pose-sequence (flight) files for tracking runs:
// a linear interpolation between two poses, or an equatorial orbit around a
// target point.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/terrain-data/feature.track/internal/flight"
)

var (
	out    = flag.String("out", "flight.txt", "Output flight file path")
	mode   = flag.String("mode", "linear", "Generator: linear or orbit")
	frames = flag.Int("frames", 100, "Number of poses to write")

	// linear mode
	startPose = flag.String("start", "0,0,100,0,0,0", "Start pose x,y,z,yaw,pitch,roll")
	endPose   = flag.String("end", "100,0,100,0,0,0", "End pose x,y,z,yaw,pitch,roll")

	// orbit mode
	target       = flag.String("target", "0,0,0", "Orbit target point x,y,z")
	radius       = flag.Float64("radius", 100, "Orbit radius")
	startAzimuth = flag.Float64("start-azimuth", 0, "Orbit start azimuth in degrees")
	azimuthSpan  = flag.Float64("azimuth-span", 360, "Orbit azimuth span in degrees")
)

// parseCSVFloatSlice parses a comma-separated list of floats.
func parseCSVFloatSlice(s string, want int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != want {
		return nil, fmt.Errorf("want %d comma-separated values, got %d", want, len(parts))
	}
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parsePose(s string) (flight.Pose, error) {
	v, err := parseCSVFloatSlice(s, 6)
	if err != nil {
		return flight.Pose{}, err
	}
	return flight.Pose{X: v[0], Y: v[1], Z: v[2], Yaw: v[3], Pitch: v[4], Roll: v[5]}, nil
}

func main() {
	flag.Parse()

	switch *mode {
	case "linear":
		start, err := parsePose(*startPose)
		if err != nil {
			log.Fatalf("invalid -start: %v", err)
		}
		end, err := parsePose(*endPose)
		if err != nil {
			log.Fatalf("invalid -end: %v", err)
		}
		if err := flight.WriteLinear(*out, *frames, start, end); err != nil {
			log.Fatalf("failed to write flight file: %v", err)
		}

	case "orbit":
		v, err := parseCSVFloatSlice(*target, 3)
		if err != nil {
			log.Fatalf("invalid -target: %v", err)
		}
		tgt := flight.Target{X: v[0], Y: v[1], Z: v[2]}
		if err := flight.WriteEquatorialOrbit(*out, *frames, tgt, *radius, *startAzimuth, *azimuthSpan); err != nil {
			log.Fatalf("failed to write flight file: %v", err)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (want linear or orbit)\n", *mode)
		os.Exit(2)
	}

	log.Printf("wrote %d poses to %s", *frames, *out)
}
