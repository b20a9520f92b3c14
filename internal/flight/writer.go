package flight

import (
	"bufio"
	"fmt"
	"math"
	"os"
)

func degToRad(degrees float64) float64 {
	return math.Pi * (degrees / 180)
}

func writeHeader(w *bufio.Writer) {
	// Poses are expressed in the craft frame.
	fmt.Fprintln(w, "view craft")
}

func writePose(w *bufio.Writer, p Pose) {
	fmt.Fprintf(w, "start %g %g %g %g %g %g\n", p.X, p.Y, p.Z, p.Yaw, p.Pitch, p.Roll)
}

// WriteLinear writes a flight file of frames poses stepping linearly from
// start towards end, componentwise. The first pose written is start itself;
// end is approached but not reached (the step is the span divided by the
// frame count).
func WriteLinear(path string, frames int, start, end Pose) error {
	if frames <= 0 {
		return fmt.Errorf("frame count must be positive, got %d", frames)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create flight file: %w", err)
	}
	defer f.Close()

	n := float64(frames)
	step := Pose{
		X:     (end.X - start.X) / n,
		Y:     (end.Y - start.Y) / n,
		Z:     (end.Z - start.Z) / n,
		Yaw:   (end.Yaw - start.Yaw) / n,
		Pitch: (end.Pitch - start.Pitch) / n,
		Roll:  (end.Roll - start.Roll) / n,
	}

	w := bufio.NewWriter(f)
	writeHeader(w)
	current := start
	for i := 0; i < frames; i++ {
		writePose(w, current)
		current = Pose{
			X:     current.X + step.X,
			Y:     current.Y + step.Y,
			Z:     current.Z + step.Z,
			Yaw:   current.Yaw + step.Yaw,
			Pitch: current.Pitch + step.Pitch,
			Roll:  current.Roll + step.Roll,
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write flight file: %w", err)
	}
	return nil
}

// Target is the point an orbital flight circles.
type Target struct {
	X, Y, Z float64
}

// WriteEquatorialOrbit writes a flight file of frames poses on a horizontal
// circle of the given radius around target. The azimuth for frame i is
// startAzimuthDeg + spanDeg/frames * i, taken mod 360; the camera yaw is
// chosen so the viewpoint faces the target. Pitch and roll are zero.
func WriteEquatorialOrbit(path string, frames int, target Target, radius, startAzimuthDeg, spanDeg float64) error {
	if frames <= 0 {
		return fmt.Errorf("frame count must be positive, got %d", frames)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create flight file: %w", err)
	}
	defer f.Close()

	azimuthStep := spanDeg / float64(frames)

	w := bufio.NewWriter(f)
	writeHeader(w)
	for i := 0; i < frames; i++ {
		azimuth := math.Mod(startAzimuthDeg+azimuthStep*float64(i), 360)
		writePose(w, Pose{
			X:   target.X + radius*math.Sin(degToRad(azimuth)),
			Y:   target.Y + radius*math.Cos(degToRad(azimuth)),
			Z:   target.Z,
			Yaw: 360 - math.Mod(azimuth+180, 360),
		})
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write flight file: %w", err)
	}
	return nil
}
