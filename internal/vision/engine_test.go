package vision

import (
	"testing"
)

func TestCPUEngineProcess(t *testing.T) {
	engine := NewCPUEngine(ImageWidth, ImageHeight, DefaultSettings())

	tracks := engine.Process(impulseImage(512, 384))
	if len(tracks) != 1 {
		t.Fatalf("frame 1: %d tracks, want 1", len(tracks))
	}

	tracks = engine.Process(impulseImage(514, 384))
	if len(tracks) != 1 {
		t.Fatalf("frame 2: %d tracks, want 1", len(tracks))
	}
	if tracks[0].Location() != (Point{514, 384}) {
		t.Errorf("track at %+v, want (514, 384)", tracks[0].Location())
	}
}

func TestNewEngineFallsBackToReference(t *testing.T) {
	engine := NewEngine("accelerated", ImageWidth, ImageHeight, DefaultSettings())
	if engine == nil {
		t.Fatal("NewEngine returned nil for unregistered name")
	}
	if _, ok := engine.(*CPUEngine); !ok {
		t.Errorf("unregistered name built %T, want the reference engine", engine)
	}
}

func TestRegisterEngine(t *testing.T) {
	called := false
	RegisterEngine("test-variant", func(w, h int, s Settings) Engine {
		called = true
		return NewCPUEngine(w, h, s)
	})
	NewEngine("test-variant", 64, 48, DefaultSettings())
	if !called {
		t.Error("registered factory was not invoked")
	}

	names := EngineNames()
	found := false
	for _, n := range names {
		if n == "test-variant" {
			found = true
		}
	}
	if !found {
		t.Errorf("EngineNames() = %v, missing registered variant", names)
	}
}

func TestAnnotatorTrail(t *testing.T) {
	engine := NewCPUEngine(ImageWidth, ImageHeight, DefaultSettings())
	annotator := NewAnnotator(ImageWidth, ImageHeight)

	engine.Process(impulseImage(512, 384))
	engine.Process(impulseImage(514, 384))
	img := impulseImage(516, 384)
	tracks := engine.Process(img)

	out := annotator.Annotate(img, tracks, CPUPen)
	if len(out) != ImageWidth*ImageHeight*3 {
		t.Fatalf("annotated image is %d bytes, want %d", len(out), ImageWidth*ImageHeight*3)
	}

	// An unmarked background pixel stays grayscale in all channels.
	idx := (700*ImageWidth + 700) * 3
	if out[idx] != 128 || out[idx+1] != 128 || out[idx+2] != 128 {
		t.Errorf("background pixel = (%d %d %d), want (128 128 128)", out[idx], out[idx+1], out[idx+2])
	}

	// The track has age 2: its last two locations are painted with the pen.
	for _, p := range []Point{{516, 384}, {514, 384}} {
		idx := (p.Y*ImageWidth + p.X - 1) * 3 // mark square covers (x-1, y-1)..(x, y)
		if out[idx] != CPUPen.B || out[idx+1] != CPUPen.G || out[idx+2] != CPUPen.R {
			t.Errorf("trail pixel near %+v = (%d %d %d), want pen BGR (%d %d %d)",
				p, out[idx], out[idx+1], out[idx+2], CPUPen.B, CPUPen.G, CPUPen.R)
		}
	}
}

func TestAnnotatorFreshTrackDrawsNothing(t *testing.T) {
	engine := NewCPUEngine(ImageWidth, ImageHeight, DefaultSettings())
	annotator := NewAnnotator(ImageWidth, ImageHeight)

	img := impulseImage(512, 384)
	tracks := engine.Process(img)
	out := annotator.Annotate(img, tracks, CPUPen)

	// Age 0: min(age, 200) = 0 locations drawn; the feature pixel keeps
	// its grayscale value.
	idx := (384*ImageWidth + 512) * 3
	if out[idx] != 255 || out[idx+1] != 255 || out[idx+2] != 255 {
		t.Errorf("feature pixel = (%d %d %d), want unannotated (255 255 255)", out[idx], out[idx+1], out[idx+2])
	}
}
