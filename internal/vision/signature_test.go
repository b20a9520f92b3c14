package vision

import (
	"math"
	"testing"
)

// normalized converts a raw image into its [0, 1] view.
func normalized(img []byte) []float32 {
	norm := make([]float32, len(img))
	normalize(norm, img)
	return norm
}

func TestExtractSignatureCentre(t *testing.T) {
	img := impulseImage(512, 384)
	norm := normalized(img)

	sig := extractSignature(norm, ImageWidth, ImageHeight, 512, 384)
	if sig[SignatureSize/2] != normalizeTable[255] {
		t.Errorf("centre sample = %v, want %v", sig[SignatureSize/2], normalizeTable[255])
	}
	if sig[0] != normalizeTable[128] {
		t.Errorf("corner sample = %v, want %v", sig[0], normalizeTable[128])
	}
}

func TestExtractSignatureEdgeClamp(t *testing.T) {
	img := flatImage(16, 16, 0)
	// Distinct column values so clamping is observable.
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img[y*16+x] = byte(x * 16)
		}
	}
	norm := normalized(img)

	sig := extractSignature(norm, 16, 16, 0, 0)
	// Left three columns of the window clamp to column 0.
	if sig[0] != norm[0] || sig[1] != norm[0] || sig[2] != norm[0] || sig[3] != norm[0] {
		t.Errorf("left window columns did not clamp to the image edge: %v", sig[:4])
	}
	if sig[4] != norm[1] {
		t.Errorf("sample past centre = %v, want column 1 value %v", sig[4], norm[1])
	}
}

func TestCorrelatePerfectMatch(t *testing.T) {
	img := impulseImage(512, 384)
	norm := normalized(img)

	sig := extractSignature(norm, ImageWidth, ImageHeight, 512, 384)
	r := sig.correlate(norm, ImageWidth, ImageHeight, 512, 384)
	if math.Abs(float64(r)-1.0) > 1e-5 {
		t.Errorf("self correlation = %v, want 1.0", r)
	}
}

func TestCorrelateFlatWindowUndefined(t *testing.T) {
	img := impulseImage(512, 384)
	norm := normalized(img)
	sig := extractSignature(norm, ImageWidth, ImageHeight, 512, 384)

	// A flat region has zero variance; correlation is undefined and must
	// never win a search.
	r := sig.correlate(norm, ImageWidth, ImageHeight, 100, 100)
	if !math.IsInf(float64(r), -1) {
		t.Errorf("flat-window correlation = %v, want -Inf", r)
	}
}

func TestSearchBestFindsShiftedFeature(t *testing.T) {
	frameA := normalized(impulseImage(512, 384))
	frameB := normalized(impulseImage(514, 384))

	sig := extractSignature(frameA, ImageWidth, ImageHeight, 512, 384)
	best, score := sig.searchBest(frameB, ImageWidth, ImageHeight, Point{512, 384})
	if best != (Point{514, 384}) {
		t.Errorf("best offset = %+v, want (514, 384)", best)
	}
	if math.Abs(float64(score)-1.0) > 1e-5 {
		t.Errorf("best score = %v, want 1.0", score)
	}
}

func TestSearchBestIsArgMax(t *testing.T) {
	// The chosen offset must score at least as high as every candidate
	// offset.
	frame := normalized(impulseImage(300, 300))
	sig := extractSignature(frame, ImageWidth, ImageHeight, 301, 300)

	centre := Point{300, 300}
	best, bestScore := sig.searchBest(frame, ImageWidth, ImageHeight, centre)

	for dy := -FilterRange; dy <= FilterRange; dy++ {
		for dx := -FilterRange; dx <= FilterRange; dx++ {
			x := clampInt(centre.X+dx, ImageWidth)
			y := clampInt(centre.Y+dy, ImageHeight)
			r := sig.correlate(frame, ImageWidth, ImageHeight, x, y)
			if r > bestScore {
				t.Fatalf("offset (%d, %d) scores %v > chosen %v at %+v", dx, dy, r, bestScore, best)
			}
		}
	}
}

func TestPointDistance(t *testing.T) {
	if d := pointDistance(Point{0, 0}, Point{3, 4}); d != 5 {
		t.Errorf("distance = %v, want 5", d)
	}
	if d := pointDistance(Point{7, 7}, Point{7, 7}); d != 0 {
		t.Errorf("distance = %v, want 0", d)
	}
}
