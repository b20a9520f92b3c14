package vision

import "math"

// Signature is a 7x7 patch of normalized samples centred on a feature,
// used as its correlation template. Fixed-size by construction so tracks
// stay compact.
type Signature [SignatureSize]float32

// extractSignature copies the 7x7 neighbourhood of the normalized image
// centred on (x, y), clamping out-of-bounds neighbours to the image edge.
func extractSignature(norm []float32, width, height, x, y int) Signature {
	var sig Signature
	i := 0
	for dy := -FilterRange; dy <= FilterRange; dy++ {
		sy := clampInt(y+dy, height)
		for dx := -FilterRange; dx <= FilterRange; dx++ {
			sx := clampInt(x+dx, width)
			sig[i] = norm[sy*width+sx]
			i++
		}
	}
	return sig
}

// mean returns the average of the template samples.
func (s *Signature) mean() float32 {
	var sum float32
	for _, v := range s {
		sum += v
	}
	return sum / SignatureSize
}

// correlate scores the template against the 7x7 window of the normalized
// image centred on (x, y), in mean-subtracted form:
//
//	r = sum((a - mean(a)) * (b - mean(b))) / sqrt(sum((a-mean(a))^2) * sum((b-mean(b))^2))
//
// A window or template with zero variance has no defined correlation and
// scores negative infinity so it is never selected.
func (s *Signature) correlate(norm []float32, width, height, x, y int) float32 {
	templateMean := s.mean()

	// Window mean over the same 7x7, edge clamped.
	var windowSum float32
	for dy := -FilterRange; dy <= FilterRange; dy++ {
		sy := clampInt(y+dy, height)
		for dx := -FilterRange; dx <= FilterRange; dx++ {
			sx := clampInt(x+dx, width)
			windowSum += norm[sy*width+sx]
		}
	}
	windowMean := windowSum / SignatureSize

	var ixy, ix2, iy2 float32
	i := 0
	for dy := -FilterRange; dy <= FilterRange; dy++ {
		sy := clampInt(y+dy, height)
		for dx := -FilterRange; dx <= FilterRange; dx++ {
			sx := clampInt(x+dx, width)
			ix := norm[sy*width+sx] - windowMean
			iy := s[i] - templateMean
			ixy += ix * iy
			ix2 += ix * ix
			iy2 += iy * iy
			i++
		}
	}

	denom := ix2 * iy2
	if denom <= 0 {
		return float32(math.Inf(-1))
	}
	return ixy / float32(math.Sqrt(float64(denom)))
}

// searchBest evaluates the template at every offset within FilterRange
// of centre and returns the best-scoring location with its score. Ties keep
// the first offset in scan order. Offsets whose centre falls outside the
// image are clamped onto it.
func (s *Signature) searchBest(norm []float32, width, height int, centre Point) (Point, float32) {
	best := float32(math.Inf(-1))
	bestPt := centre
	for dy := -FilterRange; dy <= FilterRange; dy++ {
		for dx := -FilterRange; dx <= FilterRange; dx++ {
			x := clampInt(centre.X+dx, width)
			y := clampInt(centre.Y+dy, height)
			r := s.correlate(norm, width, height, x, y)
			if r > best {
				best = r
				bestPt = Point{x, y}
			}
		}
	}
	return bestPt, best
}

func pointDistance(a, b Point) float32 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return float32(math.Sqrt(dx*dx + dy*dy))
}
