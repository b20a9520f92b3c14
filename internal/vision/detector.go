package vision

import "sort"

// Candidate is a corner-like interest point reported by the detector:
// its location in the original image frame, its Harris response and the
// template extracted around it.
type Candidate struct {
	Location  Point
	Response  float32
	Signature Signature
}

// Detector converts a raw grayscale image into a spatially-suppressed,
// response-ranked list of corner candidates. Working buffers are allocated
// once at construction and reused for every frame, so a Detector must not
// be shared between goroutines.
type Detector struct {
	settings Settings
	width    int
	height   int

	gradCols int
	gradRows int
	blurCols int
	blurRows int

	norm       []float32
	gradientX2 []int32
	gradientY2 []int32
	gradientXY []int32
	blurX2     []float32
	blurY2     []float32
	blurXY     []float32
	response   []float32
	suppressed []bool
}

// NewDetector creates a detector for images of the given dimensions.
func NewDetector(width, height int, settings Settings) *Detector {
	gradCols := width - 2
	gradRows := height - 2
	blurCols := gradCols - 2*FilterRange
	blurRows := gradRows - 2*FilterRange

	return &Detector{
		settings: settings,
		width:    width,
		height:   height,
		gradCols: gradCols,
		gradRows: gradRows,
		blurCols: blurCols,
		blurRows: blurRows,

		norm:       make([]float32, width*height),
		gradientX2: make([]int32, gradCols*gradRows),
		gradientY2: make([]int32, gradCols*gradRows),
		gradientXY: make([]int32, gradCols*gradRows),
		blurX2:     make([]float32, blurCols*blurRows),
		blurY2:     make([]float32, blurCols*blurRows),
		blurXY:     make([]float32, blurCols*blurRows),
		response:   make([]float32, blurCols*blurRows),
		suppressed: make([]bool, blurCols*blurRows),
	}
}

// coordinateOffset is added to response-plane coordinates to recover the
// original image frame: one column/row lost to the Sobel pass plus the
// Gaussian filter reach.
const coordinateOffset = 1 + FilterRange

// Detect runs the full pipeline over one image and returns up to
// MaxTrackedFeatures candidates in descending response order. The detector
// is a pure function of its input: the same image and tuning always
// produce the same candidate set.
func (d *Detector) Detect(pixels []byte) []Candidate {
	normalize(d.norm, pixels)
	d.gradients(pixels)
	d.smooth(d.gradientX2, d.blurX2)
	d.smooth(d.gradientY2, d.blurY2)
	d.smooth(d.gradientXY, d.blurXY)
	d.harrisResponse()
	return d.collectMaxima()
}

// Normalized exposes the detector's normalized view of the last image it
// processed; the tracker correlates against this buffer.
func (d *Detector) Normalized() []float32 {
	return d.norm
}

// gradients convolves the raw image with the Sobel kernels and stores the
// three gradient products.
func (d *Detector) gradients(pixels []byte) {
	w := d.width
	for y := 1; y < d.height-1; y++ {
		for x := 1; x < d.width-1; x++ {
			idx := d.gradCols*(y-1) + (x - 1)

			var gx, gy int32
			k := 0
			for dy := -1; dy <= 1; dy++ {
				row := (y+dy)*w + x
				for dx := -1; dx <= 1; dx++ {
					p := int32(pixels[row+dx])
					gx += int32(sobelX[k]) * p
					gy += int32(sobelY[k]) * p
					k++
				}
			}

			d.gradientX2[idx] = gx * gx
			d.gradientY2[idx] = gy * gy
			d.gradientXY[idx] = gx * gy
		}
	}
}

// smooth convolves one gradient-product array with the 7x7 Gaussian kernel.
func (d *Detector) smooth(src []int32, dst []float32) {
	for y := FilterRange; y < d.gradRows-FilterRange; y++ {
		for x := FilterRange; x < d.gradCols-FilterRange; x++ {
			var total float32
			k := 0
			for dy := -FilterRange; dy <= FilterRange; dy++ {
				row := (y+dy)*d.gradCols + x
				for dx := -FilterRange; dx <= FilterRange; dx++ {
					total += gaussianKernel[k] * float32(src[row+dx])
					k++
				}
			}
			dst[(y-FilterRange)*d.blurCols+(x-FilterRange)] = total
		}
	}
}

// harrisResponse computes R = det(M) - k * trace(M)^2 for every smoothed
// pixel.
func (d *Detector) harrisResponse() {
	k := d.settings.Sensitivity
	for i := range d.response {
		sxx := d.blurX2[i]
		syy := d.blurY2[i]
		sxy := d.blurXY[i]
		det := sxx*syy - sxy*sxy
		trace := sxx + syy
		d.response[i] = det - k*trace*trace
	}
}

// collectMaxima gathers every pixel above the response threshold, sorts by
// descending response, and admits candidates greedily while suppressing a
// square neighbourhood around each candidate it visits. Candidates whose
// squares overlap (closer than 2*SuppressionRange+1 on both axes) never
// both survive. Ties in response keep whatever order the sort yields.
func (d *Detector) collectMaxima() []Candidate {
	type scored struct {
		x, y     int
		response float32
	}
	var points []scored
	for y := 0; y < d.blurRows; y++ {
		for x := 0; x < d.blurCols; x++ {
			r := d.response[y*d.blurCols+x]
			if r > d.settings.HarrisResponseThreshold {
				points = append(points, scored{x, y, r})
			}
		}
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].response > points[j].response
	})

	for i := range d.suppressed {
		d.suppressed[i] = false
	}

	candidates := make([]Candidate, 0, d.settings.MaxTrackedFeatures)
	for _, p := range points {
		if len(candidates) >= d.settings.MaxTrackedFeatures {
			break
		}
		// A candidate whose own square overlaps the square of an earlier
		// candidate is suppressed. Suppressed candidates still mark their
		// square, so the side lobes of a suppressed peak are dropped too.
		overlaps := false
		for dy := -SuppressionRange; dy <= SuppressionRange && !overlaps; dy++ {
			sy := clampInt(p.y+dy, d.blurRows)
			for dx := -SuppressionRange; dx <= SuppressionRange; dx++ {
				if d.suppressed[sy*d.blurCols+clampInt(p.x+dx, d.blurCols)] {
					overlaps = true
					break
				}
			}
		}
		for dy := -SuppressionRange; dy <= SuppressionRange; dy++ {
			sy := clampInt(p.y+dy, d.blurRows)
			for dx := -SuppressionRange; dx <= SuppressionRange; dx++ {
				sx := clampInt(p.x+dx, d.blurCols)
				d.suppressed[sy*d.blurCols+sx] = true
			}
		}
		if overlaps {
			continue
		}

		loc := Point{p.x + coordinateOffset, p.y + coordinateOffset}
		candidates = append(candidates, Candidate{
			Location:  loc,
			Response:  p.response,
			Signature: extractSignature(d.norm, d.width, d.height, loc.X, loc.Y),
		})
	}
	return candidates
}
