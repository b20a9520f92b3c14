package vision

// Colour is an RGB pen colour; annotated images store it in BGR byte
// order.
type Colour struct {
	R, G, B uint8
}

// Pen colours for the two pipelines, matching the chart series.
var (
	CPUPen         = Colour{R: 255, G: 200, B: 0}
	AcceleratedPen = Colour{R: 7, G: 255, B: 35}
)

// Annotator converts grayscale frames to BGR and draws track trails over
// them. The output buffer is allocated once and reused per frame.
type Annotator struct {
	width  int
	height int
	out    []byte
}

// NewAnnotator creates an annotator for images of the given dimensions.
func NewAnnotator(width, height int) *Annotator {
	return &Annotator{
		width:  width,
		height: height,
		out:    make([]byte, width*height*3),
	}
}

// Annotate renders the frame with each track's recent trail drawn in the
// pen colour: the last min(age, 200) locations of every live track. A
// freshly admitted track draws nothing. The returned buffer is valid
// until the next call.
func (a *Annotator) Annotate(pixels []byte, tracks []*Track, pen Colour) []byte {
	grayToBGR(a.out, pixels)
	for _, track := range tracks {
		points := track.History()
		n := track.Age
		if n > MaxTrackLocations {
			n = MaxTrackLocations
		}
		if len(points) > n {
			points = points[:n]
		}
		for _, p := range points {
			a.markPoint(p, 1, pen)
		}
	}
	return a.out
}

// markPoint paints a small square of the pen colour at p. Pixels falling
// outside the image are skipped.
func (a *Annotator) markPoint(p Point, radius int, pen Colour) {
	for dy := -radius; dy < radius; dy++ {
		for dx := -radius; dx < radius; dx++ {
			x := p.X + dx
			y := p.Y + dy
			if x < 0 || x >= a.width || y < 0 || y >= a.height {
				continue
			}
			idx := (y*a.width + x) * 3
			a.out[idx+0] = pen.B
			a.out[idx+1] = pen.G
			a.out[idx+2] = pen.R
		}
	}
}
