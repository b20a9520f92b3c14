package vision

// Point is an integer pixel location in the image frame.
type Point struct {
	X, Y int
}

// normalizeTable maps an 8-bit sample to its [0, 1] float value. Built once
// so the per-pixel normalization pass is a table lookup.
var normalizeTable = func() [256]float32 {
	var t [256]float32
	for i := range t {
		t[i] = float32(i) / 255.0
	}
	return t
}()

// Sobel kernels, row major.
var (
	sobelX = [9]int16{
		-1, 0, 1,
		-2, 0, 2,
		-1, 0, 1,
	}
	sobelY = [9]int16{
		-1, -2, -1,
		0, 0, 0,
		1, 2, 1,
	}
)

// gaussianKernel is the 7x7 smoothing kernel applied to the gradient
// products: the outer product of the binomial tap [1 6 15 20 15 6 1]/64.
var gaussianKernel = func() [SignatureSize]float32 {
	taps := [FilterWidth]float32{1, 6, 15, 20, 15, 6, 1}
	var k [SignatureSize]float32
	for y := 0; y < FilterWidth; y++ {
		for x := 0; x < FilterWidth; x++ {
			k[y*FilterWidth+x] = (taps[y] / 64) * (taps[x] / 64)
		}
	}
	return k
}()

// clampInt bounds v to [0, max-1]. Edge clamping always bounds a coordinate
// against its own axis.
func clampInt(v, max int) int {
	if v < 0 {
		return 0
	}
	if v >= max {
		return max - 1
	}
	return v
}

// normalize fills dst with the [0, 1] values of the raw samples.
func normalize(dst []float32, pixels []byte) {
	for i, p := range pixels {
		dst[i] = normalizeTable[p]
	}
}

// grayToBGR expands a grayscale image into interleaved BGR bytes.
func grayToBGR(dst []byte, pixels []byte) {
	for i, p := range pixels {
		dst[i*3+0] = p
		dst[i*3+1] = p
		dst[i*3+2] = p
	}
}
