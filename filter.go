package pnglite

// Filter types, as stored in the first byte of every scanline.
const (
	ftNone    = 0
	ftSub     = 1
	ftUp      = 2
	ftAverage = 3
	ftPaeth   = 4
	nFilter   = 5
)

// FilterPolicy selects the scanline filters the encoder emits.
type FilterPolicy int

const (
	// FilterNone writes every row unfiltered.
	FilterNone FilterPolicy = iota
	// FilterAdaptive picks, per row, the filter with the smallest sum of
	// absolute residuals. Smaller files, same decoded pixels.
	FilterAdaptive
)

func (p FilterPolicy) String() string {
	switch p {
	case FilterNone:
		return "none"
	case FilterAdaptive:
		return "adaptive"
	}
	return "unknown"
}

// paethPredictor returns whichever of a (left), b (up) and c (up-left) is
// closest to a+b-c, preferring a, then b.
func paethPredictor(a, b, c uint8) uint8 {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// unfilter reconstructs, in place, the rows of a scanline buffer laid out as
// height rows of (filter type byte + pitch bytes). stride is the distance in
// bytes to the corresponding byte of the pixel on the left.
func unfilter(buf []byte, height, pitch, stride int) error {
	var prev []byte
	for y := 0; y < height; y++ {
		off := scanlineOffset(y, pitch)
		cur := buf[off+1 : off+1+pitch]
		switch buf[off] {
		case ftNone:
			// No-op.
		case ftSub:
			for i := stride; i < pitch; i++ {
				cur[i] += cur[i-stride]
			}
		case ftUp:
			for i, b := range prev {
				cur[i] += b
			}
		case ftAverage:
			if prev == nil {
				for i := stride; i < pitch; i++ {
					cur[i] += cur[i-stride] / 2
				}
				break
			}
			for i := 0; i < stride && i < pitch; i++ {
				cur[i] += prev[i] / 2
			}
			for i := stride; i < pitch; i++ {
				cur[i] += uint8((int(cur[i-stride]) + int(prev[i])) / 2)
			}
		case ftPaeth:
			if prev == nil {
				// With no row above, the predictor always picks the left byte.
				for i := stride; i < pitch; i++ {
					cur[i] += cur[i-stride]
				}
				break
			}
			for i := 0; i < stride && i < pitch; i++ {
				cur[i] += prev[i]
			}
			for i := stride; i < pitch; i++ {
				cur[i] += paethPredictor(cur[i-stride], prev[i], prev[i-stride])
			}
		default:
			return errorf(UnknownFilterError, "unfilter", "row %d has filter type %d", y, buf[off])
		}
		prev = cur
	}
	return nil
}

// filterRow writes into dst the residuals of raw row cur under filter ft.
// prev is the raw row above, nil for the first row.
func filterRow(dst, cur, prev []byte, stride int, ft byte) {
	up := func(i int) uint8 {
		if prev == nil {
			return 0
		}
		return prev[i]
	}
	for i := range cur {
		var a, c uint8
		if i >= stride {
			a = cur[i-stride]
			c = up(i - stride)
		}
		b := up(i)
		switch ft {
		case ftNone:
			dst[i] = cur[i]
		case ftSub:
			dst[i] = cur[i] - a
		case ftUp:
			dst[i] = cur[i] - b
		case ftAverage:
			dst[i] = cur[i] - uint8((int(a)+int(b))/2)
		case ftPaeth:
			dst[i] = cur[i] - paethPredictor(a, b, c)
		}
	}
}

// residualCost is the sum of the residuals read as signed bytes.
func residualCost(row []byte) int {
	sum := 0
	for _, v := range row {
		sum += abs(int(int8(v)))
	}
	return sum
}

// filterScanlines rewrites a scanline buffer whose rows hold raw bytes so
// that each row carries a filter type byte and the matching residuals.
// scratch holds nFilter+1 rows of pitch bytes and is reused across calls.
func filterScanlines(buf []byte, height, pitch, stride int, policy FilterPolicy, scratch [][]byte) {
	if policy != FilterAdaptive {
		for y := 0; y < height; y++ {
			buf[scanlineOffset(y, pitch)] = ftNone
		}
		return
	}

	candidates := scratch[:nFilter]
	prevRaw := scratch[nFilter]
	for y := 0; y < height; y++ {
		off := scanlineOffset(y, pitch)
		cur := buf[off+1 : off+1+pitch]
		var prev []byte
		if y > 0 {
			prev = prevRaw
		}

		best, bestCost := byte(ftNone), -1
		for ft := byte(0); ft < nFilter; ft++ {
			filterRow(candidates[ft], cur, prev, stride, ft)
			if cost := residualCost(candidates[ft]); bestCost < 0 || cost < bestCost {
				best, bestCost = ft, cost
			}
		}

		copy(prevRaw, cur)
		buf[off] = best
		copy(cur, candidates[best])
	}
}
