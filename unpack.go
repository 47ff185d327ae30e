package pnglite

// unpackRow expands the depth-bit samples packed in src into one byte per
// sample in dst, most significant bits first. It produces len(dst) samples;
// padding bits at the end of src are ignored. depth is 1, 2 or 4.
func unpackRow(dst, src []byte, depth int) {
	perByte := 8 / depth
	mask := byte(1)<<depth - 1
	for i := range dst {
		shift := 8 - depth*(i%perByte+1)
		dst[i] = src[i/perByte] >> shift & mask
	}
}
