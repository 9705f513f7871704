package media

// PackRows copies rows pixel rows of rowBytes each out of a strided plane into
// a tightly packed buffer of exactly rowBytes*rows bytes. Rows the source is
// too short to supply are left zeroed.
func PackRows(src []byte, stride, rowBytes, rows int) []byte {
	if rowBytes <= 0 || rows <= 0 {
		return []byte{}
	}
	dst := make([]byte, rowBytes*rows)
	if stride < rowBytes {
		stride = rowBytes
	}
	for y := 0; y < rows; y++ {
		start := y * stride
		end := start + rowBytes
		if end > len(src) {
			break
		}
		copy(dst[y*rowBytes:], src[start:end])
	}
	return dst
}
