package sample

// Downsample decimates src to at most maxPoints elements for display.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
// If len(src) <= maxPoints (or maxPoints <= 0) all elements are copied.
func Downsample[T any](dst, src []T, maxPoints int) []T {
	if maxPoints <= 0 || len(src) <= maxPoints {
		if cap(dst) >= len(src) {
			dst = dst[:len(src)]
		} else {
			dst = make([]T, len(src))
		}
		copy(dst, src)
		return dst
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]T, 0, maxPoints)
	}

	step := float64(len(src)) / float64(maxPoints)
	for i := range maxPoints {
		idx := int(float64(i) * step)
		if idx < len(src) {
			dst = append(dst, src[idx])
		}
	}

	return dst
}

// Smooth writes the trailing simple moving average of values over n points into dst.
// The first n-1 outputs average over the points seen so far. n <= 1 copies values.
func Smooth(dst, values []float64, n int) []float64 {
	if cap(dst) >= len(values) {
		dst = dst[:len(values)]
	} else {
		dst = make([]float64, len(values))
	}
	if n <= 1 {
		copy(dst, values)
		return dst
	}

	var sum float64
	for i, v := range values {
		sum += v
		filled := i + 1
		if i >= n {
			sum -= values[i-n]
			filled = n
		}
		dst[i] = sum / float64(filled)
	}
	return dst
}
