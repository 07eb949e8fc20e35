package sample

// Buffer is a fixed-capacity FIFO of samples kept in chronological
// (insertion) order. Once full, every Push evicts the oldest sample.
//
// Internally it is a ring; externally it only hands out ordered copies,
// oldest first, so callers can never alias the storage.
type Buffer struct {
	data  []Sample
	start int // index of the oldest sample
	n     int
	total uint64
}

// NewBuffer creates a buffer holding at most capacity samples.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{data: make([]Sample, capacity)}
}

// Push appends s, evicting the oldest sample when the buffer is full.
func (b *Buffer) Push(s Sample) {
	b.total++
	if b.n < len(b.data) {
		b.data[(b.start+b.n)%len(b.data)] = s
		b.n++
		return
	}
	b.data[b.start] = s
	b.start = (b.start + 1) % len(b.data)
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int { return b.n }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Total returns the number of samples pushed since creation, including evicted ones.
func (b *Buffer) Total() uint64 { return b.total }

// Window returns a copy of the newest min(w, Len()) samples, oldest first.
func (b *Buffer) Window(w int) []Sample {
	w = b.clamp(w)
	out := make([]Sample, w)
	first := b.start + b.n - w
	for i := range w {
		out[i] = b.data[(first+i)%len(b.data)]
	}
	return out
}

// Values returns the values of Window(w).
func (b *Buffer) Values(w int) []float64 {
	w = b.clamp(w)
	out := make([]float64, w)
	first := b.start + b.n - w
	for i := range w {
		out[i] = b.data[(first+i)%len(b.data)].Value
	}
	return out
}

func (b *Buffer) clamp(w int) int {
	if w > b.n {
		w = b.n
	}
	if w < 0 {
		w = 0
	}
	return w
}
