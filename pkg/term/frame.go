package term

import "strings"

// frame is an off-screen character grid, flushed to the terminal in one go.
type frame struct {
	w, h  int
	cells []rune
}

func newFrame(w, h int) *frame {
	w, h = max(w, 0), max(h, 0)
	f := &frame{w: w, h: h, cells: make([]rune, w*h)}
	for i := range f.cells {
		f.cells[i] = ' '
	}
	return f
}

func (f *frame) set(x, y int, r rune) {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return
	}
	f.cells[y*f.w+x] = r
}

func (f *frame) at(x, y int) rune {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return 0
	}
	return f.cells[y*f.w+x]
}

func (f *frame) putString(x, y int, s string) {
	for _, r := range s {
		f.set(x, y, r)
		x++
	}
}

// row returns line y with trailing blanks removed.
func (f *frame) row(y int) string {
	if y < 0 || y >= f.h {
		return ""
	}
	return strings.TrimRight(string(f.cells[y*f.w:(y+1)*f.w]), " ")
}
