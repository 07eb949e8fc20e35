package sample

import (
	"bytes"
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Sample is a single scalar reading.
type Sample struct {
	Timestamp float64 // Seconds; device clock for CSV lines, host wall clock otherwise
	Value     float64 // Raw reading in source units (mV)
}

// Format identifies which line grammar accepted a sample.
type Format int

const (
	FormatNone Format = iota
	FormatCSV
	FormatLabeled
	FormatBare
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatLabeled:
		return "labeled"
	case FormatBare:
		return "bare"
	default:
		return "none"
	}
}

const decimal = `-?(?:\d+\.?\d*|\.\d+)`

// Patterns in priority order. The first match wins.
var (
	csvPattern     = regexp.MustCompile(`^(\d+)\s*,\s*(` + decimal + `)$`)
	labeledPattern = regexp.MustCompile(`Voltage:\s*(` + decimal + `)`)
	barePattern    = regexp.MustCompile(`^` + decimal + `$`)
)

// invalid drops bytes that do not decode as UTF-8.
var invalid = runes.Remove(runes.Predicate(func(r rune) bool { return r == utf8.RuneError }))

// Parse converts one raw transport line into a Sample.
//
// Accepted forms, tried in order:
//
//	<t_us>,<value>      timestamp t_us*1e-6 seconds
//	...Voltage: <value>  timestamp now
//	<value>             timestamp now
//
// Anything else (banners, partial lines, noise) is rejected with ok == false.
func Parse(line []byte, now float64) (s Sample, ok bool) {
	s, f := parse(line, now)
	return s, f != FormatNone
}

func parse(line []byte, now float64) (Sample, Format) {
	if !utf8.Valid(line) {
		cleaned, _, err := transform.Bytes(invalid, line)
		if err != nil {
			return Sample{}, FormatNone
		}
		line = cleaned
	}
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Sample{}, FormatNone
	}

	if m := csvPattern.FindSubmatch(line); m != nil {
		us, err := strconv.ParseUint(string(m[1]), 10, 64)
		if err != nil {
			return Sample{}, FormatNone
		}
		v, err := strconv.ParseFloat(string(m[2]), 64)
		if err != nil {
			return Sample{}, FormatNone
		}
		return Sample{Timestamp: float64(us) * 1e-6, Value: v}, FormatCSV
	}

	if m := labeledPattern.FindSubmatch(line); m != nil {
		v, err := strconv.ParseFloat(string(m[1]), 64)
		if err != nil {
			return Sample{}, FormatNone
		}
		return Sample{Timestamp: now, Value: v}, FormatLabeled
	}

	if barePattern.Match(line) {
		v, err := strconv.ParseFloat(string(line), 64)
		if err != nil {
			return Sample{}, FormatNone
		}
		return Sample{Timestamp: now, Value: v}, FormatBare
	}

	return Sample{}, FormatNone
}

// Parser stamps labeled and bare lines with the time they were read.
// Those timestamps carry the jitter of the read loop, not the true arrival
// time of the reading on the device.
type Parser struct {
	now func() time.Time
}

// NewParser creates a parser reading the given clock. A nil clock uses time.Now.
func NewParser(now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{now: now}
}

// Parse parses a line using the parser clock for untimestamped forms.
func (p *Parser) Parse(line []byte) (Sample, Format) {
	return parse(line, seconds(p.now()))
}

func seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
