package ledbar

import "strings"

const NumSegments = 10

// Segments is the on/off state of each segment, index 0 first.  A bar
// always lights a contiguous prefix.
type Segments [NumSegments]bool

// SegmentsFor returns the bar with the first level segments on
func SegmentsFor(level int) Segments {
	var s Segments
	for i := 0; i < level && i < NumSegments; i++ {
		s[i] = true
	}
	return s
}

// Lit returns the number of segments on
func (s Segments) Lit() int {
	n := 0
	for _, on := range s {
		if on {
			n++
		}
	}
	return n
}

func (s Segments) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for _, on := range s {
		if on {
			b.WriteByte('#')
		} else {
			b.WriteByte('-')
		}
	}
	b.WriteByte(']')
	return b.String()
}
