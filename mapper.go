package ledbar

// MapLevel maps an 8-bit reading to the number of segments to light:
// round(reading * NumSegments / 255), halves rounded up.
func MapLevel(reading uint8) int {
	return (int(reading)*2*NumSegments + 255) / (2 * 255)
}
