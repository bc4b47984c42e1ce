package rpi

import "fmt"

// Raspberry Pi J8 header pin to BCM GPIO number.  Power and ground pins are
// absent.
var j8ToBCM = map[int]int{
	3: 2, 5: 3, 7: 4, 8: 14, 10: 15,
	11: 17, 12: 18, 13: 27, 15: 22, 16: 23,
	18: 24, 19: 10, 21: 9, 22: 25, 23: 11,
	24: 8, 26: 7, 27: 0, 28: 1, 29: 5,
	31: 6, 32: 12, 33: 13, 35: 19, 36: 16,
	37: 26, 38: 20, 40: 21,
}

// BCM returns the BCM GPIO number of J8 header pin j8
func BCM(j8 int) (int, error) {
	bcm, ok := j8ToBCM[j8]
	if !ok {
		return 0, fmt.Errorf("J8 pin %d is not a GPIO", j8)
	}
	return bcm, nil
}
