package ledbar

import "errors"

var (
	// ErrInit means the ADC or an output line could not be configured
	ErrInit = errors.New("initialization failed")
	// ErrSampleRead means the ADC read failed
	ErrSampleRead = errors.New("sample read failed")
	// ErrOutputWrite means a segment line write failed
	ErrOutputWrite = errors.New("output write failed")
)
