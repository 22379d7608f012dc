package backend

import "errors"

// Sentinel kinds for backend errors.
var (
	ErrNetwork = errors.New("backend unreachable")
	ErrStatus  = errors.New("backend returned unexpected status")
	ErrParse   = errors.New("backend response malformed")
)
