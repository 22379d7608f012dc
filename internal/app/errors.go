package service

import "errors"

// ErrStopped is returned by Start on a service that was already stopped.
var ErrStopped = errors.New("service stopped")
