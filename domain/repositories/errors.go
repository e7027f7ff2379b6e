package repositories

import "errors"

// ErrNotFound is returned by every store when the requested record does not exist
var ErrNotFound = errors.New("record not found")

// ErrClaimLost is returned when a detection write carries a claim the photo no longer holds,
// e.g. after the event was reset for reprocessing
var ErrClaimLost = errors.New("detection claim lost")
