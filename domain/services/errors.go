package services

import "errors"

// Face identity errors. Provider failures are retryable and never fail photo upload.
var (
	ErrProviderUnavailable = errors.New("face recognition is not configured")
	ErrProviderTimeout     = errors.New("face provider timed out")
	ErrProviderError       = errors.New("face provider failed")
	ErrNoFaceInSelfie      = errors.New("no face detected in the selfie")
	ErrEventNotFound       = errors.New("event not found")
	ErrPersonNotFound      = errors.New("person not found")
	ErrPhotoNotFound       = errors.New("photo not found")
	ErrCrossEventMerge     = errors.New("persons belong to different events")
	ErrInvalidInput        = errors.New("invalid input")
)
