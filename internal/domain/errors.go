package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Discovery / announce
var (
	// ErrDiscoveryTimeout indicates nothing resolved within the browse window
	ErrDiscoveryTimeout = errors.New("no console resolved before timeout")

	// ErrMissingProperty indicates a TXT record lacks a required key
	ErrMissingProperty = errors.New("missing TXT property")

	// ErrInvalidRecord indicates a service record could not be built from a console
	ErrInvalidRecord = errors.New("invalid service record")
)

// Transfer
var (
	ErrUnexpectedStatus    = errors.New("unexpected status code")
	ErrMissingContentRange = errors.New("missing Content-Range header")
	ErrInvalidContentRange = errors.New("invalid Content-Range header")

	// ErrLengthMismatch is a consistency fault: bytes written differ from the probed total
	ErrLengthMismatch = errors.New("written byte count does not match total size")
)

// Content serving
var (
	ErrInvalidContentKey   = errors.New("malformed content key")
	ErrInvalidDriveID      = errors.New("invalid drive id")
	ErrContentNotFound     = errors.New("content not found")
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
)

// DiscoveryError reports a failed browse, timeout or undecodable record.
type DiscoveryError struct {
	Op  string // browse, resolve, decode
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery %s: %v", e.Op, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// AnnounceError reports a record that could not be built or registered.
// Nothing is published when it is returned.
type AnnounceError struct {
	Op  string // build, register
	Err error
}

func (e *AnnounceError) Error() string {
	return fmt.Sprintf("announce %s: %v", e.Op, e.Err)
}

func (e *AnnounceError) Unwrap() error { return e.Err }

// Transfer steps, used to tell the user where a download broke.
const (
	StepMetadata = "metadata"
	StepProbe    = "probe"
	StepChunk    = "chunk"
	StepWrite    = "write"
	StepVerify   = "verify"
)

// TransferError wraps any client-side failure. Chunk is the zero-based
// chunk index for chunk/write steps and -1 otherwise.
type TransferError struct {
	Step  string
	Chunk int
	Err   error
}

func (e *TransferError) Error() string {
	if e.Chunk >= 0 {
		return fmt.Sprintf("transfer %s %d: %v", e.Step, e.Chunk, e.Err)
	}
	return fmt.Sprintf("transfer %s: %v", e.Step, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// RequestError is a server-side failure carrying the HTTP status it maps to.
type RequestError struct {
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%d %s: %v", e.Status, http.StatusText(e.Status), e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// StatusOf maps content-serving errors to an HTTP status.
func StatusOf(err error) int {
	var reqErr *RequestError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &reqErr):
		return reqErr.Status
	case errors.Is(err, ErrInvalidContentKey), errors.Is(err, ErrInvalidDriveID):
		return http.StatusBadRequest
	case errors.Is(err, ErrContentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRangeNotSatisfiable):
		return http.StatusRequestedRangeNotSatisfiable
	default:
		return http.StatusInternalServerError
	}
}
