package asset

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel kinds; a LoadError matches its kind with errors.Is.
var (
	ErrNetwork = errors.New("network error")
	ErrDecode  = errors.New("decode error")
	ErrTimeout = errors.New("load timed out")

	// ErrMissingDecoder is wrapped by a decode error when the payload needs
	// compressed-geometry decoding and no decoder location is configured.
	ErrMissingDecoder = errors.New("compressed geometry decoder not configured")
)

// Kind classifies a load failure. All kinds are recoverable.
type Kind int

const (
	KindNetwork Kind = iota
	KindDecode
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindDecode:
		return ErrDecode
	default:
		return ErrTimeout
	}
}

// LoadError reports why an asset could not be produced. It never carries
// partial asset state.
type LoadError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("load %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is matches the kind sentinel.
func (e *LoadError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func networkErr(path string, err error) error {
	return &LoadError{Kind: KindNetwork, Path: path, Err: err}
}

func decodeErr(path string, err error) error {
	return &LoadError{Kind: KindDecode, Path: path, Err: err}
}

// classify turns context expiry into a timeout and tags anything untyped
// with fallback.
func classify(path string, err error, fallback Kind) error {
	var le *LoadError
	if errors.As(err, &le) {
		if errors.Is(le.Err, context.DeadlineExceeded) {
			le.Kind = KindTimeout
		}
		return le
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &LoadError{Kind: KindTimeout, Path: path, Err: err}
	}
	return &LoadError{Kind: fallback, Path: path, Err: err}
}

// KindOf extracts the kind of a load error.
func KindOf(err error) (Kind, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind, true
	}
	return 0, false
}
