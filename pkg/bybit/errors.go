package bybit

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches any *TransportError.
	ErrTransport = errors.New("bybit: transport failure")
	// ErrAPI matches any *APIError.
	ErrAPI = errors.New("bybit: api error")
)

// CodeMalformedRow is reported when a kline row carries no usable timestamp.
const CodeMalformedRow = -1

// TransportError is returned when the HTTP exchange itself failed:
// connection, timeout, non-200 status, or an undecodable body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bybit %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// APIError is returned when Bybit answered but reported a non-zero retCode.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bybit api error %d: %s", e.Code, e.Msg)
}

func (e *APIError) Is(target error) bool { return target == ErrAPI }
