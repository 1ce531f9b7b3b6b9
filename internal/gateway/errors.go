package gateway

import (
	"errors"
	"fmt"
)

// Op names a gateway operation.
type Op string

const (
	OpListInstances Op = "listInstances"
	OpListDatabases Op = "listDatabases"
	OpExecuteQuery  Op = "executeQuery"
)

// GatewayError wraps any failure returned by a Gateway.
type GatewayError struct {
	Op  Op
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Wrap returns err as a *GatewayError for op. Errors that already are
// gateway errors are returned unchanged.
func Wrap(op Op, err error) error {
	if err == nil {
		return nil
	}
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return err
	}
	return &GatewayError{Op: op, Err: err}
}

// IsGatewayError reports whether err carries a *GatewayError.
func IsGatewayError(err error) bool {
	var gerr *GatewayError
	return errors.As(err, &gerr)
}
