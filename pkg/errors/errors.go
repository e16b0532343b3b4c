// Package errors holds the error types rendered to the outside world: ERROR
// frames on websockets, JSON bodies on HTTP and statuses on gRPC.
package errors

import (
	"fmt"

	"google.golang.org/grpc/codes"
)

// GatewayError is shown to a websocket client as an ERROR frame.
type GatewayError struct {
	Code    string
	Message string
}

func NewGatewayError(code string, message string) *GatewayError {
	return &GatewayError{
		Code:    code,
		Message: message,
	}
}

func (e GatewayError) Error() string {
	return e.Code + ": " + e.Message
}

// HTTPError carries a numeric business code and the status it is served with.
// A zero StatusCode is served as 400.
type HTTPError struct {
	Code       int
	Message    string
	StatusCode int
}

func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

func (e HTTPError) WithStatus(statusCode int) *HTTPError {
	e.StatusCode = statusCode
	return &e
}

func (e HTTPError) Error() string {
	return e.Message
}

// GRPCError is reported as "<code> - <message>". A zero GrpcCode is reported
// as InvalidArgument.
type GRPCError struct {
	Code     string
	Message  string
	GrpcCode codes.Code
}

func NewGRPCError(code string, message string) *GRPCError {
	return &GRPCError{
		Code:    code,
		Message: message,
	}
}

func (e GRPCError) WithCode(c codes.Code) *GRPCError {
	e.GrpcCode = c
	return &e
}

func (e GRPCError) Error() string {
	return fmt.Sprintf("%s - %s", e.Code, e.Message)
}
