package ws

import (
	"errors"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/service"
	pkgErrors "github.com/vogiaan1904/ticketbottle-gateway/pkg/errors"
)

const (
	CodeNotIdentified = "NOT_IDENTIFIED"
	CodeUnknownType   = "UNKNOWN_TYPE"
)

var (
	errNotIdentified = pkgErrors.NewGatewayError(CodeNotIdentified, "send IDENTIFY first")
	errUnknownType   = pkgErrors.NewGatewayError(CodeUnknownType, "unknown frame type")
	errInternal      = pkgErrors.NewGatewayError(service.KindInternal.String(), "internal error")
)

// toGatewayError turns a service error into what the client is shown.
// Internal errors never leak their message.
func toGatewayError(err error) *pkgErrors.GatewayError {
	var ge *pkgErrors.GatewayError
	if errors.As(err, &ge) {
		return ge
	}

	kind := service.Classify(err)
	if kind == service.KindInternal {
		return errInternal
	}
	return pkgErrors.NewGatewayError(kind.String(), err.Error())
}
