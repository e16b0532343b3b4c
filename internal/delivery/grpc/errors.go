package grpc

import (
	"errors"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/service"
	pkgErrors "github.com/vogiaan1904/ticketbottle-gateway/pkg/errors"
)

var (
	errInvalidRequest     = pkgErrors.NewGRPCError("GWY001", "Invalid request")
	errInvalidEvent       = pkgErrors.NewGRPCError("GWY002", "Invalid event")
	errInvalidMusicConfig = pkgErrors.NewGRPCError("GWY003", "Invalid music config")
)

func (s *grpcService) mapGRPCError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidEvent):
		return errInvalidEvent
	case errors.Is(err, service.ErrInvalidPayload):
		return errInvalidMusicConfig
	default:
		return err
	}
}
