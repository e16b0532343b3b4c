package service

import (
	"errors"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/gateway"
)

var (
	ErrInvalidToken      = errors.New("invalid or expired token")
	ErrUserNotFound      = errors.New("user not found")
	ErrAlreadyIdentified = errors.New("connection already identified")
	ErrNotIdentified     = errors.New("connection not identified")
	ErrInvalidPayload    = errors.New("invalid payload")

	ErrInvalidStatus = errors.New("invalid presence status")

	ErrNotInVoiceChannel  = errors.New("not connected to this voice channel")
	ErrVoiceStateNotFound = errors.New("voice member state not found")

	ErrMusicDisabled      = errors.New("music is disabled on this server")
	ErrPlatformNotAllowed = errors.New("platform is not allowed on this server")
	ErrUnknownCommand     = errors.New("unknown music command")
	ErrEmptyQuery         = errors.New("query is required")
	ErrQueueFull          = errors.New("queue is full")
	ErrNothingPlaying     = errors.New("nothing is playing")
	ErrNoPreviousTrack    = errors.New("no previous track")
	ErrChannelBusy        = errors.New("channel is busy, try again")

	ErrInvalidEvent = errors.New("invalid event")
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindAuth
	KindValidation
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "AUTH_FAILED"
	case KindValidation:
		return "VALIDATION_FAILED"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "INTERNAL"
	}
}

// Classify maps an error returned by this package to the class the client sees.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrUserNotFound):
		return KindAuth
	case errors.Is(err, ErrVoiceStateNotFound),
		errors.Is(err, ErrNoPreviousTrack),
		errors.Is(err, ErrNotInVoiceChannel):
		return KindNotFound
	case errors.Is(err, ErrAlreadyIdentified),
		errors.Is(err, ErrNotIdentified),
		errors.Is(err, ErrInvalidPayload),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrMusicDisabled),
		errors.Is(err, ErrPlatformNotAllowed),
		errors.Is(err, ErrUnknownCommand),
		errors.Is(err, ErrEmptyQuery),
		errors.Is(err, ErrQueueFull),
		errors.Is(err, ErrNothingPlaying),
		errors.Is(err, ErrChannelBusy),
		errors.Is(err, ErrInvalidEvent),
		errors.Is(err, gateway.ErrTooManyTopics):
		return KindValidation
	default:
		return KindInternal
	}
}
