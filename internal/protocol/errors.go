package protocol

import (
	"errors"

	"idlebakery.ai/internal/sim/economy"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Command layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnknownTarget = "E_UNKNOWN_TARGET"
	ErrNoFunds       = "E_NO_FUNDS"
	ErrLocked        = "E_LOCKED"
	ErrConflict      = "E_CONFLICT"
	ErrRateLimit     = "E_RATE_LIMIT"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrUnknownTarget:   {},
	ErrNoFunds:         {},
	ErrLocked:          {},
	ErrConflict:        {},
	ErrRateLimit:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeFor maps a command error to its wire code.
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadCommand):
		return ErrBadRequest
	case errors.Is(err, economy.ErrUnknownPastry), errors.Is(err, economy.ErrUnknownUpgrade):
		return ErrUnknownTarget
	case errors.Is(err, economy.ErrInsufficientFunds):
		return ErrNoFunds
	case errors.Is(err, economy.ErrLevelRequirement), errors.Is(err, economy.ErrNotBuildable):
		return ErrLocked
	case errors.Is(err, economy.ErrAlreadyPurchased), errors.Is(err, economy.ErrBuildInFlight), errors.Is(err, economy.ErrAutomated):
		return ErrConflict
	default:
		return ErrInternal
	}
}
