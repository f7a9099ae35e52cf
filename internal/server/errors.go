package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/TheusHen/qrng/qrng/bits"
	"github.com/TheusHen/qrng/qrng/crypto"
	"github.com/TheusHen/qrng/qrng/generate"
	"github.com/TheusHen/qrng/qrng/keys"
	"github.com/TheusHen/qrng/qrng/source"
)

var errBadRequest = errors.New("server: bad request")

// Code is the machine readable error class returned to clients.
type Code string

const (
	CodeInvalidRequest      Code = "invalid_request"
	CodeInsufficientEntropy Code = "insufficient_entropy"
	CodeTrialSource         Code = "trial_source_failure"
	CodeCancelled           Code = "cancelled"
	CodeInternal            Code = "internal"
)

// Classify maps an error to its code and HTTP status.
func Classify(err error) (Code, int) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, keys.ErrUnsupportedKeySize),
		errors.Is(err, keys.ErrNoKeyingMaterial),
		errors.Is(err, bits.ErrInvalidBit),
		errors.Is(err, bits.ErrInsufficientBits),
		errors.Is(err, bits.ErrTooManyBits),
		errors.Is(err, generate.ErrInvalidConfig),
		errors.Is(err, generate.ErrInvalidTarget),
		errors.Is(err, crypto.ErrInvalidKeySize),
		errors.Is(err, crypto.ErrInvalidIV),
		errors.Is(err, crypto.ErrCiphertextLength),
		errors.Is(err, crypto.ErrPadding),
		errors.Is(err, crypto.ErrInvalidHexPayload):
		return CodeInvalidRequest, http.StatusBadRequest
	case errors.Is(err, generate.ErrInsufficientEntropy):
		return CodeInsufficientEntropy, http.StatusServiceUnavailable
	case errors.Is(err, source.ErrTrialSource):
		return CodeTrialSource, http.StatusBadGateway
	case errors.Is(err, generate.ErrGenerationCancelled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancelled, http.StatusGatewayTimeout
	default:
		return CodeInternal, http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError keeps a single JSON error envelope for every handler.
// Internal errors are not echoed to the client.
func writeError(w http.ResponseWriter, err error) {
	code, status := Classify(err)
	msg := err.Error()
	if code == CodeInternal {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{
		"error":   string(code),
		"message": msg,
	})
}
