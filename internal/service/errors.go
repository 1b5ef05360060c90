package service

import (
	"errors"
	"fmt"

	"valuator/internal/model"
)

var (
	ErrUnknownField   = errors.New("unknown field")
	ErrUnknownAmenity = errors.New("unknown amenity")
	ErrUnknownDomain  = errors.New("unknown domain")
	ErrSessionClosed  = errors.New("form session is closed")
	// ErrSuperseded is returned to a submission whose result was discarded
	// because a newer one started or the form was closed meanwhile
	ErrSuperseded = errors.New("submission superseded")
)

// Validation reasons
const (
	ReasonRequired = "required"
	ReasonLocation = "location"
	ReasonNumber   = "number"
	ReasonRange    = "range"
	ReasonOption   = "option"
)

// ValidationError means the form cannot be submitted yet
type ValidationError struct {
	Domain  model.DomainID
	Reason  string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// GeolocationError means the device position could not be obtained
type GeolocationError struct {
	Err     error
	Message string
}

func (e *GeolocationError) Error() string {
	return e.Message
}

func (e *GeolocationError) Unwrap() error {
	return e.Err
}

// TransportError means the prediction request failed or answered non-2xx.
// Status is zero for network failures.
type TransportError struct {
	Status  int
	Body    string
	Err     error
	Message string
}

func (e *TransportError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return fmt.Sprintf("Server error: %d %s", e.Status, e.Body)
	}
	return fmt.Sprintf("Prediction failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text shown to the user for err
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	var ge *GeolocationError
	var te *TransportError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &ge):
		return ge.Message
	case errors.As(err, &te):
		return te.Error()
	}
	return err.Error()
}
