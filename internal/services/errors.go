// Package services provides the business logic layer between handlers and the
// analytics packages. Services validate input, orchestrate the loaded table,
// the model and the engines, and translate failures into ServiceErrors.
package services

import (
	"errors"
	"fmt"

	"github.com/soltixdb/enrollwatch/internal/analytics/forecast"
	"github.com/soltixdb/enrollwatch/internal/model"
)

// Error codes returned by the dashboard service
const (
	CodeUnknownDistrict     = "UNKNOWN_DISTRICT"
	CodeUnknownState        = "UNKNOWN_STATE"
	CodeInsufficientHistory = "INSUFFICIENT_HISTORY"
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodePredictionFailed    = "PREDICTION_FAILED"
	CodeExportFailed        = "EXPORT_FAILED"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// AsServiceError returns err as a *ServiceError if one is in its chain
func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

func invalidArgument(name string, value interface{}, reason string) *ServiceError {
	return NewServiceErrorWithDetails(CodeInvalidArgument,
		fmt.Sprintf("invalid %s: %s", name, reason),
		map[string]interface{}{name: value})
}

func unknownDistrict(district string) *ServiceError {
	return NewServiceErrorWithDetails(CodeUnknownDistrict,
		fmt.Sprintf("district %q is not known", district),
		map[string]interface{}{"district": district})
}

func unknownState(state string) *ServiceError {
	return NewServiceErrorWithDetails(CodeUnknownState,
		fmt.Sprintf("state %q is not known", state),
		map[string]interface{}{"state": state})
}

// forecastError maps an engine or model failure onto a ServiceError
func forecastError(district string, err error) *ServiceError {
	var unknown *model.UnknownDistrictError
	switch {
	case errors.As(err, &unknown):
		return unknownDistrict(district)
	case errors.Is(err, forecast.ErrInsufficientHistory):
		return NewServiceErrorWithDetails(CodeInsufficientHistory, err.Error(),
			map[string]interface{}{"district": district})
	default:
		return NewServiceErrorWithDetails(CodePredictionFailed, "prediction failed",
			map[string]interface{}{"district": district, "error": err.Error()})
	}
}
