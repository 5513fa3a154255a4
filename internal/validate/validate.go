// Package validate struct-tag validates inbound off-chain task requests
// before they reach the resolver, using go-playground/validator.
package validate

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/eureka-network/eureka-sink/internal/errors"
)

var v = validator.New()

// AddTaskRequest is the shape an upstream producer submits to enqueue a
// new off-chain resolution task, validated by Resolver.AddTask before
// the task is persisted.
type AddTaskRequest struct {
	Manifest        string                 `validate:"required"`
	URI             string                 `validate:"required,uri"`
	MaxRetries      int32                  `validate:"gte=0"`
	WaitBeforeRetry int32                  `validate:"gte=0"`
	Metadata        map[string]interface{} `validate:"omitempty"`
}

// ValidateAddTaskRequest validates req, returning an
// apperrors.ErrorTypeValidation error describing the first failing field.
func ValidateAddTaskRequest(req AddTaskRequest) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError(fmt.Sprintf("validation failed: %v", err))
	}

	fe := validationErrs[0]
	return apperrors.NewValidationError(fmt.Sprintf("field %q failed on %q validation", fe.Field(), fe.Tag()))
}
