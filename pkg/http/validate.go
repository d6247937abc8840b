package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// ReadAndValidateRequest binds request into dst, applies struct defaults
// and runs validation. Returns a list of validation errors suitable for
// a 400 response, or nil when the request is valid.
func ReadAndValidateRequest(c echo.Context, dst interface{}) []*ValidationError {
	if err := c.Bind(dst); err != nil {
		return []*ValidationError{{
			Code:    "ERR_MALFORMED",
			Message: "Request body or parameters are malformed",
		}}
	}

	if err := defaults.Set(dst); err != nil {
		return []*ValidationError{{
			Code:    "ERR_DEFAULTS",
			Message: "Failed to apply request defaults",
		}}
	}

	if err := validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return []*ValidationError{{
				Code:    "ERR_VALIDATION",
				Message: "Request cannot be validated",
			}}
		}

		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			out := make([]*ValidationError, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				out = append(out, translateFieldError(fe))
			}
			return out
		}

		return []*ValidationError{{
			Code:    "ERR_VALIDATION",
			Message: err.Error(),
		}}
	}

	return nil
}

func translateFieldError(fe validator.FieldError) *ValidationError {
	field := strings.ToLower(fe.Field())

	ve := &ValidationError{
		Field:  field,
		Params: make(map[string]interface{}),
	}

	switch fe.Tag() {
	case "required":
		ve.Code = "ERR_REQUIRED"
		ve.Message = fmt.Sprintf("%s is required", field)
	case "min", "gte":
		ve.Code = "ERR_TOO_SMALL"
		ve.Message = fmt.Sprintf("%s must be at least %s", field, fe.Param())
		ve.Params["min"] = fe.Param()
	case "max", "lte":
		ve.Code = "ERR_TOO_LARGE"
		ve.Message = fmt.Sprintf("%s must be at most %s", field, fe.Param())
		ve.Params["max"] = fe.Param()
	case "oneof":
		ve.Code = "ERR_INVALID_VALUE"
		ve.Message = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
		ve.Params["allowed"] = fe.Param()
	default:
		ve.Code = "ERR_INVALID"
		ve.Message = fmt.Sprintf("%s is invalid", field)
		ve.Params["tag"] = fe.Tag()
	}

	return ve
}

// RespondValidationErrors writes a 400 response with validation details.
func RespondValidationErrors(c echo.Context, errs []*ValidationError) error {
	return DataResponse(c, http.StatusBadRequest, errs)
}
