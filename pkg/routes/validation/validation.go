package validation

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/matching"
)

var validate = validator.New()

// ValidateRequest represents a match configuration validation request
type ValidateRequest struct {
	Config matching.Config `json:"config" validate:"required"`
}

// ValidateResponse represents a validation response
type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Register registers validation routes
func Register(g *echo.Group) {
	g.POST("/validate", ValidateMatchConfig)
}

// ValidateMatchConfig checks a match run configuration without executing it
func ValidateMatchConfig(c echo.Context) error {
	var req ValidateRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var errs []string

	if err := validate.Struct(req.Config); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				errs = append(errs, fe.Field()+": failed "+fe.Tag()+" validation")
			}
		} else {
			return httperror.NewHTTPError(http.StatusInternalServerError, "validation failed")
		}
	}

	if req.Config.Threshold < 0 || req.Config.Threshold > 100 {
		errs = append(errs, "Threshold: must be between 0 and 100")
	}

	if len(errs) > 0 {
		return c.JSON(http.StatusOK, ValidateResponse{
			Valid:  false,
			Errors: errs,
		})
	}

	return c.JSON(http.StatusOK, ValidateResponse{
		Valid: true,
	})
}
