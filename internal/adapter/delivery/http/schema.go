package http

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/linkly/internal/entity"
)

const apiVersion = "1.0"

// healthResponse is returned by the health check regardless of storage state.
type healthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}

// createLinkRequest represents the structure for a request to create a link.
type createLinkRequest struct {
	TargetURL string `json:"targetUrl" validate:"required,url"`
	Code      string `json:"code" validate:"omitempty,shortcode"`
}

// linkResponse represents a link as exposed by the API.
type linkResponse struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	TargetURL   string     `json:"targetUrl"`
	CreatedAt   time.Time  `json:"createdAt"`
	TotalClicks int64      `json:"totalClicks"`
	LastClicked *time.Time `json:"lastClicked"`
	DeletedAt   *time.Time `json:"deletedAt"`
}

func toLinkResponse(link *entity.Link) linkResponse {
	return linkResponse{
		ID:          link.ID,
		Code:        link.Code,
		TargetURL:   link.TargetURL,
		CreatedAt:   link.CreatedAt,
		TotalClicks: link.TotalClicks,
		LastClicked: link.LastClicked,
		DeletedAt:   link.DeletedAt,
	}
}

func toLinksResponse(links []*entity.Link) []linkResponse {
	resp := make([]linkResponse, 0, len(links))
	for _, link := range links {
		resp = append(resp, toLinkResponse(link))
	}
	return resp
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Error   string            `json:"error"`
	Details []validationError `json:"details,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Error: "Empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Error: "Invalid request body",
	}

	invalidURLResponse = errorResponse{
		Error: "Invalid URL format",
	}

	invalidCodeResponse = errorResponse{
		Error: "Invalid code format. Code must be 6-8 alphanumeric characters.",
	}

	codeTakenResponse = errorResponse{
		Error: "Code already exists",
	}

	linkNotFoundResponse = errorResponse{
		Error: "Link not found",
	}

	codesExhaustedResponse = errorResponse{
		Error: "Service temporarily unavailable. Unable to generate unique code. Please try again or provide a custom code.",
	}

	serverErrorResponse = errorResponse{
		Error: "Internal server error",
	}
)

// messageForTag returns a user-friendly message based on the validation tag.
func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "url":
		return "invalid url"
	case "shortcode":
		return "code must be 6-8 alphanumeric characters"
	default:
		return "invalid value"
	}
}

// getValidationErrors processes validation errors and returns a list of validationError.
func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

// validationErrorResponse constructs an errorResponse for validation errors.
func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Error:   "Validation failed",
		Details: getValidationErrors(err),
	}
}
