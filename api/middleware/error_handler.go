// api/middleware/error_handler.go
package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/whoopclone/backend/internal/auth"
	"github.com/whoopclone/backend/internal/storage"
)

// ErrorHandler creates a Gin middleware for centralized error handling.
// Handlers attach errors with c.Error and return; the last one decides the response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		if c.Writer.Written() {
			customLog.Debugf("[ErrorHandler] Response already written for error: %v", err)
			return
		}

		statusCode, userMessage := classify(err)
		if statusCode >= http.StatusInternalServerError {
			customLog.Errorf("[ErrorHandler] Unhandled error type: %T, Error: %v", err, err)
		} else {
			customLog.Printf("[ErrorHandler] Detected error: %v | Type: %T", err, err)
		}

		c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage})
	}
}

func classify(err error) (int, string) {
	var validationErrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, storage.ErrEmailExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, storage.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, "Authentication token has expired."
	case errors.Is(err, auth.ErrTokenMalformed),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenSignatureInvalid),
		errors.Is(err, auth.ErrTokenClaimsInvalid),
		errors.Is(err, auth.ErrUnexpectedSigningMethod),
		errors.Is(err, ErrAuthHeaderMissing),
		errors.Is(err, ErrAuthHeaderFormat):
		return http.StatusUnauthorized, "Invalid or malformed authentication token."
	case errors.Is(err, auth.ErrPasswordTooLong):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &validationErrs):
		for _, fe := range validationErrs {
			customLog.Printf("Validation Error: Field %s failed on %s", fe.Field(), fe.Tag())
		}
		return http.StatusBadRequest, "Validation failed. Please check your input."
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest, "Request body must be valid JSON."
	default:
		return http.StatusInternalServerError, "An unexpected internal server error occurred."
	}
}
