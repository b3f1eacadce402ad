// api/models/validation.go
package models

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/whoopclone/backend/internal/auth"
)

// TagPasswordBytes limits a field to what bcrypt can hash. The built-in max
// tag counts runes, so multibyte passwords need a byte count.
const TagPasswordBytes = "password_bytes"

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation(TagPasswordBytes, passwordBytes)
	}
}

func passwordBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= auth.MaxPasswordBytes
}
