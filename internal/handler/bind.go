package handler

import (
	"errors"

	"loyalty/pkg/errutil"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// bindJSON reports false after recording a 400 for an unusable body.
// Field validation failures pass through so the error middleware can list
// them per field.
func bindJSON(c *gin.Context, dst interface{}) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		_ = c.Error(err)
		return false
	}
	_ = c.Error(errutil.BadRequest("Malformed request body.", errutil.WithErr(err)))
	return false
}
