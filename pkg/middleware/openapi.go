package middleware

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/tiagodcc/ikts/pkg/contracts/openapi"
	"github.com/tiagodcc/ikts/pkg/errors"
)

// OpenAPIValidation rejects requests that do not match the API document.
// Paths the document does not describe pass through untouched. Matched
// requests carry the operation ID on their span.
func OpenAPIValidation(v *openapi.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		operationID, err := v.ValidateRequest(c.Request)
		switch {
		case stderrors.Is(err, openapi.ErrNoRoute):
		case err != nil:
			AbortWithAppError(c, errors.ErrBadRequest(err.Error()))
			return
		default:
			AddSpanAttributes(c, map[string]any{"openapi.operation": operationID})
		}
		c.Next()
	}
}
