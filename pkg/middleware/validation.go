package middleware

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tiagodcc/ikts/pkg/errors"
)

// MaxRailDimension is the largest length, width or thickness in millimetres
// the workshop handles
const MaxRailDimension = 100000

var initValidator sync.Once

// fieldMessages maps a validator tag to the message shown for a failed field
var fieldMessages = map[string]func(param string) string{
	"required": func(string) string { return "is required" },
	"min":      func(p string) string { return "must be at least " + p },
	"max":      func(p string) string { return "must be at most " + p },
	"raildim":  func(string) string { return "must be a positive length in millimetres" },
	"oneof":    func(p string) string { return "must be one of: " + p },
}

// InitValidator registers the raildim rule and JSON field naming on Gin's
// binding validator
func InitValidator() {
	initValidator.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("raildim", railDimension)
		v.RegisterTagNameFunc(jsonFieldName)
	})
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}

// railDimension accepts integers in [1, MaxRailDimension]
func railDimension(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		n := fl.Field().Int()
		return n >= 1 && n <= MaxRailDimension
	}
	return false
}

// BindAndValidate binds the JSON body into obj. Rule violations come back
// as a validation error with one detail per field.
func BindAndValidate(c *gin.Context, obj any) *errors.AppError {
	InitValidator()

	err := c.ShouldBindJSON(obj)
	if err == nil {
		return nil
	}

	var violations validator.ValidationErrors
	if !stderrors.As(err, &violations) {
		return errors.ErrBadRequest("invalid request body: " + err.Error())
	}

	fields := make(map[string]string, len(violations))
	for _, v := range violations {
		message := "is invalid"
		if format, ok := fieldMessages[v.Tag()]; ok {
			message = format(v.Param())
		}
		fields[v.Field()] = message
	}
	return errors.ErrValidationWithFields("validation failed", fields)
}
