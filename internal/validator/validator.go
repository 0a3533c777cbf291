// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("dayid", validateDayID)
		_ = v.RegisterValidation("skin_target", validateSkinTarget)
	}
}

// validateDayID accepts UTC calendar day ids in YYYY-MM-DD form.
func validateDayID(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

func validateSkinTarget(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "map", "buildings", "avatar":
		return true
	}
	return false
}
