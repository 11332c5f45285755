package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/booking-engine/internal/model"
)

// clock validates "HH:MM" fields on schedule submissions before they reach
// the service layer.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			_, err := model.ParseClockTime(fl.Field().String())
			return err == nil
		})
	}
}
