package handler

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/yourusername/animemaster-api/internal/service"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding rules used by the request DTOs.
// It is safe to call more than once.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
			return
		}
		err = v.RegisterValidation("vcode", func(fl validator.FieldLevel) bool {
			return service.IsWellFormedCode(fl.Field().String())
		})
	})
	return err
}
