// Package requests holds the bound HTTP request bodies and query strings.
package requests

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/language"
	"github.com/huddlehq/huddle-server/internal/domain/reaction"
)

var registerOnce sync.Once

// RegisterValidators adds the custom tags used by request structs to gin's validator engine.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		for tag, fn := range map[string]validator.Func{
			"emoji":       validateEmoji,
			"language":    validateLanguage,
			"target_type": validateTargetType,
		} {
			if err = v.RegisterValidation(tag, fn); err != nil {
				return
			}
		}
	})
	return err
}

func validateEmoji(fl validator.FieldLevel) bool {
	_, ok := reaction.NormalizeEmoji(fl.Field().String())
	return ok
}

func validateLanguage(fl validator.FieldLevel) bool {
	return language.IsValid(fl.Field().String())
}

func validateTargetType(fl validator.FieldLevel) bool {
	_, err := content.ParseTargetType(fl.Field().String())
	return err == nil
}
