package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"forum/internal/models"

	"github.com/go-playground/validator/v10"
)

// ruleTags binds struct tags to the rule functions in this package so the
// field message is the rule's own error text.
var ruleTags = map[string]func(string) error{
	"username":      ValidateUsername,
	"password":      ValidatePassword,
	"forumemail":    ValidateEmail,
	"displayname":   ValidateDisplayName,
	"communityname": ValidateCommunityName,
}

var (
	instance *validator.Validate
	once     sync.Once
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		for tag, rule := range ruleTags {
			rule := rule
			if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return rule(fl.Field().String()) == nil
			}); err != nil {
				panic(fmt.Sprintf("validation: register %s: %v", tag, err))
			}
		}
		if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		}); err != nil {
			panic(fmt.Sprintf("validation: register notblank: %v", err))
		}
		instance = v
	})
	return instance
}

// Fields validates v against its `validate` tags and returns one entry per
// failing field, in struct order. Nil means v is valid.
func Fields(v any) []models.FieldError {
	err := get().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []models.FieldError{{Field: "request", Message: err.Error()}}
	}
	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

// Check is Fields wrapped as an InvalidInput error.
func Check(v any) error {
	if fields := Fields(v); len(fields) > 0 {
		return models.NewFieldValidationError(fields)
	}
	return nil
}

func message(fe validator.FieldError) string {
	if rule, ok := ruleTags[fe.Tag()]; ok {
		if err := rule(fmt.Sprint(fe.Value())); err != nil {
			return err.Error()
		}
	}
	switch fe.Tag() {
	case "required", "notblank":
		return "must not be blank"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
