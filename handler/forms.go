package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// LoginForm is the POST /api/auth/login body.
type LoginForm struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Secret     string `json:"secret" validate:"required,max=1024"`
}

// SignupForm is the POST /api/auth/signup body.
type SignupForm struct {
	Identifier string `json:"identifier" validate:"required,email,max=254"`
	Secret     string `json:"secret" validate:"required,min=10,max=1024"`
	Name       string `json:"name" validate:"max=100"`
}

// formValidator wraps validator.Validate with lazy initialization.
type formValidator struct {
	once     sync.Once
	validate *validator.Validate
}

func (v *formValidator) lazyinit() {
	v.once.Do(func() {
		v.validate = validator.New(validator.WithRequiredStructEnabled())
		v.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func (v *formValidator) Struct(obj any) error {
	v.lazyinit()
	return v.validate.Struct(obj)
}

// decodeForm reads a JSON body into dst and validates it. The returned
// message is safe to show the client.
func decodeForm(r *http.Request, v *formValidator, dst any) (string, bool) {
	if r.Body == nil {
		return "request body is required", false
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return "request body too large", false
		case errors.Is(err, io.EOF):
			return "request body is required", false
		}
		return "invalid JSON body", false
	}

	if err := v.Struct(dst); err != nil {
		return validationMessage(err), false
	}
	return "", true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
