// Package validation wraps validator/v10 for request structs and registers
// the address, hash and wei formats used across the API.
package validation

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ethereum-tag-service/ets-server/internal/domain"
	domainerrors "github.com/ethereum-tag-service/ets-server/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the ETS field formats registered:
//
//	ethaddr  0x-prefixed 20-byte hex address
//	hash32   0x-prefixed 32-byte hex hash
//	wei      non-negative decimal integer
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("ethaddr", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseAddress(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("hash32", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseHash(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("wei", func(fl validator.FieldLevel) bool {
		return IsWei(fl.Field().String())
	})

	return &Validator{v: v}
}

// IsWei reports whether s is a non-negative base-10 integer.
func IsWei(s string) bool {
	if s == "" || strings.HasPrefix(s, "+") {
		return false
	}
	n, ok := new(big.Int).SetString(s, 10)
	return ok && n.Sign() >= 0
}

// Validate validates a struct and returns a VALIDATION domain error whose
// details map each failing field to a message.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	names := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = friendlyMessage(e)
		names = append(names, e.Field())
	}

	return domainerrors.ValidationWithDetails("invalid "+strings.Join(names, ", "), fieldErrors)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "ethaddr":
		return "must be a 0x-prefixed 20-byte hex address"
	case "hash32":
		return "must be a 0x-prefixed 32-byte hex hash"
	case "wei":
		return "must be a non-negative decimal integer"
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", e.Param())
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must not contain more than %s items", e.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}
