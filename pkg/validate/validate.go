// Package validate owns the process wide validator shared by HTTP decoding and
// domain services.
package validate

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// FreeTextMaxLen caps descriptions and comments.
const FreeTextMaxLen = 200

var shared = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	if err := v.RegisterValidation("freetext", freeText); err != nil {
		panic(fmt.Sprintf("register freetext validation: %v", err))
	}
	return v
}

// Validator exposes the shared instance.
func Validator() *validator.Validate {
	return shared
}

// Struct validates dest and converts failures into a VALIDATION_ERROR whose
// details map json field paths to messages.
func Struct(dest any) error {
	if err := shared.Struct(dest); err != nil {
		return FromValidator(err, "")
	}
	return nil
}

// FreeText reports whether value passes the description/comment rule.
func FreeText(value string) bool {
	if !utf8.ValidString(value) || utf8.RuneCountInString(value) > FreeTextMaxLen {
		return false
	}
	for _, r := range value {
		switch {
		case r == '\n' || r == '\t':
		case r == '<' || r == '>':
			return false
		case !unicode.IsPrint(r):
			return false
		}
	}
	return true
}

func freeText(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return true
		}
		field = field.Elem()
	}
	if field.Kind() != reflect.String {
		return false
	}
	return FreeText(field.String())
}

// FieldErrors converts validator failures into a path -> message map. prefix
// is prepended to every path, e.g. "new_deficiencies[2]".
func FieldErrors(err error, prefix string) map[string]string {
	out := map[string]string{}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return out
	}
	for _, fe := range errs {
		out[joinPath(prefix, trimRoot(fe.Namespace()))] = Message(fe.Tag(), fe.Param())
	}
	return out
}

// FromValidator wraps a validator error as a VALIDATION_ERROR.
func FromValidator(err error, prefix string) *pkgerrors.Error {
	if _, ok := err.(validator.ValidationErrors); ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(FieldErrors(err, prefix))
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

// Message renders a human readable message for a validation tag.
func Message(tag, param string) string {
	switch tag {
	case "required", "required_if", "required_without":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", param)
	case "max":
		return fmt.Sprintf("must be at most %s", param)
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", param)
	case "freetext":
		return fmt.Sprintf("must be at most %d printable characters", FreeTextMaxLen)
	case "uuid", "uuid4":
		return "must be a valid uuid"
	}
	return "is invalid"
}

func trimRoot(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func joinPath(prefix, field string) string {
	if prefix == "" {
		return field
	}
	if field == "" {
		return prefix
	}
	return prefix + "." + field
}
