package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/punchamoorthee/tuitionledger/internal/domain"
)

const maxBodyBytes = 1 << 20

var (
	validate = newValidator()

	academicYearPattern = regexp.MustCompile(`^(\d{4})-(\d{4})$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("matricule", func(fl validator.FieldLevel) bool {
		_, err := domain.NormalizeMatricule(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("academic_year", func(fl validator.FieldLevel) bool {
		return ValidAcademicYear(fl.Field().String())
	})
	return v
}

// ValidAcademicYear accepts "YYYY-YYYY" where the second year follows the first.
func ValidAcademicYear(s string) bool {
	m := academicYearPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return end == start+1
}

// Decode reads one JSON object from r into dst and validates it.
func Decode(r io.Reader, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return domain.ErrInvalidRequest.WithMessage("invalid JSON body")
	}
	return Validate(dst)
}

// Validate runs the struct's validate tags and reports the first failure.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.ErrInvalidRequest
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "matricule":
		return domain.ErrInvalidMatricule
	case "required":
		return domain.ErrInvalidRequest.WithMessage(fmt.Sprintf("%s is required", fe.Field()))
	case "academic_year":
		return domain.ErrInvalidRequest.WithMessage(fmt.Sprintf("%s must look like 2024-2025", fe.Field()))
	case "oneof":
		return domain.ErrInvalidRequest.WithMessage(fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param()))
	default:
		return domain.ErrInvalidRequest.WithMessage(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}

// DecodePatch reads a student patch, rejecting any field outside the
// mutable set.
func DecodePatch(r io.Reader) (domain.StudentPatch, error) {
	var patch domain.StudentPatch
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			return patch, domain.ErrUnknownField.WithMessage(
				fmt.Sprintf("field %s cannot be updated", field))
		}
		return patch, domain.ErrInvalidRequest.WithMessage("invalid JSON body")
	}
	if patch.Empty() {
		return patch, domain.ErrEmptyPatch
	}
	if patch.AcademicYear != nil && !ValidAcademicYear(*patch.AcademicYear) {
		return patch, domain.ErrInvalidRequest.WithMessage("academic_year must look like 2024-2025")
	}
	if patch.BirthYear != nil && (*patch.BirthYear < 1900 || *patch.BirthYear > 2100) {
		return patch, domain.ErrInvalidRequest.WithMessage("birth_year is invalid")
	}
	return patch, nil
}
