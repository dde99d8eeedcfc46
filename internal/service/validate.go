package service

import (
	"errors"
	"reflect"
	"strings"

	"course-fee-gateway/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate = newValidator()

	maxAmount = decimal.RequireFromString("99999999.99")
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// IssueInput is what a student submits. 0x7C is the hash delimiter "|",
// which must not appear in any hashed field.
type IssueInput struct {
	FullName    string          `json:"fullName" validate:"required,max=100,excludesall=0x7C"`
	Email       string          `json:"email" validate:"required,email,max=254,excludesall=0x7C"`
	Phone       string          `json:"phone" validate:"required,numeric,min=10,max=15"`
	CourseName  string          `json:"courseName" validate:"required,max=100,excludesall=0x7C"`
	CollegeName string          `json:"collegeName" validate:"required,max=150,excludesall=0x7C"`
	Amount      decimal.Decimal `json:"amount"`
}

var phoneReplacer = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

func (in IssueInput) normalize() IssueInput {
	in.FullName = strings.Join(strings.Fields(in.FullName), " ")
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimPrefix(phoneReplacer.Replace(strings.TrimSpace(in.Phone)), "+")
	in.CourseName = strings.Join(strings.Fields(in.CourseName), " ")
	in.CollegeName = strings.Join(strings.Fields(in.CollegeName), " ")
	return in
}

// Normalize trims and canonicalizes the input, then validates it.
func (in IssueInput) Normalize() (IssueInput, error) {
	in = in.normalize()
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return in, domain.NewValidationError(fe.Field(), reasonFor(fe))
		}
		return in, err
	}
	switch {
	case !in.Amount.IsPositive():
		return in, domain.NewValidationError("amount", "must be greater than zero")
	case in.Amount.GreaterThan(maxAmount):
		return in, domain.NewValidationError("amount", "exceeds maximum")
	case !in.Amount.Equal(in.Amount.Round(2)):
		return in, domain.NewValidationError("amount", "at most two decimal places")
	}
	return in, nil
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "numeric":
		return "must contain digits only"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "excludesall":
		return "contains a forbidden character"
	default:
		return "failed " + fe.Tag()
	}
}
