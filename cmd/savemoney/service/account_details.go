package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/models"
)

var (
	upiPattern  = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)
	ifscPattern = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
)

type upiDetails struct {
	UPIID string `json:"upiId" validate:"required,upi"`
}

type bankDetails struct {
	AccountNumber     string `json:"accountNumber" validate:"required,numeric,min=9,max=18"`
	IFSC              string `json:"ifsc" validate:"required,ifsc"`
	AccountHolderName string `json:"accountHolderName" validate:"required,max=100"`
}

type paytmDetails struct {
	Phone string `json:"phone" validate:"required,numeric,len=10"`
}

type voucherDetails struct {
	Email string `json:"email" validate:"required,email"`
	Brand string `json:"brand,omitempty" validate:"omitempty,max=50"`
}

type detailsValidator struct {
	validate *validator.Validate
}

// newDetailsValidator паникует, если теги не зарегистрировались: иначе
// validator молча пропустит неизвестный тег и реквизиты не проверятся.
func newDetailsValidator() *detailsValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := registerPatterns(v, map[string]*regexp.Regexp{
		"upi":  upiPattern,
		"ifsc": ifscPattern,
	}); err != nil {
		panic(err)
	}
	return &detailsValidator{validate: v}
}

func registerPatterns(v *validator.Validate, patterns map[string]*regexp.Regexp) error {
	for tag, re := range patterns {
		re := re
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		})
		if err != nil {
			return fmt.Errorf("регистрация правила %q: %w", tag, err)
		}
	}
	return nil
}

func (d *detailsValidator) Validate(method models.WithdrawalMethod, raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ErrInvalidAccountDetails
	}

	var target any
	switch method {
	case models.MethodUPI:
		target = &upiDetails{}
	case models.MethodBank:
		target = &bankDetails{}
	case models.MethodPaytm:
		target = &paytmDetails{}
	case models.MethodVoucher:
		target = &voucherDetails{}
	default:
		return ErrInvalidMethod
	}

	if err := json.Unmarshal(trimmed, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAccountDetails, err)
	}
	if err := d.validate.Struct(target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAccountDetails, err)
	}
	return nil
}
