package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
)

var validate = validator.New()

// CountryCode is the default region for phone number parsing. Deployments
// override it with COUNTRY_CODE.
var CountryCode = defaultCountryCode()

func defaultCountryCode() string {
	if v := strings.TrimSpace(os.Getenv("COUNTRY_CODE")); v != "" {
		return v
	}
	return "PK"
}

func ValidateStruct(input any) error {
	return validate.Struct(input)
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err
	}
	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}
	return nil
}
