package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MaxPhoneNumberLength  = 20
	MaxEmailAddressLength = 100
)

var validate = validator.New()

// ContactDetails is an immutable value object owned by a Client.
type ContactDetails struct {
	primaryPhoneNumber   string
	secondaryPhoneNumber string
	emailAddress         string
}

type contactDetailsInput struct {
	PrimaryPhoneNumber   string `validate:"required,max=20"`
	SecondaryPhoneNumber string
	EmailAddress         string `validate:"omitempty,max=100"`
}

// NewContactDetails validates and builds contact details. Only the primary
// phone number is required.
func NewContactDetails(primary, secondary, email string) (*ContactDetails, error) {
	in := contactDetailsInput{
		PrimaryPhoneNumber:   strings.TrimSpace(primary),
		SecondaryPhoneNumber: strings.TrimSpace(secondary),
		EmailAddress:         strings.TrimSpace(email),
	}
	if err := validate.Struct(in); err != nil {
		return nil, translateValidation("contact details", err)
	}
	return &ContactDetails{
		primaryPhoneNumber:   in.PrimaryPhoneNumber,
		secondaryPhoneNumber: in.SecondaryPhoneNumber,
		emailAddress:         in.EmailAddress,
	}, nil
}

func (c ContactDetails) PrimaryPhoneNumber() string   { return c.primaryPhoneNumber }
func (c ContactDetails) SecondaryPhoneNumber() string { return c.secondaryPhoneNumber }
func (c ContactDetails) EmailAddress() string         { return c.emailAddress }

func (c ContactDetails) Equal(other ContactDetails) bool {
	return c == other
}

// String renders the non-empty parts separated by ", ".
func (c ContactDetails) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.primaryPhoneNumber, c.secondaryPhoneNumber, c.emailAddress} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func translateValidation(subject string, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return Validation("invalid %s: %v", subject, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s must not be empty", fe.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s cannot be longer than %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
		}
	}
	return Validation("invalid %s: %s", subject, strings.Join(msgs, "; "))
}
