package form

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"schedule-cli/internal/model"
)

const (
	FieldEmail     Field = "email"
	FieldPassword  Field = "password"
	FieldFirstName Field = "firstName"
	FieldLastName  Field = "lastName"
)

func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s, "@")
}

func checkEmail(errs *Errors, email string) {
	if !required(errs, FieldEmail, email) {
		return
	}
	if !validEmail(email) {
		errs.add(FieldEmail, "email is not a valid address")
	}
}

func checkName(errs *Errors, field Field, v string, mandatory bool) {
	if mandatory && !required(errs, field, v) {
		return
	}
	if utf8.RuneCountInString(strings.TrimSpace(v)) > MaxNameLen {
		errs.addf(field, "%s must be at most %d characters", field.Label(), MaxNameLen)
	}
}

// ValidateCredentials checks the login form.
func ValidateCredentials(c model.Credentials) Errors {
	var errs Errors
	checkEmail(&errs, c.Email)
	required(&errs, FieldPassword, c.Password)
	return errs
}

// ValidateRegistration checks the sign-up form.
func ValidateRegistration(r model.Registration) Errors {
	var errs Errors
	checkName(&errs, FieldFirstName, r.FirstName, true)
	checkName(&errs, FieldLastName, r.LastName, true)
	checkEmail(&errs, r.Email)
	if utf8.RuneCountInString(r.Password) < MinPasswordLen {
		errs.addf(FieldPassword, "password must be at least %d characters", MinPasswordLen)
	}
	return errs
}

// ValidateUserUpdate checks the settings form. An empty password keeps the old one.
func ValidateUserUpdate(u model.UserUpdate) Errors {
	var errs Errors
	checkName(&errs, FieldFirstName, u.FirstName, false)
	checkName(&errs, FieldLastName, u.LastName, false)
	if u.Password != "" && utf8.RuneCountInString(u.Password) < MinPasswordLen {
		errs.addf(FieldPassword, "password must be at least %d characters", MinPasswordLen)
	}
	return errs
}
