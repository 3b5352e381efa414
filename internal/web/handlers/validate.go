package handlers

import (
	"fmt"
	"net/mail"
	"unicode/utf8"

	"github.com/shindakun/signin/internal/models"
)

const (
	msgEmailRequired    = "The email field is required."
	msgEmailInvalid     = "The email field must be a valid email address."
	msgPasswordRequired = "The password field is required."
)

// maxEmailLength bounds the email in characters. Old input rides in the
// session cookie, so it has to stay well under the cookie size limit.
const maxEmailLength = 255

var msgEmailTooLong = fmt.Sprintf("The email field must not be greater than %d characters.", maxEmailLength)

// loginForm is the submitted login form
type loginForm struct {
	Email    string
	Password string
	Remember string
}

// validate applies the login form rules. An empty result means the form is valid.
func (f loginForm) validate() models.ValidationErrors {
	errs := models.ValidationErrors{}
	switch {
	case f.Email == "":
		errs.Add("email", msgEmailRequired)
	case utf8.RuneCountInString(f.Email) > maxEmailLength:
		errs.Add("email", msgEmailTooLong)
	case !validEmail(f.Email):
		errs.Add("email", msgEmailInvalid)
	}
	if f.Password == "" {
		errs.Add("password", msgPasswordRequired)
	}
	return errs
}

// oldInput is what is echoed back to the form. The password never is.
func (f loginForm) oldInput() models.OldInput {
	old := models.OldInput{"email": truncate(f.Email, maxEmailLength)}
	if (models.OldInput{"remember": f.Remember}).Bool("remember") {
		old["remember"] = "on"
	}
	return old
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// validEmail accepts a bare addr-spec, rejecting display names and angle brackets.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
