// Package validation holds the client-side input rules checked before any
// request leaves the process.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"taskctl/internal/apperr"
	"taskctl/internal/service"
)

// Registration limits.
const (
	UsernameMinLength = 3
	UsernameMaxLength = 50
	PasswordMinLength = 6
	PasswordMaxLength = 100
	NameMinLength     = 2
	NameMaxLength     = 100
	TitleMaxLength    = 200
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validator collects violated rules for one input.
type Validator struct {
	err *apperr.ValidationError
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{err: apperr.NewValidationError()}
}

// Required records a violation when s is blank.
func (v *Validator) Required(field, s string) bool {
	if strings.TrimSpace(s) == "" {
		v.err.Add(field, apperr.RuleRequired, fmt.Sprintf("%s is required", field))
		return false
	}
	return true
}

// Length records a violation when the rune count of s is outside [min, max].
func (v *Validator) Length(field, s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	switch {
	case n < min:
		v.err.Add(field, apperr.RuleInvalidLength,
			fmt.Sprintf("%s must be at least %d characters long", field, min))
		return false
	case max > 0 && n > max:
		v.err.Add(field, apperr.RuleInvalidLength,
			fmt.Sprintf("%s must be at most %d characters long", field, max))
		return false
	}
	return true
}

// Email records a violation when s does not look like an address.
func (v *Validator) Email(field, s string) bool {
	if !emailPattern.MatchString(strings.TrimSpace(s)) {
		v.err.Add(field, apperr.RuleInvalidFormat, fmt.Sprintf("%s has invalid format", field))
		return false
	}
	return true
}

// Priority records a violation when p is set but unknown. Zero means unset.
func (v *Validator) Priority(field string, p service.Priority) bool {
	if p != 0 && !p.Valid() {
		v.err.Add(field, apperr.RuleInvalidValue,
			fmt.Sprintf("%s must be between %d and %d", field, service.PriorityHigh, service.PriorityLow))
		return false
	}
	return true
}

// Err returns the collected violations, or nil.
func (v *Validator) Err() error {
	if v.err.HasErrors() {
		return v.err
	}
	return nil
}

// Registration checks every registration rule and reports all violations.
// Username and name are measured as they will be sent, after trimming.
func Registration(r service.Registration) error {
	v := New()
	v.Length("username", strings.TrimSpace(r.Username), UsernameMinLength, UsernameMaxLength)
	v.Length("password", r.Password, PasswordMinLength, PasswordMaxLength)
	v.Email("email", r.Email)
	v.Length("name", strings.TrimSpace(r.Name), NameMinLength, NameMaxLength)
	return v.Err()
}

// Credentials checks a login attempt. Only presence is enforced; the server
// decides whether the pair is valid.
func Credentials(username, password string) error {
	v := New()
	v.Required("username", username)
	v.Required("password", password)
	return v.Err()
}

// TaskInput checks a new task.
func TaskInput(in service.TaskInput) error {
	v := New()
	if v.Required("title", in.Title) {
		v.Length("title", strings.TrimSpace(in.Title), 1, TitleMaxLength)
	}
	v.Priority("priority", in.Priority)
	return v.Err()
}

// TaskPatch checks a partial update.
func TaskPatch(p service.TaskPatch) error {
	v := New()
	if p.Empty() {
		v.err.Add("patch", apperr.RuleRequired, "nothing to update")
		return v.Err()
	}
	if p.Title != nil && v.Required("title", *p.Title) {
		v.Length("title", strings.TrimSpace(*p.Title), 1, TitleMaxLength)
	}
	if p.Priority != nil {
		if *p.Priority == 0 {
			v.err.Add("priority", apperr.RuleInvalidValue, "priority must be between 1 and 3")
		} else {
			v.Priority("priority", *p.Priority)
		}
	}
	return v.Err()
}

// ID checks that an entity identifier is present.
func ID(entity, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.MissingID(entity)
	}
	return nil
}
