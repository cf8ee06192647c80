package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dom/progress-tracker/internal/domain"
	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// NewValidator returns a validator with the tracker's custom tags registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("username_chars", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("has_lower", containsRune(inRange('a', 'z')))
	_ = v.RegisterValidation("has_upper", containsRune(inRange('A', 'Z')))
	_ = v.RegisterValidation("has_digit", containsRune(inRange('0', '9')))
	_ = v.RegisterValidation("safe_text", func(fl validator.FieldLevel) bool {
		return isSafeText(fl.Field().String())
	})

	return v
}

// isSafeText rejects strings the database cannot store as text.
func isSafeText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

// inRange matches ASCII only; other scripts' letters and digits do not
// satisfy the password character classes.
func inRange(lo, hi rune) func(rune) bool {
	return func(r rune) bool { return r >= lo && r <= hi }
}

func containsRune(pred func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), pred) >= 0
	}
}

type rule struct {
	tag     string
	message string
}

var usernameRules = []rule{
	{"min=3", "Username must be at least 3 characters long."},
	{"max=50", "Username must be at most 50 characters long."},
	{"username_chars", "Username can only contain letters, numbers, and underscores."},
}

var passwordRules = []rule{
	{"min=8", "Password must be at least 8 characters long."},
	{"has_lower", "Password must contain at least one lowercase letter."},
	{"has_upper", "Password must contain at least one uppercase letter."},
	{"has_digit", "Password must contain at least one number."},
}

// checkRules runs every rule against value so all violations are reported.
func checkRules(v *validator.Validate, errs *domain.ValidationErrors, field, value string, rules []rule) {
	for _, r := range rules {
		if err := v.Var(value, r.tag); err != nil {
			errs.Add(field, r.message)
		}
	}
}
