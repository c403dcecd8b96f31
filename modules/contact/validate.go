package contact

import (
	"net/mail"
	"regexp"
	"sort"
	"strings"
)

const (
	maxEmailLength = 254
	maxLocalLength = 64
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+(?:\.[a-zA-Z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+)*@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// ValidationError lists every invalid field with a short reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid contact form: " + strings.Join(names, ", ")
}

// normalize trims every field.
func normalize(req SubmitRequest) SubmitRequest {
	return SubmitRequest{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	}
}

// Validate - all four fields are required and email must be a bare address
func Validate(req SubmitRequest) error {
	fields := map[string]string{}

	required := map[string]string{
		"name":    req.Name,
		"email":   req.Email,
		"subject": req.Subject,
		"message": req.Message,
	}
	for name, value := range required {
		if value == "" {
			fields[name] = "required"
		}
	}

	if _, missing := fields["email"]; !missing && !validEmail(req.Email) {
		fields["email"] = "invalid email"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validEmail(email string) bool {
	if len(email) > maxEmailLength {
		return false
	}
	at := strings.LastIndex(email, "@")
	if at < 1 || at > maxLocalLength {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	return emailPattern.MatchString(email)
}
