package form

import (
	"fmt"
	"strings"
)

type FieldError struct {
	Field   Field
	Message string
}

// Errors is an ordered list of field validation failures.
type Errors []FieldError

func (e *Errors) add(field Field, msg string) {
	*e = append(*e, FieldError{Field: field, Message: msg})
}

func (e *Errors) addf(field Field, format string, args ...any) {
	e.add(field, fmt.Sprintf(format, args...))
}

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

// For returns the first message recorded for field.
func (e Errors) For(field Field) string {
	for _, fe := range e {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

func (e Errors) Has(field Field) bool {
	return e.For(field) != ""
}
