// internal/errors/errors.go
package appErrors

import "fmt"

// ErrMailingNotFound is a sentinel error
type ErrMailingNotFound struct {
	MailingID int
}

func (e *ErrMailingNotFound) Error() string {
	return fmt.Sprintf("mailing with ID %d not found", e.MailingID)
}

// Helper constructor
func NewMailingNotFound(id int) error {
	return &ErrMailingNotFound{MailingID: id}
}

// ErrUserNotFound is returned for operations on a missing bot user
type ErrUserNotFound struct {
	UserID int64
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user with ID %d not found", e.UserID)
}

func NewUserNotFound(id int64) error {
	return &ErrUserNotFound{UserID: id}
}

// ValidationError is a guard rejection. The reason is user-correctable and
// goes back to the caller verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func NewValidation(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ErrMailingCancelled marks operations against a cancelled mailing.
// Cancelled is terminal, so this is distinct from a validation error.
type ErrMailingCancelled struct {
	MailingID int
	Op        string
}

func (e *ErrMailingCancelled) Error() string {
	return fmt.Sprintf("cancelled mailing %d cannot be %s", e.MailingID, e.Op)
}

func NewMailingCancelled(id int, op string) error {
	return &ErrMailingCancelled{MailingID: id, Op: op}
}
