// Package validation provides input validation for provider records.
//
// The storage layer is deliberately permissive (any mapping is accepted);
// validation runs at submission time — API create/update handlers and the
// console form flow — and rejects with field-level errors.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"ssomgr/internal/domain"
)

// Validation error types for specific error handling.
var (
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrTooLong       = errors.New("value exceeds maximum length")
	ErrUnknownType   = errors.New("unknown protocol type")
	ErrInvalidURL    = errors.New("invalid url")
	ErrMissingConfig = errors.New("missing config key")
)

// Constraints for validation.
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 1000
)

// FieldError ties a validation failure to the offending field so callers can
// render field-level errors.
type FieldError struct {
	Field  string
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ValidateProvider checks a provider record at submission time. It returns
// all field errors found rather than stopping at the first.
func ValidateProvider(p domain.ProviderConfig) []error {
	var errs []error

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, &FieldError{Field: "name", Err: ErrEmptyValue})
	} else if len(p.Name) > MaxNameLength {
		errs = append(errs, &FieldError{Field: "name", Err: ErrTooLong})
	}

	if !p.Type.Valid() {
		errs = append(errs, &FieldError{Field: "type", Reason: fmt.Sprintf("%q is not a known protocol", p.Type), Err: ErrUnknownType})
	}

	if len(p.Description) > MaxDescriptionLength {
		errs = append(errs, &FieldError{Field: "description", Err: ErrTooLong})
	}

	if p.Logo != "" {
		if _, err := url.Parse(p.Logo); err != nil {
			errs = append(errs, &FieldError{Field: "logo", Err: ErrInvalidURL})
		}
	}

	// Config keys are advisory for storage, but a record submitted through
	// the form must carry the keys its protocol needs for login redirects.
	if p.Type.Valid() {
		for _, key := range p.Type.RequiredConfigKeys() {
			if strings.TrimSpace(p.Config[key]) == "" {
				errs = append(errs, &FieldError{
					Field:  "config." + key,
					Reason: fmt.Sprintf("required for %s providers", p.Type),
					Err:    ErrMissingConfig,
				})
			}
		}
	}

	return errs
}

// ValidateCreate checks create input the same way ValidateProvider does.
func ValidateCreate(in domain.CreateProvider) []error {
	return ValidateProvider(domain.ProviderConfig{
		Name:        in.Name,
		Type:        in.Type,
		Logo:        in.Logo,
		IsEnabled:   in.IsEnabled,
		Description: in.Description,
		Config:      in.Config,
	})
}

// Join collapses a list of field errors into a single error, or nil.
func Join(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return errors.New(strings.Join(msgs, "; "))
}
