package oauthflow

import "fmt"

// DuplicateIdentityError rejects a connect or resume because a provider
// identity is already burned for the project. Provider names the offender
// for the respondent-facing message.
type DuplicateIdentityError struct {
	Provider string
	Resume   bool
}

func (e *DuplicateIdentityError) Error() string {
	if e.Resume {
		return fmt.Sprintf("resume does not match the previously connected %s account", e.Provider)
	}
	return fmt.Sprintf("this %s account was already used by another respondent", e.Provider)
}

// ErrInvalidState rejects a code exchange whose state nonce is unknown,
// expired or bound to a different respondent or provider.
type ErrInvalidState struct {
	Reason string
}

func (e *ErrInvalidState) Error() string {
	return "invalid authorization state: " + e.Reason
}
