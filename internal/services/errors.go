package services

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrOAuthDenied            = errors.New("oauth authorization denied by provider")
	ErrMissingCode            = errors.New("authorization code missing from callback")
	ErrTokenExchangeFailed    = errors.New("token exchange rejected by provider")
	ErrMalformedTokenResponse = errors.New("malformed token response")
	ErrTransientNetwork       = errors.New("transient network failure")
	ErrConfig                 = errors.New("identity provider client is not configured")
	ErrNoSession              = errors.New("no session")
	ErrNoRefreshToken         = errors.New("no refresh token available")
)

// FailureReason код причини для редіректу на сторінку входу
type FailureReason string

const (
	ReasonOAuthFailed         FailureReason = "oauth_failed"
	ReasonNoCode              FailureReason = "no_code"
	ReasonConfigError         FailureReason = "config_error"
	ReasonTokenExchangeFailed FailureReason = "token_exchange_failed"
	ReasonCallbackFailed      FailureReason = "callback_failed"
)

// ReasonFor повертає код причини для помилки
func ReasonFor(err error) FailureReason {
	switch {
	case errors.Is(err, ErrOAuthDenied):
		return ReasonOAuthFailed
	case errors.Is(err, ErrMissingCode):
		return ReasonNoCode
	case errors.Is(err, ErrConfig):
		return ReasonConfigError
	case errors.Is(err, ErrTransientNetwork):
		return ReasonCallbackFailed
	case errors.Is(err, ErrTokenExchangeFailed):
		return ReasonTokenExchangeFailed
	default:
		return ReasonCallbackFailed
	}
}

// ProviderError описує non-2xx відповідь token endpoint
type ProviderError struct {
	StatusCode  int
	Code        string
	Description string
	Body        string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider returned status %d: %s (%s)", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error {
	return ErrTokenExchangeFailed
}

// Temporary повертає true для відповідей, які варто повторити (5xx, 429)
func (e *ProviderError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// IsRejection перевіряє чи провайдер остаточно відхилив код або refresh token
func IsRejection(err error) bool {
	if errors.Is(err, ErrTransientNetwork) {
		return false
	}
	return errors.Is(err, ErrTokenExchangeFailed)
}

// IsTransient перевіряє чи помилку можна повторити
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientNetwork)
}
