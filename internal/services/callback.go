package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"dashboard-gateway/internal/models"

	"github.com/sirupsen/logrus"
)

// CallbackState крок обробки authorization code
type CallbackState string

const (
	StateStart            CallbackState = "start"
	StateValidateCallback CallbackState = "validate_callback"
	StateExchangeCode     CallbackState = "exchange_code"
	StateFormatTokens     CallbackState = "format_tokens"
	StatePersistTokens    CallbackState = "persist_tokens"
	StateNotifyBackend    CallbackState = "notify_backend"
	StateDone             CallbackState = "done"
	StateErrored          CallbackState = "errored"
)

// Попередження, які не змінюють результат логіну
const (
	WarningMissingResourceServer = "missing_resource_server"
	WarningDataPrepFailed        = "data_prep_failed"
	WarningStateMismatch         = "state_mismatch"
)

// ErrStateMismatch state у callback не збігається з виданим при /login
var ErrStateMismatch = errors.New("oauth state mismatch")

// CallbackParams параметри, з якими провайдер повернув користувача
type CallbackParams struct {
	Code             string
	Error            string
	ErrorDescription string
	State            string
	// ExpectedState state, виданий при /login (порожній, якщо його немає)
	ExpectedState string
}

// CallbackParamsFromQuery читає параметри callback з query
func CallbackParamsFromQuery(q url.Values) CallbackParams {
	return CallbackParams{
		Code:             q.Get("code"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
		State:            q.Get("state"),
	}
}

// CallbackOutcome результат обробки callback
type CallbackOutcome struct {
	State      CallbackState
	FailedAt   CallbackState
	Err        error
	Reason     FailureReason
	Bundle     *models.TokenBundle
	Warnings   []string
	RedirectTo string
}

// Failed повертає true, якщо обробка завершилась помилкою
func (o *CallbackOutcome) Failed() bool {
	return o.State == StateErrored
}

// CallbackConfig налаштування оркестратора
type CallbackConfig struct {
	RedirectURI             string
	SignInPath              string
	SuccessPath             string
	RequiredResourceServers []string
	EnforceState            bool
}

// CallbackOrchestrator проводить authorization code через усі кроки до збереження сесії
type CallbackOrchestrator struct {
	provider IdentityProvider
	codec    *TokenCodec
	store    SessionStore
	notifier BackendNotifier
	cfg      CallbackConfig
}

// NewCallbackOrchestrator створює новий CallbackOrchestrator
func NewCallbackOrchestrator(provider IdentityProvider, codec *TokenCodec, store SessionStore, notifier BackendNotifier, cfg CallbackConfig) *CallbackOrchestrator {
	if cfg.SignInPath == "" {
		cfg.SignInPath = "/sign-in"
	}
	if cfg.SuccessPath == "" {
		cfg.SuccessPath = "/"
	}
	return &CallbackOrchestrator{
		provider: provider,
		codec:    codec,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Handle обробляє один callback. Cookie пишуться тільки на кроці PersistTokens.
func (o *CallbackOrchestrator) Handle(ctx context.Context, w http.ResponseWriter, params CallbackParams) *CallbackOutcome {
	out := &CallbackOutcome{State: StateStart}
	log := logrus.WithField("component", "callback")

	// ValidateCallback
	out.State = StateValidateCallback
	if params.Error != "" {
		log.WithFields(logrus.Fields{
			"error":       params.Error,
			"description": params.ErrorDescription,
		}).Warn("Identity provider denied authorization")
		return o.fail(out, fmt.Errorf("%w: %s", ErrOAuthDenied, params.Error))
	}
	if params.Code == "" {
		log.Warn("No authorization code received")
		return o.fail(out, ErrMissingCode)
	}
	switch {
	case o.cfg.EnforceState && (params.ExpectedState == "" || params.State != params.ExpectedState):
		log.WithField("issued", params.ExpectedState != "").Warn("OAuth state rejected")
		return o.fail(out, ErrStateMismatch)
	case params.ExpectedState != "" && params.State != params.ExpectedState:
		log.Warn("OAuth state does not match the issued one")
		out.Warnings = append(out.Warnings, WarningStateMismatch)
	}

	// ExchangeCode
	out.State = StateExchangeCode
	result, err := o.provider.ExchangeCode(ctx, params.Code, o.cfg.RedirectURI)
	if err != nil {
		log.WithError(err).Error("Token exchange failed")
		return o.fail(out, err)
	}

	// FormatTokens
	out.State = StateFormatTokens
	bundle, err := o.codec.FormatTokenResponse(result.Response, result.ReceivedAt)
	if err != nil {
		log.WithError(err).WithField("resource_server", result.Response.ResourceServer).
			Error("Identity provider returned malformed token response")
		return o.fail(out, err)
	}
	for _, rs := range o.cfg.RequiredResourceServers {
		if _, ok := bundle.ByResourceServer[rs]; !ok {
			log.WithFields(logrus.Fields{
				"resource_server": rs,
				"received":        bundle.ResourceServers(),
			}).Warn("⚠️ Required resource server token not granted, check requested scopes")
			out.Warnings = append(out.Warnings, WarningMissingResourceServer)
		}
	}

	// PersistTokens
	out.State = StatePersistTokens
	if err := o.store.Set(w, bundle); err != nil {
		log.WithError(err).Error("Failed to persist tokens")
		return o.fail(out, err)
	}
	out.Bundle = bundle
	out.RedirectTo = o.cfg.SuccessPath

	// NotifyBackend
	out.State = StateNotifyBackend
	if o.notifier != nil {
		if err := o.notifier.NotifyLogin(ctx, bundle); err != nil {
			log.WithError(err).Warn("Post-login data preparation failed, session kept")
			out.Warnings = append(out.Warnings, WarningDataPrepFailed)
			out.RedirectTo = withQuery(o.cfg.SuccessPath, "login_warning", WarningDataPrepFailed)
		}
	}

	out.State = StateDone
	log.WithFields(logrus.Fields{
		"resource_servers": bundle.ResourceServers(),
		"warnings":         out.Warnings,
	}).Info("✅ Login completed")

	return out
}

func (o *CallbackOrchestrator) fail(out *CallbackOutcome, err error) *CallbackOutcome {
	out.FailedAt = out.State
	out.State = StateErrored
	out.Err = err
	out.Reason = ReasonFor(err)
	out.Bundle = nil
	out.RedirectTo = withQuery(o.cfg.SignInPath, "error", string(out.Reason))
	return out
}

// SignInRedirect будує шлях сторінки входу з кодом причини
func SignInRedirect(signInPath string, reason FailureReason) string {
	return withQuery(signInPath, "error", string(reason))
}

func withQuery(path, key, value string) string {
	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
