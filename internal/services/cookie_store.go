package services

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"dashboard-gateway/internal/models"

	"github.com/sirupsen/logrus"
)

// Ключі cookie, які пише TokenStore
const (
	CookieTokens          = "tokens"
	CookieIsAuthenticated = "is_authenticated"
	CookieAccessToken     = "access_token"
	CookieRefreshToken    = "refresh_token"
	CookieIDToken         = "id_token"
	CookieName            = "name"
	CookieEmail           = "email"
	CookiePrimaryIdentity = "primary_identity"
	CookiePrimaryUsername = "primary_username"
	CookieInstitution     = "institution"
)

// DefaultCookieMaxAge час життя cookie сесії
const DefaultCookieMaxAge = 7 * 24 * time.Hour

// AuthSignalCookies cookie, наявність будь-якої з яких означає залогінену сесію
var AuthSignalCookies = []string{CookieTokens, CookieIsAuthenticated, CookieAccessToken, CookieIDToken}

// sessionCookies всі ключі, які пишуться і видаляються разом
var sessionCookies = []string{
	CookieTokens,
	CookieIsAuthenticated,
	CookieName,
	CookieEmail,
	CookiePrimaryIdentity,
	CookiePrimaryUsername,
	CookieInstitution,
	CookieAccessToken,
	CookieRefreshToken,
	CookieIDToken,
}

// CookieOptions атрибути cookie сесії
type CookieOptions struct {
	Path     string
	Domain   string
	MaxAge   time.Duration
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// DefaultCookieOptions повертає атрибути за замовчуванням; secure тільки в production
func DefaultCookieOptions(production bool) CookieOptions {
	return CookieOptions{
		Path:     "/",
		MaxAge:   DefaultCookieMaxAge,
		Secure:   production,
		HTTPOnly: false,
		SameSite: http.SameSiteLaxMode,
	}
}

// TokenStore зберігає TokenBundle у cookie клієнта
type TokenStore struct {
	opts      CookieOptions
	primaryRS string
}

// NewTokenStore створює новий TokenStore
func NewTokenStore(opts CookieOptions, primaryResourceServer string) *TokenStore {
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultCookieMaxAge
	}
	if opts.SameSite == 0 {
		opts.SameSite = http.SameSiteLaxMode
	}
	if primaryResourceServer == "" {
		primaryResourceServer = DefaultResourceServer
	}
	return &TokenStore{opts: opts, primaryRS: primaryResourceServer}
}

// Set записує бандл і всі похідні cookie в одну відповідь
func (s *TokenStore) Set(w http.ResponseWriter, bundle *models.TokenBundle) error {
	if bundle == nil {
		s.Clear(w)
		return nil
	}

	tokens, err := EncodeByResourceServer(bundle.ByResourceServer)
	if err != nil {
		return err
	}

	values := map[string]string{
		CookieTokens:          tokens,
		CookieIsAuthenticated: "true",
	}

	if rec, ok := bundle.Record(s.primaryRS); ok {
		values[CookieAccessToken] = rec.AccessToken
		values[CookieRefreshToken] = rec.RefreshToken
	}
	values[CookieIDToken] = bundle.IDToken

	if c := bundle.Claims; c != nil {
		values[CookieName] = c.Name
		values[CookieEmail] = c.Email
		values[CookiePrimaryIdentity] = c.Subject
		values[CookiePrimaryUsername] = c.Username
		values[CookieInstitution] = c.Organization
	}

	// Відсутні поля видаляються, щоб похідні cookie не відставали від tokens
	for _, name := range sessionCookies {
		if v := values[name]; v != "" {
			http.SetCookie(w, s.cookie(name, url.PathEscape(v)))
		} else {
			http.SetCookie(w, s.expired(name))
		}
	}

	logrus.WithFields(logrus.Fields{
		"resource_servers": bundle.ResourceServers(),
		"has_claims":       bundle.Claims != nil,
		"secure":           s.opts.Secure,
	}).Debug("Token cookies written")

	return nil
}

// Get відновлює бандл з cookie запиту; ErrNoSession, якщо cookie tokens немає
func (s *TokenStore) Get(r *http.Request) (*models.TokenBundle, error) {
	raw, ok := cookieValue(r, CookieTokens)
	if !ok || raw == "" {
		return nil, ErrNoSession
	}

	byRS, err := DecodeByResourceServer(raw)
	if err != nil {
		logrus.WithError(err).Warn("Unreadable tokens cookie, treating as no session")
		return nil, ErrNoSession
	}

	bundle := &models.TokenBundle{ByResourceServer: byRS}

	if idToken, ok := cookieValue(r, CookieIDToken); ok && idToken != "" {
		bundle.IDToken = idToken
		if claims, err := DecodeIDTokenClaims(idToken); err == nil {
			bundle.Claims = claims
		} else {
			logrus.WithError(err).Debug("id_token cookie has no readable claims")
		}
	}

	return bundle, nil
}

// Clear видаляє всі cookie сесії; повторний виклик дає той самий результат
func (s *TokenStore) Clear(w http.ResponseWriter) {
	for _, name := range sessionCookies {
		http.SetCookie(w, s.expired(name))
	}
}

// HasAuthSignal перевіряє наявність будь-якої cookie автентифікації
func HasAuthSignal(r *http.Request) bool {
	return HasAuthSignalInHeader(r.Header.Values("Cookie"))
}

// HasAuthSignalInHeader перевіряє сирі заголовки Cookie: важлива наявність ключа, а не валідність значення
func HasAuthSignalInHeader(header []string) bool {
	raw := RawCookies(header)
	for _, name := range AuthSignalCookies {
		if raw[name] != "" {
			return true
		}
	}
	return false
}

// RawCookies розбирає заголовки Cookie без перевірки значень.
// net/http відкидає cookie з лапками або JSON у значенні, а backend пише саме такі.
// Для повторюваного імені перемагає перше входження.
func RawCookies(header []string) map[string]string {
	out := map[string]string{}
	for _, line := range header {
		for _, part := range strings.Split(line, ";") {
			name, value, _ := strings.Cut(strings.TrimSpace(part), "=")
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, seen := out[name]; seen {
				continue
			}
			out[name] = unquoteCookie(strings.TrimSpace(value))
		}
	}
	return out
}

// unquoteCookie знімає лапки і розкриває escape-послідовності (\", \\, \ooo) цитованого значення
func unquoteCookie(v string) string {
	if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
		return v
	}
	v = v[1 : len(v)-1]

	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] != '\\' || i+1 >= len(v) {
			b.WriteByte(v[i])
			continue
		}
		if i+3 < len(v) && isOctal(v[i+1]) && isOctal(v[i+2]) && isOctal(v[i+3]) {
			b.WriteByte((v[i+1]-'0')<<6 | (v[i+2]-'0')<<3 | (v[i+3] - '0'))
			i += 3
			continue
		}
		b.WriteByte(v[i+1])
		i++
	}
	return b.String()
}

func isOctal(c byte) bool {
	return c >= '0' && c <= '7'
}

func (s *TokenStore) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     s.opts.Path,
		Domain:   s.opts.Domain,
		MaxAge:   int(s.opts.MaxAge / time.Second),
		Secure:   s.opts.Secure,
		HttpOnly: s.opts.HTTPOnly,
		SameSite: s.opts.SameSite,
	}
}

func (s *TokenStore) expired(name string) *http.Cookie {
	c := s.cookie(name, "")
	c.MaxAge = -1
	return c
}

func cookieValue(r *http.Request, name string) (string, bool) {
	var value string
	if c, err := r.Cookie(name); err == nil {
		value = c.Value
	} else {
		raw, ok := RawCookies(r.Header.Values("Cookie"))[name]
		if !ok {
			return "", false
		}
		value = raw
	}
	if v, err := url.PathUnescape(value); err == nil {
		return v, true
	}
	return value, true
}
