package middleware

import (
	"net/http"
	"strings"

	"dashboard-gateway/internal/services"
)

// DefaultPublicPrefixes шляхи, доступні без перевірки автентифікації
var DefaultPublicPrefixes = []string{
	"/sign-in",
	"/auth/callback",
	"/api/",
	"/_next/static",
	"/_next/image",
	"/favicon.ico",
	"/Diamond_Logo.png",
	"/Diamond logo transparent.png",
	"/login",
	"/logout",
}

// GateAction рішення Route Gate
type GateAction int

const (
	GateAllow GateAction = iota
	GateRedirect
)

func (a GateAction) String() string {
	if a == GateRedirect {
		return "redirect"
	}
	return "allow"
}

// Правила, за якими прийнято рішення
const (
	RulePublic        = "public"
	RuleNoAuthSignal  = "no_auth_signal"
	RuleLegacyProfile = "legacy_profile"
	RuleAuthenticated = "authenticated"
)

// GateDecision результат перевірки запиту
type GateDecision struct {
	Action   GateAction
	Location string
	Status   int
	Rule     string
}

// GateConfig налаштування Route Gate
type GateConfig struct {
	SignInPath            string
	ProfilePrefix         string
	PublicPrefixes        []string
	LegacyProfileRedirect bool
}

// RouteGate класифікує запити як публічні або захищені
type RouteGate struct {
	cfg GateConfig
}

// NewRouteGate створює новий RouteGate
func NewRouteGate(cfg GateConfig) *RouteGate {
	if cfg.SignInPath == "" {
		cfg.SignInPath = "/sign-in"
	}
	if cfg.ProfilePrefix == "" {
		cfg.ProfilePrefix = "/profile"
	}
	if cfg.PublicPrefixes == nil {
		cfg.PublicPrefixes = DefaultPublicPrefixes
	}
	return &RouteGate{cfg: cfg}
}

// Decide приймає рішення лише за шляхом і сирими заголовками Cookie; мережевих викликів і refresh немає.
// Перше правило, що спрацювало, перемагає.
func (g *RouteGate) Decide(path string, cookieHeader []string) GateDecision {
	if g.isPublic(path) {
		return GateDecision{Action: GateAllow, Rule: RulePublic}
	}

	if !services.HasAuthSignalInHeader(cookieHeader) {
		return GateDecision{
			Action:   GateRedirect,
			Location: g.cfg.SignInPath,
			Status:   http.StatusTemporaryRedirect,
			Rule:     RuleNoAuthSignal,
		}
	}

	if g.cfg.LegacyProfileRedirect && strings.HasPrefix(path, g.cfg.ProfilePrefix) {
		return GateDecision{
			Action:   GateRedirect,
			Location: "/",
			Status:   http.StatusTemporaryRedirect,
			Rule:     RuleLegacyProfile,
		}
	}

	return GateDecision{Action: GateAllow, Rule: RuleAuthenticated}
}

func (g *RouteGate) isPublic(path string) bool {
	for _, prefix := range g.cfg.PublicPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
