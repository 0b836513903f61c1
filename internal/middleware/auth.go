package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	contextKeyGateRule      = "gate_rule"
	contextKeyAuthenticated = "authenticated"
)

// RouteGateMiddleware створює middleware, що виконує Route Gate до будь-якої логіки сторінок
func RouteGateMiddleware(gate *RouteGate) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		path := c.Request.URL.Path
		decision := gate.Decide(path, c.Request.Header.Values("Cookie"))

		c.Set(contextKeyGateRule, decision.Rule)
		c.Set(contextKeyAuthenticated, decision.Rule == RuleAuthenticated || decision.Rule == RuleLegacyProfile)

		if decision.Action == GateRedirect {
			logrus.WithFields(logrus.Fields{
				"path":       path,
				"rule":       decision.Rule,
				"location":   decision.Location,
				"request_id": RequestIDFrom(c),
			}).Info("Route gate redirect")

			c.Redirect(decision.Status, decision.Location)
			c.Abort()
			return
		}

		logrus.WithFields(logrus.Fields{
			"path": path,
			"rule": decision.Rule,
		}).Debug("Route gate allow")

		c.Next()
	})
}

// GateRule повертає правило, за яким gate пропустив запит
func GateRule(c *gin.Context) (string, bool) {
	rule, exists := c.Get(contextKeyGateRule)
	if !exists {
		return "", false
	}
	ruleStr, ok := rule.(string)
	return ruleStr, ok
}

// IsAuthenticated повертає true, якщо gate знайшов сигнал автентифікації.
// Для публічних шляхів сигнал не перевіряється і результат false.
func IsAuthenticated(c *gin.Context) bool {
	v, exists := c.Get(contextKeyAuthenticated)
	if !exists {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
