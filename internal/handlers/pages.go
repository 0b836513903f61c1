package handlers

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PagesHandler передає сторінки, що пройшли Route Gate, у frontend renderer
type PagesHandler struct {
	proxy *httputil.ReverseProxy
}

// NewPagesHandler створює новий PagesHandler; без upstream сторінки віддають 404
func NewPagesHandler(upstream string) (*PagesHandler, error) {
	if upstream == "" {
		return &PagesHandler{}, nil
	}

	target, err := url.Parse(upstream)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid frontend upstream url %q", upstream)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logrus.WithFields(logrus.Fields{
			"path":     r.URL.Path,
			"upstream": target.Host,
		}).WithError(err).Error("Frontend upstream failed")
		w.WriteHeader(http.StatusBadGateway)
	}

	return &PagesHandler{proxy: proxy}, nil
}

// Serve обробляє всі маршрути, не зареєстровані в API
func (h *PagesHandler) Serve(c *gin.Context) {
	if h.proxy == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not_found",
			"path":  c.Request.URL.Path,
		})
		return
	}
	h.proxy.ServeHTTP(c.Writer, c.Request)
}
