package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"dashboard-gateway/internal/models"

	"github.com/sirupsen/logrus"
)

// DefaultLivenessInterval інтервал повторної перевірки сигналу автентифікації
const DefaultLivenessInterval = 2 * time.Second

// SignalProbe повертає поточний стан сигналу автентифікації
type SignalProbe func(ctx context.Context) (bool, error)

// CookieSignalProbe перевіряє сигнал автентифікації у знімку cookie
func CookieSignalProbe(cookies func() []*http.Cookie) SignalProbe {
	return func(context.Context) (bool, error) {
		return HasAuthSignalIn(cookies()), nil
	}
}

// StatusProbe перевіряє сигнал через /api/auth/status, передаючи cookie браузера
func StatusProbe(client *http.Client, statusURL, cookieHeader string) SignalProbe {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return false, err
		}
		if cookieHeader != "" {
			req.Header.Set("Cookie", cookieHeader)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrTransientNetwork, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return false, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
		}

		var status models.AuthStatus
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return false, fmt.Errorf("failed to decode auth status: %w", err)
		}
		return status.Authenticated, nil
	}
}

// HasAuthSignalIn перевіряє набір cookie на наявність сигналу автентифікації
func HasAuthSignalIn(cookies []*http.Cookie) bool {
	for _, c := range cookies {
		if c.Value == "" {
			continue
		}
		for _, name := range AuthSignalCookies {
			if c.Name == name {
				return true
			}
		}
	}
	return false
}

// LivenessMonitor періодично і за подією focus переоцінює сигнал автентифікації.
// Стан лише для UI, рішень про доступ він не приймає.
type LivenessMonitor struct {
	probe    SignalProbe
	interval time.Duration
	onChange func(authenticated bool)
	focus    chan struct{}

	mu      sync.RWMutex
	known   bool
	current bool
}

// NewLivenessMonitor створює новий LivenessMonitor
func NewLivenessMonitor(probe SignalProbe, interval time.Duration, onChange func(authenticated bool)) *LivenessMonitor {
	if interval <= 0 {
		interval = DefaultLivenessInterval
	}
	return &LivenessMonitor{
		probe:    probe,
		interval: interval,
		onChange: onChange,
		focus:    make(chan struct{}, 1),
	}
}

// Run виконує перевірки до скасування ctx
func (m *LivenessMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		case <-m.focus:
			m.Check(ctx)
		}
	}
}

// Focus запитує позачергову перевірку; не блокує
func (m *LivenessMonitor) Focus() {
	select {
	case m.focus <- struct{}{}:
	default:
	}
}

// Check виконує одну перевірку і повідомляє про зміну стану
func (m *LivenessMonitor) Check(ctx context.Context) bool {
	authenticated, err := m.probe(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Liveness probe failed, keeping previous state")
		return m.Authenticated()
	}

	m.mu.Lock()
	changed := !m.known || m.current != authenticated
	m.known = true
	m.current = authenticated
	m.mu.Unlock()

	if changed && m.onChange != nil {
		m.onChange(authenticated)
	}
	return authenticated
}

// Authenticated повертає останній відомий стан
func (m *LivenessMonitor) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}
