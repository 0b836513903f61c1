package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dashboard-gateway/internal/models"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
)

// DefaultRefreshBuffer запас часу, за який токен вважається таким, що потребує оновлення
const DefaultRefreshBuffer = 5 * time.Minute

// IsExpired повертає true, якщо прострочені всі гранти бандла (now >= expires_at).
// Порожній бандл вважається простроченим.
func IsExpired(bundle *models.TokenBundle, now time.Time) bool {
	if bundle == nil {
		return true
	}
	for _, rs := range bundle.ResourceServers() {
		if !IsExpiredFor(bundle, rs, now) {
			return false
		}
	}
	return true
}

// IsExpiredFor перевіряє грант конкретного resource server; відсутній грант прострочений
func IsExpiredFor(bundle *models.TokenBundle, resourceServer string, now time.Time) bool {
	rec, ok := bundle.Record(resourceServer)
	if !ok {
		return true
	}
	return rec.IsExpiredAt(now)
}

// NeedsRefresh повертає true, якщо хоч один грант закінчується протягом buffer
func NeedsRefresh(bundle *models.TokenBundle, now time.Time, buffer time.Duration) bool {
	if bundle == nil {
		return false
	}
	for _, rec := range bundle.ByResourceServer {
		if recordNeedsRefresh(rec, now, buffer) {
			return true
		}
	}
	return false
}

func recordNeedsRefresh(rec models.TokenRecord, now time.Time, buffer time.Duration) bool {
	return rec.ExpiresAt-now.Unix() <= int64(buffer/time.Second)
}

// Merge повертає новий бандл: гранти fresh перекривають старі, решта переноситься без змін
func Merge(previous, fresh *models.TokenBundle) *models.TokenBundle {
	merged := &models.TokenBundle{ByResourceServer: models.ByResourceServer{}}

	if previous != nil {
		for rs, rec := range previous.ByResourceServer {
			merged.ByResourceServer[rs] = rec
		}
		merged.IDToken = previous.IDToken
		merged.Claims = previous.Claims
	}

	if fresh != nil {
		for rs, rec := range fresh.ByResourceServer {
			merged.ByResourceServer[rs] = rec
		}
		if fresh.IDToken != "" {
			merged.IDToken = fresh.IDToken
		}
		if fresh.Claims != nil {
			merged.Claims = fresh.Claims
		}
	}

	return merged
}

// RefresherConfig налаштування протоколу оновлення
type RefresherConfig struct {
	Buffer     time.Duration
	Attempts   uint
	RetryDelay time.Duration
}

// Refresher виконує refresh exchange і зливає результат зі старим бандлом
type Refresher struct {
	provider IdentityProvider
	codec    *TokenCodec
	cfg      RefresherConfig
	now      func() time.Time
}

// NewRefresher створює новий Refresher
func NewRefresher(provider IdentityProvider, codec *TokenCodec, cfg RefresherConfig) *Refresher {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultRefreshBuffer
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	return &Refresher{
		provider: provider,
		codec:    codec,
		cfg:      cfg,
		now:      time.Now,
	}
}

// RefreshTokens обмінює refresh token на новий бандл для resource server.
// Якщо провайдер не повернув новий refresh token, зберігається попередній.
func (r *Refresher) RefreshTokens(ctx context.Context, previous models.TokenRecord) (*models.TokenBundle, error) {
	if !previous.HasRefreshToken() {
		return nil, ErrNoRefreshToken
	}

	result, err := r.provider.Refresh(ctx, previous.RefreshToken)
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) && perr.Temporary() {
			return nil, fmt.Errorf("%w: %w", ErrTransientNetwork, err)
		}
		return nil, err
	}

	resp := *result.Response
	if resp.ResourceServer == "" {
		resp.ResourceServer = previous.ResourceServer
	}
	if resp.Scope == "" {
		resp.Scope = previous.Scope
	}

	bundle, err := r.codec.FormatTokenResponse(&resp, result.ReceivedAt)
	if err != nil {
		return nil, err
	}

	if rec, ok := bundle.ByResourceServer[resp.ResourceServer]; ok && !rec.HasRefreshToken() {
		rec.RefreshToken = previous.RefreshToken
		bundle.ByResourceServer[resp.ResourceServer] = rec
	}

	return bundle, nil
}

// RefreshSession оновлює гранти, яким потрібне оновлення (або перший грант з refresh token,
// якщо оновлення ніде не потрібне) і повертає злитий бандл.
// Повертає помилку з ErrTokenExchangeFailed при відмові провайдера і ErrTransientNetwork при збоях мережі.
// Зупиняється на першій помилці; якщо до неї частина грантів уже оновилась, разом з помилкою
// повертається частково злитий бандл, бо провайдер міг інвалідувати старі refresh token.
func (r *Refresher) RefreshSession(ctx context.Context, bundle *models.TokenBundle) (*models.TokenBundle, error) {
	if bundle == nil || len(bundle.ByResourceServer) == 0 {
		return nil, ErrNoSession
	}

	targets := r.selectTargets(bundle)
	if len(targets) == 0 {
		return nil, ErrNoRefreshToken
	}

	merged := bundle
	refreshed := 0
	for _, rec := range targets {
		var fresh *models.TokenBundle
		err := retry.Do(
			func() error {
				var err error
				fresh, err = r.RefreshTokens(ctx, rec)
				return err
			},
			retry.Context(ctx),
			retry.Attempts(r.cfg.Attempts),
			retry.Delay(r.cfg.RetryDelay),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(IsTransient),
			retry.OnRetry(func(n uint, err error) {
				logrus.WithFields(logrus.Fields{
					"resource_server": rec.ResourceServer,
					"attempt":         n + 1,
				}).WithError(err).Warn("Transient refresh failure, retrying")
			}),
		)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"resource_server": rec.ResourceServer,
				"rejected":        IsRejection(err),
				"refreshed":       refreshed,
			}).WithError(err).Error("Token refresh failed")
			if refreshed == 0 {
				return nil, err
			}
			return merged, err
		}
		merged = Merge(merged, fresh)
		refreshed++
	}

	logrus.WithFields(logrus.Fields{
		"refreshed":        len(targets),
		"resource_servers": merged.ResourceServers(),
	}).Info("🔄 Tokens refreshed")

	return merged, nil
}

func (r *Refresher) selectTargets(bundle *models.TokenBundle) []models.TokenRecord {
	now := r.now()
	var due, refreshable []models.TokenRecord

	for _, rs := range orderedResourceServers(bundle, r.codec.PrimaryResourceServer()) {
		rec := bundle.ByResourceServer[rs]
		if !rec.HasRefreshToken() {
			continue
		}
		if rec.ResourceServer == "" {
			rec.ResourceServer = rs
		}
		refreshable = append(refreshable, rec)
		if recordNeedsRefresh(rec, now, r.cfg.Buffer) {
			due = append(due, rec)
		}
	}

	if len(due) > 0 {
		return due
	}
	if len(refreshable) > 0 {
		return refreshable[:1]
	}
	return nil
}

// orderedResourceServers повертає primary першим, далі решту за алфавітом
func orderedResourceServers(bundle *models.TokenBundle, primary string) []string {
	servers := bundle.ResourceServers()
	ordered := make([]string, 0, len(servers))
	if _, ok := bundle.ByResourceServer[primary]; ok {
		ordered = append(ordered, primary)
	}
	for _, rs := range servers {
		if rs != primary {
			ordered = append(ordered, rs)
		}
	}
	return ordered
}
