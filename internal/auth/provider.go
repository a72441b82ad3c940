// Package auth implements the mock phone sign-in: one-time codes shown as a
// notice instead of an SMS, and the per-session signed-in account.
package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"freshmart/internal/model"
	"freshmart/internal/notify"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// MinPhoneDigits is the shortest phone number accepted.
const MinPhoneDigits = 10

// ProviderConfig tunes the mock identity provider.
type ProviderConfig struct {
	// Delay simulates the round trip to an SMS gateway.
	Delay time.Duration
	// ResendAfter is the minimum gap between two codes for one phone.
	// Zero disables the limit.
	ResendAfter time.Duration
	// BypassCode is accepted for every phone. Empty disables it.
	BypassCode string
	// HashCost is the bcrypt cost for stored codes.
	HashCost int
	// CodeTTL is how long an issued code stays valid. Zero keeps codes
	// until they are used or replaced.
	CodeTTL time.Duration
}

// DefaultProviderConfig returns the storefront defaults.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Delay:       time.Second,
		ResendAfter: 30 * time.Second,
		BypassCode:  "123456",
		HashCost:    bcrypt.DefaultCost,
		CodeTTL:     10 * time.Minute,
	}
}

// sweepInterval bounds how often idle limiters and expired codes are dropped.
const sweepInterval = time.Minute

// Provider issues and checks one-time codes. It is shared by every session.
type Provider interface {
	// SendCode generates a code for phone and delivers it to out.
	SendCode(ctx context.Context, phone string, out notify.Notifier) error

	// VerifyCode checks code for phone and consumes it on success.
	VerifyCode(ctx context.Context, phone, code string, out notify.Notifier) error
}

type pendingCode struct {
	hash   []byte
	issued time.Time
}

type provider struct {
	cfg      ProviderConfig
	logger   zerolog.Logger
	generate func() (string, error)
	now      func() time.Time

	mu        sync.Mutex
	pending   map[string]pendingCode
	limiters  map[string]*rate.Limiter
	lastSweep time.Time
}

// NewProvider creates a Provider holding codes in memory.
func NewProvider(cfg ProviderConfig, logger zerolog.Logger) Provider {
	return newProvider(cfg, logger, randomCode)
}

func newProvider(cfg ProviderConfig, logger zerolog.Logger, generate func() (string, error)) *provider {
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	return &provider{
		cfg:      cfg,
		logger:   logger.With().Str("component", "auth").Logger(),
		generate: generate,
		now:      time.Now,
		pending:  make(map[string]pendingCode),
		limiters: make(map[string]*rate.Limiter),
	}
}

// NormalisePhone keeps only the digits of phone.
func NormalisePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validPhone(phone string, out notify.Notifier) (string, error) {
	digits := NormalisePhone(phone)
	if len(digits) < MinPhoneDigits {
		notify.Error(out, "Invalid Phone Number", "Please enter a valid phone number.")
		return "", model.ErrInvalidPhone
	}
	return digits, nil
}

func (p *provider) SendCode(ctx context.Context, phone string, out notify.Notifier) error {
	digits, err := validPhone(phone, out)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.sweep(p.now())
	wait := retryAfter(p.limiter(digits), p.now())
	p.mu.Unlock()
	if wait > 0 {
		rateLimited(out, wait)
		return model.ErrRateLimited
	}

	if err := sleep(ctx, p.cfg.Delay); err != nil {
		return err
	}

	code, err := p.generate()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), p.cfg.HashCost)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}

	// The resend token is spent only once a code is actually issued.
	p.mu.Lock()
	now := p.now()
	if lim := p.limiter(digits); lim != nil && !lim.AllowN(now, 1) {
		wait := retryAfter(lim, now)
		p.mu.Unlock()
		rateLimited(out, wait)
		return model.ErrRateLimited
	}
	_, resent := p.pending[digits]
	p.pending[digits] = pendingCode{hash: hash, issued: now}
	p.mu.Unlock()

	p.logger.Debug().Str("phone", maskPhone(digits)).Bool("resent", resent).Msg("code issued")

	notify.Info(out, "Demo OTP", "Demo OTP: "+code)
	if resent {
		notify.Info(out, "OTP Resent!", "A new code has been sent to your phone.")
	} else {
		notify.Info(out, "OTP Sent!", "Check your phone for the verification code.")
	}
	return nil
}

func rateLimited(out notify.Notifier, wait time.Duration) {
	seconds := int(math.Ceil(wait.Seconds()))
	notify.Error(out, "Please Wait", fmt.Sprintf("You can request a new code in %d seconds.", seconds))
}

// limiter returns the resend limiter for phone, or nil when resends are not
// limited. p.mu must be held.
func (p *provider) limiter(phone string) *rate.Limiter {
	if p.cfg.ResendAfter <= 0 {
		return nil
	}
	lim, ok := p.limiters[phone]
	if !ok {
		lim = rate.NewLimiter(rate.Every(p.cfg.ResendAfter), 1)
		p.limiters[phone] = lim
	}
	return lim
}

// retryAfter reports how long until lim holds a token again.
func retryAfter(lim *rate.Limiter, now time.Time) time.Duration {
	if lim == nil || lim.TokensAt(now) >= 1 {
		return 0
	}
	r := lim.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return wait
}

// sweep drops limiters that have refilled and codes that have expired.
// p.mu must be held.
func (p *provider) sweep(now time.Time) {
	if now.Sub(p.lastSweep) < sweepInterval {
		return
	}
	p.lastSweep = now

	for phone, lim := range p.limiters {
		if lim.TokensAt(now) >= 1 {
			delete(p.limiters, phone)
		}
	}
	for phone, pc := range p.pending {
		if p.expired(pc, now) {
			delete(p.pending, phone)
		}
	}
}

func (p *provider) expired(pc pendingCode, now time.Time) bool {
	return p.cfg.CodeTTL > 0 && now.Sub(pc.issued) > p.cfg.CodeTTL
}

func (p *provider) VerifyCode(ctx context.Context, phone, code string, out notify.Notifier) error {
	digits, err := validPhone(phone, out)
	if err != nil {
		return err
	}

	if err := sleep(ctx, p.cfg.Delay); err != nil {
		return err
	}

	code = strings.TrimSpace(code)

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.sweep(now)

	pending, ok := p.pending[digits]
	matched := ok && !p.expired(pending, now) && bcrypt.CompareHashAndPassword(pending.hash, []byte(code)) == nil
	bypass := p.cfg.BypassCode != "" && code == p.cfg.BypassCode

	if !matched && !bypass {
		p.logger.Debug().Str("phone", maskPhone(digits)).Msg("code rejected")
		notify.Error(out, "Invalid OTP", "Please check the code and try again.")
		return model.ErrInvalidCode
	}

	delete(p.pending, digits)
	return nil
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func maskPhone(digits string) string {
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}
