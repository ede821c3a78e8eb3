package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/k-luch/chatguard-bot/internal/domain"
)

// CommandClass agrupa comandos en presupuestos gruesos: los de
// escritura comparten un bucket más estricto que los de lectura.
type CommandClass string

const (
	ClassRead  CommandClass = "read"
	ClassWrite CommandClass = "write"
)

// ClassLimit: capacidad C y recarga R tokens/segundo.
type ClassLimit struct {
	PerSecond float64
	Burst     int
}

// RateLimiter: token bucket por (user, clase). Efímero a propósito: un
// restart resetea los presupuestos (los restarts son raros y quedan en
// el log del proceso).
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[CommandClass]ClassLimit
	buckets map[bucketKey]*rate.Limiter
}

type bucketKey struct {
	userID string
	class  CommandClass
}

func NewRateLimiter(limits map[CommandClass]ClassLimit) *RateLimiter {
	return &RateLimiter{limits: limits, buckets: map[bucketKey]*rate.Limiter{}}
}

// Allow consume un token del bucket (user, clase) evaluado en `now`.
// Devuelve *domain.RateLimitError con el retry-after si no hay tokens.
func (l *RateLimiter) Allow(userID string, class CommandClass, now time.Time) error {
	lim := l.bucket(userID, class)
	if lim.AllowN(now, 1) {
		return nil
	}
	// reserva para medir cuánto falta y se cancela en el acto
	r := lim.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return &domain.RateLimitError{RetryAfter: delay}
}

func (l *RateLimiter) bucket(userID string, class CommandClass) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := bucketKey{userID: userID, class: class}
	if b, ok := l.buckets[key]; ok {
		return b
	}
	cl, ok := l.limits[class]
	if !ok {
		cl = ClassLimit{PerSecond: 1, Burst: 1}
	}
	b := rate.NewLimiter(rate.Limit(cl.PerSecond), cl.Burst)
	l.buckets[key] = b
	return b
}
