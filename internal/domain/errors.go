package domain

import (
	"errors"
	"fmt"
	"time"
)

// Taxonomía de fallos tipados que el engine devuelve al transporte.
// Todos se comparan con errors.Is; ninguno se traga en silencio.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrBanned           = errors.New("actor is banned")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnknownTarget    = errors.New("unknown target")
	ErrAlreadyOpen      = errors.New("vote session already open")
	ErrNoOpenSession    = errors.New("no open vote session")
	ErrAlreadyVoted     = errors.New("already voted")
	ErrSelfVote         = errors.New("cannot vote against yourself")
	ErrSessionExpired   = errors.New("vote session expired")
	ErrVoterIneligible  = errors.New("voter is not eligible")
	ErrTargetIneligible = errors.New("target is not eligible")
	ErrDecryption       = errors.New("audit decryption failed")
	ErrMuted            = errors.New("actor is muted")
)

// RateLimitError: denegación con retry-after para que el transporte se
// lo muestre al usuario.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter.Round(time.Second))
}

// StorageError envuelve el error del driver: el operador ve la causa en
// el log, el usuario solo un "intenta de nuevo".
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }
