package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bnema/crew/internal/domain"
	"github.com/bnema/crew/internal/ports"
)

// Store persists one credential and one principal per role. Storage failures
// are logged and reported as "nothing stored"; they never abort the caller.
//
// IsValid reads the exp claim from the token payload. The header and the
// signature are not inspected; the server remains the authority on every
// request.
type Store struct {
	storage ports.Storage
	clock   ports.Clock
	logger  *slog.Logger
	parser  *jwt.Parser
}

var _ ports.TokenStore = (*Store)(nil)

func NewStore(storage ports.Storage, clock ports.Clock, logger *slog.Logger) *Store {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Store{
		storage: storage,
		clock:   clock,
		logger:  logger.With("component", "tokenstore"),
		parser:  jwt.NewParser(),
	}
}

func tokenKey(role domain.Role) string {
	return string(role) + "/token"
}

func principalKey(role domain.Role) string {
	return string(role) + "/user"
}

func (s *Store) Save(ctx context.Context, role domain.Role, credential domain.Credential) error {
	if credential.Empty() {
		return errors.New("credential has no access token")
	}

	if err := s.put(ctx, tokenKey(role), credential); err != nil {
		s.logger.WarnContext(ctx, "persist credential failed", "role", role, "error", err)
		return err
	}
	return nil
}

func (s *Store) Load(ctx context.Context, role domain.Role) *domain.Credential {
	var credential domain.Credential
	if !s.get(ctx, tokenKey(role), &credential) {
		return nil
	}
	if credential.Empty() {
		s.logger.WarnContext(ctx, "stored credential has no access token", "role", role)
		return nil
	}
	return &credential
}

func (s *Store) Clear(ctx context.Context, role domain.Role) error {
	var errs []error
	for _, key := range []string{tokenKey(role), principalKey(role)} {
		if err := s.storage.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		s.logger.WarnContext(ctx, "clear stored session failed", "role", role, "error", err)
	}
	return err
}

func (s *Store) SavePrincipal(ctx context.Context, role domain.Role, principal domain.Principal) error {
	if err := s.put(ctx, principalKey(role), principal); err != nil {
		s.logger.WarnContext(ctx, "persist principal failed", "role", role, "error", err)
		return err
	}
	return nil
}

func (s *Store) LoadPrincipal(ctx context.Context, role domain.Role) *domain.Principal {
	var principal domain.Principal
	if !s.get(ctx, principalKey(role), &principal) {
		return nil
	}
	return &principal
}

func (s *Store) IsValid(credential *domain.Credential) bool {
	expiresAt, ok := s.Expiry(credential)
	if !ok {
		return false
	}
	return expiresAt.After(s.clock.Now())
}

// Expiry returns the exp claim of the access token. ok is false when the
// token is absent, malformed or carries no exp.
func (s *Store) Expiry(credential *domain.Credential) (time.Time, bool) {
	if credential.Empty() {
		return time.Time{}, false
	}

	segments := strings.Split(credential.AccessToken, ".")
	if len(segments) != 3 {
		return time.Time{}, false
	}
	payload, err := s.parser.DecodeSegment(segments[1])
	if err != nil {
		s.logger.Debug("decode access token payload failed", "error", err)
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		s.logger.Debug("decode access token claims failed", "error", err)
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}

	return claims.ExpiresAt.Time, true
}

func (s *Store) put(ctx context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.storage.Put(ctx, key, string(encoded)); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string, target any) bool {
	raw, err := s.storage.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			s.logger.WarnContext(ctx, "read stored entry failed", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal([]byte(raw), target); err != nil {
		s.logger.WarnContext(ctx, "stored entry is corrupt", "key", key, "error", err)
		return false
	}
	return true
}
