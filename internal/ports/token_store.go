package ports

import (
	"context"
	"time"

	"github.com/bnema/crew/internal/domain"
)

type TokenStore interface {
	Save(ctx context.Context, role domain.Role, credential domain.Credential) error
	Load(ctx context.Context, role domain.Role) *domain.Credential
	Clear(ctx context.Context, role domain.Role) error
	IsValid(credential *domain.Credential) bool
	Expiry(credential *domain.Credential) (time.Time, bool)
	SavePrincipal(ctx context.Context, role domain.Role, principal domain.Principal) error
	LoadPrincipal(ctx context.Context, role domain.Role) *domain.Principal
}
