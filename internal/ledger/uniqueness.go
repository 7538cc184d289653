package ledger

import (
	"context"
	"fmt"

	"github.com/cimillas/client-ledger/internal/domain"
)

// KeyChecker reports whether any order, active or not, holds a business key.
type KeyChecker interface {
	ExistsByBusinessKey(ctx context.Context, key domain.BusinessKey) (bool, error)
}

// UniquenessGuard rejects admissions whose business key is already taken.
// It is not atomic with the later commit; the store's unique constraint
// settles races between admissions that both pass here.
type UniquenessGuard struct {
	keys KeyChecker
}

func NewUniquenessGuard(keys KeyChecker) UniquenessGuard {
	return UniquenessGuard{keys: keys}
}

func (g UniquenessGuard) Check(ctx context.Context, key domain.BusinessKey) error {
	exists, err := g.keys.ExistsByBusinessKey(ctx, key)
	if err != nil {
		return fmt.Errorf("check business key: %w", err)
	}
	if exists {
		return domain.ErrDuplicateBusinessKey
	}
	return nil
}
