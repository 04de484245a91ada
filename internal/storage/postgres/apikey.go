package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/depot-store/internal/domain/buyer"
)

const getCredentialByHashSQL = `SELECT id, key_hash, buyer_id, buyer_name, role
	FROM api_keys WHERE key_hash = $1`

var _ buyer.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository resolves API key hashes to buyer identities.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByKeyHash looks up a credential by its HMAC-SHA256 hash.
// Returns buyer.ErrCredentialNotFound when no matching key exists.
func (r *APIKeyRepository) FindByKeyHash(ctx context.Context, hash string) (*buyer.Credential, error) {
	var (
		cred buyer.Credential
		role string
	)
	err := r.pool.QueryRow(ctx, getCredentialByHashSQL, hash).Scan(
		&cred.ID, &cred.KeyHash, &cred.Buyer.ID, &cred.Buyer.Name, &role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, buyer.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}

	cred.Buyer.Role, err = buyer.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("credential %q: %w", cred.ID, err)
	}
	return &cred, nil
}
