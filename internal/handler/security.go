package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/depot-store/internal/domain/buyer"
)

// apiKeyHeader carries the buyer's API key on every request.
const apiKeyHeader = "X-Api-Key"

type buyerContextKey struct{}

// BuyerFromContext returns the authenticated buyer stored by Authenticate.
func BuyerFromContext(ctx context.Context) (buyer.Buyer, bool) {
	b, ok := ctx.Value(buyerContextKey{}).(buyer.Buyer)
	return b, ok
}

// Security authenticates requests via HMAC-SHA256 hashed API keys and
// resolves them to buyer identities.
type Security struct {
	credentials buyer.Repository
	pepper      []byte
}

// NewSecurity creates a Security guard with the given credential repository
// and HMAC pepper.
func NewSecurity(credentials buyer.Repository, pepper []byte) *Security {
	return &Security{
		credentials: credentials,
		pepper:      pepper,
	}
}

// Authenticate computes the HMAC-SHA256 of the presented API key, looks it
// up, and performs a constant-time comparison against the stored hash. On
// success the resolved buyer is stored in the request context.
func (s *Security) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if key == "" {
			respondError(w, http.StatusUnauthorized, "missing api key")
			return
		}

		mac := hmac.New(sha256.New, s.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)

		cred, err := s.credentials.FindByKeyHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			// An unknown key is the caller's problem; a failing credential
			// store is ours and must not masquerade as a rejection.
			if errors.Is(err, buyer.ErrCredentialNotFound) {
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			respondInternal(w, r, err)
			return
		}

		// Constant-time comparison guards against timing side-channels even
		// though the lookup already succeeded: the stored hash could differ
		// from what we computed if the repository returns a stale row.
		stored, err := hex.DecodeString(cred.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), buyerContextKey{}, cred.Buyer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HashKey returns the hex HMAC-SHA256 of an API key under the given pepper.
// Shared with the seeding tool so stored hashes line up.
func HashKey(key string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
