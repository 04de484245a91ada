package buyer

import (
	"context"

	"github.com/go-faster/errors"
)

// Role identifies the price tier a buyer purchases at.
type Role string

const (
	// RoleDistributor is the top-tier wholesale role.
	RoleDistributor Role = "npp"
	// RoleAgentTier1 is a first-level agent.
	RoleAgentTier1 Role = "daily_cap_1"
	// RoleAgentTier2 is a second-level agent.
	RoleAgentTier2 Role = "daily_cap_2"
)

// ErrUnknownRole is returned when a role string does not match any known tier.
var ErrUnknownRole = errors.New("unknown buyer role")

// ParseRole validates a role string coming from storage or a request.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleDistributor, RoleAgentTier1, RoleAgentTier2:
		return Role(s), nil
	default:
		return "", errors.Wrapf(ErrUnknownRole, "%q", s)
	}
}

// Buyer is the authenticated identity every storefront operation runs as.
type Buyer struct {
	ID   string
	Name string
	Role Role
}

// Credential binds an API key hash to a buyer identity.
type Credential struct {
	ID      string
	KeyHash string
	Buyer   Buyer
}

// ErrCredentialNotFound is returned when no credential matches a key hash.
var ErrCredentialNotFound = errors.New("credential not found")

// Repository provides lookup of buyer credentials by API key hash.
// FindByKeyHash returns ErrCredentialNotFound when no credential matches;
// any other error is a storage failure.
type Repository interface {
	FindByKeyHash(ctx context.Context, hash string) (*Credential, error)
}
