package authcore

import "github.com/claimpoint/authcore/token"

// Identity is the authenticated principal attached to a request after the
// access strategy accepts it. It is built from the user record's role and
// permission relations, is immutable once attached, and lives for one request.
type Identity struct {
	ID       string
	Username string
	RoleName string

	// Permissions holds the capability names granted through the role.
	// Authorization is a full subset check against a route's requirements.
	Permissions []string
}

// Has reports whether the identity carries the named capability.
func (id *Identity) Has(capability string) bool {
	if id == nil {
		return false
	}
	for _, p := range id.Permissions {
		if p == capability {
			return true
		}
	}
	return false
}

// TokenPair is one issuance: a short-lived access token and a longer-lived
// refresh token whose jtis share a random base so the pair can be correlated
// for debugging. Only the refresh half is persisted (hashed, as a Session).
type TokenPair = token.Pair

// RefreshGrant is the result of the refresh strategy. It deliberately carries
// no permissions: refresh is a narrower trust boundary than access, and
// callers must re-resolve the identity if they need more than the user id.
type RefreshGrant struct {
	UserID string
	JTI    string
}

// UserRecord is the collaborator-owned user row as seen by this core. The
// core reads PasswordHash during login and Permissions when resolving an
// identity; it never writes user rows.
type UserRecord struct {
	ID           string
	Username     string
	PasswordHash string
	RoleName     string
	Permissions  []string
}

// UserProvider is the interface the routing layer's user service must
// implement to integrate with the engine. Both lookups return (nil, nil)
// when no user matches; a non-nil error means the backing store failed and
// is propagated as an infrastructure error, not an auth rejection.
type UserProvider interface {
	FindUserWithPermissions(id string) (*UserRecord, error)
	FindUserByUsername(username string) (*UserRecord, error)
}
