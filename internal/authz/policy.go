// Package authz holds the ownership policy shared by task and user mutations.
package authz

import (
	"errors"

	"github.com/geocoder89/taskhub/internal/domain/user"
)

var ErrForbidden = errors.New("permission denied")

// Caller is the authenticated identity behind a request.
type Caller struct {
	ID   int64
	Role user.Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == user.RoleAdmin
}

// CanModify reports whether the caller may mutate a resource owned by ownerID.
// Admins may act on anything, everyone else only on what they own.
func CanModify(caller Caller, ownerID int64) bool {
	if caller.IsAdmin() {
		return true
	}
	return caller.ID != 0 && caller.ID == ownerID
}

// Authorize is CanModify expressed as an error.
func Authorize(caller Caller, ownerID int64) error {
	if !CanModify(caller, ownerID) {
		return ErrForbidden
	}
	return nil
}
