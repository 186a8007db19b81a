package authz_test

import (
	"errors"
	"testing"

	"github.com/geocoder89/taskhub/internal/authz"
	"github.com/geocoder89/taskhub/internal/domain/user"
)

func TestCanModify(t *testing.T) {
	tests := []struct {
		name    string
		caller  authz.Caller
		ownerID int64
		want    bool
	}{
		{name: "admin_on_foreign_resource", caller: authz.Caller{ID: 1, Role: user.RoleAdmin}, ownerID: 9, want: true},
		{name: "admin_on_own_resource", caller: authz.Caller{ID: 9, Role: user.RoleAdmin}, ownerID: 9, want: true},
		{name: "leader_on_own_resource", caller: authz.Caller{ID: 3, Role: user.RoleLeader}, ownerID: 3, want: true},
		{name: "leader_on_foreign_resource", caller: authz.Caller{ID: 3, Role: user.RoleLeader}, ownerID: 4, want: false},
		{name: "user_on_own_resource", caller: authz.Caller{ID: 5, Role: user.RoleUser}, ownerID: 5, want: true},
		{name: "user_on_foreign_resource", caller: authz.Caller{ID: 5, Role: user.RoleUser}, ownerID: 9, want: false},
		{name: "anonymous_never_owns", caller: authz.Caller{}, ownerID: 0, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := authz.CanModify(tt.caller, tt.ownerID); got != tt.want {
				t.Fatalf("CanModify(%+v, %d) = %v, want %v", tt.caller, tt.ownerID, got, tt.want)
			}

			err := authz.Authorize(tt.caller, tt.ownerID)
			if tt.want && err != nil {
				t.Fatalf("Authorize returned %v, want nil", err)
			}
			if !tt.want && !errors.Is(err, authz.ErrForbidden) {
				t.Fatalf("Authorize returned %v, want ErrForbidden", err)
			}
		})
	}
}
