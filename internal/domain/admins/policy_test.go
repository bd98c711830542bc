package admins

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllow(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleOwner, ActionManageAdmins, true},
		{RoleOwner, ActionManagePlans, true},
		{RoleAdmin, ActionManagePlans, true},
		{RoleAdmin, ActionAssignPlan, true},
		{RoleAdmin, ActionManageAdmins, false},
		{RoleManager, ActionViewUsers, true},
		{RoleManager, ActionViewQuotas, true},
		{RoleManager, ActionExportQuotas, true},
		{RoleManager, ActionAssignPlan, false},
		{RoleManager, ActionManagePlans, false},
		{Role("user"), ActionViewUsers, false},
		{Role(""), ActionViewQuotas, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Allow(c.role, c.action), "%s/%s", c.role, c.action)
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"owner", "admin", "manager"} {
		r, ok := ParseRole(s)
		assert.True(t, ok)
		assert.Equal(t, Role(s), r)
	}
	for _, s := range []string{"", "user", "root", "Owner"} {
		_, ok := ParseRole(s)
		assert.False(t, ok, "s=%q", s)
	}
}
