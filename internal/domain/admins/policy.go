package admins

// Role администратора консоли. Обычный пользователь бота роли не имеет.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// Action — действие в админке, на которое проверяется доступ.
type Action string

const (
	ActionViewUsers    Action = "view_users"
	ActionViewQuotas   Action = "view_quotas"
	ActionExportQuotas Action = "export_quotas"
	ActionAssignPlan   Action = "assign_plan"
	ActionManagePlans  Action = "manage_plans"
	ActionManageAdmins Action = "manage_admins"
)

// Allow — единственная точка авторизации вместо списков ролей на каждой странице.
func Allow(role Role, action Action) bool {
	switch role {
	case RoleOwner:
		return true
	case RoleAdmin:
		return action != ActionManageAdmins
	case RoleManager:
		switch action {
		case ActionViewUsers, ActionViewQuotas, ActionExportQuotas:
			return true
		}
	}
	return false
}

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOwner, RoleAdmin, RoleManager:
		return Role(s), true
	}
	return "", false
}
