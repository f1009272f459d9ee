package domain

type Action string

const (
	ActionListWorks    Action = "list_works"
	ActionCreateWork   Action = "create_work"
	ActionAssignWork   Action = "assign_work"
	ActionApplyForWork Action = "apply_for_work"
	ActionManageFares  Action = "manage_fares"
	ActionSubmitRating Action = "submit_rating"
	ActionViewWages    Action = "view_wages"
)

var rolePermissions = map[Role]map[Action]bool{
	RoleAdmin: {
		ActionListWorks:    true,
		ActionCreateWork:   true,
		ActionAssignWork:   true,
		ActionManageFares:  true,
		ActionSubmitRating: true,
		ActionViewWages:    true,
	},
	RoleSubAdmin: {
		ActionListWorks:    true,
		ActionCreateWork:   true,
		ActionAssignWork:   true,
		ActionSubmitRating: true,
	},
	RoleUser: {
		ActionListWorks:    true,
		ActionApplyForWork: true,
		ActionViewWages:    true,
	},
}

func (r Role) Can(action Action) bool {
	return rolePermissions[r][action]
}
