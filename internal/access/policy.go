package access

import "github.com/bissquit/resettlement-portal/internal/domain"

// Route policies. Every set lists each admitted role explicitly.
var (
	// AdminOnly guards content editing and role assignment.
	AdminOnly = NewRoleSet(domain.RoleAdmin)

	// ManagementViews guards the manager dashboard.
	ManagementViews = NewRoleSet(domain.RoleAdmin, domain.RoleManager)

	// AnalystViews guards the analyst dashboard.
	AnalystViews = NewRoleSet(domain.RoleAdmin, domain.RoleManager, domain.RoleAnalyst)

	// Everyone admits any signed-in user.
	Everyone = NewRoleSet(domain.RoleAdmin, domain.RoleManager, domain.RoleAnalyst, domain.RoleUser)
)
