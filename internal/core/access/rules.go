package access

import "github.com/kavaavi/career-portal/internal/core/domain"

var (
	applicantOnly  = []domain.Role{domain.RoleApplicant}
	hrOnly         = []domain.Role{domain.RoleHR}
	superAdminOnly = []domain.Role{domain.RoleSuperAdmin}
	hrOrSuperAdmin = []domain.Role{domain.RoleHR, domain.RoleSuperAdmin}
)

// PortalRules is the route table of the career portal.
func PortalRules() []Rule {
	return []Rule{
		// Public pages.
		{Pattern: "/"},
		{Pattern: "/login"},
		{Pattern: "/forgot-password"},
		{Pattern: "/reset-password"},
		{Pattern: "/applicant-options"},
		{Pattern: "/hr-options"},
		{Pattern: "/register/applicant"},
		{Pattern: "/register/hr"},
		{Pattern: "/jobs"},
		{Pattern: "/jobs/:id"},
		{Pattern: "/about"},
		{Pattern: "/contact"},

		// Applicant.
		{Pattern: "/applicant", Roles: applicantOnly},
		{Pattern: "/applicant/profile", Roles: applicantOnly},
		{Pattern: "/applicant/applications", Roles: applicantOnly},
		{Pattern: "/jobs/:id/apply", Roles: applicantOnly},

		// HR.
		{Pattern: "/hr", Roles: hrOnly},
		{Pattern: "/hr/create-job", Roles: hrOnly},
		{Pattern: "/hr/jobs/:id/edit", Roles: hrOnly},
		{Pattern: "/hr/details", Roles: hrOnly},

		// Super-admin.
		{Pattern: "/super-admin", Roles: superAdminOnly},
		{Pattern: "/super-admin/users", Roles: superAdminOnly},
		{Pattern: "/super-admin/logs", Roles: superAdminOnly},

		// Shared between HR and super-admin.
		{Pattern: "/applicants", Roles: hrOrSuperAdmin},
		{Pattern: "/jobs/:id/report", Roles: hrOrSuperAdmin},
	}
}

// DashboardPath is where "Go to dashboard" leads for s.
func DashboardPath(s domain.Session) string {
	switch {
	case s.Holds(domain.RoleSuperAdmin):
		return "/super-admin"
	case s.Holds(domain.RoleHR):
		return "/hr"
	case s.Holds(domain.RoleApplicant):
		return "/applicant"
	default:
		return LoginPath
	}
}
