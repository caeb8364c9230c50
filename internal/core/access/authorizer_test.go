package access

import (
	"testing"

	"github.com/kavaavi/career-portal/internal/core/domain"
)

var (
	anonymous     = domain.Anonymous()
	applicant     = domain.NewSession(domain.RoleApplicant, true)
	hr            = domain.NewSession(domain.RoleHR, true)
	unapprovedHR  = domain.NewSession(domain.RoleHR, false)
	superAdmin    = domain.NewSession(domain.RoleSuperAdmin, true)
	unapprovedApp = domain.NewSession(domain.RoleApplicant, false)
)

func TestAuthorize_PortalRules(t *testing.T) {
	a := NewAuthorizer(PortalRules())

	cases := []struct {
		name    string
		path    string
		session domain.Session
		allowed bool
	}{
		{"public home anonymous", "/", anonymous, true},
		{"public login anonymous", "/login", anonymous, true},
		{"public job details anonymous", "/jobs/42", anonymous, true},
		{"public job list signed in", "/jobs", hr, true},
		{"applicant dashboard as applicant", "/applicant", applicant, true},
		{"applicant dashboard anonymous", "/applicant", anonymous, false},
		{"apply as applicant", "/jobs/42/apply", applicant, true},
		{"apply as hr", "/jobs/42/apply", hr, false},
		{"unapproved applicant", "/applicant/profile", unapprovedApp, false},
		{"hr dashboard as hr", "/hr", hr, true},
		{"hr dashboard as unapproved hr", "/hr", unapprovedHR, false},
		{"hr dashboard as applicant", "/hr", applicant, false},
		{"hr dashboard as super-admin", "/hr", superAdmin, false},
		{"edit job as hr", "/hr/jobs/7/edit", hr, true},
		{"super-admin users as super-admin", "/super-admin/users", superAdmin, true},
		{"super-admin users as hr", "/super-admin/users", hr, false},
		{"applicants as hr", "/applicants", hr, true},
		{"applicants as super-admin", "/applicants", superAdmin, true},
		{"applicants as applicant", "/applicants", applicant, false},
		{"applicants as unapproved hr", "/applicants", unapprovedHR, false},
		{"job report as super-admin", "/jobs/7/report", superAdmin, true},
		{"job report anonymous", "/jobs/7/report", anonymous, false},
		{"trailing slash", "/hr/", hr, true},
		{"unknown path denied", "/admin", superAdmin, false},
		{"unknown nested path denied", "/hr/secret", hr, false},
		{"empty param segment", "/jobs//apply", applicant, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := a.Authorize(tc.path, tc.session)
			if d.Allowed != tc.allowed {
				t.Fatalf("Authorize(%q, %+v) allowed=%v, want %v", tc.path, tc.session, d.Allowed, tc.allowed)
			}
			if !d.Allowed && d.Redirect != LoginPath {
				t.Fatalf("denied decision should redirect to %s, got %q", LoginPath, d.Redirect)
			}
			if d.Allowed && d.Redirect != "" {
				t.Fatalf("allowed decision should not redirect, got %q", d.Redirect)
			}
		})
	}
}

func TestAuthorize_ReportsMatchedPattern(t *testing.T) {
	a := NewAuthorizer(PortalRules())

	if d := a.Authorize("/hr/jobs/9/edit", applicant); d.Pattern != "/hr/jobs/:id/edit" {
		t.Fatalf("unexpected pattern: %q", d.Pattern)
	}
	if d := a.Authorize("/nowhere", applicant); d.Pattern != "" {
		t.Fatalf("unmatched path should report no pattern, got %q", d.Pattern)
	}
}

func TestAuthorize_FirstRuleWins(t *testing.T) {
	a := NewAuthorizer([]Rule{
		{Pattern: "/reports/:id", Roles: []domain.Role{domain.RoleHR}},
		{Pattern: "/reports/summary"},
	})

	if d := a.Authorize("/reports/summary", anonymous); d.Allowed {
		t.Fatalf("earlier rule should decide")
	}
}

func TestAllows_Disjunction(t *testing.T) {
	if !Allows(hr, domain.RoleHR, domain.RoleSuperAdmin) {
		t.Fatalf("HR should satisfy HR or super-admin")
	}
	if !Allows(superAdmin, domain.RoleHR, domain.RoleSuperAdmin) {
		t.Fatalf("super-admin should satisfy HR or super-admin")
	}
	if Allows(unapprovedHR, domain.RoleHR, domain.RoleSuperAdmin) {
		t.Fatalf("unapproved HR satisfies neither")
	}
	if Allows(applicant) {
		t.Fatalf("an empty role list admits nobody")
	}
}

func TestDashboardPath(t *testing.T) {
	cases := map[string]struct {
		session domain.Session
		want    string
	}{
		"anonymous":     {anonymous, "/login"},
		"applicant":     {applicant, "/applicant"},
		"hr":            {hr, "/hr"},
		"unapproved hr": {unapprovedHR, "/login"},
		"super-admin":   {superAdmin, "/super-admin"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := DashboardPath(tc.session); got != tc.want {
				t.Fatalf("DashboardPath = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDashboardPath_IsAllowed(t *testing.T) {
	a := NewAuthorizer(PortalRules())
	for _, s := range []domain.Session{applicant, hr, superAdmin} {
		if d := a.Authorize(DashboardPath(s), s); !d.Allowed {
			t.Fatalf("dashboard of %+v is not reachable", s)
		}
	}
}
