package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kavaavi/career-portal/internal/api/middleware"
	"github.com/kavaavi/career-portal/internal/api/view"
	"github.com/kavaavi/career-portal/internal/core/access"
)

// PageRoute is one portal view.
type PageRoute struct {
	Path  string
	Name  string
	Title string
}

// PortalPages lists every view the gateway serves. Each path must have a
// rule in access.PortalRules or it will never render.
func PortalPages() []PageRoute {
	return []PageRoute{
		{"/", "home", "Find your next role"},
		{"/login", "login", "Log in"},
		{"/forgot-password", "forgot-password", "Forgot password"},
		{"/reset-password", "reset-password", "Reset password"},
		{"/applicant-options", "applicant-options", "Applicants"},
		{"/hr-options", "hr-options", "Employers"},
		{"/register/applicant", "register-applicant", "Create an applicant account"},
		{"/register/hr", "register-hr", "Create an HR account"},
		{"/jobs", "jobs", "Open positions"},
		{"/jobs/:id", "job-details", "Job details"},
		{"/about", "about", "About us"},
		{"/contact", "contact", "Contact"},

		{"/applicant", "applicant-dashboard", "Applicant dashboard"},
		{"/applicant/profile", "applicant-profile", "My profile"},
		{"/applicant/applications", "applicant-applications", "My applications"},
		{"/jobs/:id/apply", "job-apply", "Apply"},

		{"/hr", "hr-dashboard", "HR dashboard"},
		{"/hr/create-job", "hr-create-job", "Create a job"},
		{"/hr/jobs/:id/edit", "hr-edit-job", "Edit job"},
		{"/hr/details", "hr-details", "Company details"},

		{"/super-admin", "super-admin-dashboard", "Super-admin dashboard"},
		{"/super-admin/users", "super-admin-users", "Users"},
		{"/super-admin/logs", "super-admin-logs", "Activity logs"},

		{"/applicants", "applicants", "Applicants"},
		{"/jobs/:id/report", "job-report", "Job report"},
	}
}

// PageHandler renders the HTML shell of a view. It runs behind Authorize, so
// a handler only executes for sessions the route admits.
type PageHandler struct {
	authorizer *access.Authorizer
}

func NewPageHandler(authorizer *access.Authorizer) *PageHandler {
	return &PageHandler{authorizer: authorizer}
}

// Show returns the handler for p.
func (h *PageHandler) Show(p PageRoute) echo.HandlerFunc {
	gated := true
	if rule, ok := h.authorizer.Match(p.Path); ok {
		gated = !rule.Public()
	}

	return func(c echo.Context) error {
		session := middleware.SessionFrom(c)

		var params map[string]string
		if names := c.ParamNames(); len(names) > 0 {
			params = make(map[string]string, len(names))
			for _, n := range names {
				params[n] = c.Param(n)
			}
		}

		return c.Render(http.StatusOK, "page", view.Page{
			Name:      p.Name,
			Title:     p.Title,
			Path:      c.Request().URL.Path,
			Gated:     gated,
			Session:   session,
			Dashboard: access.DashboardPath(session),
			Params:    params,
		})
	}
}
