// Package access decides, per portal path, whether a session may render the
// view behind it.
package access

import (
	"strings"

	"github.com/kavaavi/career-portal/internal/core/domain"
)

const LoginPath = "/login"

// Rule gates one path pattern. A pattern segment starting with ':' matches
// any single non-empty segment. A rule with no roles is public.
type Rule struct {
	Pattern string
	Roles   []domain.Role
}

// Public reports whether the rule admits every session.
func (r Rule) Public() bool {
	return len(r.Roles) == 0
}

// Allows is the disjunction of the single-role predicates of the rule.
func (r Rule) Allows(s domain.Session) bool {
	if r.Public() {
		return true
	}
	return Allows(s, r.Roles...)
}

// Allows reports whether s holds at least one of roles.
func Allows(s domain.Session, roles ...domain.Role) bool {
	for _, role := range roles {
		if s.Holds(role) {
			return true
		}
	}
	return false
}

// Decision is the outcome of authorizing a path.
type Decision struct {
	Allowed  bool
	Redirect string
	Pattern  string // matched rule pattern, empty when none matched
}

type compiledRule struct {
	rule     Rule
	segments []string
}

// Authorizer evaluates rules in declaration order; the first match decides.
// Paths without a rule are denied.
type Authorizer struct {
	rules     []compiledRule
	loginPath string
}

func NewAuthorizer(rules []Rule) *Authorizer {
	a := &Authorizer{loginPath: LoginPath}
	for _, r := range rules {
		a.rules = append(a.rules, compiledRule{rule: r, segments: split(r.Pattern)})
	}
	return a
}

// Match returns the rule governing path.
func (a *Authorizer) Match(path string) (Rule, bool) {
	segs := split(path)
	for _, cr := range a.rules {
		if matches(cr.segments, segs) {
			return cr.rule, true
		}
	}
	return Rule{}, false
}

// Authorize decides whether s may render path.
func (a *Authorizer) Authorize(path string, s domain.Session) Decision {
	rule, ok := a.Match(path)
	if !ok {
		return Decision{Redirect: a.loginPath}
	}
	if rule.Allows(s) {
		return Decision{Allowed: true, Pattern: rule.Pattern}
	}
	return Decision{Redirect: a.loginPath, Pattern: rule.Pattern}
}

// Rules returns the rules in evaluation order.
func (a *Authorizer) Rules() []Rule {
	out := make([]Rule, len(a.rules))
	for i, cr := range a.rules {
		out[i] = cr.rule
	}
	return out
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func matches(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if path[i] == "" {
				return false
			}
			continue
		}
		if p != path[i] {
			return false
		}
	}
	return true
}
