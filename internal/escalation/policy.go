// Package escalation defines the per-category approval chains and the
// pure role-advance rule used by manual escalation and the SLA sweep.
package escalation

import "github.com/campusvoice/feedback-service/internal/domain"

var chains = map[domain.Category][]domain.Role{
	domain.CategoryAcademics:      {domain.RoleStaff, domain.RoleHoD, domain.RoleAdmin, domain.RolePrincipal},
	domain.CategoryHostel:         {domain.RoleWarden, domain.RoleAdmin, domain.RolePrincipal},
	domain.CategoryInfrastructure: {domain.RoleStaff, domain.RoleAdmin, domain.RolePrincipal},
	domain.CategoryFood:           {domain.RoleStaff, domain.RoleAdmin, domain.RolePrincipal},
	domain.CategoryTransportation: {domain.RoleStaff, domain.RoleAdmin, domain.RolePrincipal},
	domain.CategoryOther:          {domain.RoleStaff, domain.RoleAdmin, domain.RolePrincipal},
}

var defaultChain = []domain.Role{domain.RoleStaff, domain.RoleAdmin, domain.RolePrincipal}

// Chain returns the ordered role chain for a category. The first element is
// the assignment role for new issues. Unknown categories get the default chain.
func Chain(category domain.Category) []domain.Role {
	if chain, ok := chains[category]; ok {
		return chain
	}
	return defaultChain
}

// Next returns the role immediately following current in chain. It returns
// false when current is the last element or does not appear in the chain at
// all; a role outside its chain is treated as already at the ceiling.
func Next(chain []domain.Role, current domain.Role) (domain.Role, bool) {
	for i, role := range chain {
		if role == current {
			if i+1 < len(chain) {
				return chain[i+1], true
			}
			return "", false
		}
	}
	return "", false
}
