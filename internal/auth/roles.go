package auth

import "github.com/avialex/api/internal/model"

// PlatformRoles maps a user type to the platform roles embedded in the
// "roles" claim. Every account holds USER; MANAGER additionally holds
// ADMIN; anyone working for the firm (lawyer, marketing, manager) holds
// STAFF. The mapping is total over model.UserTypes.
func PlatformRoles(t model.UserType) []string {
	roles := []string{"USER"}
	if t == model.UserTypeManager {
		roles = append(roles, "ADMIN")
	}
	switch t {
	case model.UserTypeMarketing, model.UserTypeLawyer, model.UserTypeManager:
		roles = append(roles, "STAFF")
	}
	return roles
}

// DomainRoles maps a user type to the business roles embedded in the
// "domains" claim. Every account carries CLIENT; staff types add their own
// role on top.
func DomainRoles(t model.UserType) []string {
	roles := []string{"CLIENT"}
	switch t {
	case model.UserTypeManager:
		roles = append(roles, "MANAGER")
	case model.UserTypeMarketing:
		roles = append(roles, "MARKETING")
	case model.UserTypeLawyer:
		roles = append(roles, "LAWYER")
	}
	return roles
}
