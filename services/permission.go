package services

import "github.com/Dosada05/club-coordinator/models"

// Permission - набор прав, вычисляется один раз из роли сессии.
type Permission uint8

const (
	PermissionCreateTeam Permission = 1 << iota
	PermissionManageCaptains
	PermissionRecordResults
	PermissionExportResults
)

var rolePermissions = map[models.UserRole]Permission{
	models.RoleCaptain:   PermissionCreateTeam | PermissionRecordResults,
	models.RoleOrganizer: PermissionCreateTeam | PermissionManageCaptains | PermissionExportResults,
	models.RoleAdmin:     PermissionManageCaptains | PermissionExportResults,
	models.RoleTeacher:   PermissionManageCaptains | PermissionExportResults,
	models.RoleStudent:   0,
}

func PermissionsFor(role models.UserRole) Permission {
	return rolePermissions[role]
}

func SessionPermissions(sess SessionContext) Permission {
	if sess == nil {
		return 0
	}
	return PermissionsFor(sess.CurrentRole())
}

func (p Permission) Has(want Permission) bool {
	return want != 0 && p&want == want
}
