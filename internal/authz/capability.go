// Package authz проверка прав на стороне сервера по роли и флагу администратора.
package authz

import "github.com/ignatzorin/feedreach-backend/internal/models"

type Capability string

const (
	DonationCreate       Capability = "donation:create"
	DonationAccept       Capability = "donation:accept"
	DonationUpdateStatus Capability = "donation:update_status"
	DonationBrowse       Capability = "donation:browse"
	ReviewSubmit         Capability = "review:submit"
	VerificationSubmit   Capability = "verification:submit"
	AIAnalyze            Capability = "ai:analyze"
	AdminUsers           Capability = "admin:users"
	AdminNotifications   Capability = "admin:notifications"
	AdminVerification    Capability = "admin:verification"
	AdminStats           Capability = "admin:stats"
)

var roleCapabilities = map[string][]Capability{
	models.RoleDonor: {
		DonationCreate,
		ReviewSubmit,
		VerificationSubmit,
		AIAnalyze,
	},
	models.RoleNGO: {
		DonationAccept,
		DonationUpdateStatus,
		DonationBrowse,
		ReviewSubmit,
		VerificationSubmit,
		AIAnalyze,
	},
}

var adminCapabilities = []Capability{
	AdminUsers,
	AdminNotifications,
	AdminVerification,
	AdminStats,
}

// Subject то, от чьего имени выполняется запрос.
type Subject struct {
	Role    string
	IsAdmin bool
}

// Can сообщает, есть ли у субъекта право.
func Can(s Subject, c Capability) bool {
	for _, granted := range Capabilities(s) {
		if granted == c {
			return true
		}
	}
	return false
}

// Capabilities полный список прав субъекта. Отдаётся клиенту, чтобы UI не гадал по роли.
func Capabilities(s Subject) []Capability {
	caps := append([]Capability(nil), roleCapabilities[s.Role]...)
	if s.IsAdmin {
		caps = append(caps, adminCapabilities...)
	}
	return caps
}
