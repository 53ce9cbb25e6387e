package models

// Роли пользователей
const (
	RoleDonor = "donor"
	RoleNGO   = "ngo"
)

// VerificationStatus константы статусов верификации
const (
	VerificationNone     = "none"
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// AccountStatus константы статусов аккаунта
const (
	AccountActive    = "active"
	AccountSuspended = "suspended"
	AccountBanned    = "banned"
)

// NotificationType константы типов уведомлений
const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
	NotificationError   = "error"
)

// BroadcastTarget адресат широковещательного уведомления.
const BroadcastTarget = "all"

// MediaKind назначение загруженного изображения
const (
	MediaKindAvatar       = "avatar"
	MediaKindDonation     = "donation"
	MediaKindVerification = "verification"
)

// ValidRoles список валидных ролей
var ValidRoles = map[string]struct{}{
	RoleDonor: {},
	RoleNGO:   {},
}

// ValidAccountStatuses список валидных статусов аккаунта
var ValidAccountStatuses = map[string]struct{}{
	AccountActive:    {},
	AccountSuspended: {},
	AccountBanned:    {},
}

// ValidNotificationTypes список валидных типов уведомлений
var ValidNotificationTypes = map[string]struct{}{
	NotificationInfo:    {},
	NotificationSuccess: {},
	NotificationWarning: {},
	NotificationError:   {},
}

// ValidMediaKinds список валидных назначений изображений
var ValidMediaKinds = map[string]struct{}{
	MediaKindAvatar:       {},
	MediaKindDonation:     {},
	MediaKindVerification: {},
}
