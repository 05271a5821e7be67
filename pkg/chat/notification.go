package chat

import "time"

// NotificationKind sets how a notification is rendered.
type NotificationKind string

const (
	NotifyInfo    NotificationKind = "info"
	NotifySuccess NotificationKind = "success"
	NotifyWarning NotificationKind = "warning"
	NotifyError   NotificationKind = "error"
)

// Notification is a transient, dismissible message shown to the user.
type Notification struct {
	ID        uint64
	Text      string
	Kind      NotificationKind
	CreatedAt time.Time
}
