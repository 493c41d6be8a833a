package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderPlaced      NotificationType = "order_placed"
	NotificationTypeOrderAccepted    NotificationType = "order_accepted"
	NotificationTypeOrderDelivered   NotificationType = "order_delivered"
	NotificationTypeOrderCompleted   NotificationType = "order_completed"
	NotificationTypeOrderCancelled   NotificationType = "order_cancelled"
	NotificationTypeBalanceApproved  NotificationType = "balance_approved"
	NotificationTypeBalanceRejected  NotificationType = "balance_rejected"
	NotificationTypeCashoutApproved  NotificationType = "cashout_approved"
	NotificationTypeCashoutRejected  NotificationType = "cashout_rejected"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderPlaced,
	NotificationTypeOrderAccepted,
	NotificationTypeOrderDelivered,
	NotificationTypeOrderCompleted,
	NotificationTypeOrderCancelled,
	NotificationTypeBalanceApproved,
	NotificationTypeBalanceRejected,
	NotificationTypeCashoutApproved,
	NotificationTypeCashoutRejected,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
