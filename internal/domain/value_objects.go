package domain

import (
	"fmt"
	"strings"
)

// NewItemType validates and creates an ItemType.
func NewItemType(s string) (ItemType, error) {
	itemType := ItemType(strings.ToLower(strings.TrimSpace(s)))

	switch itemType {
	case ItemTypeTask, ItemTypeOTPProgram, ItemTypeMatrixProgram:
		return itemType, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidItemType, s)
	}
}

// NewNotificationStatus validates and creates a NotificationStatus.
func NewNotificationStatus(s string) (NotificationStatus, error) {
	status := NotificationStatus(strings.ToLower(s))

	switch status {
	case NotificationSending, NotificationSent, NotificationFailed:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidNotificationStatus, s)
	}
}

// IsFinal reports whether the status ends an attempt.
func (s NotificationStatus) IsFinal() bool {
	return s == NotificationSent || s == NotificationFailed
}

// ValidRecipient reports whether email can be used as a reminder destination.
// Only the presence of "@" is checked; the gateway is the real validator.
func ValidRecipient(email string) bool {
	return strings.Contains(strings.TrimSpace(email), "@")
}
