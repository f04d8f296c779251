package domain

import "errors"

// Domain errors returned by repository implementations and services.

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateNotification indicates a reminder for the same item, recipient
	// and calendar day has already been sent or is being sent.
	ErrDuplicateNotification = errors.New("notification already sent today")

	// ErrRunInProgress indicates another reminder run holds the run lease.
	ErrRunInProgress = errors.New("reminder run already in progress")

	// ErrRunLeaseLost indicates the run lease expired and was taken by another holder.
	ErrRunLeaseLost = errors.New("run lease lost")

	// ErrInvalidRecipient indicates a missing or malformed recipient email.
	ErrInvalidRecipient = errors.New("invalid recipient email")

	// ErrInvalidItemType indicates an item type outside the known set.
	ErrInvalidItemType = errors.New("invalid item type")

	// ErrInvalidNotificationStatus indicates a status outside the known set.
	ErrInvalidNotificationStatus = errors.New("invalid notification status")

	// ErrUnauthorized indicates a missing or wrong trigger token.
	ErrUnauthorized = errors.New("unauthorized")
)
