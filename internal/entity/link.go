// Package entity defines the entities and errors used in the application.
// It includes the Link struct, which maps a short code to its target URL,
// along with its click statistics and soft-deletion state.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrCodeTaken is returned when a link with the requested code already exists,
	// whether it is active or soft-deleted.
	ErrCodeTaken = errors.New("code already exists")
	// ErrLinkNotFound is returned when no active link matches the code.
	ErrLinkNotFound = errors.New("link not found")
	// ErrInvalidCode is returned when a custom code is not 6-8 alphanumeric characters.
	ErrInvalidCode = errors.New("invalid code format")
	// ErrInvalidURL is returned when the target URL is not an absolute URL.
	ErrInvalidURL = errors.New("invalid target url")
)

// Link represents a shortened URL.
type Link struct {
	ID        string     // ID is the opaque identifier assigned by the store.
	Code      string     // Code is the short code the link is reachable by.
	TargetURL string     // TargetURL is the URL visitors are redirected to.
	LinkStats            // LinkStats contains click statistics of the link.
	CreatedAt time.Time  // CreatedAt is the timestamp when the link was created.
	DeletedAt *time.Time // DeletedAt is set once the link is soft-deleted.
}

// LinkStats contains statistics related to a link.
type LinkStats struct {
	TotalClicks int64      // TotalClicks is the number of successful redirects.
	LastClicked *time.Time // LastClicked is the time of the latest redirect, nil before the first one.
}

// IsDeleted reports whether the link has been soft-deleted.
func (l *Link) IsDeleted() bool {
	return l.DeletedAt != nil
}
