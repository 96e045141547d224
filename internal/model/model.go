package model

import "strings"

// Lifecycle statuses shared by the hierarchy and taxonomy tables.
const (
	StatusActive   = "ACTIVE"
	StatusArchived = "ARCHIVED"
)

// Publication statuses for products. Queued products are ingested but not
// yet priced; both statuses count as "live" rows for uniqueness purposes.
const (
	ProductStatusQueue = "QUEUE"
	ProductStatusLive  = "LIVE"
)

// NameKey lowers and whitespace-collapses a display name. Case-insensitive
// lookups and the partial unique indexes run against this column so the
// database enforces sibling uniqueness, not the application.
func NameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
