// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account record. Unique is the stable opaque identifier handed
// out to clients and used for all cross-service references; ID is the
// internal row identifier and never leaves the server.
type User struct {
	ID           string
	Unique       string
	Username     string
	Email        string
	PasswordHash string
	AvatarKey    string
	IsActive     bool
	CreatedAt    time.Time
}
