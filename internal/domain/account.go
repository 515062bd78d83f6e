package domain

import "time"

// ConsumerAccount is an end-traveler account row.
type ConsumerAccount struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BusinessAccount is a corporate-travel account row.
type BusinessAccount struct {
	ID           string
	CompanyName  string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AdminAccount is a back-office operator row.
type AdminAccount struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
