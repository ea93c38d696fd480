package domain

import "time"

// Cottage is a bookable accommodation unit. Cottages are managed by the CMS;
// the booking core only reads them (nightly rate for pricing, name for the
// booking form and emails).
type Cottage struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Excerpt     string    `json:"excerpt"`
	NightlyRate float64   `json:"nightly_rate"`
	CreatedAt   time.Time `json:"created_at"`
}

type AdminUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
