package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk" json:"id"`
	Email     string    `bun:"email,unique,notnull" json:"email"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}

type Organization struct {
	bun.BaseModel `bun:"table:organizations,alias:o"`

	ID         string    `bun:"id,pk" json:"id"`
	Name       string    `bun:"name,notnull" json:"name"`
	Email      string    `bun:"email,unique,notnull" json:"email"`
	Phone      string    `bun:"phone" json:"phone"`
	Address    string    `bun:"address" json:"address"`
	WebsiteURL string    `bun:"website_url" json:"websiteUrl"`
	LogoURL    string    `bun:"logo_url" json:"logoUrl"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// UserRegistered is consumed from the auth service when an account is created.
type UserRegistered struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}
