package models

import "time"

// Ticket is a support request created from the public contact surface.
type Ticket struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"-"`
	ClientRef   string    `json:"client_ref,omitempty"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Lead is a sales inquiry.
type Lead struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"-"`
	ClientRef string    `json:"client_ref,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Source    string    `json:"source,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Contact is a general contact-form submission.
type Contact struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"-"`
	ClientRef string    `json:"client_ref,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateResponse is returned by the CRM create endpoints.
// Duplicate is true when the client ref was already stored.
type CreateResponse struct {
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}
