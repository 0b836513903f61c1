package models

import "time"

// NotAvailable sentinel для відсутніх claims у UI
const NotAvailable = "N/A"

// IdentityClaims представляє claims користувача з id_token
type IdentityClaims struct {
	Subject      string `json:"sub"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Username     string `json:"preferred_username,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// UserInfo представляє інформацію про користувача для UI
type UserInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	Organization string `json:"organization"`
}

// UserInfo повертає claims з NotAvailable замість порожніх значень
func (c *IdentityClaims) UserInfo() *UserInfo {
	if c == nil {
		c = &IdentityClaims{}
	}
	return &UserInfo{
		ID:           orNotAvailable(c.Subject),
		Name:         orNotAvailable(c.Name),
		Email:        orNotAvailable(c.Email),
		Username:     orNotAvailable(c.Username),
		Organization: orNotAvailable(c.Organization),
	}
}

func orNotAvailable(v string) string {
	if v == "" {
		return NotAvailable
	}
	return v
}

// AuthStatus представляє стан автентифікації для client-side перевірки
type AuthStatus struct {
	Authenticated   bool       `json:"authenticated"`
	User            *UserInfo  `json:"user,omitempty"`
	ResourceServers []string   `json:"resource_servers"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Expired         bool       `json:"expired"`
	CheckedAt       time.Time  `json:"checked_at"`
}
