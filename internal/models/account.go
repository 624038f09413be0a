package models

import "time"

// ProviderAccount holds login credentials for a browser-automation provider
// (Naver, Daum). IsLoggedIn and LastLogin are written by the browser session
// manager after a successful authentication check.
type ProviderAccount struct {
	ID         string     `json:"id"`
	Provider   Provider   `json:"provider"`
	LoginID    string     `json:"login_id"`
	Secret     string     `json:"secret"`
	IsActive   bool       `json:"is_active"`
	IsLoggedIn bool       `json:"is_logged_in"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

// CookieRecord is the persisted session state for one provider account:
// an opaque JSON array of cookies, written after successful authentication
// and restored verbatim before each automation session.
type CookieRecord struct {
	Key       string    `json:"key"` // provider|accountID
	Cookies   []byte    `json:"cookies"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CookieKey builds the store key for a provider account's cookie record.
func CookieKey(provider Provider, accountID string) string {
	return string(provider) + "|" + accountID
}

// Cookie is one element of a CookieRecord's serialized cookie array. The
// shape mirrors what browser devtools export so records survive moves
// between the automation session and manual capture.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"http_only"`
	SameSite string  `json:"same_site,omitempty"`
}
