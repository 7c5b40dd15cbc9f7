package models

// AccessKey is the persisted credential record. Fingerprint and KeyHash
// never leave the server; the JSON tags keep them out of any response.
type AccessKey struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	Fingerprint string  `json:"-"`
	KeyHash     string  `json:"-"`
	Preview     string  `json:"preview"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Revoked     bool    `json:"revoked"`
	ExpiresAt   *int64  `json:"expires_at,omitempty"`
	LastUsedAt  *int64  `json:"last_used_at,omitempty"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}
