package accesskeys

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"llmrelay/internal/pkg/errors"
	"llmrelay/internal/platform/models"
)

// SafeKey is the projection returned by every read path. It never carries
// the fingerprint, the hash, or the plaintext secret.
type SafeKey struct {
	ID          string  `json:"id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Revoked     bool    `json:"revoked"`
	ExpiresAt   *int64  `json:"expires_at"`
	LastUsedAt  *int64  `json:"last_used_at,omitempty"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
	Preview     string  `json:"preview"`
}

// CreateResult carries the plaintext secret. It exists only as the return
// value of Create; the secret is unrecoverable afterwards.
type CreateResult struct {
	ID          string  `json:"id"`
	Key         string  `json:"key"`
	CreatedAt   int64   `json:"created_at"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// UpdatePatch carries the optional fields of a PATCH. ExpiresAt and
// ClearExpiry together model the three states of the expiresAt field:
// absent, an RFC 3339 timestamp, or an explicit null.
type UpdatePatch struct {
	Name        *string
	Description *string
	Revoked     *bool
	ExpiresAt   *string
	ClearExpiry bool
}

func (p UpdatePatch) empty() bool {
	return p.Name == nil && p.Description == nil && p.Revoked == nil &&
		p.ExpiresAt == nil && !p.ClearExpiry
}

type Service struct {
	repo   *Repository
	hasher *Hasher
}

func NewService(repo *Repository, hasher *Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

func toSafeKey(k *models.AccessKey) SafeKey {
	return SafeKey{
		ID:          k.ID,
		Name:        k.Name,
		Description: k.Description,
		Revoked:     k.Revoked,
		ExpiresAt:   k.ExpiresAt,
		LastUsedAt:  k.LastUsedAt,
		CreatedAt:   k.CreatedAt,
		UpdatedAt:   k.UpdatedAt,
		Preview:     k.Preview,
	}
}

// ListForUser returns the caller's keys, newest first, safe projection only.
func (s *Service) ListForUser(userID string) ([]SafeKey, error) {
	keys, err := s.repo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	safe := make([]SafeKey, 0, len(keys))
	for _, k := range keys {
		safe = append(safe, toSafeKey(k))
	}
	return safe, nil
}

// Create generates a secret, persists its fingerprint, slow hash and
// preview, and returns the plaintext exactly once.
func (s *Service) Create(userID string, name, description *string) (*CreateResult, error) {
	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}

	keyHash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, err
	}

	key := &models.AccessKey{
		UserID:      userID,
		Fingerprint: Fingerprint(secret),
		KeyHash:     keyHash,
		Preview:     Preview(secret),
		Name:        name,
		Description: description,
	}

	if err := s.repo.Create(key); err != nil {
		if IsUniqueViolation(err) {
			// A sha256 collision here means the RNG or hash is defective
			return nil, errors.New(http.StatusConflict, "Access key already exists")
		}
		return nil, err
	}

	return &CreateResult{
		ID:          key.ID,
		Key:         secret,
		CreatedAt:   key.CreatedAt,
		Name:        key.Name,
		Description: key.Description,
	}, nil
}

// Update applies a patch to a key the caller owns. Ownership failures are
// indistinguishable from a missing key.
func (s *Service) Update(keyID, userID string, patch UpdatePatch) (*SafeKey, error) {
	if patch.empty() {
		return nil, errors.New(http.StatusBadRequest, "No fields to update")
	}

	existing, err := s.repo.GetByIDAndUser(keyID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.New(http.StatusNotFound, "Access key not found or access denied")
	}

	fields := make(map[string]interface{})
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Revoked != nil {
		fields["revoked"] = *patch.Revoked
	}
	if patch.ClearExpiry {
		fields["expires_at"] = nil
	} else if patch.ExpiresAt != nil {
		parsed, err := time.Parse(time.RFC3339, *patch.ExpiresAt)
		if err != nil {
			return nil, errors.New(http.StatusBadRequest, "expiresAt must be an ISO-8601 date-time string or null")
		}
		fields["expires_at"] = parsed.Unix()
	}

	if err := s.repo.UpdateFields(keyID, fields); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetByIDAndUser(keyID, userID)
	if err != nil {
		return nil, err
	}
	safe := toSafeKey(updated)
	return &safe, nil
}

// Delete hard-deletes a key the caller owns.
func (s *Service) Delete(keyID, userID string) error {
	existing, err := s.repo.GetByIDAndUser(keyID, userID)
	if err != nil {
		return err
	}
	if existing == nil {
		return errors.New(http.StatusNotFound, "Access key not found or access denied")
	}
	return s.repo.Delete(keyID)
}

// Authenticate resolves a presented plaintext secret to its owner. Every
// failure path returns the same generic 401 so callers cannot distinguish
// a missing key from a wrong, revoked, or expired one.
func (s *Service) Authenticate(secret string) (userID, keyID string, err error) {
	unauthorized := errors.New(http.StatusUnauthorized, "Unauthorized")

	rec, err := s.repo.GetByFingerprint(Fingerprint(secret))
	if err != nil {
		return "", "", err
	}
	if rec == nil {
		return "", "", unauthorized
	}

	ok, err := s.hasher.Verify(rec.KeyHash, secret)
	if err != nil || !ok {
		return "", "", unauthorized
	}

	if rec.Revoked {
		log.Info().Str("key_id", rec.ID).Msg("rejected revoked access key")
		return "", "", unauthorized
	}
	if rec.ExpiresAt != nil && *rec.ExpiresAt <= time.Now().Unix() {
		log.Info().Str("key_id", rec.ID).Msg("rejected expired access key")
		return "", "", unauthorized
	}

	s.touchLastUsed(rec.ID)

	return rec.UserID, rec.ID, nil
}

// touchLastUsed updates the last-used timestamp without blocking or
// failing the authenticating request.
func (s *Service) touchLastUsed(keyID string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("last-used update panicked")
			}
		}()
		if err := s.repo.UpdateLastUsed(keyID); err != nil {
			log.Warn().Err(err).Str("key_id", keyID).Msg("failed to update last_used_at")
		}
	}()
}
