package accesskeys

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"llmrelay/internal/platform/models"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// IsUniqueViolation reports whether err is the fingerprint unique-constraint
// failure on insert.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "unique")
}

func (r *Repository) Create(key *models.AccessKey) error {
	if key.ID == "" {
		key.ID = "key_" + uuid.New().String()
	}
	now := time.Now().Unix()
	key.CreatedAt = now
	key.UpdatedAt = now

	query := `
		INSERT INTO access_keys (id, user_id, fingerprint, key_hash, preview, name, description, revoked, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, key.ID, key.UserID, key.Fingerprint, key.KeyHash, key.Preview,
		key.Name, key.Description, key.Revoked, key.ExpiresAt, key.CreatedAt, key.UpdatedAt)
	return err
}

func (r *Repository) scanRow(row *sql.Row) (*models.AccessKey, error) {
	var k models.AccessKey
	var name, description sql.NullString
	var expiresAt, lastUsedAt sql.NullInt64

	err := row.Scan(&k.ID, &k.UserID, &k.Fingerprint, &k.KeyHash, &k.Preview,
		&name, &description, &k.Revoked, &expiresAt, &lastUsedAt, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if name.Valid {
		k.Name = &name.String
	}
	if description.Valid {
		k.Description = &description.String
	}
	if expiresAt.Valid {
		k.ExpiresAt = &expiresAt.Int64
	}
	if lastUsedAt.Valid {
		k.LastUsedAt = &lastUsedAt.Int64
	}
	return &k, nil
}

const keyColumns = `id, user_id, fingerprint, key_hash, preview, name, description, revoked, expires_at, last_used_at, created_at, updated_at`

// GetByFingerprint resolves a key from the deterministic fingerprint index.
// Returns nil, nil when no record matches.
func (r *Repository) GetByFingerprint(fingerprint string) (*models.AccessKey, error) {
	row := r.db.QueryRow(`SELECT `+keyColumns+` FROM access_keys WHERE fingerprint = ?`, fingerprint)
	k, err := r.scanRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return k, err
}

// GetByIDAndUser enforces ownership scoping: a key only exists for its owner.
func (r *Repository) GetByIDAndUser(id, userID string) (*models.AccessKey, error) {
	row := r.db.QueryRow(`SELECT `+keyColumns+` FROM access_keys WHERE id = ? AND user_id = ?`, id, userID)
	k, err := r.scanRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return k, err
}

func (r *Repository) ListByUser(userID string) ([]*models.AccessKey, error) {
	rows, err := r.db.Query(`SELECT `+keyColumns+` FROM access_keys WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*models.AccessKey
	for rows.Next() {
		var k models.AccessKey
		var name, description sql.NullString
		var expiresAt, lastUsedAt sql.NullInt64

		if err := rows.Scan(&k.ID, &k.UserID, &k.Fingerprint, &k.KeyHash, &k.Preview,
			&name, &description, &k.Revoked, &expiresAt, &lastUsedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, err
		}

		if name.Valid {
			k.Name = &name.String
		}
		if description.Valid {
			k.Description = &description.String
		}
		if expiresAt.Valid {
			k.ExpiresAt = &expiresAt.Int64
		}
		if lastUsedAt.Valid {
			k.LastUsedAt = &lastUsedAt.Int64
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// UpdateFields applies a prepared patch. Callers resolve ownership first;
// the id alone is safe here because it came from an owner-scoped read.
func (r *Repository) UpdateFields(id string, fields map[string]interface{}) error {
	setParts := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	for _, col := range []string{"name", "description", "revoked", "expires_at"} {
		if v, ok := fields[col]; ok {
			setParts = append(setParts, col+" = ?")
			args = append(args, v)
		}
	}
	setParts = append(setParts, "updated_at = ?")
	args = append(args, time.Now().Unix(), id)

	query := `UPDATE access_keys SET ` + strings.Join(setParts, ", ") + ` WHERE id = ?`
	_, err := r.db.Exec(query, args...)
	return err
}

func (r *Repository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM access_keys WHERE id = ?`, id)
	return err
}

func (r *Repository) UpdateLastUsed(id string) error {
	_, err := r.db.Exec(`UPDATE access_keys SET last_used_at = ? WHERE id = ?`, time.Now().Unix(), id)
	return err
}
