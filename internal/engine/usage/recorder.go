package usage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"llmrelay/internal/engine/completions"
)

type Record struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	KeyID            string `json:"key_id"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	CreatedAt        int64  `json:"created_at"`
}

// Recorder persists per-request token usage. Recording is best-effort and
// runs off the request path so a slow or failing insert never delays a
// completion response.
type Recorder struct {
	db *sql.DB
}

func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

func (r *Recorder) Record(userID, keyID, model string, usage completions.Usage) {
	rec := &Record{
		ID:               "usage_" + uuid.New().String(),
		UserID:           userID,
		KeyID:            keyID,
		Model:            model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		CreatedAt:        time.Now().Unix(),
	}

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Msg("usage recorder panicked")
			}
		}()

		query := `
			INSERT INTO usage_records (id, user_id, key_id, model, prompt_tokens, completion_tokens, total_tokens, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		if _, err := r.db.Exec(query, rec.ID, rec.UserID, rec.KeyID, rec.Model,
			rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.CreatedAt); err != nil {
			log.Error().Err(err).Str("key_id", rec.KeyID).Msg("failed to record usage")
		}
	}()
}

// TotalsForUser sums recorded token usage for a user, newest window first
// left to the caller. Zero rows yield zero totals, not an error.
func (r *Recorder) TotalsForUser(userID string) (completions.Usage, error) {
	var totals completions.Usage
	query := `
		SELECT COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0), COALESCE(SUM(total_tokens), 0)
		FROM usage_records WHERE user_id = ?
	`
	err := r.db.QueryRow(query, userID).Scan(&totals.PromptTokens, &totals.CompletionTokens, &totals.TotalTokens)
	if err != nil {
		return completions.Usage{}, err
	}
	return totals, nil
}
