package ticketing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const audioMessageColumns = `
	m.id, m.ticket_id, m.message_id, m.content, m.message_type, m.from_me,
	COALESCE(m.sender_name, ''), m.timestamp, COALESCE(m.processing_status, ''),
	m.is_ai_response, m.is_internal_note,
	COALESCE(m.media_key, ''), COALESCE(m.media_url, ''), COALESCE(m.mime_type, ''),
	COALESCE(m.direct_path, ''), COALESCE(m.audio_base64, ''), COALESCE(m.transcription, '')`

func scanAudioMessage(row pgx.Row) (*TicketMessage, error) {
	var m TicketMessage
	err := row.Scan(
		&m.ID, &m.TicketID, &m.MessageID, &m.Content, &m.MessageType, &m.FromMe,
		&m.SenderName, &m.Timestamp, &m.ProcessingStatus,
		&m.IsAIResponse, &m.IsInternalNote,
		&m.MediaKey, &m.MediaURL, &m.MimeType,
		&m.DirectPath, &m.AudioBase64, &m.Transcription,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ticketing: scan audio message: %w", err)
	}
	return &m, nil
}

// PendingAudio returns the oldest received-state audio rows for a client,
// oldest first, excluding outbound and AI-generated rows.
func (s *Store) PendingAudio(ctx context.Context, clientID uuid.UUID, limit int) ([]*TicketMessage, error) {
	if limit <= 0 {
		limit = 3
	}
	query := `
		SELECT ` + audioMessageColumns + `
		FROM ticket_messages m
		JOIN conversation_tickets t ON t.id = m.ticket_id
		WHERE t.client_id = $1
			AND m.message_type IN ('audio', 'ptt')
			AND m.processing_status = 'received'
			AND m.from_me = false
			AND m.is_ai_response = false
		ORDER BY m.timestamp ASC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("ticketing: select pending audio: %w", err)
	}
	defer rows.Close()

	var out []*TicketMessage
	for rows.Next() {
		m, err := scanAudioMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ticketing: iterate pending audio: %w", err)
	}
	return out, nil
}

// GetByMessageID fetches a single ticket message by provider id.
func (s *Store) GetByMessageID(ctx context.Context, messageID string) (*TicketMessage, error) {
	query := `SELECT ` + audioMessageColumns + ` FROM ticket_messages m WHERE m.message_id = $1 LIMIT 1`
	return scanAudioMessage(s.db.QueryRow(ctx, query, messageID))
}

// ClaimForProcessing atomically upgrades received → processing. The WHERE
// guard makes the claim a compare-and-swap: a false return means another
// actor already holds it.
func (s *Store) ClaimForProcessing(ctx context.Context, messageID string) (bool, error) {
	query := `
		UPDATE ticket_messages
		SET processing_status = 'processing', updated_at = now()
		WHERE message_id = $1 AND processing_status = 'received'
	`
	tag, err := s.db.Exec(ctx, query, messageID)
	if err != nil {
		return false, fmt.Errorf("ticketing: claim for processing: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CompleteTranscription stores the transcript, rewrites the display content
// and flips the row to completed. Keyed by message id so late or duplicate
// writers converge on the same result.
func (s *Store) CompleteTranscription(ctx context.Context, messageID, transcript string) error {
	query := `
		UPDATE ticket_messages
		SET transcription = $2,
			content = '🎤 ' || $2,
			processing_status = 'completed',
			updated_at = now()
		WHERE message_id = $1
	`
	if _, err := s.db.Exec(ctx, query, messageID, transcript); err != nil {
		return fmt.Errorf("ticketing: complete transcription: %w", err)
	}
	return nil
}

// FailTranscription flips the row to failed and stores a diagnostic string
// in the transcription field. The audio itself is retained.
func (s *Store) FailTranscription(ctx context.Context, messageID, diagnostic string) error {
	query := `
		UPDATE ticket_messages
		SET processing_status = 'failed', transcription = $2, updated_at = now()
		WHERE message_id = $1
	`
	if _, err := s.db.Exec(ctx, query, messageID, diagnostic); err != nil {
		return fmt.Errorf("ticketing: fail transcription: %w", err)
	}
	return nil
}

// SaveTranscription writes only the transcript text. This is the
// transcription endpoint's direct write path; it must stay idempotent with
// CompleteTranscription since both target the same row.
func (s *Store) SaveTranscription(ctx context.Context, messageID, transcript string) error {
	query := `UPDATE ticket_messages SET transcription = $2, updated_at = now() WHERE message_id = $1`
	if _, err := s.db.Exec(ctx, query, messageID, transcript); err != nil {
		return fmt.Errorf("ticketing: save transcription: %w", err)
	}
	return nil
}
