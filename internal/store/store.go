// Package store persists transcripts, words, artifacts, speaker labels,
// user settings and summaries in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"voicenote-transcriber/internal/models"
)

// ErrNotFound is returned when a transcript or related record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id            TEXT PRIMARY KEY,
	owner_id      TEXT NOT NULL,
	title         TEXT NOT NULL,
	status        TEXT NOT NULL,
	source        TEXT NOT NULL,
	duration      INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	full_text     TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL,
	completed_at  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_transcripts_owner ON transcripts(owner_id);

CREATE TABLE IF NOT EXISTS words (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	transcript_id TEXT NOT NULL,
	text          TEXT NOT NULL,
	speaker       INTEGER NOT NULL DEFAULT 0,
	start_time    REAL NOT NULL,
	end_time      REAL NOT NULL,
	is_final      INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_words_transcript ON words(transcript_id);

CREATE TABLE IF NOT EXISTS recordings (
	transcript_id TEXT PRIMARY KEY,
	storage_ref   TEXT NOT NULL,
	format        TEXT NOT NULL,
	size          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS speaker_labels (
	transcript_id  TEXT NOT NULL,
	speaker_number INTEGER NOT NULL,
	label          TEXT NOT NULL,
	PRIMARY KEY (transcript_id, speaker_number)
);

CREATE TABLE IF NOT EXISTS user_settings (
	owner_id         TEXT PRIMARY KEY,
	language         TEXT NOT NULL,
	auto_punctuation INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS summaries (
	transcript_id TEXT PRIMARY KEY,
	overview      TEXT NOT NULL,
	key_points    TEXT NOT NULL,
	action_items  TEXT NOT NULL,
	model         TEXT NOT NULL,
	generated_at  INTEGER NOT NULL
);
`

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// modernc.org/sqlite serializes writes per connection; a single
	// connection avoids SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTranscript creates the backing record for a live recording session.
func (s *Store) CreateTranscript(ctx context.Context, ownerID, title string) (models.Transcript, error) {
	return s.create(ctx, ownerID, title, models.StatusRecording, models.SourceRecording)
}

// CreateFromUpload creates the backing record for a batch file upload.
func (s *Store) CreateFromUpload(ctx context.Context, ownerID, title string) (models.Transcript, error) {
	return s.create(ctx, ownerID, title, models.StatusProcessing, models.SourceUpload)
}

func (s *Store) create(ctx context.Context, ownerID, title string, status models.Status, source models.Source) (models.Transcript, error) {
	tr := models.Transcript{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Status:    status,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (id, owner_id, title, status, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tr.ID, tr.OwnerID, tr.Title, string(tr.Status), string(tr.Source), tr.CreatedAt.Unix())
	if err != nil {
		return models.Transcript{}, fmt.Errorf("insert transcript: %w", err)
	}
	return tr, nil
}

// Transcript returns a single transcript by ID.
func (s *Store) Transcript(ctx context.Context, id string) (models.Transcript, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, status, source, duration, error_message, full_text, created_at, completed_at
		FROM transcripts
		WHERE id = ?
	`, id)
	return scanTranscript(row)
}

// List returns all transcripts for an owner, newest first.
func (s *Store) List(ctx context.Context, ownerID string) ([]models.Transcript, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, status, source, duration, error_message, full_text, created_at, completed_at
		FROM transcripts
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	var out []models.Transcript
	for rows.Next() {
		tr, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTranscript(row scanner) (models.Transcript, error) {
	var tr models.Transcript
	var status, source string
	var createdAt int64
	var completedAt sql.NullInt64

	err := row.Scan(&tr.ID, &tr.OwnerID, &tr.Title, &status, &source,
		&tr.Duration, &tr.ErrorMessage, &tr.FullText, &createdAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Transcript{}, ErrNotFound
		}
		return models.Transcript{}, fmt.Errorf("scan transcript: %w", err)
	}

	tr.Status = models.Status(status)
	tr.Source = models.Source(source)
	tr.CreatedAt = time.Unix(createdAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		tr.CompletedAt = &t
	}
	return tr, nil
}

// AppendWords inserts words for a transcript in the given order. Existing
// words are never touched; insertion order is preserved by the rowid.
func (s *Store) AppendWords(ctx context.Context, transcriptID string, words []models.Word) error {
	if len(words) == 0 {
		return nil
	}
	if _, err := s.Transcript(ctx, transcriptID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO words (transcript_id, text, speaker, start_time, end_time, is_final)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	for _, w := range words {
		if _, err := stmt.ExecContext(ctx, transcriptID, w.Text, w.Speaker, w.StartTime, w.EndTime, boolToInt(w.IsFinal)); err != nil {
			return fmt.Errorf("insert word: %w", err)
		}
	}
	return tx.Commit()
}

// Words returns all words for a transcript sorted by start time ascending.
// Inserts are expected ordered already; the sort is defensive.
func (s *Store) Words(ctx context.Context, transcriptID string) ([]models.Word, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT text, speaker, start_time, end_time, is_final
		FROM words
		WHERE transcript_id = ?
		ORDER BY start_time ASC, id ASC
	`, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()

	var out []models.Word
	for rows.Next() {
		var w models.Word
		var isFinal int
		if err := rows.Scan(&w.Text, &w.Speaker, &w.StartTime, &w.EndTime, &isFinal); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		w.IsFinal = isFinal != 0
		out = append(out, w)
	}
	return out, rows.Err()
}

// WordCount returns the number of stored words for a transcript.
func (s *Store) WordCount(ctx context.Context, transcriptID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM words WHERE transcript_id = ?`, transcriptID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count words: %w", err)
	}
	return n, nil
}

// Complete marks a transcript completed with its final duration and
// denormalizes the full text from its words for search.
func (s *Store) Complete(ctx context.Context, transcriptID string, durationSeconds int) error {
	words, err := s.Words(ctx, transcriptID)
	if err != nil {
		return err
	}
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE transcripts
		SET status = ?, duration = ?, full_text = ?, completed_at = ?, error_message = ''
		WHERE id = ?
	`, string(models.StatusCompleted), durationSeconds, strings.Join(texts, " "), time.Now().UTC().Unix(), transcriptID)
	if err != nil {
		return fmt.Errorf("complete transcript: %w", err)
	}
	return requireRow(res)
}

// MarkError puts a transcript into error status with a message.
func (s *Store) MarkError(ctx context.Context, transcriptID, message string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transcripts SET status = ?, error_message = ? WHERE id = ?
	`, string(models.StatusError), message, transcriptID)
	if err != nil {
		return fmt.Errorf("mark error: %w", err)
	}
	return requireRow(res)
}

// SetStatus updates only the status field.
func (s *Store) SetStatus(ctx context.Context, transcriptID string, status models.Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transcripts SET status = ? WHERE id = ?
	`, string(status), transcriptID)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return requireRow(res)
}

// Delete removes a transcript and everything attached to it.
func (s *Store) Delete(ctx context.Context, transcriptID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM words WHERE transcript_id = ?`,
		`DELETE FROM speaker_labels WHERE transcript_id = ?`,
		`DELETE FROM recordings WHERE transcript_id = ?`,
		`DELETE FROM summaries WHERE transcript_id = ?`,
		`DELETE FROM transcripts WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, transcriptID); err != nil {
			return fmt.Errorf("delete transcript: %w", err)
		}
	}
	return tx.Commit()
}

// SaveArtifact records the persisted audio blob for a transcript.
func (s *Store) SaveArtifact(ctx context.Context, a models.RecordingArtifact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recordings (transcript_id, storage_ref, format, size)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(transcript_id) DO UPDATE SET storage_ref=excluded.storage_ref, format=excluded.format, size=excluded.size
	`, a.TranscriptID, a.StorageRef, a.Format, a.Size)
	if err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	return nil
}

// Artifact returns the recording artifact for a transcript.
func (s *Store) Artifact(ctx context.Context, transcriptID string) (models.RecordingArtifact, error) {
	var a models.RecordingArtifact
	err := s.db.QueryRowContext(ctx, `
		SELECT transcript_id, storage_ref, format, size FROM recordings WHERE transcript_id = ?
	`, transcriptID).Scan(&a.TranscriptID, &a.StorageRef, &a.Format, &a.Size)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RecordingArtifact{}, ErrNotFound
		}
		return models.RecordingArtifact{}, fmt.Errorf("query artifact: %w", err)
	}
	return a, nil
}

// UpsertSpeakerLabel sets the display name for a speaker index.
func (s *Store) UpsertSpeakerLabel(ctx context.Context, transcriptID string, speakerNumber int, label string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO speaker_labels (transcript_id, speaker_number, label)
		VALUES (?, ?, ?)
		ON CONFLICT(transcript_id, speaker_number) DO UPDATE SET label=excluded.label
	`, transcriptID, speakerNumber, label)
	if err != nil {
		return fmt.Errorf("upsert speaker label: %w", err)
	}
	return nil
}

// SpeakerLabels returns all custom speaker names for a transcript.
func (s *Store) SpeakerLabels(ctx context.Context, transcriptID string) ([]models.SpeakerLabel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transcript_id, speaker_number, label
		FROM speaker_labels
		WHERE transcript_id = ?
		ORDER BY speaker_number ASC
	`, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("query speaker labels: %w", err)
	}
	defer rows.Close()

	var out []models.SpeakerLabel
	for rows.Next() {
		var l models.SpeakerLabel
		if err := rows.Scan(&l.TranscriptID, &l.SpeakerNumber, &l.Label); err != nil {
			return nil, fmt.Errorf("scan speaker label: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Settings returns the recognition preferences for an owner, falling back to
// defaults when none are stored.
func (s *Store) Settings(ctx context.Context, ownerID string) (models.UserSettings, error) {
	var st models.UserSettings
	var autoPunct int
	err := s.db.QueryRowContext(ctx, `
		SELECT language, auto_punctuation FROM user_settings WHERE owner_id = ?
	`, ownerID).Scan(&st.Language, &autoPunct)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultSettings(), nil
		}
		return models.UserSettings{}, fmt.Errorf("query settings: %w", err)
	}
	st.AutoPunctuation = autoPunct != 0
	return st, nil
}

// UpsertSettings stores the recognition preferences for an owner.
func (s *Store) UpsertSettings(ctx context.Context, ownerID string, st models.UserSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (owner_id, language, auto_punctuation)
		VALUES (?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET language=excluded.language, auto_punctuation=excluded.auto_punctuation
	`, ownerID, st.Language, boolToInt(st.AutoPunctuation))
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// SaveSummary stores (or replaces) the AI summary for a transcript.
func (s *Store) SaveSummary(ctx context.Context, sum models.Summary) error {
	keyPoints, err := json.Marshal(sum.KeyPoints)
	if err != nil {
		return fmt.Errorf("marshal key points: %w", err)
	}
	actionItems, err := json.Marshal(sum.ActionItems)
	if err != nil {
		return fmt.Errorf("marshal action items: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO summaries (transcript_id, overview, key_points, action_items, model, generated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(transcript_id) DO UPDATE SET
			overview=excluded.overview, key_points=excluded.key_points,
			action_items=excluded.action_items, model=excluded.model, generated_at=excluded.generated_at
	`, sum.TranscriptID, sum.Overview, string(keyPoints), string(actionItems), sum.Model, sum.GeneratedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// Summary returns the stored AI summary for a transcript.
func (s *Store) Summary(ctx context.Context, transcriptID string) (models.Summary, error) {
	var sum models.Summary
	var keyPoints, actionItems string
	var generatedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT transcript_id, overview, key_points, action_items, model, generated_at
		FROM summaries WHERE transcript_id = ?
	`, transcriptID).Scan(&sum.TranscriptID, &sum.Overview, &keyPoints, &actionItems, &sum.Model, &generatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Summary{}, ErrNotFound
		}
		return models.Summary{}, fmt.Errorf("query summary: %w", err)
	}
	if err := json.Unmarshal([]byte(keyPoints), &sum.KeyPoints); err != nil {
		return models.Summary{}, fmt.Errorf("unmarshal key points: %w", err)
	}
	if err := json.Unmarshal([]byte(actionItems), &sum.ActionItems); err != nil {
		return models.Summary{}, fmt.Errorf("unmarshal action items: %w", err)
	}
	sum.GeneratedAt = time.Unix(generatedAt, 0).UTC()
	return sum, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
