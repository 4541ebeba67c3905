package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"chatline/internal/domain"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{db: db}
	if err := p.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return p, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			key TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT UNIQUE NOT NULL,
			conversation_key TEXT NOT NULL REFERENCES conversations(key),
			sender_id TEXT NOT NULL,
			receiver_id TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			file_url TEXT,
			file_name TEXT,
			file_type TEXT,
			sent_at TIMESTAMPTZ NOT NULL,
			read BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_key, seq)`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) AppendMessage(ctx context.Context, msg *domain.Message) error {
	if _, err := p.db.ExecContext(ctx,
		`INSERT INTO conversations (key) VALUES ($1) ON CONFLICT DO NOTHING`,
		msg.ConversationKey,
	); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	var fileURL, fileName, fileType sql.NullString
	if msg.File != nil {
		fileURL = sql.NullString{String: msg.File.URL, Valid: true}
		fileName = sql.NullString{String: msg.File.Name, Valid: true}
		fileType = sql.NullString{String: msg.File.Type, Valid: true}
	}

	if _, err := p.db.ExecContext(ctx, `
		INSERT INTO messages (
			id, conversation_key, sender_id, receiver_id,
			content, file_url, file_name, file_type, sent_at, read
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		msg.ID,
		msg.ConversationKey,
		msg.SenderID,
		msg.ReceiverID,
		msg.Content,
		fileURL,
		fileName,
		fileType,
		msg.SentAt,
		msg.Read,
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return nil
}

func (p *Postgres) History(ctx context.Context, key string) ([]domain.Message, error) {
	// First fetch creates the empty conversation record. Deliberate contract
	// choice inherited from the REST history endpoint.
	if _, err := p.db.ExecContext(ctx,
		`INSERT INTO conversations (key) VALUES ($1) ON CONFLICT DO NOTHING`, key,
	); err != nil {
		return nil, fmt.Errorf("upsert conversation: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, content,
		       file_url, file_name, file_type, sent_at, read
		FROM messages
		WHERE conversation_key = $1
		ORDER BY seq ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		var fileURL, fileName, fileType sql.NullString
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.ReceiverID, &m.Content,
			&fileURL, &fileName, &fileType, &m.SentAt, &m.Read,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.ConversationKey = key
		if fileURL.Valid || fileName.Valid || fileType.Valid {
			m.File = &domain.Attachment{
				URL:  fileURL.String,
				Name: fileName.String,
				Type: fileType.String,
			}
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (p *Postgres) CreateUser(ctx context.Context, u *domain.User, passwordHash string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash) VALUES ($1,$2,$3,$4)`,
		u.ID, u.Username, u.Email, passwordHash,
	)
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return domain.ErrUserExists
		}
		return err
	}
	return nil
}

func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (*domain.User, string, error) {
	var u domain.User
	var hash string
	err := p.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username=$1`,
		username,
	).Scan(&u.ID, &u.Username, &u.Email, &hash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, "", domain.ErrUserNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return &u, hash, nil
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := p.db.QueryRowContext(ctx,
		`SELECT id, username, email, created_at FROM users WHERE id=$1`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (p *Postgres) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email=$1)`, email,
	).Scan(&exists)
	return exists, err
}

func (p *Postgres) SearchUsers(ctx context.Context, query string) ([]domain.User, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, username, email, created_at FROM users WHERE username ILIKE '%' || $1 || '%'`,
		query,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (p *Postgres) ListUsersExcept(ctx context.Context, id string) ([]domain.User, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, username, email, created_at FROM users WHERE id <> $1`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (p *Postgres) ChatPartners(ctx context.Context, id string) ([]domain.User, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END
		FROM messages
		WHERE sender_id = $1 OR receiver_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var partnerID string
		if err := rows.Scan(&partnerID); err != nil {
			return nil, err
		}
		ids = append(ids, partnerID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.User{}, nil
	}

	urows, err := p.db.QueryContext(ctx,
		`SELECT id, username, email, created_at FROM users WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}
	defer urows.Close()
	return scanUsers(urows)
}

func scanUsers(rows *sql.Rows) ([]domain.User, error) {
	users := []domain.User{}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
