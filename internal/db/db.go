package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"conversational-rag/internal/config"
	"conversational-rag/internal/models"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	_ "modernc.org/sqlite"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	UserID        string    `bun:"user_id,pk" json:"user_id"`
	Name          string    `bun:"name,notnull" json:"name"`
	Email         string    `bun:"email,notnull" json:"email"`
	Company       *string   `bun:"company" json:"company,omitempty"`
	Preferences   *string   `bun:"preferences" json:"preferences,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Conversation is one chat turn. Rows are only ever inserted.
type Conversation struct {
	bun.BaseModel `bun:"table:conversations,alias:c"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	Message       string    `bun:"message,notnull" json:"message"`
	Response      string    `bun:"response,notnull" json:"response"`
	Context       string    `bun:"context,notnull" json:"context"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// ConnectDB opens the database selected by cfg.Driver and wraps it in bun.
func ConnectDB(cfg *config.DatabaseConfig) (*bun.DB, error) {
	var db *bun.DB
	switch cfg.Driver {
	case "pgdriver", "":
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN), pgdriver.WithPassword(cfg.Password)))
		db = bun.NewDB(sqldb, pgdialect.New())
	case "pq":
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	case "sqlite":
		sqldb, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		// in-memory databases are per connection
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("unknown database driver: %q", cfg.Driver)
	}

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db, nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*User)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*Conversation)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create conversations table: %w", err)
	}
	_, err := db.NewCreateIndex().
		Model((*Conversation)(nil)).
		Index("conversations_user_id_idx").
		Column("user_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create conversations index: %w", err)
	}
	return nil
}

// Store is the conversation log and user directory.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser inserts u. An existing row with the same id is left untouched
// and ErrAlreadyExists is returned.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	now := s.now()
	u.CreatedAt = now
	u.UpdatedAt = now

	res, err := s.db.NewInsert().
		Model(u).
		On("CONFLICT (user_id) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", u.UserID, models.ErrAlreadyExists)
	}
	return nil
}

// UpdateUser replaces the mutable fields of the user identified by u.UserID.
// CreatedAt is reloaded from the stored row.
func (s *Store) UpdateUser(ctx context.Context, u *User) error {
	u.UpdatedAt = s.now()

	res, err := s.db.NewUpdate().
		Model(u).
		Column("name", "email", "company", "preferences", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", u.UserID, models.ErrNotFound)
	}

	stored, err := s.GetUser(ctx, u.UserID)
	if err != nil {
		return err
	}
	*u = *stored
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (*User, error) {
	u := &User{UserID: userID}
	if err := s.db.NewSelect().Model(u).WherePK().Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// AppendConversation inserts c and sets its ID. CreatedAt defaults to now.
func (s *Store) AppendConversation(ctx context.Context, c *Conversation) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if _, err := s.db.NewInsert().Model(c).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

func (s *Store) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	c := &Conversation{ID: id}
	if err := s.db.NewSelect().Model(c).WherePK().Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return c, nil
}

// ListConversations returns the user's turns, newest first. limit <= 0
// returns all of them.
func (s *Store) ListConversations(ctx context.Context, userID string, limit int) ([]Conversation, error) {
	convs := make([]Conversation, 0)
	q := s.db.NewSelect().
		Model(&convs).
		Where("user_id = ?", userID).
		OrderExpr("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}
