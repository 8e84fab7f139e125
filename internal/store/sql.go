package store

import (
	"context"
	"fmt"
	"time"

	"foodsaver/internal/models"

	"github.com/jinzhu/gorm"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// stateDocument is the row holding one serialized state document
type stateDocument struct {
	DocKey    string `gorm:"primary_key;column:doc_key;size:64"`
	Body      string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (stateDocument) TableName() string {
	return "state_documents"
}

// SQLStore keeps the state document in a SQL table through gorm
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore opens a gorm connection. dialect is "sqlite3" or "postgres".
func NewSQLStore(dialect, dsn string) (*SQLStore, error) {
	if dialect == "" {
		dialect = "sqlite3"
	}
	if dsn == "" {
		return nil, fmt.Errorf("sql store requires a dsn")
	}

	db, err := gorm.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}

	if err := db.AutoMigrate(&stateDocument{}).Error; err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate state table: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// Load reads the state document
func (s *SQLStore) Load(ctx context.Context) (*models.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc stateDocument
	err := s.db.Where("doc_key = ?", StateKey).First(&doc).Error
	if gorm.IsRecordNotFoundError(err) {
		return models.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	return Decode([]byte(doc.Body))
}

// Save replaces the state document
func (s *SQLStore) Save(ctx context.Context, state *models.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(state)
	if err != nil {
		return err
	}

	doc := stateDocument{DocKey: StateKey, Body: string(data)}
	if err := s.db.Save(&doc).Error; err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// Close closes the connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}
