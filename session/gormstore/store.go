// Package gormstore persists conversations in a SQL database through gorm.
// SQLite (pure Go) and PostgreSQL are supported.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hupe1980/roundtable/core"
)

// Backend stores conversations in two tables: conversations and their
// ordered messages.
type Backend struct {
	db *gorm.DB
}

// New opens the database and migrates the schema.
func New(driver, dsn string) (*Backend, error) {
	db, err := OpenGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open gorm store: %w", err)
	}
	return NewFromDB(db)
}

// NewFromDB wraps an open database and migrates the schema.
func NewFromDB(db *gorm.DB) (*Backend, error) {
	b := &Backend{db: db}
	if err := b.db.AutoMigrate(&conversationRow{}, &messageRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return b, nil
}

// Get loads a conversation with its messages in order.
func (b *Backend) Get(ctx context.Context, id string) (core.ConversationRecord, error) {
	var row conversationRow
	err := b.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.ConversationRecord{}, core.ErrNotFound
		}
		return core.ConversationRecord{}, fmt.Errorf("get conversation: %w", err)
	}

	msgs, err := b.messages(ctx, id)
	if err != nil {
		return core.ConversationRecord{}, err
	}
	return row.toRecord(msgs), nil
}

// Put replaces a conversation and all of its messages in one transaction.
func (b *Backend) Put(ctx context.Context, rec core.ConversationRecord) error {
	now := time.Now().UTC()
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := conversationRow{
			ID:        rec.ID,
			Topic:     rec.Topic,
			CreatedAt: rec.CreatedAt.UTC(),
			UpdatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"topic", "created_at", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("upsert conversation: %w", err)
		}

		if err := tx.Where("conversation_id = ?", rec.ID).Delete(&messageRow{}).Error; err != nil {
			return fmt.Errorf("clear messages: %w", err)
		}
		if len(rec.Messages) == 0 {
			return nil
		}

		rows := make([]messageRow, len(rec.Messages))
		for i, m := range rec.Messages {
			rows[i] = messageRow{
				ID:             uuid.NewString(),
				ConversationID: rec.ID,
				Position:       i,
				Turn:           m.Turn,
				AI:             m.AI,
				Message:        m.Message,
				Timestamp:      m.Timestamp.UTC(),
			}
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return fmt.Errorf("insert messages: %w", err)
		}
		return nil
	})
}

// List loads every conversation with its messages.
func (b *Backend) List(ctx context.Context) ([]core.ConversationRecord, error) {
	var rows []conversationRow
	if err := b.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	out := make([]core.ConversationRecord, 0, len(rows))
	for _, row := range rows {
		msgs, err := b.messages(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, row.toRecord(msgs))
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}

func (b *Backend) messages(ctx context.Context, id string) ([]messageRow, error) {
	var rows []messageRow
	err := b.db.WithContext(ctx).
		Where("conversation_id = ?", id).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	return rows, nil
}
