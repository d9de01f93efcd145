package gormstore

import (
	"time"

	"github.com/hupe1980/roundtable/core"
)

type conversationRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Topic     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (conversationRow) TableName() string {
	return "conversations"
}

type messageRow struct {
	ID             string    `gorm:"primaryKey;size:36"`
	ConversationID string    `gorm:"size:64;not null;uniqueIndex:idx_messages_conversation_position,priority:1"`
	Position       int       `gorm:"not null;uniqueIndex:idx_messages_conversation_position,priority:2"`
	Turn           int       `gorm:"not null"`
	AI             string    `gorm:"column:ai;size:64;not null"`
	Message        string    `gorm:"type:text;not null"`
	Timestamp      time.Time `gorm:"not null"`
}

func (messageRow) TableName() string {
	return "messages"
}

func (r messageRow) toRecord() core.TurnRecord {
	return core.TurnRecord{
		AI:        r.AI,
		Message:   r.Message,
		Turn:      r.Turn,
		Timestamp: r.Timestamp,
	}
}

func (r conversationRow) toRecord(rows []messageRow) core.ConversationRecord {
	msgs := make(core.Transcript, len(rows))
	for i, row := range rows {
		msgs[i] = row.toRecord()
	}
	return core.ConversationRecord{
		ID:        r.ID,
		Topic:     r.Topic,
		Messages:  msgs,
		CreatedAt: r.CreatedAt,
	}
}
