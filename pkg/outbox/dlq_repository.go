package outbox

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/enums"
)

const maxDLQErrorLen = 1024

// DLQRepository stores outbox rows the publisher gave up on.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx writes entry in the publisher's transaction so the dead-letter row
// and the terminal mark on the outbox row commit together.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		msg := truncateDLQError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// DLQSummary counts dead-lettered events of one type and reason.
type DLQSummary struct {
	EventType   enums.OutboxEventType      `gorm:"column:event_type"`
	ErrorReason enums.OutboxDLQErrorReason `gorm:"column:error_reason"`
	Count       int64                      `gorm:"column:count"`
}

// SummarizeSince groups DLQ rows that failed at or after since.
func (r *DLQRepository) SummarizeSince(ctx context.Context, since time.Time) ([]DLQSummary, error) {
	var rows []DLQSummary
	err := r.db.WithContext(ctx).
		Model(&models.OutboxDLQ{}).
		Select("event_type, error_reason, COUNT(*) AS count").
		Where("failed_at >= ?", since).
		Group("event_type, error_reason").
		Order("event_type ASC").
		Order("error_reason ASC").
		Scan(&rows).Error
	return rows, err
}

func truncateDLQError(message string) string {
	if len(message) <= maxDLQErrorLen {
		return message
	}
	cut := message[:maxDLQErrorLen]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
