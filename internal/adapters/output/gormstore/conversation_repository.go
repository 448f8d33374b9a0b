package gormstore

import (
	"context"
	"time"

	"support-desk/internal/domain"
	"support-desk/internal/ports/output"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Compile-time check to ensure ConversationRepository implements the output port
var _ output.ConversationStore = (*ConversationRepository)(nil)

// ConversationRepository struct - Secondary/Driven adapter for SQL databases through GORM.
// Works with the postgres and sqlite dialectors.
type ConversationRepository struct {
	dbGorm *gorm.DB
	now    func() time.Time
}

// NewConversationRepository func - Migrates the schema and creates the repository
func NewConversationRepository(dbGorm *gorm.DB) (*ConversationRepository, error) {
	logrus.Info("Migrate database ...")
	if err := domain.MigrateDatabase(dbGorm); err != nil {
		logrus.Errorln(err)
		return nil, &domain.StorageError{Op: "migrate", Err: err}
	}
	return &ConversationRepository{
		dbGorm: dbGorm,
		now:    time.Now,
	}, nil
}

// timestamp is always UTC; SQLite stores times as text and orders them as strings
func (p *ConversationRepository) timestamp() time.Time {
	return p.now().UTC()
}

// AppendTurn func - Inserts a turn and returns the generated id
func (p *ConversationRepository) AppendTurn(ctx context.Context, sessionID string, role domain.Role, content string) (domain.TurnID, error) {
	if !role.Valid() {
		return 0, &domain.ValidationError{Field: "role", Reason: "must be user or assistant"}
	}
	turn := domain.Turn{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: p.timestamp(),
	}
	if err := p.dbGorm.WithContext(ctx).Create(&turn).Error; err != nil {
		logrus.Errorln(err)
		return 0, &domain.StorageError{Op: "append turn", Err: err}
	}
	return turn.ID, nil
}

// History func - Reads turns of a session in chronological order
func (p *ConversationRepository) History(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	var turns []domain.Turn
	tx := p.dbGorm.WithContext(ctx).Where("session_id = ?", sessionID)
	if limit > 0 {
		tx = tx.Order("created_at DESC").Order("id DESC").Limit(limit)
	} else {
		tx = tx.Order("created_at ASC").Order("id ASC")
	}
	if err := tx.Find(&turns).Error; err != nil {
		logrus.Errorln(err)
		return nil, &domain.StorageError{Op: "history", Err: err}
	}

	if limit > 0 {
		for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
			turns[i], turns[j] = turns[j], turns[i]
		}
	}
	return turns, nil
}

// TouchSession func - Inserts the session or refreshes its updated_at
func (p *ConversationRepository) TouchSession(ctx context.Context, sessionID string) error {
	if err := p.upsertSession(ctx, sessionID); err != nil {
		logrus.Errorln(err)
		return &domain.StorageError{Op: "touch session", Err: err}
	}
	return nil
}

// CreateSession func - Upserts the session and reads back the stored row
func (p *ConversationRepository) CreateSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if err := p.upsertSession(ctx, sessionID); err != nil {
		logrus.Errorln(err)
		return nil, &domain.StorageError{Op: "create session", Err: err}
	}
	var session domain.Session
	if err := p.dbGorm.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error; err != nil {
		logrus.Errorln(err)
		return nil, &domain.StorageError{Op: "create session", Err: err}
	}
	return &session, nil
}

// created_at is only written by the insert branch
func (p *ConversationRepository) upsertSession(ctx context.Context, sessionID string) error {
	now := p.timestamp()
	session := domain.Session{
		ID:        sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return p.dbGorm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
	}).Create(&session).Error
}

// ListSessions func - Lists sessions by most recent activity
func (p *ConversationRepository) ListSessions(ctx context.Context) ([]domain.Session, error) {
	sessions := []domain.Session{}
	if err := p.dbGorm.WithContext(ctx).Order("updated_at DESC").Order("id ASC").Find(&sessions).Error; err != nil {
		logrus.Errorln(err)
		return nil, &domain.StorageError{Op: "list sessions", Err: err}
	}
	return sessions, nil
}

// Ping func - Checks the underlying connection pool
func (p *ConversationRepository) Ping(ctx context.Context) error {
	sqlDB, err := p.dbGorm.DB()
	if err != nil {
		return &domain.StorageError{Op: "ping", Err: err}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return &domain.StorageError{Op: "ping", Err: err}
	}
	return nil
}
