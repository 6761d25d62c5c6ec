package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

type ConversationMessageRepo interface {
	Create(dbc dbctx.Context, rows []*types.ConversationMessage) ([]*types.ConversationMessage, error)
	// ListRecent returns the newest limit messages, oldest first.
	ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ConversationMessage, error)
	SoftDeleteByUserID(dbc dbctx.Context, userID uuid.UUID, at time.Time) (int64, error)
}

type conversationMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationMessageRepo(db *gorm.DB, baseLog *logger.Logger) ConversationMessageRepo {
	return &conversationMessageRepo{db: db, log: baseLog.With("repo", "ConversationMessageRepo")}
}

func (r *conversationMessageRepo) Create(dbc dbctx.Context, rows []*types.ConversationMessage) ([]*types.ConversationMessage, error) {
	if len(rows) == 0 {
		return []*types.ConversationMessage{}, nil
	}
	for _, m := range rows {
		if m == nil || m.UserID == uuid.Nil {
			return nil, fmt.Errorf("missing user_id")
		}
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *conversationMessageRepo) ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ConversationMessage, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if limit <= 0 {
		limit = 10
	}
	var out []*types.ConversationMessage
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("role ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *conversationMessageRepo) SoftDeleteByUserID(dbc dbctx.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := dbc.DB(r.db).
		Model(&types.ConversationMessage{}).
		Where("user_id = ?", userID).
		UpdateColumns(map[string]any{"deleted_at": at, "updated_at": at})
	return res.RowsAffected, res.Error
}
