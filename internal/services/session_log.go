package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/manike-backend/internal/data/repos"
	types "github.com/yungbote/manike-backend/internal/domain/trip"
	"github.com/yungbote/manike-backend/internal/modules/conversation"
	"github.com/yungbote/manike-backend/internal/pkg/dbctx"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

// maxReplayMessages bounds the transcript replayed into a rebuilt session to its newest turns.
const maxReplayMessages = 2000

type sessionLog struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions repos.ChatSessionRepo
	messages repos.ChatMessageRepo
}

// NewSessionLog backs the conversation SessionStore with the chat_session and chat_message tables.
func NewSessionLog(db *gorm.DB, baseLog *logger.Logger, sessions repos.ChatSessionRepo, messages repos.ChatMessageRepo) conversation.DurableLog {
	return &sessionLog{
		db:       db,
		log:      baseLog.With("service", "SessionLog"),
		sessions: sessions,
		messages: messages,
	}
}

func (l *sessionLog) CreateSession(ctx context.Context, owner conversation.Owner, snapshot []byte, greeting string) (uuid.UUID, error) {
	if owner.TenantID == uuid.Nil || owner.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("missing tenant_id or user_id")
	}
	row := &types.ChatSession{
		TenantID:     owner.TenantID,
		UserID:       owner.UserID,
		Title:        types.DefaultSessionTitle,
		Requirements: datatypes.JSON(snapshot),
	}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := l.sessions.Create(dbc, []*types.ChatSession{row}); err != nil {
			return err
		}
		if strings.TrimSpace(greeting) == "" {
			return nil
		}
		_, err := l.messages.Append(dbc, row.ID, []*types.ChatMessage{{
			TenantID: owner.TenantID,
			Role:     types.RoleAssistant,
			Content:  greeting,
		}})
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}

func (l *sessionLog) LoadSession(ctx context.Context, id uuid.UUID) (*conversation.StoredSession, error) {
	dbc := dbctx.Context{Ctx: ctx}
	row, err := l.sessions.GetByID(dbc, id)
	if err != nil || row == nil {
		return nil, err
	}
	msgs, err := l.messages.ListBySession(dbc, id, maxReplayMessages)
	if err != nil {
		return nil, err
	}
	out := &conversation.StoredSession{
		ID:       row.ID,
		Owner:    conversation.Owner{TenantID: row.TenantID, UserID: row.UserID},
		Snapshot: []byte(row.Requirements),
		Messages: make([]conversation.Message, 0, len(msgs)),
	}
	for _, m := range msgs {
		out.Messages = append(out.Messages, conversation.Message{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

func (l *sessionLog) AppendExchange(ctx context.Context, id uuid.UUID, user, assistant string, snapshot []byte, destination string) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		row, err := l.sessions.LockByID(dbc, id)
		if err != nil {
			return err
		}
		if _, err := l.messages.Append(dbc, id, []*types.ChatMessage{
			{TenantID: row.TenantID, Role: types.RoleUser, Content: user},
			{TenantID: row.TenantID, Role: types.RoleAssistant, Content: assistant},
		}); err != nil {
			return err
		}
		updates := map[string]interface{}{"requirements_json": datatypes.JSON(snapshot)}
		if dest := strings.TrimSpace(destination); dest != "" && row.Title == types.DefaultSessionTitle {
			updates["title"] = dest
		}
		return l.sessions.UpdateFields(dbc, id, updates)
	})
}

func (l *sessionLog) SaveSnapshot(ctx context.Context, id uuid.UUID, snapshot []byte) error {
	return l.sessions.UpdateFields(dbctx.Context{Ctx: ctx}, id, map[string]interface{}{
		"requirements_json": datatypes.JSON(snapshot),
	})
}
