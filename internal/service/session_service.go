package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"GameHub/internal/model"
	"GameHub/internal/repository/db"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultSessionRetries = 5

type SessionService struct {
	repo     *db.SessionRepository
	games    *db.GameRepository
	maxRetry int
}

type SessionInput struct {
	GameID        uint64
	Title         string
	Description   string
	MaxPlayers    int
	ScheduledTime time.Time
}

type SessionPatch struct {
	Title         *string
	Description   *string
	MaxPlayers    *int
	ScheduledTime *time.Time
}

func NewSessionService(conn *gorm.DB) *SessionService {
	return &SessionService{
		repo:     &db.SessionRepository{DB: conn},
		games:    &db.GameRepository{DB: conn},
		maxRetry: defaultSessionRetries,
	}
}

func validateSessionTitle(title string) error {
	if utf8.RuneCountInString(strings.TrimSpace(title)) < 5 {
		return invalid("Title must be at least 5 characters")
	}
	return nil
}

func validateSessionDescription(desc string) error {
	if utf8.RuneCountInString(strings.TrimSpace(desc)) < 10 {
		return invalid("Description must be at least 10 characters")
	}
	return nil
}

func validateMaxPlayers(n int) error {
	if n < model.MinSessionPlayers || n > model.MaxSessionPlayers {
		return invalid("Max players must be between 2 and 100")
	}
	return nil
}

func (s *SessionService) Create(ctx context.Context, who Identity, in SessionInput) (*model.Session, error) {
	if in.GameID == 0 {
		return nil, invalid("Please select a game")
	}
	for _, err := range []error{
		validateSessionTitle(in.Title),
		validateSessionDescription(in.Description),
		validateMaxPlayers(in.MaxPlayers),
	} {
		if err != nil {
			return nil, err
		}
	}
	if in.ScheduledTime.IsZero() {
		return nil, invalid("Scheduled time is required")
	}
	game, err := s.games.FindByID(ctx, in.GameID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}

	sess := &model.Session{
		GameID:         game.ID,
		GameTitle:      game.Title,
		HostID:         who.UserID,
		HostEmail:      who.Email,
		Title:          strings.TrimSpace(in.Title),
		Description:    strings.TrimSpace(in.Description),
		MaxPlayers:     in.MaxPlayers,
		CurrentPlayers: datatypes.JSONSlice[uint64]{who.UserID},
		ScheduledTime:  in.ScheduledTime.UTC(),
		Status:         model.SessionOpen,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SessionService) List(ctx context.Context) ([]model.Session, error) {
	return s.repo.List(ctx)
}

// ListOpen 只返回 open 状态，按开始时间升序
func (s *SessionService) ListOpen(ctx context.Context) ([]model.Session, error) {
	return s.repo.ListOpen(ctx)
}

func (s *SessionService) Get(ctx context.Context, id uint64) (*model.Session, error) {
	sess, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SessionService) ListByGame(ctx context.Context, gameID uint64) ([]model.Session, error) {
	return s.repo.ListByGame(ctx, gameID)
}

func (s *SessionService) ListByHost(ctx context.Context, hostID uint64) ([]model.Session, error) {
	return s.repo.ListByHost(ctx, hostID)
}

// Join 人满后状态变为 full，否则状态不变
func (s *SessionService) Join(ctx context.Context, who Identity, id uint64) (*model.Session, error) {
	return s.apply(ctx, id, who.UserID, model.EventSessionJoined, func(sess *model.Session) error {
		if sess.HasPlayer(who.UserID) {
			return ErrAlreadyJoined
		}
		if sess.IsFull() {
			return ErrSessionFull
		}
		sess.CurrentPlayers = append(slices.Clone(sess.CurrentPlayers), who.UserID)
		if sess.IsFull() {
			sess.Status = model.SessionFull
		}
		return nil
	})
}

// Leave 离开后状态总是回到 open，已关闭的会话也会重新打开
func (s *SessionService) Leave(ctx context.Context, who Identity, id uint64) (*model.Session, error) {
	return s.apply(ctx, id, who.UserID, model.EventSessionLeft, func(sess *model.Session) error {
		idx := slices.Index(sess.CurrentPlayers, who.UserID)
		if idx < 0 {
			return ErrNotInSession
		}
		sess.CurrentPlayers = slices.Delete(slices.Clone(sess.CurrentPlayers), idx, idx+1)
		sess.Status = model.SessionOpen
		return nil
	})
}

// Update 主持人或管理员可编辑；人数上限不能低于当前人数
func (s *SessionService) Update(ctx context.Context, who Identity, id uint64, patch SessionPatch) (*model.Session, error) {
	if patch.Title != nil {
		if err := validateSessionTitle(*patch.Title); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		if err := validateSessionDescription(*patch.Description); err != nil {
			return nil, err
		}
	}
	if patch.MaxPlayers != nil {
		if err := validateMaxPlayers(*patch.MaxPlayers); err != nil {
			return nil, err
		}
	}
	if patch.ScheduledTime != nil && patch.ScheduledTime.IsZero() {
		return nil, invalid("Scheduled time is required")
	}

	return s.apply(ctx, id, who.UserID, "", func(sess *model.Session) error {
		if sess.HostID != who.UserID && !who.IsAdmin() {
			return ErrForbidden
		}
		if patch.Title != nil {
			sess.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			sess.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.ScheduledTime != nil {
			sess.ScheduledTime = patch.ScheduledTime.UTC()
		}
		if patch.MaxPlayers != nil {
			if *patch.MaxPlayers < len(sess.CurrentPlayers) {
				return invalid("Max players cannot be lower than the current number of players")
			}
			sess.MaxPlayers = *patch.MaxPlayers
			if sess.Status != model.SessionClosed {
				if sess.IsFull() {
					sess.Status = model.SessionFull
				} else {
					sess.Status = model.SessionOpen
				}
			}
		}
		return nil
	})
}

func (s *SessionService) Close(ctx context.Context, who Identity, id uint64) error {
	affected, err := s.repo.CloseWithPermission(ctx, id, who.UserID, who.IsAdmin())
	if err != nil {
		return err
	}
	if affected == 0 {
		return s.missingOrForbidden(ctx, id)
	}
	return nil
}

func (s *SessionService) Delete(ctx context.Context, who Identity, id uint64) error {
	affected, err := s.repo.DeleteWithPermission(ctx, id, who.UserID, who.IsAdmin())
	if err != nil {
		return err
	}
	if affected == 0 {
		return s.missingOrForbidden(ctx, id)
	}
	return nil
}

func (s *SessionService) missingOrForbidden(ctx context.Context, id uint64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrForbidden
}

// apply 版本冲突时整体重试，超过次数返回 ErrConcurrentUpdate
func (s *SessionService) apply(ctx context.Context, id, actorID uint64, event string, mutate db.SessionMutation) (*model.Session, error) {
	for attempt := 0; attempt < s.maxRetry; attempt++ {
		sess, err := s.repo.UpdateVersioned(ctx, id, actorID, event, mutate)
		switch {
		case err == nil:
			return sess, nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrSessionNotFound
		case errors.Is(err, db.ErrVersionConflict):
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		default:
			return nil, err
		}
	}
	return nil, ErrConcurrentUpdate
}
