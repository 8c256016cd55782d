// Package store enforces the answer and reaction invariants on top of the
// database: one answer per session per hour, one reaction per session per
// answer with replace-on-repeat, and on-demand score computation.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agorhour/agorhour/internal/avatar"
	"github.com/agorhour/agorhour/internal/meter"
	"github.com/agorhour/agorhour/internal/models"
)

// Expected, recoverable conditions. Handlers translate these to status
// codes; anything else is a store failure for the current request.
var (
	ErrDuplicateAnswer = errors.New("session already answered this hour")
	ErrStanceRequired  = errors.New("stance required for this hour")
	ErrNeedsExpose     = errors.New("red text requires explicit expose confirmation")
	ErrInvalidKind     = errors.New("reaction kind must be LIKE or UNLIKE")
	ErrAnswerNotFound  = errors.New("answer not found")
	ErrEmptyText       = errors.New("answer text is required")
)

// Store is the answer/reaction accessor.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateSession inserts a new anonymous session with the given avatar seed.
func (s *Store) CreateSession(ctx context.Context, seed int) (*models.AnonSession, error) {
	sess := models.AnonSession{AvatarSeed: seed}
	if err := s.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return nil, err
	}
	return &sess, nil
}

// PostAnswer validates, moderates, and stores one answer for the given hour.
// The returned meter level is valid whenever the answer is, and also on
// ErrNeedsExpose so callers can echo it back.
func (s *Store) PostAnswer(ctx context.Context, hour *models.HourQuestion, sessionID uuid.UUID, text, stance string, forceExpose bool) (*models.Answer, meter.Level, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, meter.Red, ErrEmptyText
	}

	var existing models.Answer
	err := s.db.WithContext(ctx).
		Where("hour_id = ? AND session_id = ?", hour.ID, sessionID).
		First(&existing).Error
	if err == nil {
		return nil, "", ErrDuplicateAnswer
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	if !hour.OpenMode && stance != models.StanceAgree && stance != models.StanceDisagree {
		return nil, "", ErrStanceRequired
	}

	level := meter.Classify(text)
	if level == meter.Red && !forceExpose {
		return nil, level, ErrNeedsExpose
	}

	ans := models.Answer{
		HourID:    hour.ID,
		SessionID: sessionID,
		Text:      text,
		Exposed:   level == meter.Red && forceExpose,
	}
	if stance == models.StanceAgree || stance == models.StanceDisagree {
		ans.Stance = &stance
	}
	if err := s.db.WithContext(ctx).Create(&ans).Error; err != nil {
		// The unique index catches submits that raced past the pre-check.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", ErrDuplicateAnswer
		}
		return nil, "", err
	}
	return &ans, level, nil
}

// React records kind for (answerID, sessionID), replacing any prior reaction
// from the same session on the same answer, and returns the fresh score.
func (s *Store) React(ctx context.Context, answerID, sessionID uuid.UUID, kind string) (int, error) {
	if kind != models.ReactionLike && kind != models.ReactionUnlike {
		return 0, ErrInvalidKind
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ans models.Answer
		if err := tx.Select("id").First(&ans, "id = ?", answerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAnswerNotFound
			}
			return err
		}
		if err := tx.Where("answer_id = ? AND session_id = ?", answerID, sessionID).
			Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.Reaction{
			AnswerID:  answerID,
			SessionID: sessionID,
			Kind:      kind,
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return s.Score(ctx, answerID)
}

// Score is count(LIKE) − count(UNLIKE), recomputed on every call.
func (s *Store) Score(ctx context.Context, answerID uuid.UUID) (int, error) {
	var likes, unlikes int64
	if err := s.db.WithContext(ctx).Model(&models.Reaction{}).
		Where("answer_id = ? AND kind = ?", answerID, models.ReactionLike).
		Count(&likes).Error; err != nil {
		return 0, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Reaction{}).
		Where("answer_id = ? AND kind = ?", answerID, models.ReactionUnlike).
		Count(&unlikes).Error; err != nil {
		return 0, err
	}
	return int(likes - unlikes), nil
}

// AnswerView is an answer decorated for the feed: score attached, avatar
// withheld when the author chose exposure.
type AnswerView struct {
	models.Answer
	Score        int            `json:"score"`
	Avatar       *avatar.Avatar `json:"avatar"`
	ExposedBadge bool           `json:"exposed_badge"`
}

// AnswersForHour lists the hour's answers in first-seen order with scores
// and avatars resolved.
func (s *Store) AnswersForHour(ctx context.Context, hourID uuid.UUID) ([]AnswerView, error) {
	var answers []models.Answer
	if err := s.db.WithContext(ctx).Preload("Session").
		Where("hour_id = ?", hourID).
		Order("created_at").
		Find(&answers).Error; err != nil {
		return nil, err
	}

	views := make([]AnswerView, 0, len(answers))
	for _, a := range answers {
		sc, err := s.Score(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		v := AnswerView{Answer: a, Score: sc, ExposedBadge: a.Exposed}
		if !a.Exposed {
			av := avatar.FromSeed(a.Session.AvatarSeed)
			v.Avatar = &av
		}
		views = append(views, v)
	}
	return views, nil
}

// TopAnswer holds the feed's current winner.
type TopAnswer struct {
	AnswerID uuid.UUID `json:"answer_id"`
	Text     string    `json:"text"`
	Score    int       `json:"score"`
}

// Top returns the hour's highest-scoring answer, or nil when the hour has
// none. Ties go to the earliest answer: the scan walks first-seen order and
// only a strictly higher score displaces the current best.
func (s *Store) Top(ctx context.Context, hourID uuid.UUID) (*TopAnswer, error) {
	var answers []models.Answer
	if err := s.db.WithContext(ctx).
		Where("hour_id = ?", hourID).
		Order("created_at").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return nil, nil
	}

	var best *TopAnswer
	for _, a := range answers {
		sc, err := s.Score(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		if best == nil || sc > best.Score {
			best = &TopAnswer{AnswerID: a.ID, Text: a.Text, Score: sc}
		}
	}
	return best, nil
}
