package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stance values an answer may take when the hour is not in open mode.
const (
	StanceAgree    = "AGREE"
	StanceDisagree = "DISAGREE"
)

// Reaction kinds.
const (
	ReactionLike   = "LIKE"
	ReactionUnlike = "UNLIKE"
)

// HourQuestion is the single debate question for one UTC hour bucket.
// Rows are created lazily on first access within a bucket and removed by the
// purge sweep once the hour (plus a short grace period) has passed.
type HourQuestion struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	HourKey   string    `gorm:"size:10;uniqueIndex;not null" json:"hour_key"` // UTC YYYYMMDDHH
	Text      string    `gorm:"size:140;not null" json:"text"`
	OpenMode  bool      `gorm:"not null;default:true" json:"open_mode"` // stance optional when true
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	Answers   []Answer  `gorm:"foreignKey:HourID;constraint:OnDelete:CASCADE" json:"-"`
}

func (h *HourQuestion) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// AnonSession is an anonymous visitor identity. Sessions are referenced by
// answers and reactions but never owned by an hour: they survive the purge.
type AnonSession struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	AvatarSeed int       `gorm:"not null" json:"avatar_seed"`
}

func (s *AnonSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Answer is one session's answer to one hour's question. The unique index on
// (hour_id, session_id) backs the one-answer-per-session rule at the
// constraint level, so concurrent submits cannot slip past the handler check.
type Answer struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	HourID    uuid.UUID   `gorm:"type:uuid;not null;index;uniqueIndex:idx_answers_hour_session" json:"hour_id"`
	SessionID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_answers_hour_session" json:"session_id"`
	Stance    *string     `gorm:"size:8" json:"stance"` // AGREE / DISAGREE, nil in open mode
	Text      string      `gorm:"size:120;not null" json:"text"`
	Exposed   bool        `gorm:"not null;default:false" json:"exposed"` // red text posted with explicit override
	CreatedAt time.Time   `json:"created_at"`
	Session   AnonSession `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
	Reactions []Reaction  `gorm:"foreignKey:AnswerID;constraint:OnDelete:CASCADE" json:"-"`
}

func (a *Answer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Reaction is a LIKE or UNLIKE by one session on one answer. The unique index
// on (answer_id, session_id) enforces replace-on-repeat: the store deletes
// any prior row for the pair before inserting the new kind.
type Reaction struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	AnswerID  uuid.UUID   `gorm:"type:uuid;not null;index;uniqueIndex:idx_reactions_answer_session" json:"answer_id"`
	SessionID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_reactions_answer_session" json:"session_id"`
	Kind      string      `gorm:"size:8;not null" json:"kind"`
	CreatedAt time.Time   `json:"created_at"`
	Session   AnonSession `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (r *Reaction) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
