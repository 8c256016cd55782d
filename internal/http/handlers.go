package http

import (
	"errors"
	"log"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/agorhour/agorhour/internal/avatar"
	"github.com/agorhour/agorhour/internal/hour"
	"github.com/agorhour/agorhour/internal/models"
	"github.com/agorhour/agorhour/internal/store"
	"github.com/agorhour/agorhour/internal/ws"
)

// --- Configuration constants ---
const (
	rateLimitRPS   = 1.0 / 3.0 // 1 request every 3 seconds
	rateLimitBurst = 2
	maxAvatarSeed  = 1_000_000
)

// --- Structs for request binding ---
type PostAnswerInput struct {
	SessionID   string `json:"session_id" binding:"required"`
	Text        string `json:"text" binding:"required,max=120"`
	Stance      string `json:"stance"`
	ForceExpose bool   `json:"force_expose"`
}

type ReactInput struct {
	SessionID string `json:"session_id" binding:"required"`
	AnswerID  string `json:"answer_id" binding:"required"`
	Kind      string `json:"kind" binding:"required"`
}

// --- Handlers ---

// Env carries the request handlers' dependencies; everything is injected at
// startup, nothing global.
type Env struct {
	Store *store.Store
	Hours *hour.Manager
	Hub   *ws.Hub
	Clock clockwork.Clock
	Loc   *time.Location
}

// CreateSession mints an anonymous session with a random avatar seed.
func (e *Env) CreateSession(c *gin.Context) {
	seed := rand.IntN(maxAvatarSeed + 1)
	sess, err := e.Store.CreateSession(c.Request.Context(), seed)
	if err != nil {
		log.Printf("Error creating session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":          sess.ID,
		"created_at":  sess.CreatedAt,
		"avatar_seed": sess.AvatarSeed,
		"avatar":      avatar.FromSeed(sess.AvatarSeed),
	})
}

// CurrentHour returns the live question, the countdown, and (by default) the
// answer feed.
func (e *Env) CurrentHour(c *gin.Context) {
	hq, err := e.Hours.EnsureCurrentHour(c.Request.Context())
	if err != nil {
		log.Printf("Error ensuring current hour: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load current hour"})
		return
	}

	resp := gin.H{
		"hour": gin.H{
			"id":         hq.ID,
			"hour_key":   hq.HourKey,
			"text":       hq.Text,
			"expires_at": hq.ExpiresAt,
			"open_mode":  hq.OpenMode,
		},
		"countdown_seconds": e.countdownSeconds(),
	}

	if c.DefaultQuery("include_answers", "1") != "0" {
		answers, err := e.Store.AnswersForHour(c.Request.Context(), hq.ID)
		if err != nil {
			log.Printf("Error fetching answers: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load answers"})
			return
		}
		resp["answers"] = answers
	}
	c.JSON(http.StatusOK, resp)
}

// countdownSeconds is the time left until the end of the current hour in the
// configured display timezone.
func (e *Env) countdownSeconds() int {
	now := e.Clock.Now().In(e.Loc)
	end := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, e.Loc).Add(time.Hour)
	left := int(end.Sub(now).Seconds())
	if left < 0 {
		return 0
	}
	return left
}

// PostAnswer submits one answer for the current hour.
func (e *Env) PostAnswer(c *gin.Context) {
	var input PostAnswerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session_id or text."})
		return
	}
	sessionID, err := uuid.Parse(input.SessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session_id."})
		return
	}
	if input.Stance != "" && input.Stance != models.StanceAgree && input.Stance != models.StanceDisagree {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Stance must be AGREE or DISAGREE."})
		return
	}

	hq, err := e.Hours.EnsureCurrentHour(c.Request.Context())
	if err != nil {
		log.Printf("Error ensuring current hour: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load current hour"})
		return
	}

	ans, level, err := e.Store.PostAnswer(c.Request.Context(), hq, sessionID, input.Text, input.Stance, input.ForceExpose)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNeedsExpose):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "meter": level, "requires_expose": true})
		return
	case errors.Is(err, store.ErrDuplicateAnswer):
		c.JSON(http.StatusConflict, gin.H{"error": "Already answered this hour."})
		return
	case errors.Is(err, store.ErrStanceRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Stance required."})
		return
	case errors.Is(err, store.ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session_id or text."})
		return
	default:
		log.Printf("Error storing answer: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store answer"})
		return
	}

	e.Hub.Notify("new_answer", gin.H{
		"id":         ans.ID,
		"hour_id":    ans.HourID,
		"text":       ans.Text,
		"stance":     ans.Stance,
		"exposed":    ans.Exposed,
		"created_at": ans.CreatedAt,
	})
	c.JSON(http.StatusOK, gin.H{"ok": true, "answer": ans, "meter": level})
}

// React records a LIKE/UNLIKE, replacing the session's previous reaction on
// the same answer.
func (e *Env) React(c *gin.Context) {
	var input ReactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session_id or answer_id."})
		return
	}
	if input.Kind != models.ReactionLike && input.Kind != models.ReactionUnlike {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reaction kind."})
		return
	}
	sessionID, err := uuid.Parse(input.SessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session_id."})
		return
	}
	answerID, err := uuid.Parse(input.AnswerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid answer_id."})
		return
	}

	score, err := e.Store.React(c.Request.Context(), answerID, sessionID, input.Kind)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrInvalidKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reaction kind."})
		return
	case errors.Is(err, store.ErrAnswerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Answer not found."})
		return
	default:
		log.Printf("Error recording reaction: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record reaction"})
		return
	}

	e.Hub.Notify("reaction", gin.H{"answer_id": answerID, "score": score})
	c.JSON(http.StatusOK, gin.H{"ok": true, "score": score})
}

// TopAnswer returns the current hour's highest-scoring answer.
func (e *Env) TopAnswer(c *gin.Context) {
	hq, err := e.Hours.EnsureCurrentHour(c.Request.Context())
	if err != nil {
		log.Printf("Error ensuring current hour: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load current hour"})
		return
	}
	top, err := e.Store.Top(c.Request.Context(), hq.ID)
	if err != nil {
		log.Printf("Error computing top answer: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute top answer"})
		return
	}
	if top == nil {
		c.JSON(http.StatusOK, gin.H{"top": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"top": top})
}

// CronHourly runs one lifecycle pass on demand. Secured by the shared-secret
// middleware; an overlapping background pass makes this a no-op.
func (e *Env) CronHourly(c *gin.Context) {
	e.Hours.Tick(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
