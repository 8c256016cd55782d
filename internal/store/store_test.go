package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/agorhour/agorhour/internal/db"
	"github.com/agorhour/agorhour/internal/meter"
	"github.com/agorhour/agorhour/internal/models"
)

func setup(t *testing.T) (*Store, *gorm.DB, *models.HourQuestion) {
	t.Helper()
	gdb := db.OpenTest(t)
	hq := &models.HourQuestion{
		HourKey:   "2024010100",
		Text:      "Is fast food killing tradition or saving time?",
		OpenMode:  true,
		ExpiresAt: time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
	}
	require.NoError(t, gdb.Create(hq).Error)
	return New(gdb), gdb, hq
}

func newSession(t *testing.T, s *Store, seed int) *models.AnonSession {
	t.Helper()
	sess, err := s.CreateSession(context.Background(), seed)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, sess.ID)
	return sess
}

func TestPostAnswerGreenPath(t *testing.T) {
	s, _, hq := setup(t)
	sess := newSession(t, s, 7)

	ans, level, err := s.PostAnswer(context.Background(), hq, sess.ID, "I love mornings", "", false)
	require.NoError(t, err)
	assert.Equal(t, meter.Green, level)
	assert.Equal(t, "I love mornings", ans.Text)
	assert.False(t, ans.Exposed)
	assert.Nil(t, ans.Stance)
}

func TestPostAnswerDuplicateConflicts(t *testing.T) {
	s, _, hq := setup(t)
	sess := newSession(t, s, 7)
	ctx := context.Background()

	_, _, err := s.PostAnswer(ctx, hq, sess.ID, "first take", "", false)
	require.NoError(t, err)

	_, _, err = s.PostAnswer(ctx, hq, sess.ID, "second take", "", false)
	assert.ErrorIs(t, err, ErrDuplicateAnswer)

	// Another session is still free to answer.
	other := newSession(t, s, 8)
	_, _, err = s.PostAnswer(ctx, hq, other.ID, "my own take", "", false)
	assert.NoError(t, err)
}

func TestPostAnswerConstraintBacksPreCheck(t *testing.T) {
	s, gdb, hq := setup(t)
	sess := newSession(t, s, 7)

	// Insert behind the accessor's back, as a racing request would.
	require.NoError(t, gdb.Create(&models.Answer{
		HourID: hq.ID, SessionID: sess.ID, Text: "sneaky",
	}).Error)

	err := gdb.Create(&models.Answer{
		HourID: hq.ID, SessionID: sess.ID, Text: "raced",
	}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestPostAnswerStanceRequired(t *testing.T) {
	s, gdb, hq := setup(t)
	sess := newSession(t, s, 7)
	ctx := context.Background()

	require.NoError(t, gdb.Model(hq).Update("open_mode", false).Error)
	hq.OpenMode = false

	_, _, err := s.PostAnswer(ctx, hq, sess.ID, "no stance given", "", false)
	assert.ErrorIs(t, err, ErrStanceRequired)

	_, _, err = s.PostAnswer(ctx, hq, sess.ID, "no such stance", "MAYBE", false)
	assert.ErrorIs(t, err, ErrStanceRequired)

	ans, _, err := s.PostAnswer(ctx, hq, sess.ID, "strong agree", models.StanceAgree, false)
	require.NoError(t, err)
	require.NotNil(t, ans.Stance)
	assert.Equal(t, models.StanceAgree, *ans.Stance)
}

func TestPostAnswerRedNeedsExpose(t *testing.T) {
	s, _, hq := setup(t)
	sess := newSession(t, s, 7)
	ctx := context.Background()

	_, level, err := s.PostAnswer(ctx, hq, sess.ID, "kill the lights", "", false)
	assert.ErrorIs(t, err, ErrNeedsExpose)
	assert.Equal(t, meter.Red, level)

	ans, level, err := s.PostAnswer(ctx, hq, sess.ID, "kill the lights", "", true)
	require.NoError(t, err)
	assert.Equal(t, meter.Red, level)
	assert.True(t, ans.Exposed)
}

func TestForceExposeOnCleanTextDoesNotExpose(t *testing.T) {
	s, _, hq := setup(t)
	sess := newSession(t, s, 7)

	ans, level, err := s.PostAnswer(context.Background(), hq, sess.ID, "perfectly fine", "", true)
	require.NoError(t, err)
	assert.Equal(t, meter.Green, level)
	assert.False(t, ans.Exposed)
}

func TestReactReplaceSemantics(t *testing.T) {
	s, _, hq := setup(t)
	author := newSession(t, s, 1)
	reactor := newSession(t, s, 2)
	ctx := context.Background()

	ans, _, err := s.PostAnswer(ctx, hq, author.ID, "hot take", "", false)
	require.NoError(t, err)

	score, err := s.React(ctx, ans.ID, reactor.ID, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, 1, score)

	// Flipping the kind replaces the row; only UNLIKE remains.
	score, err = s.React(ctx, ans.ID, reactor.ID, models.ReactionUnlike)
	require.NoError(t, err)
	assert.Equal(t, -1, score)

	// Repeating the same kind is a no-op on the count.
	score, err = s.React(ctx, ans.ID, reactor.ID, models.ReactionUnlike)
	require.NoError(t, err)
	assert.Equal(t, -1, score)
}

func TestReactValidation(t *testing.T) {
	s, _, hq := setup(t)
	author := newSession(t, s, 1)
	ctx := context.Background()

	ans, _, err := s.PostAnswer(ctx, hq, author.ID, "hot take", "", false)
	require.NoError(t, err)

	_, err = s.React(ctx, ans.ID, author.ID, "LOVE")
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, err = s.React(ctx, uuid.New(), author.ID, models.ReactionLike)
	assert.ErrorIs(t, err, ErrAnswerNotFound)
}

func TestScoreAcrossSessions(t *testing.T) {
	s, _, hq := setup(t)
	author := newSession(t, s, 1)
	ctx := context.Background()

	ans, _, err := s.PostAnswer(ctx, hq, author.ID, "divisive opinion", "", false)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		r := newSession(t, s, 10+i)
		_, err := s.React(ctx, ans.ID, r.ID, models.ReactionLike)
		require.NoError(t, err)
	}
	r := newSession(t, s, 99)
	_, err = s.React(ctx, ans.ID, r.ID, models.ReactionUnlike)
	require.NoError(t, err)

	score, err := s.Score(ctx, ans.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, score)
}

func TestTopAnswerAndFirstSeenTieBreak(t *testing.T) {
	s, _, hq := setup(t)
	ctx := context.Background()

	top, err := s.Top(ctx, hq.ID)
	require.NoError(t, err)
	assert.Nil(t, top)

	a := newSession(t, s, 1)
	b := newSession(t, s, 2)
	first, _, err := s.PostAnswer(ctx, hq, a.ID, "the early bird", "", false)
	require.NoError(t, err)
	second, _, err := s.PostAnswer(ctx, hq, b.ID, "the late worm", "", false)
	require.NoError(t, err)

	// Equal scores: the earlier answer wins.
	top, err = s.Top(ctx, hq.ID)
	require.NoError(t, err)
	require.NotNil(t, top)
	assert.Equal(t, first.ID, top.AnswerID)

	// A strictly higher score displaces it.
	r := newSession(t, s, 3)
	_, err = s.React(ctx, second.ID, r.ID, models.ReactionLike)
	require.NoError(t, err)
	top, err = s.Top(ctx, hq.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, top.AnswerID)
	assert.Equal(t, 1, top.Score)
}

func TestAnswersForHourViews(t *testing.T) {
	s, _, hq := setup(t)
	ctx := context.Background()

	anon := newSession(t, s, 5)
	exposed := newSession(t, s, 6)
	_, _, err := s.PostAnswer(ctx, hq, anon.ID, "plain and simple", "", false)
	require.NoError(t, err)
	_, _, err = s.PostAnswer(ctx, hq, exposed.ID, "kill switch engaged", "", true)
	require.NoError(t, err)

	views, err := s.AnswersForHour(ctx, hq.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, "plain and simple", views[0].Text)
	require.NotNil(t, views[0].Avatar)
	assert.Equal(t, "hsl(5 70% 50%)", views[0].Avatar.HSL)
	assert.False(t, views[0].ExposedBadge)

	assert.Nil(t, views[1].Avatar)
	assert.True(t, views[1].ExposedBadge)
}
