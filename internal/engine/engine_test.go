package engine

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datfullstacks/mln3/internal/quizbank"
)

type stubSource struct {
	rounds map[quizbank.RoundKey][]quizbank.Question
}

func (s stubSource) RoundQuestions(round quizbank.RoundKey) ([]quizbank.Question, error) {
	return s.rounds[round], nil
}

type recordSink struct {
	scores    []int
	endStatus string
	endScore  int
	endTimeMs int64
	ended     int
}

func (r *recordSink) ScoreChanged(score int, totalTimeMs int64) {
	r.scores = append(r.scores, score)
}

func (r *recordSink) PlayEnded(status string, score int, totalTimeMs int64) {
	r.ended++
	r.endStatus = status
	r.endScore = score
	r.endTimeMs = totalTimeMs
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func singleQuestion(id string, pillar quizbank.Pillar, points int) quizbank.Question {
	near := 1
	return quizbank.Question{
		ID:           id,
		Text:         "q",
		Options:      []string{"right", "near", "wrong"},
		CorrectIndex: 0,
		NearCorrect:  []int{1},
		Points:       points,
		NearPoints:   &near,
		Pillar:       pillar,
	}
}

func testSource() stubSource {
	return stubSource{rounds: map[quizbank.RoundKey][]quizbank.Question{
		quizbank.Round1: {singleQuestion("r1-q", quizbank.PillarEconomy, 2)},
		quizbank.Round2: {singleQuestion("r2-q", quizbank.PillarEconomy, 3)},
		quizbank.Round3: {singleQuestion("r3-q", quizbank.PillarEconomy, 3)},
	}}
}

func newTestEngine(t *testing.T, src Source) (*Engine, *recordSink, *fakeClock) {
	t.Helper()
	sink := &recordSink{}
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	e := New(src, sink, WithClock(clock.now), WithRand(rand.New(rand.NewSource(1))))
	return e, sink, clock
}

// playRound drives the engine until the current round ends or the play
// terminates, picking every answer with pick.
func playRound(t *testing.T, e *Engine, pick func(q *quizbank.Question) int) {
	t.Helper()
	for i := 0; i < 200; i++ {
		switch e.Phase() {
		case PhaseRoundIntro, PhaseCheckpoint, PhaseFeedback:
			e.Continue()
		case PhaseQuestion, PhaseBoss:
			_, err := e.Answer(pick(e.CurrentQuestion()))
			require.NoError(t, err)
		case PhaseRoundSummary, PhaseEliminated:
			return
		}
	}
	t.Fatal("round did not finish")
}

func alwaysCorrect(q *quizbank.Question) int { return q.CorrectIndex }

func TestRoundPadsToTargetCount(t *testing.T) {
	e, _, _ := newTestEngine(t, testSource())

	require.Equal(t, PhaseRoundIntro, e.Phase())
	assert.Equal(t, 15, e.QuestionCount())

	e.Continue()
	q := e.CurrentQuestion()
	require.NotNil(t, q)
	assert.True(t, strings.HasPrefix(q.ID, "r1-q"))
}

func TestRoundOneScoringTiers(t *testing.T) {
	e, sink, _ := newTestEngine(t, testSource())
	e.Continue()

	fb, err := e.Answer(0)
	require.NoError(t, err)
	assert.Equal(t, AnswerCorrect, fb.Kind)
	assert.Equal(t, 2, fb.Delta)
	assert.Equal(t, 2, e.Score())

	e.Continue()
	fb, err = e.Answer(1)
	require.NoError(t, err)
	assert.Equal(t, AnswerNear, fb.Kind)
	assert.Equal(t, 1, fb.Delta)
	assert.Equal(t, 3, e.Score())

	e.Continue()
	fb, err = e.Answer(2)
	require.NoError(t, err)
	assert.Equal(t, AnswerWrong, fb.Kind)
	assert.Equal(t, -1, fb.Delta)
	assert.Equal(t, 2, e.Score())

	assert.Equal(t, []int{2, 3, 2}, sink.scores)
}

func TestScoreNeverGoesNegative(t *testing.T) {
	e, _, _ := newTestEngine(t, testSource())
	e.Continue()

	for i := 0; i < 5 && e.Phase() == PhaseQuestion; i++ {
		_, err := e.Answer(2)
		require.NoError(t, err)
		assert.Equal(t, 0, e.Score())
		e.Continue()
	}
}

func TestStreakSurge(t *testing.T) {
	e, _, _ := newTestEngine(t, testSource())
	e.Continue()

	for i := 1; i <= 3; i++ {
		fb, err := e.Answer(0)
		require.NoError(t, err)
		assert.Equal(t, i, fb.Streak)
		assert.Equal(t, i >= 3, fb.Surge)
		e.Continue()
	}

	fb, err := e.Answer(2)
	require.NoError(t, err)
	assert.Equal(t, 0, fb.Streak)
	assert.False(t, fb.Surge)
}

func TestCheckpointTargetsWeakestPillar(t *testing.T) {
	e, _, _ := newTestEngine(t, testSource())
	e.Continue()

	// Nine wrong answers hammer the economy pillar, then the tenth lands
	// on the checkpoint.
	for i := 0; i < 10; i++ {
		_, err := e.Answer(2)
		require.NoError(t, err)
		e.Continue()
	}

	require.Equal(t, PhaseCheckpoint, e.Phase())
	assert.Equal(t, quizbank.PillarEconomy, e.Wind())
	assert.Equal(t, 0, e.PillarScores()[quizbank.PillarEconomy])

	e.Continue()
	assert.Equal(t, PhaseQuestion, e.Phase())
	assert.Equal(t, 10, e.QuestionIndex())
}

func TestRoundTwoOpensOnWindPillar(t *testing.T) {
	src := testSource()
	src.rounds[quizbank.Round2] = []quizbank.Question{
		singleQuestion("r2-econ", quizbank.PillarEconomy, 3),
		singleQuestion("r2-law", quizbank.PillarLaw, 3),
	}
	e, _, _ := newTestEngine(t, src)

	playRound(t, e, func(q *quizbank.Question) int { return 2 })
	require.Equal(t, PhaseRoundSummary, e.Phase())
	require.Equal(t, quizbank.PillarEconomy, e.Wind())

	e.Continue()
	require.Equal(t, quizbank.Round2, e.Round())
	e.Continue()

	q := e.CurrentQuestion()
	require.NotNil(t, q)
	assert.True(t, strings.HasSuffix(q.ID, "-wind"))
	assert.Equal(t, quizbank.PillarEconomy, q.Pillar)
}

func TestWindPillarTakesExtraDamage(t *testing.T) {
	e, _, _ := newTestEngine(t, testSource())

	playRound(t, e, func(q *quizbank.Question) int { return 2 })
	e.Continue()
	require.Equal(t, quizbank.Round2, e.Round())
	require.Equal(t, quizbank.PillarEconomy, e.Wind())

	// Pillar already floored at zero from round 1; a near answer on the
	// wind pillar nets +1-2 and stays clamped at zero.
	e.Continue()
	_, err := e.Answer(1)
	require.NoError(t, err)
	assert.Equal(t, 0, e.PillarScores()[quizbank.PillarEconomy])
}

func TestPillarClampsAtHundred(t *testing.T) {
	e, _, _ := newTestEngine(t, testSource())
	e.Continue()

	for i := 0; i < 10; i++ {
		_, err := e.Answer(0)
		require.NoError(t, err)
		e.Continue()
	}
	assert.Equal(t, 100, e.PillarScores()[quizbank.PillarEconomy])
}

func TestRoundTwoScoring(t *testing.T) {
	e, _, _ := newTestEngine(t, testSource())
	playRound(t, e, alwaysCorrect)
	scoreAfterR1 := e.Score()
	e.Continue()
	e.Continue()
	require.Equal(t, quizbank.Round2, e.Round())

	fb, err := e.Answer(0)
	require.NoError(t, err)
	assert.Equal(t, 4, fb.Delta) // points 3 plus the round 2 correct bonus
	assert.Equal(t, scoreAfterR1+4, e.Score())

	e.Continue()
	fb, err = e.Answer(2)
	require.NoError(t, err)
	assert.Equal(t, -2, fb.Delta)
}

func TestRoundTwoRiskPenaltyOverride(t *testing.T) {
	src := testSource()
	q := singleQuestion("r2-risky", quizbank.PillarLaw, 3)
	penalty := -5
	q.RiskPenalty = &penalty
	src.rounds[quizbank.Round2] = []quizbank.Question{q}
	e, _, _ := newTestEngine(t, src)

	playRound(t, e, alwaysCorrect)
	e.Continue()
	e.Continue()

	fb, err := e.Answer(2)
	require.NoError(t, err)
	assert.Equal(t, -5, fb.Delta)
}

func TestSpeedRoundBonus(t *testing.T) {
	e, _, clock := newTestEngine(t, testSource())
	playRound(t, e, alwaysCorrect)
	e.Continue()
	playRound(t, e, alwaysCorrect)
	e.Continue()
	require.Equal(t, quizbank.Round3, e.Round())
	require.Equal(t, speedRoundLives, e.Lives())

	e.Continue()
	before := e.Score()
	fb, err := e.Answer(0)
	require.NoError(t, err)
	assert.Equal(t, 3, fb.SpeedBonus)
	assert.Equal(t, before+3+3, e.Score())

	// Burning most of the clock leaves a slim bonus.
	e.Continue()
	clock.advance(7 * time.Second)
	fb, err = e.Answer(0)
	require.NoError(t, err)
	assert.Equal(t, 1, fb.SpeedBonus)
}

func TestSpeedRoundElimination(t *testing.T) {
	e, sink, _ := newTestEngine(t, testSource())
	playRound(t, e, alwaysCorrect)
	e.Continue()
	playRound(t, e, alwaysCorrect)
	e.Continue()
	e.Continue()

	_, err := e.Answer(2)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Lives())
	e.Continue()

	_, err = e.Answer(2)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Lives())
	e.Continue()

	require.Equal(t, PhaseEliminated, e.Phase())
	assert.Equal(t, EndEliminated, sink.endStatus)
	assert.Equal(t, 1, sink.ended)

	_, err = e.Answer(0)
	assert.ErrorIs(t, err, ErrNotAnswerable)
}

func TestTimeoutCountsAsWrong(t *testing.T) {
	e, _, clock := newTestEngine(t, testSource())
	e.Continue()

	assert.Equal(t, 12*time.Second, e.TimeLeft())

	clock.advance(5 * time.Second)
	e.Tick()
	assert.Equal(t, PhaseQuestion, e.Phase())

	clock.advance(8 * time.Second)
	e.Tick()
	require.Equal(t, PhaseFeedback, e.Phase())
	fb := e.Feedback()
	require.NotNil(t, fb)
	assert.Equal(t, AnswerWrong, fb.Kind)
	assert.True(t, fb.TimedOut)
}

func TestBossAndCompletion(t *testing.T) {
	e, sink, _ := newTestEngine(t, testSource())
	playRound(t, e, alwaysCorrect)
	e.Continue()
	playRound(t, e, alwaysCorrect)
	e.Continue()
	e.Continue()

	for e.Phase() == PhaseQuestion || e.Phase() == PhaseFeedback {
		if e.Phase() == PhaseQuestion {
			_, err := e.Answer(0)
			require.NoError(t, err)
		}
		e.Continue()
	}

	require.Equal(t, PhaseBoss, e.Phase())
	q := e.CurrentQuestion()
	require.NotNil(t, q)
	assert.Zero(t, e.TimeLeft())

	livesBefore := e.Lives()
	before := e.Score()
	fb, err := e.Answer(q.CorrectIndex)
	require.NoError(t, err)
	assert.Equal(t, 6, fb.Delta)
	assert.Equal(t, before+6, e.Score())
	assert.Equal(t, livesBefore, e.Lives())

	e.Continue()
	require.Equal(t, PhaseRoundSummary, e.Phase())
	assert.Equal(t, EndCompleted, sink.endStatus)
	assert.Equal(t, e.Score(), sink.endScore)

	// Round 3 summary is terminal; only a restart moves on.
	e.Continue()
	assert.Equal(t, PhaseRoundSummary, e.Phase())
}

func TestBossWrongAnswerPenalty(t *testing.T) {
	e, _, _ := newTestEngine(t, testSource())
	playRound(t, e, alwaysCorrect)
	e.Continue()
	playRound(t, e, alwaysCorrect)
	e.Continue()
	e.Continue()

	for e.Phase() != PhaseBoss {
		if e.Phase() == PhaseQuestion {
			_, err := e.Answer(0)
			require.NoError(t, err)
		} else {
			e.Continue()
		}
	}

	before := e.Score()
	lives := e.Lives()
	fb, err := e.Answer(1)
	require.NoError(t, err)
	assert.Equal(t, AnswerWrong, fb.Kind)
	assert.Equal(t, -2, fb.Delta)
	assert.Equal(t, before-2, e.Score())
	assert.Equal(t, lives, e.Lives())

	e.Continue()
	assert.Equal(t, PhaseRoundSummary, e.Phase())
}

func TestPlayAgainResetsEverything(t *testing.T) {
	e, sink, clock := newTestEngine(t, testSource())
	playRound(t, e, func(q *quizbank.Question) int { return 2 })

	clock.advance(time.Minute)
	e.PlayAgain()

	assert.Equal(t, PhaseRoundIntro, e.Phase())
	assert.Equal(t, quizbank.Round1, e.Round())
	assert.Equal(t, 0, e.Score())
	assert.Equal(t, 0, e.Streak())
	assert.Empty(t, e.Wind())
	for _, p := range quizbank.Pillars {
		assert.Equal(t, pillarStart, e.PillarScores()[p])
	}
	assert.Equal(t, 0, sink.scores[len(sink.scores)-1])

	e.Continue()
	_, err := e.Answer(0)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Score())
}

func TestEmptyBankFallsBack(t *testing.T) {
	e, _, _ := newTestEngine(t, stubSource{rounds: map[quizbank.RoundKey][]quizbank.Question{}})

	assert.Equal(t, 15, e.QuestionCount())
	e.Continue()
	q := e.CurrentQuestion()
	require.NotNil(t, q)
	assert.NotEmpty(t, q.Options)
}

func TestRoundStatsTally(t *testing.T) {
	e, _, _ := newTestEngine(t, testSource())
	e.Continue()

	answers := []int{0, 1, 2}
	for _, a := range answers {
		_, err := e.Answer(a)
		require.NoError(t, err)
		e.Continue()
	}

	stats := e.Stats()
	assert.Equal(t, 1, stats.Correct)
	assert.Equal(t, 1, stats.Near)
	assert.Equal(t, 1, stats.Wrong)
}
