package engine

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/datfullstacks/mln3/internal/quizbank"
)

// Phase is where a play currently sits in the round flow.
type Phase string

const (
	PhaseRoundIntro   Phase = "round_intro"
	PhaseQuestion     Phase = "question"
	PhaseFeedback     Phase = "feedback"
	PhaseCheckpoint   Phase = "checkpoint"
	PhaseBoss         Phase = "boss"
	PhaseRoundSummary Phase = "round_summary"
	PhaseEliminated   Phase = "eliminated"
)

// AnswerKind grades a submitted answer.
type AnswerKind string

const (
	AnswerCorrect AnswerKind = "correct"
	AnswerNear    AnswerKind = "near"
	AnswerWrong   AnswerKind = "wrong"
)

// End statuses reported through the sink when a play finishes.
const (
	EndCompleted  = "completed"
	EndEliminated = "eliminated"
)

// Source supplies the question pool per round. *quizbank.Store satisfies it.
type Source interface {
	RoundQuestions(round quizbank.RoundKey) ([]quizbank.Question, error)
}

// Sink receives the engine's outward-facing events. Implementations push
// them to the leaderboard and realtime layers.
type Sink interface {
	ScoreChanged(score int, totalTimeMs int64)
	PlayEnded(status string, score int, totalTimeMs int64)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) ScoreChanged(int, int64)      {}
func (NopSink) PlayEnded(string, int, int64) {}

// Feedback describes the outcome of the most recent answer.
type Feedback struct {
	Kind       AnswerKind `json:"kind"`
	Delta      int        `json:"delta"`
	SpeedBonus int        `json:"speed_bonus,omitempty"`
	Message    string     `json:"message"`
	Streak     int        `json:"streak"`
	Surge      bool       `json:"surge"`
	TimedOut   bool       `json:"timed_out"`
}

// RoundStats tallies outcomes within the current round.
type RoundStats struct {
	Correct int `json:"correct"`
	Near    int `json:"near"`
	Wrong   int `json:"wrong"`
}

// Engine runs a single player's three-round play. It is not safe for
// concurrent use; callers serialize access per play.
type Engine struct {
	source Source
	sink   Sink
	now    func() time.Time
	rng    *rand.Rand

	pools map[quizbank.RoundKey][]quizbank.Question

	phase     Phase
	round     quizbank.RoundKey
	questions []quizbank.Question
	index     int

	score   int
	pillars map[quizbank.Pillar]int
	wind    quizbank.Pillar
	lives   int
	streak  int
	stats   RoundStats

	bossAnswered bool
	bossDone     bool

	feedback      *Feedback
	lastPenalty   string
	startedAt     time.Time
	questionStart time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// New loads all three round pools from source, substituting the built-in
// fallback set for any round that comes back empty or failing, and starts
// round 1 at its intro screen.
func New(source Source, sink Sink, opts ...Option) *Engine {
	e := &Engine{
		source: source,
		sink:   sink,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		pools:  make(map[quizbank.RoundKey][]quizbank.Question),
	}
	if e.sink == nil {
		e.sink = NopSink{}
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, round := range []quizbank.RoundKey{quizbank.Round1, quizbank.Round2, quizbank.Round3} {
		qs, err := source.RoundQuestions(round)
		if err != nil || len(qs) == 0 {
			qs = fallbackRounds[round]
		}
		e.pools[round] = qs
	}

	e.startedAt = e.now()
	e.resetPlayState()
	e.startRound(quizbank.Round1)
	return e
}

func (e *Engine) resetPlayState() {
	e.score = 0
	e.pillars = map[quizbank.Pillar]int{
		quizbank.PillarEconomy:  pillarStart,
		quizbank.PillarPolitics: pillarStart,
		quizbank.PillarLaw:      pillarStart,
		quizbank.PillarCulture:  pillarStart,
	}
	e.wind = ""
	e.streak = 0
	e.stats = RoundStats{}
	e.bossAnswered = false
	e.bossDone = false
	e.feedback = nil
	e.lastPenalty = ""
}

func (e *Engine) startRound(round quizbank.RoundKey) {
	e.round = round
	cfg := Config(round)
	e.questions = e.prepareRound(round, cfg.TargetCount)

	// The checkpoint wind targets the weakest pillar. Round 2 opens with a
	// question drawn from that pillar so the pressure lands where the play
	// has been struggling.
	if round == quizbank.Round2 && e.wind != "" {
		var candidates []quizbank.Question
		for _, q := range e.pools[quizbank.Round2] {
			if q.Pillar == e.wind {
				candidates = append(candidates, q)
			}
		}
		if len(candidates) > 0 && len(e.questions) > 0 {
			pick := candidates[e.rng.Intn(len(candidates))]
			pick.ID = pick.ID + "-wind"
			e.questions[0] = pick
		}
	}

	e.index = 0
	e.stats = RoundStats{}
	e.lastPenalty = ""
	if round == quizbank.Round3 {
		e.lives = speedRoundLives
	}
	e.phase = PhaseRoundIntro
}

// prepareRound shuffles the pool and pads it to targetCount by cycling
// through the shuffled set, suffixing repeated ids so every slot stays
// distinct.
func (e *Engine) prepareRound(round quizbank.RoundKey, targetCount int) []quizbank.Question {
	pool := e.pools[round]
	if len(pool) == 0 {
		return nil
	}

	shuffled := make([]quizbank.Question, len(pool))
	copy(shuffled, pool)
	e.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if len(shuffled) >= targetCount {
		return shuffled[:targetCount]
	}

	result := make([]quizbank.Question, 0, targetCount)
	result = append(result, shuffled...)
	for i := 0; len(result) < targetCount; i++ {
		q := shuffled[i%len(shuffled)]
		q.ID = fmt.Sprintf("%s-%d", q.ID, len(result))
		result = append(result, q)
	}
	return result
}

// Continue advances past intro, feedback, checkpoint and summary screens.
// It is a no-op in phases that wait on an answer or have ended the play.
func (e *Engine) Continue() {
	switch e.phase {
	case PhaseRoundIntro, PhaseCheckpoint:
		e.enterQuestion()
	case PhaseFeedback:
		e.advanceAfterFeedback()
	case PhaseRoundSummary:
		switch e.round {
		case quizbank.Round1:
			e.startRound(quizbank.Round2)
		case quizbank.Round2:
			e.startRound(quizbank.Round3)
		}
	}
}

func (e *Engine) enterQuestion() {
	if e.index >= len(e.questions) {
		if e.round == quizbank.Round3 && !e.bossDone {
			e.phase = PhaseBoss
			e.questionStart = e.now()
			return
		}
		e.finishRound()
		return
	}
	e.phase = PhaseQuestion
	e.questionStart = e.now()
}

func (e *Engine) finishRound() {
	e.phase = PhaseRoundSummary
	if e.round == quizbank.Round3 {
		e.sink.PlayEnded(EndCompleted, e.score, e.totalTimeMs())
	}
}

func (e *Engine) advanceAfterFeedback() {
	if e.phase != PhaseFeedback {
		return
	}
	fb := e.feedback
	e.feedback = nil

	if e.bossAnswered && !e.bossDone {
		e.bossDone = true
		e.finishRound()
		return
	}

	switch fb.Kind {
	case AnswerCorrect:
		e.stats.Correct++
	case AnswerNear:
		e.stats.Near++
	default:
		e.stats.Wrong++
	}

	if e.round == quizbank.Round1 && (e.index+1)%checkpointInterval == 0 {
		e.index++
		e.wind = e.WeakestPillar()
		e.phase = PhaseCheckpoint
		return
	}

	if e.round == quizbank.Round3 && e.lives == 0 {
		e.phase = PhaseEliminated
		e.sink.PlayEnded(EndEliminated, e.score, e.totalTimeMs())
		return
	}

	e.index++
	e.enterQuestion()
}

// Answer grades the option at index against the current question. A
// negative index means the timer ran out. ErrNotAnswerable is returned
// outside the question and boss phases.
func (e *Engine) Answer(index int) (*Feedback, error) {
	switch e.phase {
	case PhaseQuestion:
		return e.answerQuestion(index), nil
	case PhaseBoss:
		return e.answerBoss(index), nil
	default:
		return nil, ErrNotAnswerable
	}
}

// ErrNotAnswerable is returned by Answer when no question is pending.
var ErrNotAnswerable = errNotAnswerable{}

type errNotAnswerable struct{}

func (errNotAnswerable) Error() string { return "engine: no question awaiting an answer" }

func (e *Engine) answerQuestion(index int) *Feedback {
	q := e.questions[e.index]
	timedOut := index < 0
	kind := AnswerWrong
	if index == q.CorrectIndex {
		kind = AnswerCorrect
	} else if !timedOut && q.IsNear(index) {
		kind = AnswerNear
	}

	basePoints := q.Points
	if basePoints <= 0 {
		basePoints = 1
	}
	nearPoints := int(math.Round(float64(basePoints) * 0.5))
	if q.NearPoints != nil {
		nearPoints = *q.NearPoints
	}
	if nearPoints < 0 {
		nearPoints = 0
	}

	var delta, speedBonus int
	var message string

	switch e.round {
	case quizbank.Round1:
		switch kind {
		case AnswerCorrect:
			delta = basePoints
			message = orDefault(q.Explanation, "The pillar gains another course of brick.")
		case AnswerNear:
			delta = maxInt(1, nearPoints)
			message = orDefault(q.ConsequenceNear, "Close, but one key pillar is missing.")
		default:
			delta = -1
			message = "A crack opens in the foundation."
		}
	case quizbank.Round2:
		switch kind {
		case AnswerCorrect:
			delta = basePoints + 1
			message = orDefault(q.ConsequenceCorrect, "The household holds steady for now.")
		case AnswerNear:
			delta = maxInt(0, nearPoints)
			message = orDefault(q.ConsequenceNear, "Close, but one key pillar is missing.")
		default:
			delta = -2
			if q.RiskPenalty != nil {
				delta = *q.RiskPenalty
			}
			message = orDefault(q.ConsequenceWrong, "A risky consequence weakens the pillar.")
		}
	default:
		switch kind {
		case AnswerCorrect:
			limit := e.questionLimit(q)
			elapsed := e.now().Sub(e.questionStart).Seconds()
			if elapsed < 0 {
				elapsed = 0
			}
			speedBonus = int(math.Ceil((limit - elapsed) / limit * maxSpeedBonus))
			if speedBonus < 0 {
				speedBonus = 0
			}
			delta = basePoints + speedBonus
			if speedBonus > 0 {
				message = fmt.Sprintf("Burst of speed, +%d bonus!", speedBonus)
			} else {
				message = "Steady reflexes."
			}
		case AnswerNear:
			delta = maxInt(1, nearPoints)
			message = orDefault(q.ConsequenceNear, "Close, but not fast enough to break away.")
		default:
			delta = -2
			if e.lives > 0 {
				e.lives--
			}
			message = "Missed the beat. One life lost in the speed round."
		}
	}

	if kind == AnswerCorrect {
		e.streak++
	} else {
		e.streak = 0
	}

	e.score = maxInt(0, e.score+delta)
	e.applyPillarDelta(q, kind)
	e.sink.ScoreChanged(e.score, e.totalTimeMs())

	if kind == AnswerWrong {
		switch e.round {
		case quizbank.Round3:
			if timedOut {
				e.lastPenalty = "Ran out of time in the speed round."
			} else {
				e.lastPenalty = "Wrong pick in the speed round."
			}
		case quizbank.Round2:
			e.lastPenalty = orDefault(q.ConsequenceWrong, "A risky choice weakened the pillar.")
		default:
			if timedOut {
				e.lastPenalty = "Ran out of time."
			} else {
				e.lastPenalty = "A wrong answer cracked the foundation."
			}
		}
	}

	fb := &Feedback{
		Kind:       kind,
		Delta:      delta,
		SpeedBonus: speedBonus,
		Message:    message,
		Streak:     e.streak,
		Surge:      kind == AnswerCorrect && e.streak >= surgeStreak,
		TimedOut:   timedOut,
	}
	e.feedback = fb
	e.phase = PhaseFeedback
	return fb
}

// answerBoss grades the boss prompt. The boss does not touch lives,
// streaks or pillars and carries no countdown.
func (e *Engine) answerBoss(index int) *Feedback {
	kind := AnswerWrong
	delta := bossWrongPenalty
	if index == bossQuestion.CorrectIndex {
		kind = AnswerCorrect
		delta = bossQuestion.Points
	}
	e.score = maxInt(0, e.score+delta)
	e.sink.ScoreChanged(e.score, e.totalTimeMs())

	fb := &Feedback{
		Kind:    kind,
		Delta:   delta,
		Message: bossQuestion.Explanation,
		Streak:  e.streak,
	}
	e.feedback = fb
	e.bossAnswered = true
	e.phase = PhaseFeedback
	return fb
}

func (e *Engine) applyPillarDelta(q quizbank.Question, kind AnswerKind) {
	if q.Pillar == "" {
		return
	}
	var delta int
	switch e.round {
	case quizbank.Round1:
		switch kind {
		case AnswerCorrect:
			delta = 7
		case AnswerNear:
			delta = 2
		default:
			delta = -10
		}
	case quizbank.Round2:
		switch kind {
		case AnswerCorrect:
			delta = 6
		case AnswerNear:
			delta = 1
		default:
			delta = -9
		}
	default:
		switch kind {
		case AnswerCorrect:
			delta = 4
		case AnswerNear:
			delta = 1
		default:
			delta = -7
		}
	}

	if e.wind != "" && e.wind == q.Pillar && kind != AnswerCorrect {
		if kind == AnswerNear {
			delta -= 2
		} else {
			delta -= 4
		}
	}

	next := e.pillars[q.Pillar] + delta
	if next < pillarMin {
		next = pillarMin
	}
	if next > pillarMax {
		next = pillarMax
	}
	e.pillars[q.Pillar] = next
}

// Tick applies a timeout when the current question's countdown has run
// out. Callers drive it from their own ticker. The boss is untimed.
func (e *Engine) Tick() {
	if e.phase != PhaseQuestion {
		return
	}
	if e.TimeLeft() > 0 {
		return
	}
	e.answerQuestion(-1)
}

// TimeLeft reports the remaining countdown for the current question, or
// zero when nothing is ticking.
func (e *Engine) TimeLeft() time.Duration {
	if e.phase != PhaseQuestion {
		return 0
	}
	limit := time.Duration(e.questionLimit(e.questions[e.index]) * float64(time.Second))
	left := limit - e.now().Sub(e.questionStart)
	if left < 0 {
		return 0
	}
	return left
}

func (e *Engine) questionLimit(q quizbank.Question) float64 {
	if q.TimeLimitSec > 0 {
		return float64(q.TimeLimitSec)
	}
	return float64(Config(e.round).TimeLimitSec)
}

// PlayAgain wipes all progress and restarts from round 1.
func (e *Engine) PlayAgain() {
	e.startedAt = e.now()
	e.resetPlayState()
	e.sink.ScoreChanged(0, 0)
	e.startRound(quizbank.Round1)
}

// WeakestPillar returns the lowest-scoring pillar. Ties resolve in the
// fixed economy, politics, law, culture order.
func (e *Engine) WeakestPillar() quizbank.Pillar {
	weakest := quizbank.Pillars[0]
	for _, p := range quizbank.Pillars[1:] {
		if e.pillars[p] < e.pillars[weakest] {
			weakest = p
		}
	}
	return weakest
}

// RoofScore averages the four pillars, the headline health number.
func (e *Engine) RoofScore() int {
	sum := 0
	for _, p := range quizbank.Pillars {
		sum += e.pillars[p]
	}
	return int(math.Round(float64(sum) / float64(len(quizbank.Pillars))))
}

func (e *Engine) Phase() Phase             { return e.phase }
func (e *Engine) Round() quizbank.RoundKey { return e.round }
func (e *Engine) Score() int               { return e.score }
func (e *Engine) Lives() int               { return e.lives }
func (e *Engine) Streak() int              { return e.streak }
func (e *Engine) Wind() quizbank.Pillar    { return e.wind }
func (e *Engine) Stats() RoundStats        { return e.stats }
func (e *Engine) Feedback() *Feedback      { return e.feedback }
func (e *Engine) LastPenalty() string      { return e.lastPenalty }
func (e *Engine) QuestionIndex() int       { return e.index }
func (e *Engine) QuestionCount() int       { return len(e.questions) }

// PillarScores returns a copy of the current pillar levels.
func (e *Engine) PillarScores() map[quizbank.Pillar]int {
	out := make(map[quizbank.Pillar]int, len(e.pillars))
	for k, v := range e.pillars {
		out[k] = v
	}
	return out
}

// CurrentQuestion returns the pending question, or the boss prompt during
// the boss phase. It is nil outside answerable phases.
func (e *Engine) CurrentQuestion() *quizbank.Question {
	switch e.phase {
	case PhaseQuestion:
		q := e.questions[e.index]
		return &q
	case PhaseBoss:
		q := bossQuestion
		return &q
	default:
		return nil
	}
}

func (e *Engine) totalTimeMs() int64 {
	ms := e.now().Sub(e.startedAt).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
