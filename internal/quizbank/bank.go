// Package quizbank reads and writes the static question bank: one JSON
// document on disk holding the three rounds' question lists. The bank is
// immutable input to the round engine; the admin surface appends to it.
package quizbank

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type RoundKey = string

const (
	Round1 RoundKey = "1"
	Round2 RoundKey = "2"
	Round3 RoundKey = "3"
)

type Pillar = string

const (
	PillarEconomy  Pillar = "economy"
	PillarPolitics Pillar = "politics"
	PillarLaw      Pillar = "law"
	PillarCulture  Pillar = "culture"
)

// Pillars in display order. Weakest-pillar ties resolve in this order.
var Pillars = []Pillar{PillarEconomy, PillarPolitics, PillarLaw, PillarCulture}

func ValidRound(round string) bool {
	return round == Round1 || round == Round2 || round == Round3
}

func ValidPillar(pillar string) bool {
	for _, p := range Pillars {
		if p == pillar {
			return true
		}
	}
	return false
}

type Question struct {
	ID                 string   `json:"id"`
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	CorrectIndex       int      `json:"correctIndex"`
	NearCorrect        []int    `json:"nearCorrect,omitempty"`
	Explanation        string   `json:"explanation,omitempty"`
	Points             int      `json:"points"`
	NearPoints         *int     `json:"nearPoints,omitempty"`
	Pillar             Pillar   `json:"pillar,omitempty"`
	ConsequenceCorrect string   `json:"consequenceCorrect,omitempty"`
	ConsequenceNear    string   `json:"consequenceNear,omitempty"`
	ConsequenceWrong   string   `json:"consequenceWrong,omitempty"`
	RiskPenalty        *int     `json:"riskPenalty,omitempty"`
	TimeLimitSec       int      `json:"timeLimitSec,omitempty"`
}

// IsNear reports whether the option index earns partial credit.
func (q *Question) IsNear(index int) bool {
	if index == q.CorrectIndex {
		return false
	}
	for _, n := range q.NearCorrect {
		if n == index {
			return true
		}
	}
	return false
}

type Bank struct {
	UpdatedAt string                  `json:"updatedAt"`
	Rounds    map[RoundKey][]Question `json:"rounds"`
}

func emptyBank() *Bank {
	return &Bank{
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Rounds: map[RoundKey][]Question{
			Round1: {},
			Round2: {},
			Round3: {},
		},
	}
}

// Store is the on-disk bank. Reads always return a normalized bank; a
// missing or corrupt file yields an empty one rather than an error.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Read() (*Bank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) read() (*Bank, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyBank(), nil
		}
		return nil, err
	}

	var bank Bank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return emptyBank(), nil
	}
	return normalize(&bank), nil
}

func (s *Store) Write(bank *Bank) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(bank)
}

func (s *Store) write(bank *Bank) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(bank, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, append(raw, '\n'), 0o644)
}

// Append validates and adds one question to a round, assigning it an id.
func (s *Store) Append(round RoundKey, q Question) (*Question, error) {
	if !ValidRound(round) {
		return nil, errors.New("invalid round")
	}
	if err := validateQuestion(&q); err != nil {
		return nil, err
	}
	q.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	bank, err := s.read()
	if err != nil {
		return nil, err
	}
	bank.Rounds[round] = append(bank.Rounds[round], q)
	bank.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := s.write(bank); err != nil {
		return nil, err
	}
	return &q, nil
}

// RoundQuestions returns the stored questions for a round; empty when the
// round has none. Fallback substitution is the engine's job.
func (s *Store) RoundQuestions(round RoundKey) ([]Question, error) {
	bank, err := s.Read()
	if err != nil {
		return nil, err
	}
	return bank.Rounds[round], nil
}

func validateQuestion(q *Question) error {
	options := q.Options[:0]
	for _, o := range q.Options {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			options = append(options, trimmed)
		}
	}
	q.Options = options
	q.Text = strings.TrimSpace(q.Text)

	if q.Text == "" || len(q.Options) < 2 {
		return errors.New("question text and at least 2 options are required")
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return errors.New("correct index is invalid")
	}
	if q.Pillar != "" && !ValidPillar(q.Pillar) {
		q.Pillar = ""
	}
	if q.Points < 1 {
		q.Points = 1
	}
	if q.NearPoints != nil && *q.NearPoints < 0 {
		zero := 0
		q.NearPoints = &zero
	}
	if q.TimeLimitSec != 0 && q.TimeLimitSec < 5 {
		q.TimeLimitSec = 5
	}
	q.NearCorrect = filterNear(q.NearCorrect, q.CorrectIndex, len(q.Options))
	return nil
}

// normalize keeps only the three known rounds and strips malformed
// near-correct sets, including ones containing the correct index.
func normalize(bank *Bank) *Bank {
	out := emptyBank()
	if bank.UpdatedAt != "" {
		out.UpdatedAt = bank.UpdatedAt
	}
	for _, round := range []RoundKey{Round1, Round2, Round3} {
		questions := bank.Rounds[round]
		for i := range questions {
			q := &questions[i]
			q.NearCorrect = filterNear(q.NearCorrect, q.CorrectIndex, len(q.Options))
			if q.Points < 1 {
				q.Points = 1
			}
		}
		out.Rounds[round] = questions
		if out.Rounds[round] == nil {
			out.Rounds[round] = []Question{}
		}
	}
	return out
}

func filterNear(near []int, correct, optionCount int) []int {
	if len(near) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(near))
	var out []int
	for _, n := range near {
		if n < 0 || n >= optionCount || n == correct || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
