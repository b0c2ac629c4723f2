package engine

import "github.com/datfullstacks/mln3/internal/quizbank"

// RoundConfig fixes how many questions a round presents and its default
// per-question countdown. Rounds always present the full target count; a
// short bank is padded by repeating questions under relabeled ids.
type RoundConfig struct {
	Title        string
	Subtitle     string
	TargetCount  int
	TimeLimitSec int
}

var roundConfigs = map[quizbank.RoundKey]RoundConfig{
	quizbank.Round1: {
		Title:        "Round 1: Laying the Foundation",
		Subtitle:     "Economy, politics, law, culture: the four base pillars",
		TargetCount:  15,
		TimeLimitSec: 12,
	},
	quizbank.Round2: {
		Title:        "Round 2: Holding the House",
		Subtitle:     "Scenarios and trade-offs: love alone is not enough",
		TargetCount:  15,
		TimeLimitSec: 20,
	},
	quizbank.Round3: {
		Title:        "Round 3: Seeing It Through",
		Subtitle:     "Speed and elimination: the final decisions",
		TargetCount:  15,
		TimeLimitSec: 8,
	},
}

func Config(round quizbank.RoundKey) RoundConfig {
	return roundConfigs[round]
}

const (
	// Round 3 entry grants this many lives; each wrong or timed-out answer
	// costs one, and zero routes straight to elimination.
	speedRoundLives = 2

	// Checkpoints interrupt round 1 after every block of this many questions.
	checkpointInterval = 10

	// Top speed bonus, scaled by the fraction of time remaining.
	maxSpeedBonus = 3

	// Streak length that earns the surge acknowledgment.
	surgeStreak = 3

	pillarStart = 50
	pillarMin   = 0
	pillarMax   = 100
)
