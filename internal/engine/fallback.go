package engine

import "github.com/datfullstacks/mln3/internal/quizbank"

func intPtr(n int) *int { return &n }

// fallbackRounds keeps gameplay alive when the stored bank has no questions
// for a round. They cover all four pillars so checkpoints stay meaningful.
var fallbackRounds = map[quizbank.RoundKey][]quizbank.Question{
	quizbank.Round1: {
		{
			ID:   "r1-economy",
			Text: "Which factor is the economic base of a household most tied to?",
			Options: []string{
				"Work, income and how material life is organized",
				"Personal moods",
				"Shopping preferences",
				"Social media trends",
			},
			CorrectIndex: 0,
			Points:       2,
			Pillar:       quizbank.PillarEconomy,
			Explanation:  "The economy is the material footing every household stands on.",
		},
		{
			ID:   "r1-law",
			Text: "Where does the legal base of family-building show most clearly?",
			Options: []string{
				"Law and standards the community recognizes",
				"Friends' opinions",
				"Each family's private customs",
				"Personal taste",
			},
			CorrectIndex: 0,
			Points:       2,
			Pillar:       quizbank.PillarLaw,
			Explanation:  "Law protects rights and duties, which is what makes the base durable.",
		},
		{
			ID:   "r1-culture",
			Text: "What role do culture and ethics play in building a family?",
			Options: []string{
				"They keep order, respect and connection between members",
				"They barely matter",
				"They are purely ceremonial",
				"They are each person's private business",
			},
			CorrectIndex: 0,
			Points:       2,
			Pillar:       quizbank.PillarCulture,
			Explanation:  "Culture and ethics are the household's spiritual pillar.",
		},
		{
			ID:   "r1-politics",
			Text: "The political base of family-building shows through which factor?",
			Options: []string{
				"The guiding role of the state and social institutions",
				"Personal preference",
				"Fashion trends",
				"How wealthy the couple is",
			},
			CorrectIndex: 0,
			Points:       2,
			Pillar:       quizbank.PillarPolitics,
			Explanation:  "Policy and social direction act on the family directly.",
		},
	},
	quizbank.Round2: {
		{
			ID:   "r2-love",
			Text: "After three years together, one partner wants to marry now; the other wants financial footing and a registered marriage first. Which path holds up better?",
			Options: []string{
				"Combine the relationship with a clear economic and legal plan",
				"Marry immediately, love is enough",
				"Postpone indefinitely",
				"Let friends decide",
			},
			CorrectIndex:       0,
			Points:             3,
			Pillar:             quizbank.PillarEconomy,
			ConsequenceCorrect: "The household gets a firm base and fewer conflicts.",
			ConsequenceWrong:   "The roof can fall in when the economic and legal pillars stay weak.",
			RiskPenalty:        intPtr(-1),
		},
		{
			ID:   "r2-freedom",
			Text: "One partner wants to pursue study far away; the other wants the family put first. What balances personal freedom with social responsibility?",
			Options: []string{
				"Negotiate, divide duties clearly and back each other up",
				"Forbid it outright to protect the family",
				"Abandon the family for personal plans",
				"Hide the plan to avoid arguments",
			},
			CorrectIndex:       0,
			Points:             3,
			Pillar:             quizbank.PillarCulture,
			ConsequenceCorrect: "Freedom is kept and responsibility still holds.",
			ConsequenceWrong:   "Freedom taken to the extreme cracks the household.",
			RiskPenalty:        intPtr(-1),
		},
		{
			ID:   "r2-legal",
			Text: "A couple lives together without registering the marriage. When a dispute over rights breaks out, what is the sound way through?",
			Options: []string{
				"Formalize the legal status so rights and duties are protected",
				"Let feelings sort it out",
				"Ask the internet to judge",
				"Split up to avoid the hassle",
			},
			CorrectIndex:       0,
			Points:             3,
			Pillar:             quizbank.PillarLaw,
			ConsequenceCorrect: "The law protects both sides from long-term loss.",
			ConsequenceWrong:   "The household falls into a gap where nobody is responsible.",
			RiskPenalty:        intPtr(-1),
		},
		{
			ID:   "r2-family",
			Text: "Both extended families interfere so deeply that conflict keeps rising. What is the constructive response?",
			Options: []string{
				"Talk it through, respect tradition, and set clear boundaries",
				"Cut off all contact",
				"Stay silent and hope it settles",
				"Let outsiders decide",
			},
			CorrectIndex:       0,
			Points:             3,
			Pillar:             quizbank.PillarCulture,
			ConsequenceCorrect: "Peace and mutual respect survive on both sides.",
			ConsequenceWrong:   "The quarrel smolders until it bursts.",
			RiskPenalty:        intPtr(-1),
		},
	},
	quizbank.Round3: {
		{
			ID:           "r3-review-1",
			Text:         "Pick the right keywords for the legal base:",
			Options:      []string{"Law, standards, guaranteed enforcement", "Personal taste", "Mood", "Fashion"},
			CorrectIndex: 0,
			Points:       3,
			TimeLimitSec: 10,
		},
		{
			ID:           "r3-review-2",
			Text:         "True or false: marriage is purely private, society has no stake in it.",
			Options:      []string{"False", "True"},
			CorrectIndex: 0,
			Points:       3,
			TimeLimitSec: 9,
		},
		{
			ID:   "r3-review-3",
			Text: "What is the closing message of the course?",
			Options: []string{
				"Marriage is not only two people's business but society's as well",
				"Love is enough",
				"Families need no responsibility",
				"Law is unnecessary",
			},
			CorrectIndex: 0,
			Points:       3,
			TimeLimitSec: 10,
		},
		{
			ID:   "r3-review-4",
			Text: "The aim when building the family is to:",
			Options: []string{
				"Balance personal freedom with social responsibility",
				"Pursue absolute freedom",
				"Serve personal interest only",
				"Ignore shared standards",
			},
			CorrectIndex: 0,
			Points:       3,
			TimeLimitSec: 10,
		},
	},
}

// bossQuestion closes round 3 before the final summary. Wrong answers cost a
// flat two points; there is no partial credit and no enforced countdown.
var bossQuestion = quizbank.Question{
	ID:   "boss-final",
	Text: "Final boss: do you agree that marriage is not only two people's business but society's as well?",
	Options: []string{
		"Agree: the family is bound to the community and social stability",
		"Disagree: it is entirely a private matter",
	},
	CorrectIndex: 0,
	Points:       6,
	Explanation:  "Correct once you can name the family's social role and its ties to community responsibility.",
}

const bossWrongPenalty = -2
