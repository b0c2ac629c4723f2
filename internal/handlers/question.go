package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datfullstacks/mln3/internal/quizbank"
)

type QuestionHandler struct {
	bank *quizbank.Store
}

func NewQuestionHandler(bank *quizbank.Store) *QuestionHandler {
	return &QuestionHandler{bank: bank}
}

// GetQuestions returns one round's questions when ?round= is given, or the
// whole bank otherwise.
func (h *QuestionHandler) GetQuestions(c *gin.Context) {
	round := c.Query("round")
	if round == "" {
		bank, err := h.bank.Read()
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read quiz bank"})
			return
		}
		c.JSON(http.StatusOK, bank)
		return
	}

	if !quizbank.ValidRound(round) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "round must be 1, 2 or 3"})
		return
	}

	questions, err := h.bank.RoundQuestions(round)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read quiz bank"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"round": round, "questions": questions})
}

type AppendQuestionRequest struct {
	Round    string            `json:"round" binding:"required"`
	Question quizbank.Question `json:"question" binding:"required"`
}

// AppendQuestion validates and adds one question to a round of the bank.
func (h *QuestionHandler) AppendQuestion(c *gin.Context) {
	var req AppendQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if !quizbank.ValidRound(req.Round) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "round must be 1, 2 or 3"})
		return
	}

	saved, err := h.bank.Append(req.Round, req.Question)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"round": req.Round, "question": saved})
}
