package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/voting"
)

type UserHandler struct {
	votes *voting.Coordinator
}

func NewUserHandler(votes *voting.Coordinator) *UserHandler {
	return &UserHandler{votes: votes}
}

// GetReputation returns a user's reputation
func (h *UserHandler) GetReputation(c *gin.Context) {
	userID, err := paramID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	ident, err := h.votes.Reputation(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ReputationResponse{
		ID:         ident.ID,
		Username:   ident.Username,
		Reputation: ident.Reputation,
		IsBanned:   ident.Banned,
	})
}
