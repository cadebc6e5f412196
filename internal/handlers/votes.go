package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/voting"
)

type VoteHandler struct {
	votes *voting.Coordinator
}

func NewVoteHandler(votes *voting.Coordinator) *VoteHandler {
	return &VoteHandler{votes: votes}
}

type voteRequest struct {
	ItemType string `json:"itemType"`
	ItemID   int    `json:"itemId"`
	Type     string `json:"type"`
}

func (r voteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ItemType, validation.Required),
		validation.Field(&r.ItemID, validation.Required, validation.Min(1)),
		validation.Field(&r.Type, validation.Required),
	)
}

// VoteResponse is returned by every vote endpoint. UserVote is nil when the
// caller holds no vote on the item.
type VoteResponse struct {
	Message  string            `json:"message,omitempty"`
	UserVote *models.Direction `json:"userVote"`
	voting.Tally
}

var outcomeMessages = map[voting.Outcome]string{
	voting.OutcomeCreated: "Vote recorded",
	voting.OutcomeFlipped: "Vote updated",
	voting.OutcomeRemoved: "Vote removed",
}

// SubmitVote handles POST /api/votes
func (h *VoteHandler) SubmitVote(c *gin.Context) {
	voterID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, apperr.Unauthenticated("user not authenticated"))
		return
	}

	var input voteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, apperr.InvalidArgument("invalid vote parameters"))
		return
	}
	if err := input.Validate(); err != nil {
		respondError(c, apperr.InvalidArgument("invalid vote parameters").WithField("fields", err.Error()))
		return
	}

	kind, err := models.ParseTargetKind(input.ItemType)
	if err != nil {
		respondError(c, apperr.InvalidArgument("invalid vote parameters").WithField("itemType", input.ItemType))
		return
	}
	dir, err := models.ParseDirection(input.Type)
	if err != nil {
		respondError(c, apperr.InvalidArgument("invalid vote parameters").WithField("type", input.Type))
		return
	}

	res, err := h.votes.SubmitVote(c.Request.Context(), voterID, kind, input.ItemID, dir)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := VoteResponse{Message: outcomeMessages[res.Outcome], Tally: res.Tally}
	if res.Outcome != voting.OutcomeRemoved {
		resp.UserVote = &res.Direction
	}
	c.JSON(http.StatusOK, resp)
}

// GetTally handles GET /api/votes/:kind/:id
func (h *VoteHandler) GetTally(c *gin.Context) {
	kind, id, err := targetParams(c)
	if err != nil {
		respondError(c, err)
		return
	}

	tally, err := h.votes.Tally(c.Request.Context(), kind, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tally)
}

// GetMyVote handles GET /api/votes/:kind/:id/me
func (h *VoteHandler) GetMyVote(c *gin.Context) {
	voterID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, apperr.Unauthenticated("user not authenticated"))
		return
	}
	kind, id, err := targetParams(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	tally, err := h.votes.Tally(ctx, kind, id)
	if err != nil {
		respondError(c, err)
		return
	}
	dir, found, err := h.votes.CurrentVote(ctx, voterID, kind, id)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := VoteResponse{Tally: tally}
	if found {
		resp.UserVote = &dir
	}
	c.JSON(http.StatusOK, resp)
}

func targetParams(c *gin.Context) (models.TargetKind, int, error) {
	kind, err := models.ParseTargetKind(c.Param("kind"))
	if err != nil {
		return "", 0, apperr.InvalidArgument("invalid item type").WithField("itemType", c.Param("kind"))
	}
	id, err := paramID(c, "id")
	if err != nil {
		return "", 0, err
	}
	return kind, id, nil
}
