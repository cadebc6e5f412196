package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/voting"
)

// Handler combines all handler types
type Handler struct {
	Vote *VoteHandler
	User *UserHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(coordinator *voting.Coordinator) *Handler {
	return &Handler{
		Vote: NewVoteHandler(coordinator),
		User: NewUserHandler(coordinator),
	}
}

// respondError writes err as a JSON error body with the status of its type.
func respondError(c *gin.Context, err error) {
	appErr := apperr.As(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus(), appErr.ToResponse())
}

func paramID(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, apperr.InvalidArgument("invalid " + name).WithField(name, c.Param(name))
	}
	return id, nil
}
