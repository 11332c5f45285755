package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-engine/internal/model"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Status: "success", Data: data})
}

// Error renders an engine error with its contractual code so clients can
// branch on it (e.g. re-query availability after SLOT_CONFLICT).
func Error(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode(), Response{
			Status:  "error",
			Code:    string(appErr.Code),
			Message: appErr.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, Response{
		Status:  "error",
		Code:    string(apperrors.CodeInternal),
		Message: err.Error(),
	})
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Status:  "error",
		Code:    string(apperrors.CodeBadRequest),
		Message: message,
	})
}

// ActorFrom returns the identity the middleware attached to the request.
func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get("actor")
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
