package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"moodybell/internal/model"
	"moodybell/internal/storage"
	logx "moodybell/pkg/logx"
)

// apiError is rendered as {"error": Message} with status Code.
type apiError struct {
	Code    int
	Message string
}

type handlerFunc func(c *gin.Context) (any, *apiError)

// resolve adapts h to gin, answering 200 on success.
func resolve(h handlerFunc) gin.HandlerFunc {
	return resolveStatus(http.StatusOK, h)
}

func resolveStatus(code int, h handlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, apiErr := h(c)
		if apiErr != nil {
			c.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
			return
		}
		c.JSON(code, result)
	}
}

func badRequest(msg string) *apiError {
	return &apiError{Code: http.StatusBadRequest, Message: msg}
}

// errorFrom maps domain errors onto HTTP statuses. Anything unknown is a 500
// and gets logged; the client only sees a generic message.
func errorFrom(log logx.Logger, err error) *apiError {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return badRequest(verr.Error())
	case errors.Is(err, model.ErrValidation):
		return badRequest(err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return &apiError{Code: http.StatusNotFound, Message: "not found"}
	}
	log.Error("request failed", logx.Err(err))
	return &apiError{Code: http.StatusInternalServerError, Message: "internal error"}
}

func paramID(c *gin.Context) (int64, *apiError) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id")
	}
	return id, nil
}
