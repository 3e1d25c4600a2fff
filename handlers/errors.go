package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/database"
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/utils"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var errorStatus = []struct {
	err  error
	code int
}{
	{database.ErrProductNotFound, http.StatusNotFound},
	{database.ErrReviewNotFound, http.StatusNotFound},
	{database.ErrOrderNotFound, http.StatusNotFound},
	{database.ErrUserNotFound, http.StatusNotFound},
	{database.ErrCartItemNotFound, http.StatusNotFound},
	{database.ErrAlreadyReviewed, http.StatusBadRequest},
	{database.ErrOrderAlreadyPaid, http.StatusBadRequest},
	{database.ErrEmailTaken, http.StatusBadRequest},
	{utils.ErrGatewayRejected, http.StatusBadRequest},
}

// ErrorHandler renders every handler error as {"message": ...}.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, message := classify(err)
		if code >= http.StatusInternalServerError {
			log.Error("Unhandled error",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]string{"message": message})
		}
		if err != nil {
			log.Error("Failed to write error response", zap.Error(err))
		}
	}
}

func classify(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, fmt.Sprint(he.Message)
	}

	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.code, e.err.Error()
		}
	}

	return http.StatusInternalServerError, err.Error()
}
