package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "weekplan/backend/internal/errors"
	"weekplan/backend/internal/middleware"
)

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	if apiErr == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "internal_error",
				"message": "internal server error",
			},
		})
		return
	}

	errorBody := gin.H{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}
	if apiErr.Details != nil {
		errorBody["details"] = apiErr.Details
	}

	c.JSON(apiErr.Status, gin.H{
		"error": errorBody,
	})
}

func writeInvalidJSON(c *gin.Context) {
	writeError(c, apperrors.BadRequest("invalid_json", "invalid request body"))
}

// weekScope is the user and ISO week a board request addresses.
type weekScope struct {
	userID string
	year   int
	week   int
}

func parseWeekScope(c *gin.Context) (weekScope, bool) {
	userID := middleware.UserID(c)
	if userID == "" {
		writeError(c, apperrors.Unauthorized(""))
		return weekScope{}, false
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1 || year > 9999 {
		writeError(c, apperrors.BadRequest("invalid_week", "year must be a number"))
		return weekScope{}, false
	}
	week, err := strconv.Atoi(c.Param("week"))
	if err != nil {
		writeError(c, apperrors.BadRequest("invalid_week", "week must be a number"))
		return weekScope{}, false
	}
	return weekScope{userID: userID, year: year, week: week}, true
}
