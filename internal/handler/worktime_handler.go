package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"weekplan/backend/internal/middleware"
	"weekplan/backend/internal/service"
)

type WorkTimeHandler struct {
	workTimeService *service.WorkTimeService
}

type workTimeRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func NewWorkTimeHandler(workTimeService *service.WorkTimeService) *WorkTimeHandler {
	return &WorkTimeHandler{workTimeService: workTimeService}
}

func (h *WorkTimeHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)
	workTimes, apiErr := h.workTimeService.List(c.Request.Context(), userID, c.Query("from"), c.Query("to"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workTimes": workTimes})
}

func (h *WorkTimeHandler) Put(c *gin.Context) {
	var req workTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	userID := middleware.UserID(c)
	workTime, apiErr := h.workTimeService.Put(c.Request.Context(), userID, c.Param("date"), req.Start, req.End)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workTime": workTime})
}
