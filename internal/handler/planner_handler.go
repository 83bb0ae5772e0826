package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"weekplan/backend/internal/model"
	"weekplan/backend/internal/service"
)

type PlannerHandler struct {
	plannerService *service.PlannerService
}

type createEventRequest struct {
	Date            string `json:"date"`
	Hour            int    `json:"hour"`
	Minute          int    `json:"minute"`
	DurationMinutes int    `json:"durationMinutes"`
	model.Classification
}

type cellRequest struct {
	Date     string   `json:"date"`
	Hour     *int     `json:"hour"`
	Minute   *int     `json:"minute"`
	PointerY *float64 `json:"pointerY"`
}

type resizeStartRequest struct {
	Direction string  `json:"direction"`
	PointerY  float64 `json:"pointerY"`
}

type pointerRequest struct {
	PointerY float64 `json:"pointerY"`
}

type menuRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type pasteRequest struct {
	Date   string `json:"date"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
}

func NewPlannerHandler(plannerService *service.PlannerService) *PlannerHandler {
	return &PlannerHandler{plannerService: plannerService}
}

func (h *PlannerHandler) GetWeek(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	reload, _ := strconv.ParseBool(c.Query("reload"))

	view, apiErr := h.plannerService.LoadWeek(c.Request.Context(), scope.userID, scope.year, scope.week, reload)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"week": view})
}

func (h *PlannerHandler) CreateEvent(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	event, apiErr := h.plannerService.CreateAt(c.Request.Context(), scope.userID, scope.year, scope.week, service.CreateEventInput{
		Date:            req.Date,
		Hour:            req.Hour,
		Minute:          req.Minute,
		DurationMinutes: req.DurationMinutes,
		Classification:  req.Classification,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": event})
}

func (h *PlannerHandler) DeleteEvent(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	result, apiErr := h.plannerService.DeleteEvent(c.Request.Context(), scope.userID, scope.year, scope.week, c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PlannerHandler) Save(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	view, apiErr := h.plannerService.Save(c.Request.Context(), scope.userID, scope.year, scope.week)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"week": view})
}

func (h *PlannerHandler) DragStart(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	drag, apiErr := h.plannerService.DragStart(c.Request.Context(), scope.userID, scope.year, scope.week, c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drag": drag})
}

func (h *PlannerHandler) DragOver(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	var req cellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}
	drag, apiErr := h.plannerService.DragOver(c.Request.Context(), scope.userID, scope.year, scope.week, c.Param("id"), req.input())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drag": drag})
}

// DragDrop answers 200 even when the drop target was unusable; the result
// then reports committed=false and carries the unchanged event.
func (h *PlannerHandler) DragDrop(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	var req cellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}
	result, apiErr := h.plannerService.DragDrop(c.Request.Context(), scope.userID, scope.year, scope.week, c.Param("id"), req.input())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PlannerHandler) DragCancel(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	result, apiErr := h.plannerService.DragCancel(c.Request.Context(), scope.userID, scope.year, scope.week, c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PlannerHandler) ResizeStart(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	var req resizeStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}
	resize, apiErr := h.plannerService.ResizeStart(c.Request.Context(), scope.userID, scope.year, scope.week, c.Param("id"), req.Direction, req.PointerY)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resize": resize})
}

func (h *PlannerHandler) ResizeMove(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	var req pointerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}
	resize, apiErr := h.plannerService.ResizeMove(c.Request.Context(), scope.userID, scope.year, scope.week, c.Param("id"), req.PointerY)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resize": resize})
}

func (h *PlannerHandler) ResizeEnd(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	result, apiErr := h.plannerService.ResizeEnd(c.Request.Context(), scope.userID, scope.year, scope.week, c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PlannerHandler) ResizeCancel(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	result, apiErr := h.plannerService.ResizeCancel(c.Request.Context(), scope.userID, scope.year, scope.week, c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PlannerHandler) OpenMenu(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	var req menuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}
	menu, apiErr := h.plannerService.OpenMenu(c.Request.Context(), scope.userID, scope.year, scope.week, c.Param("id"), req.X, req.Y)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"menu": menu})
}

func (h *PlannerHandler) CloseMenu(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	menu, apiErr := h.plannerService.CloseMenu(c.Request.Context(), scope.userID, scope.year, scope.week)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"menu": menu})
}

func (h *PlannerHandler) MenuCopy(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	event, apiErr := h.plannerService.MenuCopy(c.Request.Context(), scope.userID, scope.year, scope.week)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clipboard": event})
}

func (h *PlannerHandler) MenuDelete(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	result, apiErr := h.plannerService.MenuDelete(c.Request.Context(), scope.userID, scope.year, scope.week)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PlannerHandler) Paste(c *gin.Context) {
	scope, ok := parseWeekScope(c)
	if !ok {
		return
	}
	var req pasteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}
	event, apiErr := h.plannerService.Paste(c.Request.Context(), scope.userID, scope.year, scope.week, req.Date, req.Hour, req.Minute)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": event})
}

func (r cellRequest) input() service.CellInput {
	return service.CellInput{Date: r.Date, Hour: r.Hour, Minute: r.Minute, PointerY: r.PointerY}
}
