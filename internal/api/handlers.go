package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"flowtrack/internal/model"
	"flowtrack/internal/repository"
	"flowtrack/internal/service"
	"flowtrack/internal/xp"
)

const dayFormat = "2006-01-02"

// Handler exposes the core services over HTTP. Authentication is handled
// upstream; callers identify themselves by user id in the path.
type Handler struct {
	tasks      *service.TaskService
	progress   *service.ProgressService
	recurrence *service.RecurrenceService
	timers     *service.TimerService
}

func NewHandler(
	tasks *service.TaskService,
	progress *service.ProgressService,
	recurrence *service.RecurrenceService,
	timers *service.TimerService,
) *Handler {
	return &Handler{tasks: tasks, progress: progress, recurrence: recurrence, timers: timers}
}

type taskRequest struct {
	Title           string   `json:"title"`
	Description     *string  `json:"description"`
	WorkspaceID     string   `json:"workspace_id"`
	DueDate         *string  `json:"due_date"`
	DueTime         *string  `json:"due_time"`
	Priority        string   `json:"priority"`
	Status          string   `json:"status"`
	EstimateMinutes int      `json:"estimate_minutes"`
	Tags            []string `json:"tags"`
	IsRecurring     bool     `json:"is_recurring"`
	Subtasks        []string `json:"subtasks"`
}

func (r taskRequest) toInput() (service.TaskInput, error) {
	input := service.TaskInput{
		Title:           r.Title,
		Description:     r.Description,
		WorkspaceID:     r.WorkspaceID,
		DueTime:         r.DueTime,
		Priority:        model.Priority(r.Priority),
		Status:          model.Status(r.Status),
		EstimateMinutes: r.EstimateMinutes,
		Tags:            r.Tags,
		IsRecurring:     r.IsRecurring,
		Subtasks:        r.Subtasks,
	}
	if r.DueDate != nil && *r.DueDate != "" {
		day, err := time.Parse(dayFormat, *r.DueDate)
		if err != nil {
			return input, err
		}
		input.DueDate = &day
	}
	return input, nil
}

func (h *Handler) createTask(c *gin.Context) {
	var req taskRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := h.tasks.Create(c.Request.Context(), c.Param("userID"), input)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *Handler) listTasks(c *gin.Context) {
	tasks, err := h.tasks.ListByWorkspace(c.Request.Context(), c.Param("workspaceID"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *Handler) getTask(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) updateTask(c *gin.Context) {
	var req taskRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := h.tasks.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *Handler) deleteTask(c *gin.Context) {
	if err := h.tasks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) toggleTask(c *gin.Context) {
	result, err := h.tasks.ToggleCompletion(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) archiveTask(c *gin.Context) {
	if err := h.tasks.Archive(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) unarchiveTask(c *gin.Context) {
	if err := h.tasks.Unarchive(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) startTask(c *gin.Context) {
	if err := h.timers.Start(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateTaskStatus(c *gin.Context) {
	var req statusRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.tasks.UpdateStatus(c.Request.Context(), c.Param("id"), model.Status(req.Status)); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type subtaskRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
	Position  *int    `json:"position"`
}

func (h *Handler) updateSubtask(c *gin.Context) {
	var req subtaskRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := repository.SubtaskPatch{Title: req.Title, Completed: req.Completed, Position: req.Position}
	if err := h.tasks.UpdateSubtask(c.Request.Context(), c.Param("id"), patch); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listSubtasks(c *gin.Context) {
	subtasks, err := h.tasks.ListSubtasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"subtasks": subtasks,
		"progress": xp.SubtaskProgress(subtasks),
	})
}

func (h *Handler) getProgress(c *gin.Context) {
	bundle, err := h.progress.FetchProgress(c.Request.Context(), c.Param("userID"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

func (h *Handler) listCompleted(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := h.progress.ListCompleted(c.Request.Context(), c.Param("userID"), limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) completedStats(c *gin.Context) {
	from, err := time.Parse(dayFormat, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	to, err := time.Parse(dayFormat, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}
	stats, err := h.progress.StatsRange(c.Request.Context(), c.Param("userID"), from, to.AddDate(0, 0, 1))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) reconcile(c *gin.Context) {
	if err := h.recurrence.ReconcileAll(c.Request.Context(), c.Param("userID")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type timerStopRequest struct {
	TaskID      string    `json:"task_id"`
	StartedAt   time.Time `json:"started_at"`
	StoppedAt   time.Time `json:"stopped_at"`
	FinalStatus string    `json:"final_status"`
}

func (h *Handler) stopTimer(c *gin.Context) {
	var req timerStopRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session, result, err := h.timers.Stop(c.Request.Context(), service.StopInput{
		TaskID:      req.TaskID,
		StartedAt:   req.StartedAt,
		StoppedAt:   req.StoppedAt,
		FinalStatus: model.Status(req.FinalStatus),
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session, "result": result})
}

func (h *Handler) timerHistory(c *gin.Context) {
	if fromRaw, toRaw := c.Query("from"), c.Query("to"); fromRaw != "" || toRaw != "" {
		from, err := time.Parse(dayFormat, fromRaw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		to, err := time.Parse(dayFormat, toRaw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return
		}
		sessions, err := h.timers.HistoryRange(c.Request.Context(), c.Param("userID"), from, to.AddDate(0, 0, 1))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, sessions)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	sessions, err := h.timers.History(c.Request.Context(), c.Param("userID"), limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) taskTimerHistory(c *gin.Context) {
	sessions, err := h.timers.HistoryForTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) timerStats(c *gin.Context) {
	stats, err := h.timers.Stats(c.Request.Context(), c.Param("userID"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
