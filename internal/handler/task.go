package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sre-portfolio/notetrack/internal/model"
	"github.com/sre-portfolio/notetrack/internal/report"
	"github.com/sre-portfolio/notetrack/internal/tracking"
)

type TaskHandler struct {
	sessions Sessions
	logger   zerolog.Logger
	now      func() time.Time
}

func NewTaskHandler(sessions Sessions, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req model.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	task, err := s.CreateTask(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err, "failed to create task")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": task, "message": "task created"})
}

// Get returns the cached task together with its live elapsed time.
func (h *TaskHandler) Get(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	task, err := s.Task(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "failed to get task")
		return
	}

	elapsed, err := s.Elapsed(c.Request.Context(), task.ID)
	if err != nil {
		respondError(c, h.logger, err, "failed to get task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":             task,
		"elapsedSeconds":   elapsed,
		"elapsedFormatted": tracking.FormatSeconds(elapsed),
	})
}

func (h *TaskHandler) List(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	tasks, err := s.Tasks()
	if err != nil {
		respondError(c, h.logger, err, "failed to list tasks")
		return
	}

	if status := model.TaskStatus(c.Query("status")); status != "" {
		if !tracking.IsValidStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
		filtered := []model.Task{}
		for _, t := range tasks {
			if t.Status == status {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	c.JSON(http.StatusOK, gin.H{"data": tasks})
}

func (h *TaskHandler) Update(c *gin.Context) {
	var req model.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	task, err := s.UpdateTask(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err, "failed to update task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": task, "message": "task updated"})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	if err := s.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "failed to delete task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}

func (h *TaskHandler) Start(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	task, paused, err := s.StartTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "failed to start task")
		return
	}

	if paused == nil {
		paused = []model.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"data": task, "paused": paused, "message": "task started"})
}

func (h *TaskHandler) Pause(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	task, err := s.PauseTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "failed to pause task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": task, "message": "task paused"})
}

func (h *TaskHandler) Complete(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	task, err := s.CompleteTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "failed to complete task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": task, "message": "task completed"})
}

func (h *TaskHandler) Reorder(c *gin.Context) {
	var req model.ReorderTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	tasks, err := s.ReorderTasks(c.Request.Context(), req.TaskIDs)
	if err != nil {
		respondError(c, h.logger, err, "failed to reorder tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tasks, "message": "tasks reordered"})
}

func (h *TaskHandler) Entries(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	entries, err := s.TimeEntries(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "failed to list time entries")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// Metrics rolls tracked time up by ?period=day (default), week or month.
func (h *TaskHandler) Metrics(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	var (
		data interface{}
		err  error
	)
	switch period := c.DefaultQuery("period", "day"); period {
	case "day":
		data, err = s.MetricsByDay()
	case "week":
		data, err = s.MetricsByWeek()
	case "month":
		data, err = s.MetricsByMonth()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown period %q", period)})
		return
	}
	if err != nil {
		respondError(c, h.logger, err, "failed to compute metrics")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": data})
}

// Report downloads the monthly rollup as a PDF.
func (h *TaskHandler) Report(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	user, err := s.User()
	if err != nil {
		respondError(c, h.logger, err, "failed to build report")
		return
	}
	months, err := s.MetricsByMonth()
	if err != nil {
		respondError(c, h.logger, err, "failed to build report")
		return
	}

	now := h.now()
	pdf, err := report.TimeReport(user.Name, months, now)
	if err != nil {
		respondError(c, h.logger, err, "failed to build report")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.FileName(now)))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
