package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dom/progress-tracker/internal/api/middleware"
	"github.com/dom/progress-tracker/internal/domain"
	"github.com/dom/progress-tracker/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type TaskHandler struct {
	tasks    *service.TaskService
	progress *service.ProgressService
	validate *validator.Validate
	log      *slog.Logger
}

func NewTaskHandler(tasks *service.TaskService, progress *service.ProgressService, log *slog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:    tasks,
		progress: progress,
		validate: service.NewValidator(),
		log:      log,
	}
}

type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=255,safe_text"`
	Description string `json:"description" validate:"safe_text"`
}

func (req *CreateTaskRequest) fromForm(form url.Values) {
	req.Title = form.Get("title")
	req.Description = form.Get("description")
}

func (req *CreateTaskRequest) normalize() {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
}

type UpdateTaskRequest struct {
	TaskID      optionalID `json:"task_id"`
	IsCompleted flexBool   `json:"is_completed"`
	Notes       *string    `json:"notes" validate:"omitempty,safe_text"`
}

func (req *UpdateTaskRequest) fromForm(form url.Values) {
	if v, ok := form["task_id"]; ok && len(v) > 0 {
		req.TaskID = optionalID{Set: true, Value: parseID(v[0])}
	}
	req.IsCompleted = flexBool(parseFormBool(form.Get("is_completed")))
	if v, ok := form["notes"]; ok && len(v) > 0 {
		notes := v[0]
		req.Notes = &notes
	}
}

func (req *UpdateTaskRequest) normalize() {}

type TaskListResponse struct {
	Success        bool              `json:"success"`
	Tasks          []domain.TaskView `json:"tasks"`
	Progress       float64           `json:"progress"`
	TotalTasks     int               `json:"total_tasks"`
	CompletedTasks int               `json:"completed_tasks"`
}

type CreateTaskResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	TaskID     uint    `json:"task_id"`
	Progress   float64 `json:"progress"`
	TotalTasks int     `json:"total_tasks"`
}

type UpdateTaskResponse struct {
	Success        bool                 `json:"success"`
	Message        string               `json:"message"`
	Progress       float64              `json:"progress"`
	CompletedTasks int                  `json:"completed_tasks"`
	TotalTasks     int                  `json:"total_tasks"`
	Team           service.TeamProgress `json:"team"`
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tasks, progress, err := h.snapshot(r, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, TaskListResponse{
		Success:        true,
		Tasks:          tasks,
		Progress:       progress,
		TotalTasks:     len(tasks),
		CompletedTasks: service.CompletedCount(tasks),
	})
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateTaskRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		var verrs *domain.ValidationErrors
		if errors.As(err, &verrs) {
			writeValidationError(w, verrs.Errors[0].Message, verrs)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	taskID, err := h.tasks.CreateTask(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTitle) {
			writeError(w, http.StatusBadRequest, "Invalid title format or length")
			return
		}
		if errors.Is(err, domain.ErrInvalidText) {
			writeError(w, http.StatusBadRequest, "Description contains invalid characters")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create task")
		return
	}

	tasks, progress, err := h.snapshot(r, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, CreateTaskResponse{
		Success:    true,
		Message:    "Task created successfully",
		TaskID:     taskID,
		Progress:   progress,
		TotalTasks: len(tasks),
	})
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	taskID := parseID(chi.URLParam(r, "id"))
	if taskID == 0 {
		writeError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req UpdateTaskRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		var verrs *domain.ValidationErrors
		if errors.As(err, &verrs) {
			writeValidationError(w, verrs.Errors[0].Message, verrs)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TaskID.Set && req.TaskID.Value != taskID {
		writeError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	err := h.tasks.UpdateProgress(r.Context(), uint(taskID), userID, bool(req.IsCompleted), req.Notes)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Task not found or access denied")
			return
		}
		if errors.Is(err, domain.ErrInvalidText) {
			writeError(w, http.StatusBadRequest, "Notes contain invalid characters")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	tasks, progress, err := h.snapshot(r, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, UpdateTaskResponse{
		Success:        true,
		Message:        "Task updated successfully",
		Progress:       progress,
		CompletedTasks: service.CompletedCount(tasks),
		TotalTasks:     len(tasks),
		Team:           h.progress.TeamProgress(tasks),
	})
}

// snapshot loads the caller's task list and completion percentage.
func (h *TaskHandler) snapshot(r *http.Request, userID uint) ([]domain.TaskView, float64, error) {
	tasks, err := h.tasks.ListTasksWithProgress(r.Context(), userID)
	if err != nil {
		return nil, 0, err
	}
	progress, err := h.progress.UserProgressPercent(r.Context(), userID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to compute progress", "user_id", userID, "error", err)
		return nil, 0, err
	}
	return tasks, progress, nil
}

func currentUserID(r *http.Request) (uint, bool) {
	sc, ok := middleware.GetSession(r.Context())
	if !ok {
		return 0, false
	}
	return sc.UserID()
}
