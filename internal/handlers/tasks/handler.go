package tasks

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgequeue"
	"gitlab.com/judge-dispatch.net/internal/domain"
	"gitlab.com/judge-dispatch.net/internal/handlers"
	"gitlab.com/judge-dispatch.net/internal/handlers/response"
	"gitlab.com/judge-dispatch.net/internal/static/errs"
)

// TaskHandler exposes the judge queue to operators
type TaskHandler struct {
	queueService judgequeue.IJudgeQueueService
	logger       primary.Logger
}

func NewTaskHandler(queueService judgequeue.IJudgeQueueService, logger primary.Logger) *TaskHandler {
	return &TaskHandler{
		queueService: queueService,
		logger:       logger,
	}
}

// RegisterRoutes registers the API routes for TaskHandler
func (h *TaskHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/tasks", h.PushTask).Methods("POST")
	router.HandleFunc("/api/tasks/stats", h.GetStats).Methods("GET")
	router.HandleFunc("/api/tasks/dead-letters", h.GetDeadLetters).Methods("GET")
	router.HandleFunc("/api/tasks/dead-letters/{taskId}/retry", h.RetryDeadLetter).Methods("POST")
}

func (h *TaskHandler) PushTask(w http.ResponseWriter, r *http.Request) {
	var req PushTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Type) == "" {
		response.WriteError(w, response.ErrorMessage{Message: "Invalid request", StatusCode: http.StatusBadRequest})
		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	task := &domain.Task{
		ID:      req.ID,
		Type:    req.Type,
		Payload: req.Payload,
		Meta:    domain.TaskMeta{TaskID: req.ID, Type: req.Type},
	}

	if err := h.queueService.SubmitTask(r.Context(), task, req.AtFront); err != nil {
		if errors.Is(err, errs.ErrDuplicateTask) {
			response.WriteError(w, response.ErrorMessage{Message: "Task already queued or in flight", StatusCode: http.StatusConflict})
			return
		}
		h.logger.Error("Failed to push task", "taskId", task.ID, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, errs.ErrQueueClosed) {
			status = http.StatusServiceUnavailable
		}
		response.WriteError(w, response.ErrorMessage{Message: "Failed to push task", StatusCode: status})
		return
	}

	handlers.ResponseWithJson(w, http.StatusAccepted, PushTaskResponse{Task: task})
}

func (h *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	response.WriteSuccess(w, h.queueService.Stats())
}

func (h *TaskHandler) GetDeadLetters(w http.ResponseWriter, r *http.Request) {
	letters := h.queueService.DeadLetters()
	if letters == nil {
		letters = []domain.DeadLetter{}
	}
	handlers.ResponseWithJson(w, http.StatusOK, letters)
}

func (h *TaskHandler) RetryDeadLetter(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskId"]

	if err := h.queueService.RetryDeadLetter(r.Context(), taskID); err != nil {
		if errors.Is(err, errs.ErrDeadLetterNotFound) {
			response.WriteError(w, response.ErrorMessage{Message: "Dead letter not found", StatusCode: http.StatusNotFound})
			return
		}
		h.logger.Error("Failed to retry dead letter", "taskId", taskID, "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "Failed to retry dead letter", StatusCode: http.StatusInternalServerError})
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
