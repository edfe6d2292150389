package judgeclients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/services/judgeclient"
	"gitlab.com/judge-dispatch.net/internal/handlers"
	"gitlab.com/judge-dispatch.net/internal/handlers/response"
	"gitlab.com/judge-dispatch.net/internal/static/errs"
)

// JudgeClientHandler serves judge client administration
type JudgeClientHandler struct {
	judgeClientService judgeclient.IJudgeClientService
	logger             primary.Logger
}

func NewJudgeClientHandler(judgeClientService judgeclient.IJudgeClientService, logger primary.Logger) *JudgeClientHandler {
	return &JudgeClientHandler{
		judgeClientService: judgeClientService,
		logger:             logger,
	}
}

// RegisterRoutes registers the API routes for JudgeClientHandler
func (h *JudgeClientHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/judge-clients", h.ListJudgeClients).Methods("GET")
	router.HandleFunc("/api/judge-clients", h.AddJudgeClient).Methods("POST")
	router.HandleFunc("/api/judge-clients/{id:[0-9]+}", h.GetJudgeClient).Methods("GET")
	router.HandleFunc("/api/judge-clients/{id:[0-9]+}", h.DeleteJudgeClient).Methods("DELETE")
	router.HandleFunc("/api/judge-clients/{id:[0-9]+}/reset-key", h.ResetJudgeClientKey).Methods("POST")
}

func (h *JudgeClientHandler) ListJudgeClients(w http.ResponseWriter, r *http.Request) {
	showSensitive, _ := strconv.ParseBool(r.URL.Query().Get("showSensitive"))

	infos, err := h.judgeClientService.ListJudgeClients(r.Context(), showSensitive)
	if err != nil {
		h.logger.Error("Failed to list judge clients", "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "Failed to list judge clients", StatusCode: http.StatusInternalServerError})
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, infos)
}

func (h *JudgeClientHandler) AddJudgeClient(w http.ResponseWriter, r *http.Request) {
	var req AddJudgeClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		response.WriteError(w, response.ErrorMessage{Message: "Invalid request", StatusCode: http.StatusBadRequest})
		return
	}

	client, err := h.judgeClientService.AddJudgeClient(r.Context(), req.Name, req.AllowedHosts)
	if err != nil {
		h.logger.Error("Failed to add judge client", "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "Failed to add judge client", StatusCode: http.StatusInternalServerError})
		return
	}

	handlers.ResponseWithJson(w, http.StatusCreated, client)
}

func (h *JudgeClientHandler) GetJudgeClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	showSensitive, _ := strconv.ParseBool(r.URL.Query().Get("showSensitive"))

	info, err := h.judgeClientService.GetJudgeClientInfo(r.Context(), id, showSensitive)
	if err != nil {
		h.writeServiceError(w, "Failed to get judge client", err)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, info)
}

func (h *JudgeClientHandler) DeleteJudgeClient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.judgeClientService.DeleteJudgeClient(r.Context(), id); err != nil {
		h.writeServiceError(w, "Failed to delete judge client", err)
		return
	}
	h.logger.Info("Judge client deleted", "judgeClientId", id, "admin", adminSubject(r))

	w.WriteHeader(http.StatusNoContent)
}

func (h *JudgeClientHandler) ResetJudgeClientKey(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	client, err := h.judgeClientService.ResetJudgeClientKey(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Failed to reset judge client key", err)
		return
	}
	h.logger.Info("Judge client key reset", "judgeClientId", id, "admin", adminSubject(r))

	handlers.ResponseWithJson(w, http.StatusOK, client)
}

func (h *JudgeClientHandler) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		response.WriteError(w, response.ErrorMessage{Message: "Invalid judge client id", StatusCode: http.StatusBadRequest})
		return 0, false
	}
	return id, true
}

func (h *JudgeClientHandler) writeServiceError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, errs.ErrJudgeClientNotFound) {
		response.WriteError(w, response.ErrorMessage{Message: "Judge client not found", StatusCode: http.StatusNotFound})
		return
	}
	h.logger.Error(message, "error", err)
	response.WriteError(w, response.ErrorMessage{Message: message, StatusCode: http.StatusInternalServerError})
}

// adminSubject names the admin behind a request for the audit log
func adminSubject(r *http.Request) string {
	claims, ok := handlers.ClaimsFromContext(r.Context())
	if !ok {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
