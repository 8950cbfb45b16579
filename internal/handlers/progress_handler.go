// internal/handlers/progress_handler.go
package handlers

import (
	"net/http"
	"strconv"

	"course_progress_engine/internal/middleware"
	"course_progress_engine/internal/model"
	"course_progress_engine/internal/service"
	"course_progress_engine/internal/webutil"

	"github.com/go-chi/chi/v5"
)

type ProgressHandler struct {
	service service.OrchestratorService
}

func NewProgressHandler(s service.OrchestratorService) *ProgressHandler {
	return &ProgressHandler{service: s}
}

func (h *ProgressHandler) GetOverallProgress(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context())

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	overall, err := h.service.GetOverallProgress(r.Context(), userID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, overall)
}

func (h *ProgressHandler) GetCourseProgress(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context())

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	courseID, err := parseIntParam(r, "course_id")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	summary, err := h.service.GetCourseProgress(r.Context(), userID, courseID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *ProgressHandler) UpdateUnitProgress(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context())

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	courseID, err := parseIntParam(r, "course_id")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	unitID, err := parseIntParam(r, "unit_id")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req model.UpdateUnitProgressRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	if err := webutil.ValidateStruct(&req); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	if err := h.service.UpdateUnitProgress(r.Context(), userID, courseID, unitID, *req.Percent); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProgressHandler) CompleteQuiz(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context())

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	courseID, err := parseIntParam(r, "course_id")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	unitID, err := parseIntParam(r, "unit_id")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req model.CompleteQuizRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	if err := webutil.ValidateStruct(&req); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	if err := h.service.CompleteQuiz(r.Context(), userID, courseID, unitID, *req.Score); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProgressHandler) ResetCourseProgress(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context())

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	courseID, err := parseIntParam(r, "course_id")
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	if err := h.service.ResetCourseProgress(r.Context(), userID, courseID); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProgressHandler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context())

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	h.service.ClearSession(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}

func parseIntParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, model.NewAppError("VALIDATION_ERROR", "URLパラメータ '"+name+"' が不正です。", name, model.ErrInvalidInput)
	}
	return v, nil
}
