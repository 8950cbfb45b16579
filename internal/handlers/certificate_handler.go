// internal/handlers/certificate_handler.go
package handlers

import (
	"net/http"

	"course_progress_engine/internal/middleware"
	"course_progress_engine/internal/model"
	"course_progress_engine/internal/service"
	"course_progress_engine/internal/webutil"
)

type CertificateHandler struct {
	service service.OrchestratorService
}

func NewCertificateHandler(s service.OrchestratorService) *CertificateHandler {
	return &CertificateHandler{service: s}
}

// UpdateCertificate は証明書の発行・ダウンロード済みマークを行います
func (h *CertificateHandler) UpdateCertificate(w http.ResponseWriter, r *http.Request) {
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

	var req model.UpdateCertificateRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	if err := webutil.ValidateStruct(&req); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	cert, err := h.service.UpdateCertificate(r.Context(), userID, courseID, *req.ActivitiesScore, req.Downloaded)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	webutil.RespondWithJSON(w, http.StatusOK, cert)
}
