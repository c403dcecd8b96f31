package contact

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"portfolio-studio-server/modules/common/response"
)

const maxBodyBytes = 64 << 10

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes - POST /api/contact
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/contact", h.Submit).Methods("POST", "OPTIONS")
	log.Println("✅ Contact routes registered: /api/contact")
}

// Submit - POST /api/contact
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusBadRequest, SubmitResponse{Status: "error", Error: "invalid request body"})
		return
	}

	msg, err := h.service.Submit(r.Context(), req)
	var invalid *ValidationError
	switch {
	case errors.As(err, &invalid):
		response.JSON(w, http.StatusBadRequest, SubmitResponse{Status: "error", Fields: invalid.Fields})
	case err != nil:
		response.JSON(w, http.StatusInternalServerError, SubmitResponse{Status: "error", Error: "failed to save message"})
	default:
		response.JSON(w, http.StatusOK, SubmitResponse{Status: "success", ID: msg.ID})
	}
}
