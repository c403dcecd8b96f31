package image

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"portfolio-studio-server/modules/common/gemini"
	"portfolio-studio-server/modules/common/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes - POST /api/image
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/image", h.GenerateImage).Methods("POST", "OPTIONS")
	log.Println("✅ Image routes registered: /api/image")
}

// GenerateImage - POST /api/image
// Failed generations return an empty image list alongside the error.
func (h *Handler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req GenerateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	images, err := h.service.Generate(r.Context(), req.Prompt, req.Format)
	switch {
	case errors.Is(err, ErrPromptRequired), errors.Is(err, ErrUnsupportedFormat):
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		response.JSON(w, gemini.UpstreamStatus(err), map[string]interface{}{
			"images": []ImagePayload{},
			"error":  err.Error(),
		})
		return
	}

	response.JSON(w, http.StatusOK, GenerateImageResponse{Images: images})
}
