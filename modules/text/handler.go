package text

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

// RegisterRoutes - text generation endpoints
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/text", h.GenerateText).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/text/sections", h.GetSections).Methods("GET")
	r.HandleFunc("/api/text/{section:about|projects}", h.GenerateSection).Methods("POST", "OPTIONS")
	log.Println("✅ Text routes registered: /api/text, /api/text/sections, /api/text/{about|projects}")
}

// GenerateText - POST /api/text
func (h *Handler) GenerateText(w http.ResponseWriter, r *http.Request) {
	var req GenerateTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.Generate(r.Context(), req.Prompt)
	if errors.Is(err, ErrPromptRequired) {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		response.Error(w, gemini.UpstreamStatus(err), err.Error())
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// GenerateSection - POST /api/text/{section}
// On failure the placeholder copy is returned with the error so the page never goes blank.
func (h *Handler) GenerateSection(w http.ResponseWriter, r *http.Request) {
	section := Section(mux.Vars(r)["section"])

	result, err := h.service.GenerateSection(r.Context(), section)
	if errors.Is(err, ErrUnknownSection) {
		response.Error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		response.JSON(w, gemini.UpstreamStatus(err), SectionResponse{
			Text:    result.Text,
			Sources: result.Sources,
			Error:   err.Error(),
		})
		return
	}

	response.JSON(w, http.StatusOK, SectionResponse{Text: result.Text, Sources: result.Sources})
}

// GetSections - GET /api/text/sections
func (h *Handler) GetSections(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.service.Placeholders())
}
