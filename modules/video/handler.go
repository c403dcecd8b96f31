package video

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"portfolio-studio-server/modules/common/gemini"
	"portfolio-studio-server/modules/common/response"
)

const maxUploadBytes = 20 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes - POST /api/video, GET /api/video/{jobId}
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/video", h.GenerateVideo).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/video/{jobId}", h.GetJobStatus).Methods("GET")
	log.Println("✅ Video routes registered: /api/video, /api/video/{jobId}")
}

// GenerateVideo accepts either JSON with a base64 image or a multipart upload.
func (h *Handler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	req, err := decodeRequest(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.service.Submit(r.Context(), req)
	if err != nil {
		var genErr *gemini.GenerationError
		var reqErr *RequestError
		switch {
		case errors.As(err, &reqErr):
			response.Error(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &genErr) && job != nil:
			response.JSON(w, gemini.UpstreamStatus(err), map[string]interface{}{
				"error": err.Error(),
				"job":   job,
			})
		case job != nil:
			response.JSON(w, http.StatusInternalServerError, map[string]interface{}{
				"error": err.Error(),
				"job":   job,
			})
		default:
			response.Error(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	response.JSON(w, http.StatusAccepted, map[string]string{
		"jobId":  job.JobID,
		"state":  job.State,
		"status": job.StatusMessage,
	})
}

// GetJobStatus returns the stored state of a video job.
func (h *Handler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.service.Get(r.Context(), jobID)
	if errors.Is(err, ErrJobNotFound) {
		response.Error(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.JSON(w, http.StatusOK, job)
}

func decodeRequest(r *http.Request) (*GenerateVideoRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return decodeMultipart(r)
	}

	var req GenerateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request body")
	}
	if req.Image == nil || req.Image.Base64 == "" {
		return &req, nil
	}

	payload, dataURLType := parseDataURL(req.Image.Base64)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &RequestError{Err: fmt.Errorf("invalid image data: %w", err)}
	}

	mimeType := req.Image.MIMEType
	if mimeType == "" {
		mimeType = dataURLType
	}
	if mimeType, err = imageMIMEType(mimeType, data); err != nil {
		return nil, err
	}

	req.Image.Base64 = payload
	req.Image.MIMEType = mimeType
	return &req, nil
}

func decodeMultipart(r *http.Request) (*GenerateVideoRequest, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart body: %w", err)
	}

	req := &GenerateVideoRequest{
		Prompt:      r.FormValue("prompt"),
		AspectRatio: r.FormValue("aspectRatio"),
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid image upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read image upload: %w", err)
	}

	mimeType, err := imageMIMEType(header.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, err
	}

	req.Image = &gemini.UploadedImage{
		Base64:   base64.StdEncoding.EncodeToString(data),
		Name:     header.Filename,
		MIMEType: mimeType,
	}
	return req, nil
}

// parseDataURL accepts both raw base64 and "data:<mime>;base64,<payload>".
// The media type is empty for raw base64.
func parseDataURL(value string) (payload, mediaType string) {
	if !strings.HasPrefix(value, "data:") {
		return value, ""
	}
	idx := strings.Index(value, ",")
	if idx < 0 {
		return value, ""
	}
	meta := value[len("data:"):idx]
	if semi := strings.Index(meta, ";"); semi >= 0 {
		meta = meta[:semi]
	}
	return value[idx+1:], strings.ToLower(strings.TrimSpace(meta))
}

// imageMIMEType - declared type, sniffed from the bytes when missing; anything
// other than image/* is rejected
func imageMIMEType(declared string, data []byte) (string, error) {
	mimeType := declared
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return "", &RequestError{Err: fmt.Errorf("unsupported image type: %s", mimeType)}
	}
	return mediaType, nil
}
