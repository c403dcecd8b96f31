package video

import (
	"time"

	"portfolio-studio-server/modules/common/gemini"
)

// Job states
const (
	StatePending   = "pending"
	StatePolling   = "polling"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// User-visible status messages
const (
	StatusInitializing = "Initializing video generation..."
	StatusStarted      = "Video generation started. Polling for results... this can take a few minutes."
	StatusStillWorking = "Still working... Checking for updates."
	StatusComplete     = "Video processing complete!"
)

// GenerateVideoRequest - JSON body of POST /api/video
type GenerateVideoRequest struct {
	Prompt      string                `json:"prompt"`
	AspectRatio string                `json:"aspectRatio"`
	Image       *gemini.UploadedImage `json:"image"`
}

// Job - one video generation flow from submission to terminal state
type Job struct {
	JobID         string    `json:"jobId"`
	Prompt        string    `json:"prompt"`
	AspectRatio   string    `json:"aspectRatio"`
	ImageName     string    `json:"imageName,omitempty"`
	OperationName string    `json:"operationName,omitempty"`
	State         string    `json:"state"`
	StatusMessage string    `json:"status,omitempty"`
	VideoURL      string    `json:"videoUrl,omitempty"`
	ErrorMessage  string    `json:"error,omitempty"`
	Polls         int       `json:"polls"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Terminal - completed or failed
func (j *Job) Terminal() bool {
	return j.State == StateCompleted || j.State == StateFailed
}

// StatusEvent - payload pushed to websocket subscribers of a job
type StatusEvent struct {
	Type     string `json:"type"`
	JobID    string `json:"jobId"`
	State    string `json:"state"`
	Status   string `json:"status"`
	VideoURL string `json:"videoUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (j *Job) Event() StatusEvent {
	return StatusEvent{
		Type:     "video_status",
		JobID:    j.JobID,
		State:    j.State,
		Status:   j.StatusMessage,
		VideoURL: j.VideoURL,
		Error:    j.ErrorMessage,
	}
}
