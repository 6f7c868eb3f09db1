package video

// SettingsRequest are the client-chosen render parameters
type SettingsRequest struct {
	Resolution  string `json:"resolution" validate:"omitempty,resolution"`
	Duration    int    `json:"duration" validate:"omitempty,min=1,max=60"`
	Orientation string `json:"orientation" validate:"omitempty,orientation"`
	Style       string `json:"style" validate:"omitempty,max=100"`
	Ratio       string `json:"ratio" validate:"omitempty,max=10"`
	CameraFixed bool   `json:"camera_fixed"`
}

// GenerateRequest submits a new generation job
type GenerateRequest struct {
	Title          string          `json:"title" validate:"required,min=1,max=255"`
	Prompt         string          `json:"prompt" validate:"required,min=3,max=2000"`
	NegativePrompt string          `json:"negative_prompt" validate:"omitempty,max=2000"`
	Settings       SettingsRequest `json:"settings"`
}

// ToSettings converts the request into stored render settings
func (r GenerateRequest) ToSettings() Settings {
	return Settings{
		Resolution:  r.Settings.Resolution,
		Duration:    r.Settings.Duration,
		Orientation: r.Settings.Orientation,
		Style:       r.Settings.Style,
		Ratio:       r.Settings.Ratio,
		CameraFixed: r.Settings.CameraFixed,
	}
}

// JobView is the client-facing job shape, with presigned media URLs
// attached when the job is completed
type JobView struct {
	*Job
	VideoURL     string `json:"video_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}
