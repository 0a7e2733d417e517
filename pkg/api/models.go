package api

// Wire types for the scoring backend's HTTP surface. Field names mirror the
// backend's snake_case JSON exactly.

type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Terminal reports whether a job in this state will never change again.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

type UploadResponse struct {
	UploadId string `json:"upload_id"`
	Count    int    `json:"count"`
}

type AnalyzeResponse struct {
	JobId    string   `json:"job_id"`
	UploadId string   `json:"upload_id"`
	Status   JobState `json:"status"`
}

type JobStatus struct {
	Status   JobState `json:"status"`
	Progress float64  `json:"progress"`
	UploadId string   `json:"upload_id"`
	Error    string   `json:"error,omitempty"`
}

type ScoreBreakdown struct {
	Sharpness   float64 `json:"sharpness"`
	Composition float64 `json:"composition"`
	Emotion     float64 `json:"emotion"`
	Action      float64 `json:"action"`
	Duplicate   float64 `json:"duplicate"`
}

type ImageScore struct {
	ImageId    string         `json:"image_id"`
	FinalScore float64        `json:"final_score"`
	Tags       []string       `json:"tags"`
	Scores     ScoreBreakdown `json:"scores"`
	Rank       int            `json:"rank,omitempty"`
	DebugInfo  map[string]any `json:"debug_info,omitempty"`
}

// HasTag reports whether the image carries the exact tag.
func (img *ImageScore) HasTag(tag string) bool {
	for _, t := range img.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// DuplicateGroup is an ordered cluster of near-identical images. The image
// at index 0 is the recommended keeper.
type DuplicateGroup struct {
	GroupId         int      `json:"group_id"`
	Images          []string `json:"images"`
	Count           int      `json:"count"`
	RecommendedKeep string   `json:"recommended_keep,omitempty"`
}

type DuplicateSummary struct {
	TotalDuplicates int `json:"total_duplicates"`
	UniqueImages    int `json:"unique_images"`
	HashGroups      int `json:"hash_groups,omitempty"`
}

type DuplicateReport struct {
	Groups          []DuplicateGroup `json:"groups"`
	Summary         DuplicateSummary `json:"summary"`
	Recommendations []string         `json:"recommendations,omitempty"`
}

type ResultsMetadata struct {
	TotalImages     int    `json:"total_images"`
	ScoringMethod   string `json:"scoring_method"`
	CalibrationNote string `json:"calibration_note,omitempty"`
}

type ResultsResponse struct {
	UploadId        string           `json:"upload_id"`
	Images          []ImageScore     `json:"images"`
	Metadata        *ResultsMetadata `json:"metadata,omitempty"`
	DuplicateReport *DuplicateReport `json:"duplicate_report,omitempty"`
}
