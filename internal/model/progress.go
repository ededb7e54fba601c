package model

// ProgressEventType enumerates the terminal/non-terminal event kinds
// appended to the Progress Reporter log and delivered to progress callbacks.
type ProgressEventType string

const (
	ProgressStart     ProgressEventType = "start"
	ProgressUpdate    ProgressEventType = "progress"
	ProgressComplete  ProgressEventType = "complete"
	ProgressCancelled ProgressEventType = "cancelled"
	ProgressError     ProgressEventType = "error"
	ProgressWarning   ProgressEventType = "warning"
)

// ProgressEvent is the sum/variant type carried through the progress
// callback and the JSON-lines log (spec.md §4.5.2, Design Notes: "dynamic
// tagged progress events" re-architected as an explicit variant).
type ProgressEvent struct {
	Type                ProgressEventType `json:"type"`
	CompletedChunks     int               `json:"completed_chunks"`
	TotalChunks         int               `json:"total_chunks"`
	TotalFiles          int               `json:"total_files"`
	CompletedFiles      int               `json:"completed_files"`
	CurrentFile         string            `json:"current_file,omitempty"`
	WaitingForRateLimit bool              `json:"waiting_for_rate_limit,omitempty"`
	IsCancelled         bool              `json:"is_cancelled,omitempty"`
	Percentage          int               `json:"percentage"`
	Message             string            `json:"message,omitempty"`
}

// Percentage computes floor(100*completed/total), 0 when total is 0.
func Percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return (100 * completed) / total
}

// IndexStats answers a status request (spec.md §6).
type IndexStats struct {
	Initialized    bool            `json:"initialized"`
	TotalFiles     int             `json:"total_files"`
	IndexedFiles   int             `json:"indexed_files"`
	LastUpdated    *int64          `json:"last_updated,omitempty"`
	EmbeddingModel string          `json:"embedding_model"`
	PerModelStats  []ModelRowStats `json:"per_model_stats"`
}

// ModelRowStats is one entry of IndexStats.PerModelStats.
type ModelRowStats struct {
	Model          string `json:"model"`
	RowCount       int64  `json:"row_count"`
	TotalDataBytes int64  `json:"total_data_bytes"`
}
