package videocompile

const (
	WorkflowName         = "video_compile"
	ActivityStitch       = "video_compile_stitch"
	ActivityMarkCompiled = "video_compile_mark_compiled"
	ActivityMarkFailed   = "video_compile_mark_failed"
)

type Input struct {
	ItineraryID string   `json:"itinerary_id"`
	TenantID    string   `json:"tenant_id"`
	ClipURLs    []string `json:"clip_urls"`
}

type StitchResult struct {
	VideoURL string `json:"video_url"`
	// Reused is true when the object existed from an earlier attempt and stitching was skipped.
	Reused bool `json:"reused"`
}

// WorkflowID keeps at most one running compile per itinerary.
func WorkflowID(itineraryID string) string {
	return "video-compile-" + itineraryID
}
