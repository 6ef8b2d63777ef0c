package notes

// Generation statuses reported on a NotesResponse. Each maps to one tier of
// the fallback cascade; "error" is reserved for callers that could not reach
// the pipeline at all (for example transcript acquisition failure).
const (
	StatusSuccess           = "success"
	StatusFallback          = "fallback"
	StatusEmergencyFallback = "emergency_fallback"
	StatusError             = "error"
)

// TopicStructure is one (main topic, subtopics) pairing produced by topic
// extraction. It is immutable after extraction and consumed by exactly one
// content-generation task.
type TopicStructure struct {
	MainTopic string   `json:"mainTopic"`
	Subtopics []string `json:"subtopics"`
}

// ImagePlaceholder is a request for an illustration at a position inside
// subtopic content. ImageURL stays empty and Placeholder stays true: the
// pipeline never renders media.
type ImagePlaceholder struct {
	Position    int    `json:"position"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Placeholder bool   `json:"placeholder"`
}

// TableData is a tabular block suggested by the model. Row widths are not
// forced to match the header count; mismatches pass through untouched.
type TableData struct {
	Position int        `json:"position"`
	Title    string     `json:"title"`
	Headers  []string   `json:"headers"`
	Rows     [][]string `json:"rows"`
}

// SubtopicContent is the generated material for one subtopic. Images and
// Tables are never nil on any value leaving the mapper, only empty.
type SubtopicContent struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Content     string             `json:"content"`
	Images      []ImagePlaceholder `json:"images"`
	Tables      []TableData        `json:"tables"`
}

// TopicContent is the generated material for one extracted topic, in the
// same position as its TopicStructure in the extraction output.
type TopicContent struct {
	Title     string            `json:"title"`
	Subtopics []SubtopicContent `json:"subtopics"`
}

// NotesResponse is the terminal artifact of a generation run. Status encodes
// the degradation tier; no error value ever crosses the pipeline boundary.
type NotesResponse struct {
	Topics   []TopicContent `json:"topics"`
	VideoURL string         `json:"videoUrl,omitempty"`
	Language string         `json:"language"`
	Status   string         `json:"status"`
	Error    string         `json:"error,omitempty"`
}
