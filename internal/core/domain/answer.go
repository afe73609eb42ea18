package domain

// QueryContext carries the user's free-text question plus the optional
// assessment question that prompted it. It is derived per request and
// never persisted.
type QueryContext struct {
	// Query is the raw user question.
	Query string

	// AssessmentText is the text of the assessment question the user
	// is answering, when the question is anchored to one.
	AssessmentText string
}

// Answer is a complete, non-streamed response.
type Answer struct {
	// Text is the synthesized answer, including any appended source
	// attribution and disclaimer.
	Text string `json:"answer"`

	// Sources lists the documents the retrieved context came from.
	Sources []Source `json:"sources"`
}

// StreamFrame is one unit of a streamed response. A stream is an
// ordered sequence of frames terminated by exactly one frame with
// Done set; no frames follow it.
type StreamFrame struct {
	// Token is a text delta.
	Token string `json:"t"`

	// Done marks the terminal frame.
	Done bool `json:"done,omitempty"`

	// Sources is carried only on the terminal frame.
	Sources []Source `json:"sources,omitempty"`

	// Err reports a failure on the terminal frame instead of
	// aborting the stream uncleanly.
	Err string `json:"err,omitempty"`
}
