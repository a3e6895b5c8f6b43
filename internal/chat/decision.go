package chat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MemoryDecision is the model's verdict on whether the stored user
// memories need updating.
type MemoryDecision struct {
	UpdateNeeded bool     `json:"update_needed"`
	Memories     []string `json:"memories"`
}

// RagQuestion is one retrieval request: a standalone question scoped
// to a known school.
type RagQuestion struct {
	Question string `json:"question"`
	School   string `json:"school"`
}

// RagDecision is the model's verdict on whether answering requires
// retrieved school documents.
type RagDecision struct {
	FetchSchoolData bool          `json:"fetch_school_data"`
	RagMessages     []RagQuestion `json:"rag_messages"`
	Rationale       string        `json:"rationale"`
}

// stripCodeFences removes a surrounding markdown code fence, with or
// without a language tag. Models wrap JSON this way despite being told
// not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseMemoryDecision(raw string) (MemoryDecision, error) {
	var d MemoryDecision
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &d); err != nil {
		return MemoryDecision{}, fmt.Errorf("parsing memory decision: %w", err)
	}
	return d, nil
}

func parseRagDecision(raw string) (RagDecision, error) {
	var d RagDecision
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &d); err != nil {
		return RagDecision{}, fmt.Errorf("parsing rag decision: %w", err)
	}
	return d, nil
}
