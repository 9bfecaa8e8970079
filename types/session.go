package types

// SessionState is the resumable checkpoint of one source video run.
// ProcessedChunks counts chunks (in plan order) whose analysis is already
// reflected in Moments.
type SessionState struct {
	SourceID        string   `json:"source_id"`
	SourceURL       string   `json:"source_url,omitempty"`
	Moments         []Moment `json:"moments"`
	WorkingDir      string   `json:"working_dir"`
	ProcessedChunks int      `json:"processed_chunks,omitempty"`
}

// NewSession starts an empty session for a source.
func NewSession(sourceURL, workingDir string) *SessionState {
	return &SessionState{
		SourceID:   SessionID(sourceURL),
		SourceURL:  sourceURL,
		Moments:    []Moment{},
		WorkingDir: workingDir,
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	out := *s
	out.Moments = make([]Moment, len(s.Moments))
	for i, m := range s.Moments {
		if m.Dialogue != nil {
			m.Dialogue = append([]DialogueLine(nil), m.Dialogue...)
		}
		out.Moments[i] = m
	}
	return &out
}
