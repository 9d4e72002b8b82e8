package session

// State is everything remembered between page renders for one visitor.
type State struct {
	AnalysisResult string `json:"analysis_result,omitempty"`
	LastFileName   string `json:"last_file_name,omitempty"`
}

// SelectFile records a newly uploaded file. A different name than the last
// one drops the previous result.
func (s *State) SelectFile(name string) {
	if name != s.LastFileName {
		s.AnalysisResult = ""
		s.LastFileName = name
	}
}

func (s *State) SetResult(text string) {
	s.AnalysisResult = text
}

func (s *State) Clear() {
	s.AnalysisResult = ""
}

func (s State) HasResult() bool {
	return s.AnalysisResult != ""
}

type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseFileSelected Phase = "file-selected"
	PhaseAnalyzing    Phase = "analyzing"
	PhaseResultShown  Phase = "result-shown"
)

// PhaseOf derives the page phase. A stored result wins over a pending upload,
// and a cleared result with a pending upload goes back to file-selected.
func PhaseOf(s State, hasUpload, analyzing bool) Phase {
	switch {
	case analyzing:
		return PhaseAnalyzing
	case s.HasResult():
		return PhaseResultShown
	case hasUpload:
		return PhaseFileSelected
	}
	return PhaseIdle
}
