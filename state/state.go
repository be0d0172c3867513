// Package state defines the shared record that flows between orchestration
// nodes, and the clearable append-or-clear reducer contract nodes use to
// submit partial updates.
package state

// CodeSource records whether the last generated_code came from the cache
// or a fresh LLM call.
type CodeSource string

const (
	CodeSourceNone  CodeSource = ""
	CodeSourceCache CodeSource = "cache"
	CodeSourceLLM   CodeSource = "llm"
)

// RAGTaskType classifies what the RAG node should do with the current turn.
type RAGTaskType string

const (
	RAGTaskNone      RAGTaskType = ""
	RAGTaskStoreKB   RAGTaskType = "store_kb"
	RAGTaskStoreCode RAGTaskType = "store_code"
	RAGTaskQA        RAGTaskType = "qa"
)

// StrategyEntry is one candidate locator strategy surfaced by the Observer
// or replayed from a DOM cache hit.
type StrategyEntry struct {
	Strategy    string  `json:"strategy"`
	Selector    string  `json:"selector"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// VerificationResult is the Verifier node's judgment of the last step.
type VerificationResult struct {
	IsSuccess bool   `json:"is_success"`
	IsDone    bool   `json:"is_done"`
	Summary   string `json:"summary"`
}

// AgentState is the single record threaded through every orchestration
// node. Each node returns a *partial* AgentState (via Update) describing
// only the fields it changed.
type AgentState struct {
	UserTask      string
	Plan          string
	GeneratedCode string
	ExecutionLog  string

	CurrentURL  string
	DOMSkeleton string
	DOMHash     string

	LocatorSuggestions []StrategyEntry
	FinishedSteps      []string
	Reflections        []string

	VerificationResult *VerificationResult

	Error     string
	ErrorType string

	CoderRetryCount      int
	CodeSource           CodeSource
	CacheFailedThisRound bool

	ObserverSource string
	DOMCacheHitID  string
	StepFailCount  int

	LoopCount  int
	IsComplete bool

	RAGTaskType RAGTaskType
	CacheHitID  string
}

// Clone returns a deep-enough copy for safe mutation by a node — slice
// fields are copied so a node's partial update never aliases the caller's
// backing array.
func (s AgentState) Clone() AgentState {
	clone := s
	if s.LocatorSuggestions != nil {
		clone.LocatorSuggestions = append([]StrategyEntry(nil), s.LocatorSuggestions...)
	}
	if s.FinishedSteps != nil {
		clone.FinishedSteps = append([]string(nil), s.FinishedSteps...)
	}
	if s.Reflections != nil {
		clone.Reflections = append([]string(nil), s.Reflections...)
	}
	return clone
}
