package state

// UpdateOp tags how a FieldUpdate should be merged into AgentState.
type UpdateOp int

const (
	// OpReplace overwrites the field with Value.
	OpReplace UpdateOp = iota
	// OpAppend extends a list field with Value's elements.
	OpAppend
	// OpClear resets a list field to empty, ignoring Value.
	OpClear
)

// FieldUpdate carries a node's intent for one list-valued field: replace,
// append, or clear. Scalar fields don't need this — a node either sets them
// (via a non-nil pointer in Update) or leaves them untouched (nil pointer).
type FieldUpdate[T any] struct {
	Op    UpdateOp
	Value []T
}

// ReplaceList builds a FieldUpdate that overwrites a list field.
func ReplaceList[T any](values []T) FieldUpdate[T] {
	return FieldUpdate[T]{Op: OpReplace, Value: values}
}

// AppendList builds a FieldUpdate that extends a list field.
func AppendList[T any](values ...T) FieldUpdate[T] {
	return FieldUpdate[T]{Op: OpAppend, Value: values}
}

// ClearList builds a FieldUpdate that empties a list field. Mirrors the
// "update value of none clears the field" contract for list-valued fields.
func ClearList[T any]() FieldUpdate[T] {
	return FieldUpdate[T]{Op: OpClear}
}

// Update is a node's partial contribution to AgentState. Scalar fields are
// pointers: nil means "untouched", non-nil means "replace with this value".
// List fields use FieldUpdate so a node can distinguish leave-alone from
// append from clear.
type Update struct {
	UserTask      *string
	Plan          *string
	GeneratedCode *string
	ExecutionLog  *string

	CurrentURL  *string
	DOMSkeleton *string
	DOMHash     *string

	LocatorSuggestions *FieldUpdate[StrategyEntry]
	FinishedSteps      *FieldUpdate[string]
	Reflections        *FieldUpdate[string]

	VerificationResult **VerificationResult

	Error     *string
	ErrorType *string

	CoderRetryCount      *int
	CodeSource           *CodeSource
	CacheFailedThisRound *bool

	ObserverSource *string
	DOMCacheHitID  *string
	StepFailCount  *int

	LoopCount  *int
	IsComplete *bool

	RAGTaskType *RAGTaskType
	CacheHitID  *string
}

func applyListField[T any](current []T, update *FieldUpdate[T]) []T {
	if update == nil {
		return current
	}
	switch update.Op {
	case OpClear:
		return nil
	case OpAppend:
		return append(append([]T(nil), current...), update.Value...)
	default: // OpReplace
		return update.Value
	}
}

// Apply merges an Update into a copy of the current AgentState, following
// the clearable append-or-clear contract for list fields and plain replace
// for everything else. The original state is never mutated.
func Apply(current AgentState, update Update) AgentState {
	next := current.Clone()

	if update.UserTask != nil {
		next.UserTask = *update.UserTask
	}
	if update.Plan != nil {
		next.Plan = *update.Plan
	}
	if update.GeneratedCode != nil {
		next.GeneratedCode = *update.GeneratedCode
	}
	if update.ExecutionLog != nil {
		next.ExecutionLog = *update.ExecutionLog
	}
	if update.CurrentURL != nil {
		next.CurrentURL = *update.CurrentURL
	}
	if update.DOMSkeleton != nil {
		next.DOMSkeleton = *update.DOMSkeleton
	}
	if update.DOMHash != nil {
		next.DOMHash = *update.DOMHash
	}

	next.LocatorSuggestions = applyListField(next.LocatorSuggestions, update.LocatorSuggestions)
	next.FinishedSteps = applyListField(next.FinishedSteps, update.FinishedSteps)
	next.Reflections = applyListField(next.Reflections, update.Reflections)

	if update.VerificationResult != nil {
		next.VerificationResult = *update.VerificationResult
	}
	if update.Error != nil {
		next.Error = *update.Error
	}
	if update.ErrorType != nil {
		next.ErrorType = *update.ErrorType
	}
	if update.CoderRetryCount != nil {
		next.CoderRetryCount = *update.CoderRetryCount
	}
	if update.CodeSource != nil {
		next.CodeSource = *update.CodeSource
	}
	if update.CacheFailedThisRound != nil {
		next.CacheFailedThisRound = *update.CacheFailedThisRound
	}
	if update.ObserverSource != nil {
		next.ObserverSource = *update.ObserverSource
	}
	if update.DOMCacheHitID != nil {
		next.DOMCacheHitID = *update.DOMCacheHitID
	}
	if update.StepFailCount != nil {
		next.StepFailCount = *update.StepFailCount
	}
	if update.LoopCount != nil {
		next.LoopCount = *update.LoopCount
	}
	if update.IsComplete != nil {
		next.IsComplete = *update.IsComplete
	}
	if update.RAGTaskType != nil {
		next.RAGTaskType = *update.RAGTaskType
	}
	if update.CacheHitID != nil {
		next.CacheHitID = *update.CacheHitID
	}

	return next
}

// ResetForFreshTask clears the per-task history fields, mirroring Planner's
// behavior on detecting a non-continuation task: finished_steps and
// reflections reset, loop_count restarts, coder_retry_count restarts.
func ResetForFreshTask(current AgentState, newTask string) AgentState {
	next := current.Clone()
	next.UserTask = newTask
	next.FinishedSteps = nil
	next.Reflections = nil
	next.LocatorSuggestions = nil
	next.GeneratedCode = ""
	next.ExecutionLog = ""
	next.VerificationResult = nil
	next.Error = ""
	next.ErrorType = ""
	next.CodeSource = CodeSourceNone
	next.ObserverSource = ""
	next.DOMCacheHitID = ""
	next.DOMSkeleton = ""
	next.DOMHash = ""
	next.LoopCount = 0
	next.CoderRetryCount = 0
	next.StepFailCount = 0
	next.CacheFailedThisRound = false
	next.IsComplete = false
	return next
}
