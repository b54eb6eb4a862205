package domain

// TimelineStatus tracks one timeline item through its lifecycle. Statuses
// only ever advance: pending → in_progress → completed.
type TimelineStatus string

const (
	TimelinePending    TimelineStatus = "pending"
	TimelineInProgress TimelineStatus = "in_progress"
	TimelineCompleted  TimelineStatus = "completed"
)

type TimelineKind string

const (
	TimelineKindQuestion  TimelineKind = "question"
	TimelineKindAnalysis  TimelineKind = "analysis"
	TimelineKindSynthesis TimelineKind = "synthesis"
)

// TimelineItem is one entry of the fixed profiling timeline shown to the
// user while the pipeline runs.
type TimelineItem struct {
	ID     string         `json:"id"`
	Label  string         `json:"label"`
	Status TimelineStatus `json:"status"`
	Kind   TimelineKind   `json:"kind"`
}

// Timeline item IDs, one per pipeline stage.
const (
	TimelineInterests = "interests"
	TimelineResolve   = "resolve"
	TimelineExpand    = "expand"
	TimelineCrossings = "crossings"
	TimelineSynthesis = "synthesis"
)

// NewProfilingTimeline builds the fixed 5-item timeline. The list is never
// reordered or resized at runtime; only statuses change.
func NewProfilingTimeline() []TimelineItem {
	return []TimelineItem{
		{ID: TimelineInterests, Label: "Understanding your interests", Status: TimelinePending, Kind: TimelineKindQuestion},
		{ID: TimelineResolve, Label: "Finding your favorites", Status: TimelinePending, Kind: TimelineKindAnalysis},
		{ID: TimelineExpand, Label: "Exploring each of your worlds", Status: TimelinePending, Kind: TimelineKindAnalysis},
		{ID: TimelineCrossings, Label: "Connecting tastes across domains", Status: TimelinePending, Kind: TimelineKindAnalysis},
		{ID: TimelineSynthesis, Label: "Writing your taste profile", Status: TimelinePending, Kind: TimelineKindSynthesis},
	}
}
