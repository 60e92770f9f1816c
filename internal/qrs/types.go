// Package qrs is a typed wrapper over the QSEoW Repository (QRS) REST
// endpoints used by the task-graph core: tasks, triggers, tags, custom
// properties, streams, and apps.
package qrs

// Tag is a server-wide label attachable to tasks and apps.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CustomProperty is a server-wide key with a declared choice set.
type CustomProperty struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Choices []string `json:"choiceValues"`
}

// Stream is a publication target for apps.
type Stream struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ReloadTaskSpec is the payload accepted by createReloadTask. It embeds
// every schedule event for the task so the Repository can create them
// atomically with the owning task.
type ReloadTaskSpec struct {
	Name                  string
	Enabled               bool
	SessionTimeoutMinutes int
	MaxRetries            int
	AppID                 string
	IsPartialReload       bool
	IsManuallyTriggered   bool
	TagIDs                []string
	CustomProperties      map[string]string
	SchemaEvents          []SchemaEventSpec
}

// ExternalProgramTaskSpec is the payload for createExternalProgramTask.
type ExternalProgramTaskSpec struct {
	Name                  string
	Enabled               bool
	SessionTimeoutMinutes int
	MaxRetries            int
	Path                  string
	Parameters            string
	TagIDs                []string
	CustomProperties      map[string]string
	SchemaEvents          []SchemaEventSpec
}

// SchemaEventSpec is an embedded schedule trigger for a task-creation call.
type SchemaEventSpec struct {
	Name                 string
	Enabled              bool
	IncrementOption      string
	IncrementDescription string
	DaylightSaving       string
	StartUTC             string
	ExpirationUTC        string
	FilterDescription    string
	TimeZone             string
}

// CompositeEventSpec is the payload for createCompositeEvent.
type CompositeEventSpec struct {
	Name            string
	Enabled         bool
	TaskID          string
	TimeConstraint  TimeConstraintSpec
	Rules           []CompositeRuleSpec
}

// TimeConstraintSpec is the composite event's sliding dependency window.
type TimeConstraintSpec struct {
	Seconds, Minutes, Hours, Days int
}

// CompositeRuleSpec is a single rule of a composite event.
type CompositeRuleSpec struct {
	UpstreamTaskID string
	RuleState      string
}

// TaskSummary is the subset of a listed task's fields the core needs to
// build its graph and indices.
type TaskSummary struct {
	ID                    string
	Name                  string
	Kind                  string // "Reload" or "External program", matching taskgraph.TaskKind.String()
	Enabled               bool
	SessionTimeoutMinutes int
	MaxRetries            int
	AppID                 string
	IsPartialReload       bool
	IsManuallyTriggered   bool
	Path                  string
	Parameters            string
	TagNames              []string
	CustomProperties      map[string]string
	SchemaEvents          []SchemaEventSpec
}

// CompositeEventSummary mirrors a server-side composite event for the
// listing path, joined to its owning task client-side.
type CompositeEventSummary struct {
	ID             string
	Name           string
	Enabled        bool
	TaskID         string
	TimeConstraint TimeConstraintSpec
	Rules          []CompositeRuleSpec
}

// AppSummary is the subset of a listed app's fields the core needs to
// resolve pre-existing App id references.
type AppSummary struct {
	ID   string
	Name string
}
