package importparse

// TaskRecord is one parsed task group: the task's own fields plus the
// schedule and composite events (and their rules) grouped under it.
type TaskRecord struct {
	RowIndex int

	TaskCounter         int
	TaskType             string
	TaskName             string
	TaskID               string
	TaskEnabled          bool
	TaskTimeoutMinutes   int
	TaskRetries          int
	AppID                string
	PartialReload        bool
	ManuallyTriggered    bool
	Tags                 []string
	CustomProperties     map[string]string
	Path                 string
	Parameters           string

	SchemaEvents    []SchemaEventRecord
	CompositeEvents []CompositeEventRecord
}

// SchemaEventRecord is one parsed schema (schedule) event row group.
type SchemaEventRecord struct {
	EventCounter         int
	Name                 string
	Enabled              bool
	IncrementOption      string
	IncrementDescription string
	DaylightSaving       string
	Start                string
	Expiration           string
	FilterDescription    string
	TimeZone             string
}

// CompositeEventRecord is one parsed composite event row group.
type CompositeEventRecord struct {
	EventCounter   int
	Name           string
	Enabled        bool
	TimeConstraintSeconds int
	TimeConstraintMinutes int
	TimeConstraintHours   int
	TimeConstraintDays    int

	Rules []RuleRecord
}

// RuleRecord is one parsed composite rule row.
type RuleRecord struct {
	RuleCounter  int
	RuleState    string
	RuleTaskName string
	RuleTaskID   string
}

// AppRecord is one parsed app-sheet row.
type AppRecord struct {
	RowIndex int

	AppCounter              int
	AppName                 string
	QVFDirectory            string
	QVFName                 string
	ExcludeDataConnections  bool
	Tags                    []string
	CustomProperties        map[string]string
	OwnerUserDirectory      string
	OwnerUserID             string
	PublishToStream         string
}
