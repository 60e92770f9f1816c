package qrs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ctrl-q/ctrlq/internal/transport"
)

// Client is the typed Repository wrapper. Each method returns either the
// decoded resource or a typed failure (a *Fault wrapping the HTTP status).
type Client struct {
	t *transport.Client
}

// New wraps a session's transport client.
func New(session *transport.Session) *Client {
	return &Client{t: session.Client()}
}

// Fault is a server-semantic 4xx/5xx response surfaced to the caller so it
// can be recorded against the offending work item without aborting the run.
type Fault struct {
	Status int
	Body   string
}

func (f *Fault) Error() string { return fmt.Sprintf("qrs: server returned %d: %s", f.Status, f.Body) }

func decodeOrFault[T any](resp *transport.Response, out *T) error {
	if resp.Status >= 400 {
		return &Fault{Status: resp.Status, Body: string(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if len(resp.Body) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Body, out)
}

// ListTags fetches the full tag population.
func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	resp, err := c.t.Do(ctx, transport.Idempotent, http.MethodGet, "/qrs/tag/full", nil, nil)
	if err != nil {
		return nil, err
	}
	var out []Tag
	if err := decodeOrFault(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCustomProperties fetches the full custom-property population.
func (c *Client) ListCustomProperties(ctx context.Context) ([]CustomProperty, error) {
	resp, err := c.t.Do(ctx, transport.Idempotent, http.MethodGet, "/qrs/customproperty/full", nil, nil)
	if err != nil {
		return nil, err
	}
	var out []CustomProperty
	if err := decodeOrFault(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListStreams fetches the full stream population.
func (c *Client) ListStreams(ctx context.Context) ([]Stream, error) {
	resp, err := c.t.Do(ctx, transport.Idempotent, http.MethodGet, "/qrs/stream/full", nil, nil)
	if err != nil {
		return nil, err
	}
	var out []Stream
	if err := decodeOrFault(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetStreamByName resolves a stream by case-sensitive name.
func (c *Client) GetStreamByName(ctx context.Context, name string) (*Stream, error) {
	streams, err := c.ListStreams(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range streams {
		if s.Name == name {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("stream %q not found", name)
}

// GetStreamByID resolves a stream by GUID.
func (c *Client) GetStreamByID(ctx context.Context, id string) (*Stream, error) {
	resp, err := c.t.Do(ctx, transport.Idempotent, http.MethodGet, "/qrs/stream/"+id, nil, nil)
	if err != nil {
		return nil, err
	}
	var out Stream
	if err := decodeOrFault(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListReloadTasks fetches the full reload-task population via the
// /qrs/task/full style listing, applying filter as a raw QRS filter clause.
func (c *Client) ListReloadTasks(ctx context.Context, filter string) ([]TaskSummary, error) {
	return c.listTasksOfType(ctx, "ReloadTask", filter)
}

// ListExternalProgramTasks fetches the full external-program-task
// population.
func (c *Client) ListExternalProgramTasks(ctx context.Context, filter string) ([]TaskSummary, error) {
	return c.listTasksOfType(ctx, "ExternalProgramTask", filter)
}

// taskWire mirrors the QRS task listing's on-the-wire shape closely enough
// to extract what TaskSummary needs; SchemaPath is the discriminator QRS
// uses between "ReloadTask" and "ExternalProgramTask".
type taskWire struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	SchemaPath          string `json:"schemaPath"`
	Enabled             bool   `json:"enabled"`
	TaskSessionTimeout  int    `json:"taskSessionTimeout"`
	MaxRetries          int    `json:"maxRetries"`
	Path                string `json:"path"`
	Parameters          string `json:"parameters"`
	IsPartialReload     bool   `json:"isPartialReload"`
	IsManuallyTriggered bool   `json:"isManuallyTriggered"`
	App                 struct {
		ID string `json:"id"`
	} `json:"app"`
	Tags []struct {
		Name string `json:"name"`
	} `json:"tags"`
	CustomProperties []struct {
		Definition struct {
			Name string `json:"name"`
		} `json:"definition"`
		Value string `json:"value"`
	} `json:"customProperties"`
	SchemaEvents []struct {
		Name                 string `json:"name"`
		Enabled              bool   `json:"enabled"`
		IncrementOption      string `json:"incrementOption"`
		IncrementDescription string `json:"incrementDescription"`
		DaylightSavingTime   string `json:"daylightSavingTime"`
		StartDate            string `json:"startDate"`
		ExpirationDate       string `json:"expirationDate"`
		FilterDescription    string `json:"filterDescription"`
		TimeZone             string `json:"timeZone"`
	} `json:"schemaEvents"`
}

func (c *Client) listTasksOfType(ctx context.Context, schemaPath, filter string) ([]TaskSummary, error) {
	query := map[string]string{}
	if filter != "" {
		query["filter"] = filter
	}
	path := "/qrs/task/full"
	resp, err := c.t.Do(ctx, transport.Idempotent, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	var raw []taskWire
	if err := decodeOrFault(resp, &raw); err != nil {
		return nil, err
	}
	var out []TaskSummary
	for _, w := range raw {
		if w.SchemaPath != schemaPath {
			continue
		}
		out = append(out, taskSummaryOf(w))
	}
	return out, nil
}

func taskSummaryOf(w taskWire) TaskSummary {
	ts := TaskSummary{
		ID:                    w.ID,
		Name:                  w.Name,
		Enabled:               w.Enabled,
		SessionTimeoutMinutes: w.TaskSessionTimeout,
		MaxRetries:            w.MaxRetries,
		AppID:                 w.App.ID,
		IsPartialReload:       w.IsPartialReload,
		IsManuallyTriggered:   w.IsManuallyTriggered,
		Path:                  w.Path,
		Parameters:            w.Parameters,
		CustomProperties:      map[string]string{},
	}
	if w.SchemaPath == "ExternalProgramTask" {
		ts.Kind = "External program"
	} else {
		ts.Kind = "Reload"
	}
	for _, t := range w.Tags {
		ts.TagNames = append(ts.TagNames, t.Name)
	}
	for _, cp := range w.CustomProperties {
		ts.CustomProperties[cp.Definition.Name] = cp.Value
	}
	for _, se := range w.SchemaEvents {
		ts.SchemaEvents = append(ts.SchemaEvents, SchemaEventSpec{
			Name:                 se.Name,
			Enabled:              se.Enabled,
			IncrementOption:      se.IncrementOption,
			IncrementDescription: se.IncrementDescription,
			DaylightSaving:       se.DaylightSavingTime,
			StartUTC:             se.StartDate,
			ExpirationUTC:        se.ExpirationDate,
			FilterDescription:    se.FilterDescription,
			TimeZone:             se.TimeZone,
		})
	}
	return ts
}

// compositeEventWire mirrors the QRS composite-event listing's wire shape.
type compositeEventWire struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Task    struct {
		ID string `json:"id"`
	} `json:"task"`
	TimeConstraint struct {
		Seconds int `json:"seconds"`
		Minutes int `json:"minutes"`
		Hours   int `json:"hours"`
		Days    int `json:"days"`
	} `json:"timeConstraint"`
	CompositeRules []struct {
		RuleState string `json:"ruleState"`
		Task      struct {
			ID string `json:"id"`
		} `json:"task"`
	} `json:"compositeRules"`
}

// ListCompositeEvents fetches the full composite-event population, joined
// to its owning task by TaskID.
func (c *Client) ListCompositeEvents(ctx context.Context) ([]CompositeEventSummary, error) {
	resp, err := c.t.Do(ctx, transport.Idempotent, http.MethodGet, "/qrs/compositeevent/full", nil, nil)
	if err != nil {
		return nil, err
	}
	var raw []compositeEventWire
	if err := decodeOrFault(resp, &raw); err != nil {
		return nil, err
	}
	out := make([]CompositeEventSummary, 0, len(raw))
	for _, w := range raw {
		ces := CompositeEventSummary{
			ID:      w.ID,
			Name:    w.Name,
			Enabled: w.Enabled,
			TaskID:  w.Task.ID,
			TimeConstraint: TimeConstraintSpec{
				Seconds: w.TimeConstraint.Seconds,
				Minutes: w.TimeConstraint.Minutes,
				Hours:   w.TimeConstraint.Hours,
				Days:    w.TimeConstraint.Days,
			},
		}
		for _, r := range w.CompositeRules {
			ces.Rules = append(ces.Rules, CompositeRuleSpec{UpstreamTaskID: r.Task.ID, RuleState: r.RuleState})
		}
		out = append(out, ces)
	}
	return out, nil
}

// ListApps fetches the full app population, used to seed the reference
// resolver's known-app-GUID set.
func (c *Client) ListApps(ctx context.Context) ([]AppSummary, error) {
	resp, err := c.t.Do(ctx, transport.Idempotent, http.MethodGet, "/qrs/app/full", nil, nil)
	if err != nil {
		return nil, err
	}
	var raw []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := decodeOrFault(resp, &raw); err != nil {
		return nil, err
	}
	out := make([]AppSummary, 0, len(raw))
	for _, a := range raw {
		out = append(out, AppSummary{ID: a.ID, Name: a.Name})
	}
	return out, nil
}

// UpdateTaskTagsAndProperties patches an existing task's tag and
// custom-property set. The Repository's generic task entity accepts a
// partial body carrying only the fields being changed.
func (c *Client) UpdateTaskTagsAndProperties(ctx context.Context, taskID string, tagIDs []string, customProperties map[string]string) error {
	body, err := json.Marshal(map[string]any{
		"tags":             tagRefs(tagIDs),
		"customProperties": customPropertyRefs(customProperties),
	})
	if err != nil {
		return fmt.Errorf("marshal task update payload: %w", err)
	}
	resp, err := c.t.Do(ctx, transport.NonIdempotent, http.MethodPut, "/qrs/task/"+taskID, nil, body)
	if err != nil {
		return err
	}
	return decodeOrFault[any](resp, nil)
}

// CreateReloadTask creates a reload task with its embedded schedule events.
// This call is non-idempotent: it is retried only on connection-level
// failures, never on an application-level 4xx/5xx.
func (c *Client) CreateReloadTask(ctx context.Context, spec ReloadTaskSpec) (string, error) {
	body, err := json.Marshal(reloadTaskPayload(spec))
	if err != nil {
		return "", fmt.Errorf("marshal reload task payload: %w", err)
	}
	resp, err := c.t.Do(ctx, transport.NonIdempotent, http.MethodPost, "/qrs/reloadtask", nil, body)
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := decodeOrFault(resp, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// CreateExternalProgramTask creates an external-program task.
func (c *Client) CreateExternalProgramTask(ctx context.Context, spec ExternalProgramTaskSpec) (string, error) {
	body, err := json.Marshal(externalProgramTaskPayload(spec))
	if err != nil {
		return "", fmt.Errorf("marshal external program task payload: %w", err)
	}
	resp, err := c.t.Do(ctx, transport.NonIdempotent, http.MethodPost, "/qrs/externalprogramtask", nil, body)
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := decodeOrFault(resp, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// CreateCompositeEvent creates a composite event after its owning task and
// every upstream task exist.
func (c *Client) CreateCompositeEvent(ctx context.Context, spec CompositeEventSpec) (string, error) {
	body, err := json.Marshal(compositeEventPayload(spec))
	if err != nil {
		return "", fmt.Errorf("marshal composite event payload: %w", err)
	}
	resp, err := c.t.Do(ctx, transport.NonIdempotent, http.MethodPost, "/qrs/compositeevent", nil, body)
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := decodeOrFault(resp, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// UploadApp streams QVF bytes to the Repository's upload endpoint.
func (c *Client) UploadApp(ctx context.Context, qvf []byte, name string, excludeData bool) (string, error) {
	query := map[string]string{"name": name}
	if excludeData {
		query["excludedata"] = "true"
	}
	resp, err := c.t.Do(ctx, transport.NonIdempotent, http.MethodPost, "/qrs/app/upload", query, qvf)
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := decodeOrFault(resp, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// PublishApp publishes an app to a stream.
func (c *Client) PublishApp(ctx context.Context, appID, streamID string) error {
	query := map[string]string{"stream": streamID}
	resp, err := c.t.Do(ctx, transport.NonIdempotent, http.MethodPut, "/qrs/app/"+appID+"/publish", query, nil)
	if err != nil {
		return err
	}
	return decodeOrFault[any](resp, nil)
}

// SetAppOwner assigns a new owner to an app.
func (c *Client) SetAppOwner(ctx context.Context, appID, userDirectory, userID string) error {
	body, err := json.Marshal(map[string]any{
		"owner": map[string]string{"userDirectory": userDirectory, "userId": userID},
	})
	if err != nil {
		return fmt.Errorf("marshal owner payload: %w", err)
	}
	resp, err := c.t.Do(ctx, transport.NonIdempotent, http.MethodPut, "/qrs/app/"+appID, nil, body)
	if err != nil {
		return err
	}
	return decodeOrFault[any](resp, nil)
}
