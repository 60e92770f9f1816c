// Package resolve resolves symbolic references — tag names, custom-property
// name/value pairs, app references, stream references, and rule task
// references — against the Repository cache and the in-progress import's
// local counters.
package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctrl-q/ctrlq/internal/qrs"
)

// Catalog is the read-mostly, per-run cache of server-side reference data
// (tags, custom properties, streams) fetched once and treated as immutable
// thereafter, per §5's shared-resource model.
type Catalog struct {
	Tags             map[string]string            // name -> GUID
	CustomProperties map[string]qrs.CustomProperty // name -> definition
	Streams          map[string]string            // name -> GUID
	KnownTaskIDs     map[string]bool              // GUIDs already on the server
	KnownAppIDs      map[string]bool              // app GUIDs already on the server
}

// NewCatalog builds a Catalog from a warmed-up Repository client.
func NewCatalog(tags []qrs.Tag, props []qrs.CustomProperty, streams []qrs.Stream, knownTasks, knownApps []string) *Catalog {
	c := &Catalog{
		Tags:             make(map[string]string, len(tags)),
		CustomProperties: make(map[string]qrs.CustomProperty, len(props)),
		Streams:          make(map[string]string, len(streams)),
		KnownTaskIDs:     make(map[string]bool, len(knownTasks)),
		KnownAppIDs:      make(map[string]bool, len(knownApps)),
	}
	for _, tg := range tags {
		c.Tags[tg.Name] = tg.ID
	}
	for _, p := range props {
		c.CustomProperties[p.Name] = p
	}
	for _, s := range streams {
		c.Streams[s.Name] = s.ID
	}
	for _, id := range knownTasks {
		c.KnownTaskIDs[id] = true
	}
	for _, id := range knownApps {
		c.KnownAppIDs[id] = true
	}
	return c
}

// ResolveTag resolves a tag name to its GUID. Creating tags is out of scope;
// an unknown tag is an error.
func (c *Catalog) ResolveTag(name string) (string, error) {
	id, ok := c.Tags[name]
	if !ok {
		return "", fmt.Errorf("unknown tag %q", name)
	}
	return id, nil
}

// ResolveCustomProperty validates that name identifies an existing property
// and that value is among its declared choices.
func (c *Catalog) ResolveCustomProperty(name, value string) error {
	prop, ok := c.CustomProperties[name]
	if !ok {
		return fmt.Errorf("unknown custom property %q", name)
	}
	for _, choice := range prop.Choices {
		if choice == value {
			return nil
		}
	}
	return fmt.Errorf("value %q is not a declared choice of custom property %q", value, name)
}

// AppResolver resolves appRef values against a per-run local-counter map,
// populated as Phase 0 uploads apps. Resolving the same appRef twice in one
// run yields the same GUID (idempotence, per §8).
type AppResolver struct {
	catalog       *Catalog
	localCounters map[int]string // App counter -> new app GUID
	knownAppIDs   map[string]bool
	memo          map[string]string
}

// NewAppResolver builds a resolver over the catalog and the app-upload
// local-counter table.
func NewAppResolver(catalog *Catalog, knownAppIDs map[string]bool) *AppResolver {
	return &AppResolver{
		catalog:       catalog,
		localCounters: make(map[int]string),
		knownAppIDs:   knownAppIDs,
		memo:          make(map[string]string),
	}
}

// RecordUpload registers the GUID produced by uploading the row with the
// given App counter.
func (r *AppResolver) RecordUpload(counter int, guid string) {
	r.localCounters[counter] = guid
}

// Resolve resolves an appRef of the form "<GUID>" (used verbatim after an
// existence check) or "newapp-<n>" (resolved to the GUID produced by
// uploading App counter n earlier in the run).
func (r *AppResolver) Resolve(appRef string) (string, error) {
	if guid, ok := r.memo[appRef]; ok {
		return guid, nil
	}
	if strings.HasPrefix(appRef, "newapp-") {
		n, err := strconv.Atoi(strings.TrimPrefix(appRef, "newapp-"))
		if err != nil {
			return "", fmt.Errorf("malformed app reference %q", appRef)
		}
		guid, ok := r.localCounters[n]
		if !ok {
			return "", fmt.Errorf("app reference %q points at an app counter not yet uploaded in this run", appRef)
		}
		r.memo[appRef] = guid
		return guid, nil
	}
	if !r.knownAppIDs[appRef] {
		return "", fmt.Errorf("app %q does not exist on the server", appRef)
	}
	r.memo[appRef] = appRef
	return appRef, nil
}

// StreamResolver resolves a stream reference by GUID first, then by
// case-sensitive name.
type StreamResolver struct {
	catalog *Catalog
}

func NewStreamResolver(catalog *Catalog) *StreamResolver { return &StreamResolver{catalog: catalog} }

// Resolve returns the stream GUID, or ok=false with a warning-grade error if
// the stream does not exist (non-existence cancels publish-to-stream for
// that app only; it must never abort the run).
func (s *StreamResolver) Resolve(ref string) (id string, ok bool, warn error) {
	if ref == "" {
		return "", false, nil
	}
	for _, guid := range s.catalog.Streams {
		if guid == ref {
			return ref, true, nil
		}
	}
	if guid, found := s.catalog.Streams[ref]; found {
		return guid, true, nil
	}
	return "", false, fmt.Errorf("stream %q not found; publish-to-stream skipped for this app", ref)
}

// RuleResolver resolves a composite rule's upstream reference: if it
// matches a task GUID C3 already knows about, the rule points there;
// otherwise if it matches the Task id of another row in the same import, it
// points at the not-yet-created local counter; any other value is an error.
type RuleResolver struct {
	knownTaskGUIDs map[string]bool
	localTaskIDs   map[string]bool // source "Task id" values declared in this run
}

func NewRuleResolver(knownTaskGUIDs map[string]bool, localTaskIDs map[string]bool) *RuleResolver {
	return &RuleResolver{knownTaskGUIDs: knownTaskGUIDs, localTaskIDs: localTaskIDs}
}

// Resolve classifies ref as an existing-GUID reference or a local-counter
// reference. The caller (C6) is responsible for turning a local-counter
// reference into a GUID once Phase A has run.
func (r *RuleResolver) Resolve(ref string) (isLocal bool, err error) {
	if r.knownTaskGUIDs[ref] {
		return false, nil
	}
	if r.localTaskIDs[ref] {
		return true, nil
	}
	return false, fmt.Errorf("rule task reference %q matches neither a known task GUID nor a Task id declared in this import", ref)
}
