package qrs

// These unexported payload shapes mirror the QRS wire format closely enough
// for the core's purposes without exposing Repository JSON quirks to
// callers of the typed Client API above.

type schemaEventPayload struct {
	Name                 string `json:"name"`
	Enabled              bool   `json:"enabled"`
	IncrementOption      string `json:"incrementOption"`
	IncrementDescription string `json:"incrementDescription"`
	DaylightSavingTime   string `json:"daylightSavingTime"`
	StartDate            string `json:"startDate"`
	ExpirationDate       string `json:"expirationDate"`
	FilterDescription    string `json:"filterDescription"`
	TimeZone             string `json:"timeZone"`
}

func schemaEventsPayload(specs []SchemaEventSpec) []schemaEventPayload {
	out := make([]schemaEventPayload, 0, len(specs))
	for _, s := range specs {
		out = append(out, schemaEventPayload{
			Name:                 s.Name,
			Enabled:              s.Enabled,
			IncrementOption:      s.IncrementOption,
			IncrementDescription: s.IncrementDescription,
			DaylightSavingTime:   s.DaylightSaving,
			StartDate:            s.StartUTC,
			ExpirationDate:       s.ExpirationUTC,
			FilterDescription:    s.FilterDescription,
			TimeZone:             s.TimeZone,
		})
	}
	return out
}

func tagRefs(ids []string) []map[string]string {
	out := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, map[string]string{"id": id})
	}
	return out
}

func customPropertyRefs(values map[string]string) []map[string]string {
	out := make([]map[string]string, 0, len(values))
	for name, value := range values {
		out = append(out, map[string]string{"definition": name, "value": value})
	}
	return out
}

func reloadTaskPayload(spec ReloadTaskSpec) map[string]any {
	return map[string]any{
		"task": map[string]any{
			"name":                  spec.Name,
			"taskType":              0,
			"enabled":               spec.Enabled,
			"taskSessionTimeout":    spec.SessionTimeoutMinutes,
			"maxRetries":            spec.MaxRetries,
			"isManuallyTriggered":   spec.IsManuallyTriggered,
			"schemaPath":            "ReloadTask",
			"app":                   map[string]string{"id": spec.AppID},
			"isPartialReload":       spec.IsPartialReload,
			"tags":                  tagRefs(spec.TagIDs),
			"customProperties":      customPropertyRefs(spec.CustomProperties),
		},
		"schemaEvents": schemaEventsPayload(spec.SchemaEvents),
	}
}

func externalProgramTaskPayload(spec ExternalProgramTaskSpec) map[string]any {
	return map[string]any{
		"task": map[string]any{
			"name":               spec.Name,
			"taskType":           1,
			"enabled":            spec.Enabled,
			"taskSessionTimeout": spec.SessionTimeoutMinutes,
			"maxRetries":         spec.MaxRetries,
			"path":               spec.Path,
			"parameters":         spec.Parameters,
			"schemaPath":         "ExternalProgramTask",
			"tags":               tagRefs(spec.TagIDs),
			"customProperties":   customPropertyRefs(spec.CustomProperties),
		},
		"schemaEvents": schemaEventsPayload(spec.SchemaEvents),
	}
}

func compositeEventPayload(spec CompositeEventSpec) map[string]any {
	rules := make([]map[string]any, 0, len(spec.Rules))
	for _, r := range spec.Rules {
		rules = append(rules, map[string]any{
			"ruleState": r.RuleState,
			"task":      map[string]string{"id": r.UpstreamTaskID},
		})
	}
	return map[string]any{
		"name":    spec.Name,
		"enabled": spec.Enabled,
		"eventType": 1,
		"task":    map[string]string{"id": spec.TaskID},
		"compositeRules": rules,
		"timeConstraint": map[string]int{
			"seconds": spec.TimeConstraint.Seconds,
			"minutes": spec.TimeConstraint.Minutes,
			"hours":   spec.TimeConstraint.Hours,
			"days":    spec.TimeConstraint.Days,
		},
	}
}
