package importparse

import "fmt"

// ParseApps reads the optional app-import sheet into AppRecords, one per
// App counter.
func ParseApps(src RowSource, opt Options) ([]AppRecord, Diagnostics, error) {
	resolver, err := NewColumnResolver(opt.RefBy, src.Header(), opt.Positions)
	if err != nil {
		return nil, nil, err
	}
	if err := resolver.RequireColumns(mandatoryAppColumns); err != nil {
		return nil, nil, err
	}

	var out []AppRecord
	var diags Diagnostics
	rowIdx := 1

	for {
		row, ok, err := src.Next()
		if err != nil {
			return nil, diags, err
		}
		if !ok {
			break
		}
		rowIdx++

		counter, _, err := coerceInt(cell(row, resolver.Index(ColAppCounter)))
		if err != nil {
			d := Diagnostic{Row: rowIdx, Column: "App counter", Rule: "int >= 1", Cause: err}
			if !opt.CollectAll {
				return nil, diags, d
			}
			diags = append(diags, d)
			continue
		}

		rec := AppRecord{
			RowIndex:     rowIdx,
			AppCounter:   counter,
			AppName:      cell(row, resolver.Index(ColAppName)),
			QVFDirectory: cell(row, resolver.Index(ColQVFDirectory)),
			QVFName:      cell(row, resolver.Index(ColQVFName)),
			OwnerUserDirectory: cell(row, resolver.Index(ColOwnerUserDirectory)),
			OwnerUserID:        cell(row, resolver.Index(ColOwnerUserID)),
			PublishToStream:    cell(row, resolver.Index(ColPublishToStream)),
		}
		if rec.QVFName == "" {
			d := Diagnostic{Row: rowIdx, Column: "QVF name", Rule: "required", Cause: fmt.Errorf("empty")}
			if !opt.CollectAll {
				return nil, diags, d
			}
			diags = append(diags, d)
			continue
		}
		if idx := resolver.Index(ColExcludeDataConnections); idx != -1 {
			b, err := coerceBool01(cell(row, idx))
			if err != nil {
				d := Diagnostic{Row: rowIdx, Column: "Exclude data connections", Rule: "bool01", Cause: err}
				if !opt.CollectAll {
					return nil, diags, d
				}
				diags = append(diags, d)
				continue
			}
			rec.ExcludeDataConnections = b
		}
		rec.Tags = splitList(cell(row, resolver.Index(ColAppTags)))
		cp, err := splitCustomProperties(cell(row, resolver.Index(ColAppCustomProperties)))
		if err != nil {
			d := Diagnostic{Row: rowIdx, Column: "App custom properties", Rule: "n=v pairs", Cause: err}
			if !opt.CollectAll {
				return nil, diags, d
			}
			diags = append(diags, d)
			continue
		}
		rec.CustomProperties = cp
		out = append(out, rec)
	}
	if len(diags) > 0 {
		return out, diags, nil
	}
	return out, nil, nil
}
