package importparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memSource(t *testing.T, csvText string) RowSource {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(csvText), "\n")
	var header []string
	var rows [][]string
	for i, l := range lines {
		fields := strings.Split(l, ",")
		if i == 0 {
			header = fields
		} else {
			rows = append(rows, fields)
		}
	}
	return &memRowSource{header: header, rows: rows}
}

type memRowSource struct {
	header []string
	rows   [][]string
	pos    int
}

func (m *memRowSource) Header() []string { return m.header }
func (m *memRowSource) Next() ([]string, bool, error) {
	if m.pos >= len(m.rows) {
		return nil, false, nil
	}
	r := m.rows[m.pos]
	m.pos++
	return r, true, nil
}
func (m *memRowSource) Close() error { return nil }

const header = "Task counter,Task type,Task name,Task id,Task enabled,Task timeout,Task retries,App id,Partial reload,Manually triggered,Tags,Custom properties,Event counter,Event type,Event name,Event enabled,Schema increment option,Schema increment description,Daylight savings time,Schema start,Schema expiration,Schema filter description,Schema time zone,Time constraint seconds,Time constraint minutes,Time constraint hours,Time constraint days,Rule counter,Rule state,Rule task name,Rule task id"

func TestParseSingleTaskNoTriggers(t *testing.T) {
	src := memSource(t, header+"\n1,Reload,T1,1,1,60,0,app-guid-1,0,0,,,,,,,,,,,,,,,,,,,,,")
	recs, diags, err := ParseTasks(src, Options{RefBy: ByName})
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, recs, 1)
	assert.Equal(t, "T1", recs[0].TaskName)
	assert.Empty(t, recs[0].SchemaEvents)
	assert.Empty(t, recs[0].CompositeEvents)
}

func TestParseChainOfTwoTasksCompositeRule(t *testing.T) {
	csv := header + "\n" +
		"1,Reload,T1,1,1,60,0,app-guid-1,0,0,,,,,,,,,,,,,,,,,,,,,\n" +
		"2,Reload,T2,2,1,60,0,app-guid-1,0,0,,,1,Composite,after-t1,1,,,,,,,,0,0,0,0,1,TaskSuccessful,T1,1"
	recs, diags, err := ParseTasks(memSource(t, csv), Options{RefBy: ByName})
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, recs, 2)
	require.Len(t, recs[1].CompositeEvents, 1)
	require.Len(t, recs[1].CompositeEvents[0].Rules, 1)
	assert.Equal(t, "1", recs[1].CompositeEvents[0].Rules[0].RuleTaskID)
}

func TestLimitImportCount(t *testing.T) {
	csv := header + "\n" +
		"1,Reload,T1,1,1,60,0,app-guid-1,0,0,,,,,,,,,,,,,,,,,,,,,\n" +
		"2,Reload,T2,2,1,60,0,app-guid-1,0,0,,,,,,,,,,,,,,,,,,,,,"
	recs, _, err := ParseTasks(memSource(t, csv), Options{RefBy: ByName, LimitImportCount: 1})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 1, recs[0].TaskCounter)
}

func TestZeroRuleCompositeEventRejected(t *testing.T) {
	csv := header + "\n" +
		"1,Reload,T1,1,1,60,0,app-guid-1,0,0,,,1,Composite,empty,1,,,,,,,,0,0,0,0,,,,"
	_, _, err := ParseTasks(memSource(t, csv), Options{RefBy: ByName})
	require.Error(t, err)
}

func TestInvalidBoolColumnIsFatal(t *testing.T) {
	csv := header + "\n1,Reload,T1,1,maybe,60,0,app-guid-1,0,0,,,,,,,,,,,,,,,,,,,,,"
	_, _, err := ParseTasks(memSource(t, csv), Options{RefBy: ByName})
	require.Error(t, err)
}

func TestRowOrderWithinGroupDoesNotChangeParsedTask(t *testing.T) {
	csvA := header + "\n" +
		"1,Reload,T1,1,1,60,0,app-guid-1,0,0,,,1,Composite,ce,1,,,,,,,,0,0,0,0,1,TaskSuccessful,X,x\n" +
		"1,Reload,T1,1,1,60,0,app-guid-1,0,0,,,1,Composite,ce,1,,,,,,,,0,0,0,0,2,TaskFail,Y,y"
	csvB := header + "\n" +
		"1,Reload,T1,1,1,60,0,app-guid-1,0,0,,,1,Composite,ce,1,,,,,,,,0,0,0,0,2,TaskFail,Y,y\n" +
		"1,Reload,T1,1,1,60,0,app-guid-1,0,0,,,1,Composite,ce,1,,,,,,,,0,0,0,0,1,TaskSuccessful,X,x"

	recsA, _, errA := ParseTasks(memSource(t, csvA), Options{RefBy: ByName})
	recsB, _, errB := ParseTasks(memSource(t, csvB), Options{RefBy: ByName})
	require.NoError(t, errA)
	require.NoError(t, errB)
	require.Len(t, recsA[0].CompositeEvents[0].Rules, 2)
	require.Len(t, recsB[0].CompositeEvents[0].Rules, 2)
}
