package usage

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputType(t *testing.T) {
	for _, name := range OutputTypeNames() {
		out, err := ParseOutputType(strings.ToUpper(name))
		require.NoError(t, err)
		assert.Equal(t, name, out.String())
	}

	_, err := ParseOutputType("all")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	table := NewTable(mustRange(t, "2025-09-29", "2025-10-01"), Policy{})
	require.NoError(t, table.Add(row(t, "2025-09-30", "ORG2", "u2", 4)))
	require.NoError(t, table.Add(row(t, "2025-09-29", "ORG1", "u1", 5)))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))

	assert.Equal(t, "org_code,user_id,2025-09-29,2025-09-30,2025-10-01\n"+
		"ORG1,u1,5,0,0\n"+
		"ORG2,u2,0,4,0\n", buf.String())
}

func TestWriteCSVColumnCount(t *testing.T) {
	for _, end := range []string{"2025-09-29", "2025-10-15", "2026-01-13"} {
		dates := mustRange(t, "2025-09-29", end)
		table := NewTable(dates, Policy{})
		require.NoError(t, table.Add(row(t, "2025-09-29", "ORG1", "u1", 1)))

		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, table))

		records, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		for _, rec := range records {
			assert.Len(t, rec, dates.Len()+2)
		}
	}
}

func TestReportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeCSV(t, dir, "cpt_ovn_old.csv", header+
		"2025-09-29,ORG1,u1,5\n2025-09-30,ORG1,u1,3\n2025-10-02,ORG2,u2,9\n")
	newPath := writeCSV(t, dir, "cpt_ovn_new.csv", header+"2025-10-01,ORG1,u3,2\n")

	res, err := newTestReconciler(mustRange(t, "2025-09-29", "2025-10-02")).Run([]Source{
		{Path: oldPath, Category: CategoryOld},
		{Path: newPath, Category: CategoryNew},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res.Combined))

	back, err := ReadReport(&buf)
	require.NoError(t, err)
	assert.Equal(t, res.Combined.Range(), back.Range())
	assert.Equal(t, res.Combined.Records(), back.Records())
	assert.Equal(t, []int{5, 3, 2, 9}, DailyTotals(back))
}

func TestReadReportErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not a report", "date,org_code,user_id,count\n"},
		{"gap in dates", "org_code,user_id,2025-09-29,2025-10-01\n"},
		{"bad count", "org_code,user_id,2025-09-29\nORG1,u1,x\n"},
		{"duplicate user", "org_code,user_id,2025-09-29\nORG1,u1,1\nORG1,u1,2\n"},
		{"short row", "org_code,user_id,2025-09-29,2025-09-30\nORG1,u1,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadReport(strings.NewReader(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestEmit(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeCSV(t, dir, "cpt_ovn_old.csv", header+"2025-09-29,ORG1,u1,5\n")
	newPath := writeCSV(t, dir, "cpt_ovn_new.csv", header+"2025-09-30,ORG1,u2,3\n")
	sources := []Source{
		{Path: oldPath, Category: CategoryOld},
		{Path: newPath, Category: CategoryNew},
	}

	res, err := newTestReconciler(mustRange(t, "2025-09-29", "2025-09-30")).Run(sources)
	require.NoError(t, err)

	tests := []struct {
		out  OutputType
		want []string
	}{
		{OutputCombined, []string{"rpt_combined_2025-09-29_2025-09-30.csv"}},
		{OutputSeparate, []string{"rpt_new_2025-09-29_2025-09-30.csv", "rpt_old_2025-09-29_2025-09-30.csv"}},
		{OutputBoth, []string{
			"rpt_combined_2025-09-29_2025-09-30.csv",
			"rpt_new_2025-09-29_2025-09-30.csv",
			"rpt_old_2025-09-29_2025-09-30.csv",
		}},
		{OutputOldOnly, []string{"rpt_old_2025-09-29_2025-09-30.csv"}},
		{OutputNewOnly, []string{"rpt_new_2025-09-29_2025-09-30.csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.out.String(), func(t *testing.T) {
			outDir := filepath.Join(t.TempDir(), "reports")
			paths, err := NewEmitter(outDir, "rpt", zerolog.Nop()).Emit(res, tt.out)
			require.NoError(t, err)

			var names []string
			for _, p := range paths {
				names = append(names, filepath.Base(p))
				_, err := os.Stat(p)
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, names)
		})
	}

	t.Run("old only contents", func(t *testing.T) {
		outDir := t.TempDir()
		paths, err := NewEmitter(outDir, "rpt", zerolog.Nop()).Emit(res, OutputOldOnly)
		require.NoError(t, err)

		table, err := ReadReportFile(paths[0])
		require.NoError(t, err)
		require.Equal(t, 1, table.Len())
		u1, ok := table.Get("u1")
		require.True(t, ok)
		assert.Equal(t, 5, u1.Counts["2025-09-29"])
	})

	t.Run("empty category writes header only", func(t *testing.T) {
		oldOnly, err := newTestReconciler(mustRange(t, "2025-09-29", "2025-09-30")).Run(sources[:1])
		require.NoError(t, err)

		paths, err := NewEmitter(t.TempDir(), "rpt", zerolog.Nop()).Emit(oldOnly, OutputNewOnly)
		require.NoError(t, err)
		data, err := os.ReadFile(paths[0])
		require.NoError(t, err)
		assert.Equal(t, "org_code,user_id,2025-09-29,2025-09-30\n", string(data))
	})
}

func TestEmitterPath(t *testing.T) {
	e := NewEmitter("out", "", zerolog.Nop())
	p := e.Path("ORG 1/x", mustRange(t, "2025-09-29", "2025-09-30"))
	assert.Equal(t, filepath.Join("out", "usage_report_ORG_1_x_2025-09-29_2025-09-30.csv"), p)
}

func TestEmitNameCollisions(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "cpt_ovn_old.csv", header+
		"2025-09-29,ORG 1,u1,1\n"+
		"2025-09-29,ORG_1,u2,2\n"+
		"2025-09-29,combined,u3,3\n")

	res, err := New(Options{Range: mustRange(t, "2025-09-29", "2025-09-29"), SplitBy: SplitByOrg}, zerolog.Nop()).
		Run([]Source{{Path: path, Category: CategoryOld}})
	require.NoError(t, err)
	require.Len(t, res.Groups, 3)

	outDir := t.TempDir()
	paths, err := NewEmitter(outDir, "rpt", zerolog.Nop()).Emit(res, OutputBoth)
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{
		"rpt_combined_2025-09-29_2025-09-29.csv",
		"rpt_ORG_1_2025-09-29_2025-09-29.csv",
		"rpt_ORG_1-2_2025-09-29_2025-09-29.csv",
		"rpt_combined-2_2025-09-29_2025-09-29.csv",
	}, names)

	combined, err := ReadReportFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, 3, combined.Len())

	for i, user := range map[int]string{1: "u1", 2: "u2", 3: "u3"} {
		table, err := ReadReportFile(paths[i])
		require.NoError(t, err)
		require.Equal(t, 1, table.Len())
		_, ok := table.Get(user)
		assert.True(t, ok, user)
	}
}

func TestEmitCaseOnlyCollision(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "cpt_ovn_old.csv", header+"2025-09-29,org1,u1,1\n2025-09-29,ORG1,u2,2\n")

	res, err := New(Options{Range: mustRange(t, "2025-09-29", "2025-09-29"), SplitBy: SplitByOrg}, zerolog.Nop()).
		Run([]Source{{Path: path, Category: CategoryOld}})
	require.NoError(t, err)

	paths, err := NewEmitter(t.TempDir(), "rpt", zerolog.Nop()).Emit(res, OutputSeparate)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.NotEqual(t, strings.ToLower(paths[0]), strings.ToLower(paths[1]))
}
