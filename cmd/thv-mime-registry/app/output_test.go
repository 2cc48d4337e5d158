package app

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgsync "github.com/stacklok/toolhive-mime-registry/internal/sync"
)

func testReport() *pkgsync.CycleReport {
	return &pkgsync.CycleReport{
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Sources: map[string]pkgsync.SourceReport{
			"nginx":  {Outcome: pkgsync.OutcomeMerged, Version: `"n1"`, Added: 3},
			"apache": {Outcome: pkgsync.OutcomeProbeFailed, Error: "connection refused"},
		},
		Added:     3,
		Persisted: true,
	}
}

func TestWriteReport_Table(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, formatTable, testReport()))

	out := buf.String()
	assert.Contains(t, out, "apache")
	assert.Contains(t, out, "probe-failed")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, `"n1"`)
	assert.Contains(t, out, "added 3 associations in 1.5s, persisted: true")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("apache")), bytes.Index(buf.Bytes(), []byte("nginx")))
}

func TestWriteReport_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, formatJSON, testReport()))

	var decoded pkgsync.CycleReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, testReport(), &decoded)
}

func TestWriteReport_PersistenceError(t *testing.T) {
	t.Parallel()

	report := testReport()
	report.Persisted = false
	report.Error = "disk full"

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, formatTable, report))
	assert.Contains(t, buf.String(), "error: disk full")
}

func TestWriteLookup(t *testing.T) {
	t.Parallel()

	results := []lookupResult{
		{Path: "photo.jpg", MediaTypes: []string{"image/jpeg"}},
		{Path: "notes", MediaTypes: []string{}},
	}

	var table bytes.Buffer
	require.NoError(t, writeLookup(&table, formatTable, results))
	assert.Contains(t, table.String(), "photo.jpg")
	assert.Contains(t, table.String(), "image/jpeg")

	var out bytes.Buffer
	require.NoError(t, writeLookup(&out, formatJSON, results))
	var decoded []lookupResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, results, decoded)
}

func TestOutputFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "default", want: formatTable},
		{name: "json", args: []string{"--format", "json"}, want: formatJSON},
		{name: "unsupported", args: []string{"--format", "yaml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := &cobra.Command{Use: "test"}
			addFormatFlag(cmd)
			require.NoError(t, cmd.Flags().Parse(tt.args))

			got, err := outputFormat(cmd)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported output format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
