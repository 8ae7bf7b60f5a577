package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(started time.Time) RunRecord {
	return RunRecord{
		StartedAt:    started,
		Duration:     1500 * time.Millisecond,
		Input:        FileFingerprint{Path: "by4741.vcf.gz", Size: 2048, ModTime: started.Add(-time.Hour)},
		ConfigPath:   "filters.yaml",
		Status:       StatusComplete,
		Records:      5,
		Passed:       2,
		Failed:       2,
		Written:      5,
		RecordErrors: 1,
		Filters: []FilterCount{
			{Name: "has_call", Failed: 1, Passed: 3},
			{Name: "min_depth", Failed: 1, Passed: 2},
		},
	}
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)

	// Reopening keeps the schema.
	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSaveAndListRuns(t *testing.T) {
	s := openInMemory(t)
	started := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	id, err := s.SaveRun(sampleRun(started))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	runs, err := s.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := runs[0]
	assert.Equal(t, id, r.ID)
	assert.True(t, started.Equal(r.StartedAt))
	assert.Equal(t, 1500*time.Millisecond, r.Duration)
	assert.Equal(t, "by4741.vcf.gz", r.Input.Path)
	assert.Equal(t, int64(2048), r.Input.Size)
	assert.True(t, started.Add(-time.Hour).Equal(r.Input.ModTime))
	assert.Equal(t, "filters.yaml", r.ConfigPath)
	assert.Equal(t, StatusComplete, r.Status)
	assert.Equal(t, []int{5, 2, 2, 5, 1}, []int{r.Records, r.Passed, r.Failed, r.Written, r.RecordErrors})
	assert.Equal(t, sampleRun(started).Filters, r.Filters)
}

func TestSaveRun_KeepsGivenID(t *testing.T) {
	s := openInMemory(t)

	run := sampleRun(time.Now())
	run.ID = NewRunID()
	id, err := s.SaveRun(run)
	require.NoError(t, err)
	assert.Equal(t, run.ID, id)

	_, err = s.SaveRun(run)
	assert.Error(t, err, "run ids are unique")
}

func TestSaveRun_FailedCountsLeaveNoRun(t *testing.T) {
	s := openInMemory(t)

	run := sampleRun(time.Now())
	run.ID = NewRunID()
	// A stray count row at position 0 makes the appender hit the primary key.
	_, err := s.DB().Exec(`INSERT INTO filter_counts VALUES (?, 0, 'stray', 0, 0)`, run.ID.String())
	require.NoError(t, err)

	_, err = s.SaveRun(run)
	require.Error(t, err)

	var n int
	require.NoError(t, s.DB().QueryRow("SELECT count(*) FROM filter_runs").Scan(&n))
	assert.Equal(t, 0, n)
	require.NoError(t, s.DB().QueryRow("SELECT count(*) FROM filter_counts").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRuns_NewestFirstWithLimit(t *testing.T) {
	s := openInMemory(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := range 3 {
		id, err := s.SaveRun(sampleRun(base.Add(time.Duration(i) * time.Hour)))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := s.Runs(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestSaveRun_StdinWithoutFilters(t *testing.T) {
	s := openInMemory(t)

	fp, err := StatFile("-")
	require.NoError(t, err)

	id, err := s.SaveRun(RunRecord{StartedAt: time.Now(), Input: fp, Status: StatusInterrupted})
	require.NoError(t, err)

	runs, err := s.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "-", runs[0].Input.Path)
	assert.True(t, runs[0].Input.ModTime.IsZero())
	assert.Empty(t, runs[0].Filters)

	counts, err := s.FilterCounts(id)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestClearRuns(t *testing.T) {
	s := openInMemory(t)
	_, err := s.SaveRun(sampleRun(time.Now()))
	require.NoError(t, err)

	require.NoError(t, s.ClearRuns())

	runs, err := s.Runs(0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	var n int
	require.NoError(t, s.DB().QueryRow("SELECT count(*) FROM filter_counts").Scan(&n))
	assert.Equal(t, 0, n)
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.vcf")
	require.NoError(t, os.WriteFile(path, []byte("##fileformat=VCFv4.2\n"), 0o644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(21), fp.Size)

	again, err := StatFile(path)
	require.NoError(t, err)
	assert.True(t, fp.Matches(again))

	require.NoError(t, os.WriteFile(path, []byte("changed"), 0o644))
	changed, err := StatFile(path)
	require.NoError(t, err)
	assert.False(t, fp.Matches(changed))

	_, err = StatFile(filepath.Join(t.TempDir(), "missing.vcf"))
	assert.Error(t, err)
}

func TestFileFingerprint_MatchesStoredRun(t *testing.T) {
	s := openInMemory(t)
	path := filepath.Join(t.TempDir(), "in.vcf")
	require.NoError(t, os.WriteFile(path, []byte("##fileformat=VCFv4.2\n"), 0o644))
	mtime := time.Date(2026, 5, 1, 12, 0, 0, 123456789, time.Local)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	fp, err := StatFile(path)
	require.NoError(t, err)
	_, err = s.SaveRun(RunRecord{StartedAt: time.Now(), Input: fp, Status: StatusComplete})
	require.NoError(t, err)

	runs, err := s.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Input.Matches(fp), "stored timestamps keep microseconds")

	require.NoError(t, os.WriteFile(path, []byte("##fileformat=VCFv4.3\n"), 0o644))
	now, err := StatFile(path)
	require.NoError(t, err)
	assert.False(t, runs[0].Input.Matches(now))
}
