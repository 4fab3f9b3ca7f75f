package usage

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/usagereport/pkg/models"
)

type readResult struct {
	rows []models.UsageRow
	errs []error
}

func readAll(t *testing.T, body string) (readResult, error) {
	t.Helper()
	var res readResult
	err := ReadRows(strings.NewReader(body), "in.csv", func(row models.UsageRow, rowErr error) error {
		if rowErr != nil {
			res.errs = append(res.errs, rowErr)
			return nil
		}
		res.rows = append(res.rows, row)
		return nil
	})
	return res, err
}

func TestReadRows(t *testing.T) {
	t.Run("valid rows", func(t *testing.T) {
		res, err := readAll(t, "date,org_code,user_id,count\n2025-09-29,ORG1,u1,5\n2025-09-30, ORG1 ,u1,3\n")
		require.NoError(t, err)
		require.Len(t, res.rows, 2)
		assert.Empty(t, res.errs)

		assert.Equal(t, "ORG1", res.rows[1].OrgCode)
		assert.Equal(t, "u1", res.rows[0].UserID)
		assert.Equal(t, 5, res.rows[0].Count)
		assert.Equal(t, "2025-09-29", res.rows[0].Date.Format(DateLayout))
		assert.Equal(t, "in.csv", res.rows[0].Source)
		assert.Equal(t, 2, res.rows[0].Line)
		assert.Equal(t, 3, res.rows[1].Line)
	})

	t.Run("header only", func(t *testing.T) {
		res, err := readAll(t, "date,org_code,user_id,count\n")
		require.NoError(t, err)
		assert.Empty(t, res.rows)
	})

	t.Run("header with BOM and case", func(t *testing.T) {
		res, err := readAll(t, "\ufeffDate,Org_Code,user_id,COUNT\n2025-09-29,ORG1,u1,5\n")
		require.NoError(t, err)
		assert.Len(t, res.rows, 1)
	})

	t.Run("malformed rows are reported and skipped", func(t *testing.T) {
		body := strings.Join([]string{
			"date,org_code,user_id,count",
			"2025-09-29,ORG1,u1",       // arity
			"2025-09-29,ORG1,u1,five",  // count
			"29/09/2025,ORG1,u1,5",     // date
			"2025-09-29,ORG1,u1,-1",    // negative
			"2025-09-29,ORG1,,1",       // empty user
			"2025-09-29,ORG1,u1,5,extra",
			"2025-09-30,ORG1,u2,1",
		}, "\n")
		res, err := readAll(t, body)
		require.NoError(t, err)
		require.Len(t, res.rows, 1)
		assert.Equal(t, "u2", res.rows[0].UserID)

		require.Len(t, res.errs, 6)
		for _, e := range res.errs {
			assert.True(t, errors.Is(e, ErrMalformedRow), e.Error())
		}
		var mre *MalformedRowError
		require.ErrorAs(t, res.errs[0], &mre)
		assert.Equal(t, 2, mre.Line)
		assert.Equal(t, "in.csv", mre.File)
	})

	t.Run("wrong header fails file", func(t *testing.T) {
		_, err := readAll(t, "day,org,user,count\n2025-09-29,ORG1,u1,5\n")
		assert.ErrorIs(t, err, ErrFileIO)
	})

	t.Run("empty file fails", func(t *testing.T) {
		_, err := readAll(t, "")
		assert.ErrorIs(t, err, ErrFileIO)
	})

	t.Run("callback error stops read", func(t *testing.T) {
		stop := errors.New("stop")
		calls := 0
		err := ReadRows(strings.NewReader("date,org_code,user_id,count\n2025-09-29,A,u1,1\n2025-09-29,A,u2,1\n"), "in.csv",
			func(models.UsageRow, error) error {
				calls++
				return stop
			})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})
}

func TestReadFileMissing(t *testing.T) {
	err := ReadFile(t.TempDir()+"/missing.csv", func(models.UsageRow, error) error { return nil })
	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, ErrFileIO)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	header := "date,org_code,user_id,count\n"
	writeCSV(t, dir, "cpt_ovn_old_export.csv", header)
	writeCSV(t, dir, "cpt_ovn_new_export.CSV", header)
	writeCSV(t, dir, "cpt_ovn_misc.csv", header)
	writeCSV(t, dir, "other_old.csv", header)
	writeCSV(t, dir, "cpt_ovn_notes.txt", "x")

	sources, err := Discover(dir, "cpt_ovn", DefaultCategories())
	require.NoError(t, err)
	require.Len(t, sources, 3)

	got := map[string]string{}
	for _, s := range sources {
		got[s.Name()] = s.Category
	}
	assert.Equal(t, map[string]string{
		"cpt_ovn_old_export": CategoryOld,
		"cpt_ovn_new_export": CategoryNew,
		"cpt_ovn_misc":       CategoryUncategorized,
	}, got)

	_, err = Discover(dir, "nothing_matches", DefaultCategories())
	var empty *EmptyInputError
	require.ErrorAs(t, err, &empty)
	assert.ErrorIs(t, err, ErrEmptyInput)
}
