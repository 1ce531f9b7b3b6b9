package history

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhath/ezspanner/internal/gateway"
)

func sampleResult(v any) gateway.QueryResult {
	return gateway.QueryResult{Columns: []string{"v"}, Rows: [][]any{{v}}}
}

func TestStore_RecordKeepsOrder(t *testing.T) {
	s := NewStore()
	queries := []string{"SELECT 1", "SELECT 2", "SELECT 1"}
	for i, q := range queries {
		s.Record(q, sampleResult(i))
	}

	all := s.All()
	require.Len(t, all, 3)
	for i, e := range all {
		assert.Equal(t, queries[i], e.Query)
		assert.NotEmpty(t, e.ID)
		if i > 0 {
			assert.True(t, e.ExecutedAt.After(all[i-1].ExecutedAt))
		}
	}
}

func TestStore_RecordSnapshotsResults(t *testing.T) {
	s := NewStore()
	res := sampleResult(1)
	s.Record("SELECT 1", res)
	res.Rows[0][0] = 99

	e, err := s.Get(0)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Results.Rows[0][0])
}

func TestStore_GetOutOfRange(t *testing.T) {
	s := NewStore()
	s.Record("SELECT 1", gateway.QueryResult{})

	for _, i := range []int{-1, 1, 10} {
		_, err := s.Get(i)
		assert.ErrorIs(t, err, ErrOutOfRange, "index %d", i)
	}
}

func TestStore_AllReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Record("SELECT 1", gateway.QueryResult{})
	all := s.All()
	all[0].Query = "changed"

	e, err := s.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", e.Query)
}

func TestStore_ConcurrentAppend(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Record("SELECT 1", gateway.QueryResult{})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}

type failingJournal struct{ calls int }

func (f *failingJournal) Write(Entry) error {
	f.calls++
	return errors.New("disk full")
}

func TestStore_JournalFailureKeepsEntry(t *testing.T) {
	j := &failingJournal{}
	s := NewStore(WithJournal(j), WithLogger(zaptest.NewLogger(t)))
	s.Record("SELECT 1", gateway.QueryResult{})

	assert.Equal(t, 1, j.calls)
	assert.Equal(t, 1, s.Len())
}

func TestClock_StrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClockFunc(func() time.Time { return fixed })

	a := c.Next()
	b := c.Next()
	assert.True(t, a.Equal(fixed))
	assert.Equal(t, time.Nanosecond, b.Sub(a))

	c.Observe(fixed.Add(time.Hour))
	assert.True(t, c.Next().After(fixed.Add(time.Hour)))
}

func TestEntry_QueryPreview(t *testing.T) {
	e := Entry{Query: "SELECT *\nFROM   t"}
	assert.Equal(t, "SELECT * FROM t", e.QueryPreview(40))
	assert.Equal(t, "SELECT...", e.QueryPreview(9))
}
