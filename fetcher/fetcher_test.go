package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/splatctl/bugsplat"
)

type pageCall struct {
	database string
	size     int
	page     int
}

// fakeSource serves pages from a per-database function
type fakeSource struct {
	pages map[string]func(size, page int) ([]bugsplat.Record, error)
	calls []pageCall
	after func(call pageCall)
}

func (s *fakeSource) FetchPage(ctx context.Context, op bugsplat.Operation, database string, size, page int) (*bugsplat.Page, error) {
	call := pageCall{database: database, size: size, page: page}
	s.calls = append(s.calls, call)
	defer func() {
		if s.after != nil {
			s.after(call)
		}
	}()

	fn, ok := s.pages[database]
	if !ok {
		return nil, errors.New("unknown database")
	}
	rows, err := fn(size, page)
	if err != nil {
		return nil, err
	}
	return &bugsplat.Page{Database: database, Rows: rows}, nil
}

func rec(id int) bugsplat.Record {
	return bugsplat.Record{"id": json.Number(strconv.Itoa(id)), "stackKey": "key-" + strconv.Itoa(id%3)}
}

// newestFirst returns ids from, from-1, ..., down to n records
func newestFirst(from, n int) []bugsplat.Record {
	rows := make([]bugsplat.Record, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, rec(from-i))
	}
	return rows
}

func ids(rows []bugsplat.Record) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID()
	}
	return out
}

func TestPagePlan(t *testing.T) {
	tests := []struct {
		count     int
		wantPages int
		wantSize  int
	}{
		{count: 1, wantPages: 1, wantSize: 1},
		{count: 10, wantPages: 1, wantSize: 10},
		{count: 1000, wantPages: 1, wantSize: 1000},
		{count: 1001, wantPages: 2, wantSize: 1000},
		{count: 2500, wantPages: 3, wantSize: 1000},
		{count: 5000, wantPages: 5, wantSize: 1000},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.count), func(t *testing.T) {
			pages, size := PagePlan(tt.count)
			assert.Equal(t, tt.wantPages, pages)
			assert.Equal(t, tt.wantSize, size)
			assert.LessOrEqual(t, size, MaxPageSize)
		})
	}
}

func TestCollectRequestsPlannedPages(t *testing.T) {
	src := &fakeSource{pages: map[string]func(int, int) ([]bugsplat.Record, error){
		"Game": func(size, page int) ([]bugsplat.Record, error) {
			return newestFirst(10000-page*size, size), nil
		},
	}}

	rs := New(src, zerolog.Nop()).Collect(context.Background(), bugsplat.AllCrash(), []string{"Game"}, 2500, nil)

	require.Len(t, rs, 1)
	assert.Equal(t, []pageCall{
		{database: "Game", size: 1000, page: 0},
		{database: "Game", size: 1000, page: 1},
		{database: "Game", size: 1000, page: 2},
	}, src.calls)
	assert.Len(t, rs[0].Rows, 3000)
	assert.Equal(t, 3, rs[0].Pages)
	assert.Equal(t, StopComplete, rs[0].Stop)
	assert.NoError(t, rs[0].Err)
}

func TestCollectCorrectsOverlap(t *testing.T) {
	// Two records arrive between the requests, so page 1 starts two rows
	// earlier than it would on a static listing.
	src := &fakeSource{pages: map[string]func(int, int) ([]bugsplat.Record, error){
		"Game": func(size, page int) ([]bugsplat.Record, error) {
			if page == 0 {
				return newestFirst(10, 5), nil
			}
			return newestFirst(7, 5), nil
		},
	}}

	f := New(src, zerolog.Nop(), WithMaxPageSize(5))
	rs := f.Collect(context.Background(), bugsplat.AllCrash(), []string{"Game"}, 10, nil)

	require.Len(t, rs, 1)
	assert.Equal(t, []string{"10", "9", "8", "7", "6", "5", "4", "3"}, ids(rs[0].Rows))
}

func TestCollectOverlapWithDefaultWindow(t *testing.T) {
	// Page 1 head is 60 rows back from the end of page 0: inside the window.
	src := &fakeSource{pages: map[string]func(int, int) ([]bugsplat.Record, error){
		"Game": func(size, page int) ([]bugsplat.Record, error) {
			if page == 0 {
				return newestFirst(5000, size), nil
			}
			return newestFirst(5000-940, size), nil
		},
	}}

	rs := New(src, zerolog.Nop()).Collect(context.Background(), bugsplat.Summary(), []string{"Game"}, 2000, nil)

	require.Len(t, rs, 1)
	rows := rs[0].Rows
	assert.Len(t, rows, 1940)
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		require.False(t, seen[r.ID()], "duplicate id %s", r.ID())
		seen[r.ID()] = true
	}
}

func TestMergePage(t *testing.T) {
	t.Run("first page verbatim", func(t *testing.T) {
		got, trimmed := mergePage(nil, newestFirst(3, 3), true, OverlapWindow)
		assert.Equal(t, []string{"3", "2", "1"}, ids(got))
		assert.False(t, trimmed)
	})

	t.Run("no overlap appends", func(t *testing.T) {
		got, trimmed := mergePage(newestFirst(6, 3), newestFirst(3, 3), false, OverlapWindow)
		assert.Equal(t, []string{"6", "5", "4", "3", "2", "1"}, ids(got))
		assert.False(t, trimmed)
	})

	t.Run("overlap outside window is kept", func(t *testing.T) {
		acc := newestFirst(200, 150)
		// head equals acc[10], which is 140 rows from the end
		got, trimmed := mergePage(acc, newestFirst(190, 5), false, OverlapWindow)
		assert.False(t, trimmed)
		assert.Len(t, got, 155)
	})

	t.Run("overlap at window edge is trimmed", func(t *testing.T) {
		acc := newestFirst(200, 150)
		// acc[50] is exactly 100 rows from the end
		got, trimmed := mergePage(acc, newestFirst(150, 5), false, OverlapWindow)
		assert.True(t, trimmed)
		assert.Len(t, got, 55)
		assert.Equal(t, "150", got[50].ID())
	})

	t.Run("structural equality required", func(t *testing.T) {
		acc := newestFirst(5, 5)
		changed := rec(3)
		changed["stackKey"] = "edited"
		got, trimmed := mergePage(acc, []bugsplat.Record{changed}, false, OverlapWindow)
		assert.False(t, trimmed)
		assert.Len(t, got, 6)
	})

	t.Run("empty page", func(t *testing.T) {
		got, trimmed := mergePage(newestFirst(2, 2), nil, false, OverlapWindow)
		assert.Len(t, got, 2)
		assert.False(t, trimmed)
	})
}

func TestCollectBoundary(t *testing.T) {
	t.Run("boundary on first page", func(t *testing.T) {
		src := &fakeSource{pages: map[string]func(int, int) ([]bugsplat.Record, error){
			"Game": func(size, page int) ([]bugsplat.Record, error) {
				return newestFirst(10-page*size, size), nil
			},
		}}

		f := New(src, zerolog.Nop(), WithMaxPageSize(5))
		rs := f.Collect(context.Background(), bugsplat.AllCrash(), []string{"Game"}, 15, []string{"7"})

		require.Len(t, rs, 1)
		assert.Equal(t, []string{"10", "9", "8"}, ids(rs[0].Rows))
		assert.Equal(t, StopBoundary, rs[0].Stop)
		assert.Len(t, src.calls, 1)
	})

	t.Run("boundary on later page", func(t *testing.T) {
		src := &fakeSource{pages: map[string]func(int, int) ([]bugsplat.Record, error){
			"Game": func(size, page int) ([]bugsplat.Record, error) {
				return newestFirst(10-page*size, size), nil
			},
		}}

		f := New(src, zerolog.Nop(), WithMaxPageSize(3))
		rs := f.Collect(context.Background(), bugsplat.AllCrash(), []string{"Game"}, 12, []string{"6"})

		assert.Equal(t, []string{"10", "9", "8", "7"}, ids(rs[0].Rows))
		assert.Equal(t, StopBoundary, rs[0].Stop)
		assert.Len(t, src.calls, 2)
	})

	t.Run("boundary first record yields nothing", func(t *testing.T) {
		src := &fakeSource{pages: map[string]func(int, int) ([]bugsplat.Record, error){
			"Game": func(size, page int) ([]bugsplat.Record, error) {
				return newestFirst(10, size), nil
			},
		}}

		rs := New(src, zerolog.Nop()).Collect(context.Background(), bugsplat.AllCrash(), []string{"Game"}, 5, []string{"10"})
		assert.Empty(t, rs[0].Rows)
		assert.NotNil(t, rs[0].Rows)
		assert.Equal(t, StopBoundary, rs[0].Stop)
	})

	t.Run("boundaries are positional", func(t *testing.T) {
		page := func(size, page int) ([]bugsplat.Record, error) { return newestFirst(10, size), nil }
		src := &fakeSource{pages: map[string]func(int, int) ([]bugsplat.Record, error){
			"A": page, "B": page, "C": page,
		}}

		rs := New(src, zerolog.Nop()).Collect(context.Background(), bugsplat.AllCrash(),
			[]string{"A", "B", "C"}, 5, []string{NoBoundary, "8"})

		require.Len(t, rs, 3)
		assert.Len(t, rs[0].Rows, 5)
		assert.Equal(t, []string{"10", "9"}, ids(rs[1].Rows))
		assert.Len(t, rs[2].Rows, 5)
	})

	t.Run("boundary not found keeps everything", func(t *testing.T) {
		src := &fakeSource{pages: map[string]func(int, int) ([]bugsplat.Record, error){
			"Game": func(size, page int) ([]bugsplat.Record, error) { return newestFirst(10, size), nil },
		}}
		rs := New(src, zerolog.Nop()).Collect(context.Background(), bugsplat.AllCrash(), []string{"Game"}, 5, []string{"999"})
		assert.Len(t, rs[0].Rows, 5)
		assert.Equal(t, StopComplete, rs[0].Stop)
	})
}

func TestCollectIsolatesTargetFailures(t *testing.T) {
	boom := errors.New("connection reset")
	healthy := func(size, page int) ([]bugsplat.Record, error) {
		return newestFirst(100-page*size, size), nil
	}
	src := &fakeSource{pages: map[string]func(int, int) ([]bugsplat.Record, error){
		"First": healthy,
		"Broken": func(size, page int) ([]bugsplat.Record, error) {
			if page == 1 {
				return nil, boom
			}
			return newestFirst(100-page*size, size), nil
		},
		"Last": healthy,
	}}

	f := New(src, zerolog.Nop(), WithMaxPageSize(4))
	rs := f.Collect(context.Background(), bugsplat.Versions(), []string{"First", "Broken", "Last"}, 12, nil)

	require.Len(t, rs, 3)
	assert.Equal(t, "First", rs[0].Database)
	assert.Len(t, rs[0].Rows, 12)
	assert.Equal(t, StopComplete, rs[0].Stop)

	assert.Equal(t, "Broken", rs[1].Database)
	assert.Equal(t, []string{"100", "99", "98", "97"}, ids(rs[1].Rows))
	assert.Equal(t, StopFetchError, rs[1].Stop)
	assert.ErrorIs(t, rs[1].Err, boom)
	assert.True(t, rs[1].Failed())

	assert.Equal(t, "Last", rs[2].Database)
	assert.Len(t, rs[2].Rows, 12)
	assert.Equal(t, StopComplete, rs[2].Stop)

	var lastCalls int
	for _, c := range src.calls {
		if c.database == "Last" {
			lastCalls++
		}
	}
	assert.Equal(t, 3, lastCalls, "targets after a failure still fetch every page")

	assert.Len(t, rs.Failures(), 1)
	assert.Equal(t, 28, rs.TotalRecords())
}

func TestCollectStopsOnShortPage(t *testing.T) {
	src := &fakeSource{pages: map[string]func(int, int) ([]bugsplat.Record, error){
		"Game": func(size, page int) ([]bugsplat.Record, error) {
			if page == 1 {
				return newestFirst(5, 2), nil
			}
			return newestFirst(10, size), nil
		},
	}}

	f := New(src, zerolog.Nop(), WithMaxPageSize(5))
	rs := f.Collect(context.Background(), bugsplat.AllCrash(), []string{"Game"}, 15, nil)

	assert.Len(t, src.calls, 2)
	assert.Equal(t, []string{"10", "9", "8", "7", "6", "5", "4"}, ids(rs[0].Rows))
	assert.Equal(t, StopExhausted, rs[0].Stop)
}

func TestCollectCancellation(t *testing.T) {
	t.Run("canceled before start", func(t *testing.T) {
		src := &fakeSource{pages: map[string]func(int, int) ([]bugsplat.Record, error){}}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		rs := New(src, zerolog.Nop()).Collect(ctx, bugsplat.AllCrash(), []string{"A", "B"}, 5, nil)

		require.Len(t, rs, 2)
		for _, r := range rs {
			assert.Equal(t, StopCanceled, r.Stop)
			assert.ErrorIs(t, r.Err, context.Canceled)
		}
		assert.Empty(t, src.calls)
	})

	t.Run("canceled between pages", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		page := func(size, page int) ([]bugsplat.Record, error) { return newestFirst(100-page*size, size), nil }
		src := &fakeSource{
			pages: map[string]func(int, int) ([]bugsplat.Record, error){"A": page, "B": page},
			after: func(pageCall) { cancel() },
		}

		f := New(src, zerolog.Nop(), WithMaxPageSize(5))
		rs := f.Collect(ctx, bugsplat.AllCrash(), []string{"A", "B"}, 20, nil)

		require.Len(t, rs, 2)
		assert.Len(t, rs[0].Rows, 5)
		assert.Equal(t, StopCanceled, rs[0].Stop)
		assert.Equal(t, StopCanceled, rs[1].Stop)
		assert.Len(t, src.calls, 1)
	})
}

func TestResultSetJSON(t *testing.T) {
	rs := ResultSet{
		{Database: "A", Rows: []bugsplat.Record{{"id": json.Number("12345678901234567")}}, Pages: 1},
		{Database: "B", Rows: []bugsplat.Record{}, Stop: StopFetchError, Err: errors.New("x")},
	}

	data, err := json.Marshal(rs)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"Database":"A","Rows":[{"id":12345678901234567}]},{"Database":"B","Rows":[]}]`, string(data))
	assert.Contains(t, string(data), "12345678901234567")
}

func TestStopReasonString(t *testing.T) {
	assert.Equal(t, "complete", StopComplete.String())
	assert.Equal(t, "boundary", StopBoundary.String())
	assert.Equal(t, "exhausted", StopExhausted.String())
	assert.Equal(t, "fetch_error", StopFetchError.String())
	assert.Equal(t, "canceled", StopCanceled.String())
}
