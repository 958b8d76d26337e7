package requestlog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

func entry(i int) model.RequestLogEntry {
	return model.RequestLogEntry{ID: fmt.Sprintf("e%d", i)}
}

func ids(entries []model.RequestLogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestAppendEntries(t *testing.T) {
	l := New(3)
	for i := range 5 {
		l.Append(entry(i))
	}

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, []string{"e2", "e3", "e4"}, ids(l.All()))
}

func TestEntriesPagination(t *testing.T) {
	l := New(10)
	for i := range 5 {
		l.Append(entry(i))
	}

	tests := []struct {
		name          string
		offset, limit int
		want          []string
	}{
		{"first page", 0, 2, []string{"e0", "e1"}},
		{"middle page", 2, 2, []string{"e2", "e3"}},
		{"limit past the end is clamped", 3, 10, []string{"e3", "e4"}},
		{"offset past the end is empty", 5, 2, []string{}},
		{"zero limit is empty", 1, 0, []string{}},
		{"negative offset starts at zero", -3, 1, []string{"e0"}},
		// offset greater than limit still yields offset..offset+limit
		{"offset larger than limit", 3, 1, []string{"e3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(l.Entries(tt.offset, tt.limit)))
		})
	}
}

func TestRestore(t *testing.T) {
	l := New(2)
	l.Restore([]model.RequestLogEntry{entry(0), entry(1), entry(2)})
	require.Equal(t, 2, l.Len())
	assert.Equal(t, []string{"e1", "e2"}, ids(l.All()))

	l.Append(entry(3))
	assert.Equal(t, []string{"e2", "e3"}, ids(l.All()))
}

func TestFind(t *testing.T) {
	l := New(2)
	for i := range 3 {
		l.Append(entry(i))
	}

	got, ok := l.Find("e2")
	require.True(t, ok)
	assert.Equal(t, "e2", got.ID)

	_, ok = l.Find("e0")
	assert.False(t, ok, "overwritten entries are gone")
}
