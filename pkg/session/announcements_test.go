package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"
)

func TestAnnouncements(t *testing.T) {
	a := NewAnnouncements(3)
	_, ok := a.Current()
	assert.Assert(t, !ok)

	a.Add("first", 2)
	a.Add("second", 0)
	assert.DeepEqual(t, []Announcement{{"first", 2}, {"second", 3}}, a.Pending())

	a.Tick()
	cur, ok := a.Current()
	assert.Assert(t, ok)
	assert.Equal(t, Announcement{Text: "first", Remaining: 1}, cur)

	a.Tick()
	cur, _ = a.Current()
	assert.Equal(t, "second", cur.Text)
	assert.Equal(t, 1, a.Len())

	for range 3 {
		a.Tick()
	}
	_, ok = a.Current()
	assert.Assert(t, !ok)
	assert.Assert(t, cmp.Equal([]Announcement{}, a.Pending()))
	a.Tick()
}
