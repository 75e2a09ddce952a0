package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/query"
)

func courseDimensions() []Dimension {
	return []Dimension{
		{Name: "subject"},
		{Name: "level"},
		{Name: "status", Default: "ACTIVE", Values: []string{"ACTIVE", "COMPLETED", "NOT_STARTED"}},
	}
}

func TestControllerDefaults(t *testing.T) {
	c := New(courseDimensions(), Options{PageSize: 2})
	st := c.State()
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, 2, st.PageSize)
	assert.Equal(t, "ACTIVE", st.Filters["status"])
	assert.Equal(t, query.AllValue, st.Filters["subject"])

	v := c.Params().Values()
	assert.Equal(t, "ACTIVE", v.Get("status"))
	assert.False(t, v.Has("subject"))
	assert.False(t, v.Has("level"))
}

func TestControllerFilterChangeResetsPage(t *testing.T) {
	var seen []query.Params
	c := New(courseDimensions(), Options{PageSize: 2, OnChange: func(p query.Params) { seen = append(seen, p) }})
	c.ApplyResult(c.Params(), 3)

	_, err := c.SetPage(3)
	require.NoError(t, err)
	changed, err := c.SetFilter("status", "COMPLETED")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, c.State().Page)
	require.Len(t, seen, 2)
	assert.Equal(t, 1, seen[1].Page)
}

func TestControllerChangeForgetsPageCount(t *testing.T) {
	c := New(courseDimensions(), Options{PageSize: 2})
	c.ApplyResult(c.Params(), 3)

	_, err := c.SetFilter("status", "COMPLETED")
	require.NoError(t, err)
	_, err = c.SetPage(3)
	assert.True(t, appErrors.Is(err, appErrors.ErrPageOutOfRange))

	c.SetSearch("go")
	_, err = c.SetPage(2)
	assert.True(t, appErrors.Is(err, appErrors.ErrPageOutOfRange))
	assert.Equal(t, 1, c.State().TotalPages)
}

func TestControllerApplyResultIgnoresOtherParams(t *testing.T) {
	c := New(courseDimensions(), Options{PageSize: 2})
	active := c.Params()
	_, _ = c.SetFilter("status", "COMPLETED")

	assert.False(t, c.ApplyResult(active, 3))
	assert.Equal(t, 1, c.State().TotalPages)

	assert.True(t, c.ApplyResult(c.Params(), 4))
	_, err := c.SetPage(4)
	require.NoError(t, err)
}

func TestControllerApplyResultClampsPage(t *testing.T) {
	var seen []query.Params
	c := New(courseDimensions(), Options{PageSize: 2, OnChange: func(p query.Params) { seen = append(seen, p) }})
	c.ApplyResult(c.Params(), 3)
	_, err := c.SetPage(3)
	require.NoError(t, err)

	assert.True(t, c.ApplyResult(c.Params(), 1))
	assert.Equal(t, 1, c.State().Page)
	require.Len(t, seen, 2)
	assert.Equal(t, 1, seen[1].Page)
	assert.Equal(t, "ACTIVE", seen[1].Filter("status"))
}

func TestControllerIdenticalValueIsNoop(t *testing.T) {
	calls := 0
	c := New(courseDimensions(), Options{OnChange: func(query.Params) { calls++ }})
	c.ApplyResult(c.Params(), 2)
	_, _ = c.SetPage(2)

	changed, err := c.SetFilter("status", "ACTIVE")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 2, c.State().Page)
	assert.False(t, c.SetSearch(""))
	assert.Equal(t, 1, calls)
}

func TestControllerSearchResetsPage(t *testing.T) {
	c := New(courseDimensions(), Options{})
	c.ApplyResult(c.Params(), 4)
	_, _ = c.SetPage(4)

	assert.True(t, c.SetSearch("math"))
	assert.Equal(t, 1, c.State().Page)
	assert.Equal(t, "math", c.Params().Search)
}

func TestControllerPageOnlyKeepsFilters(t *testing.T) {
	c := New(courseDimensions(), Options{})
	_, _ = c.SetFilter("level", "7")
	c.ApplyResult(c.Params(), 3)

	changed, err := c.SetPage(2)
	require.NoError(t, err)
	assert.True(t, changed)
	st := c.State()
	assert.Equal(t, "7", st.Filters["level"])
	assert.Equal(t, "ACTIVE", st.Filters["status"])
}

func TestControllerRejectsOutOfRangePage(t *testing.T) {
	c := New(courseDimensions(), Options{})
	c.ApplyResult(c.Params(), 3)

	_, err := c.SetPage(0)
	assert.True(t, appErrors.Is(err, appErrors.ErrPageOutOfRange))
	_, err = c.SetPage(4)
	assert.True(t, appErrors.Is(err, appErrors.ErrPageOutOfRange))
	assert.Equal(t, 1, c.State().Page)
}

func TestControllerRejectsUnknownDimensionAndValue(t *testing.T) {
	c := New(courseDimensions(), Options{})

	_, err := c.SetFilter("colour", "red")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = c.SetFilter("status", "ARCHIVED")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "status")
}

func TestControllerAllSentinelNormalised(t *testing.T) {
	c := New(courseDimensions(), Options{})
	changed, err := c.SetFilter("status", "")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, query.AllValue, c.State().Filters["status"])
	assert.False(t, c.Params().Values().Has("status"))
}

func TestControllerReset(t *testing.T) {
	c := New(courseDimensions(), Options{})
	_, _ = c.SetFilter("status", "COMPLETED")
	c.SetSearch("bio")
	c.Reset()

	st := c.State()
	assert.Equal(t, "ACTIVE", st.Filters["status"])
	assert.Equal(t, "", st.Search)
}

// Any effective filter change lands on page 1; a page change leaves filters alone.
func TestControllerPageResetProperty(t *testing.T) {
	statuses := []string{"all", "ACTIVE", "COMPLETED", "NOT_STARTED"}
	ids := []string{"all", "1", "2", "3"}

	rapid.Check(t, func(t *rapid.T) {
		c := New(courseDimensions(), Options{PageSize: 2})
		total := rapid.IntRange(1, 10).Draw(t, "totalPages")
		c.ApplyResult(c.Params(), total)

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			before := c.State()
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				changed, err := c.SetFilter("status", rapid.SampledFrom(statuses).Draw(t, "status"))
				if err != nil {
					t.Fatalf("status: %v", err)
				}
				if changed && c.State().Page != 1 {
					t.Fatalf("page %d after status change", c.State().Page)
				}
			case 1:
				dim := rapid.SampledFrom([]string{"subject", "level"}).Draw(t, "dim")
				changed, err := c.SetFilter(dim, rapid.SampledFrom(ids).Draw(t, "id"))
				if err != nil {
					t.Fatalf("%s: %v", dim, err)
				}
				if changed && c.State().Page != 1 {
					t.Fatalf("page %d after %s change", c.State().Page, dim)
				}
			case 2:
				if c.SetSearch(rapid.StringMatching(`[a-z]{0,3}`).Draw(t, "search")) && c.State().Page != 1 {
					t.Fatalf("page %d after search change", c.State().Page)
				}
			case 3:
				c.ApplyResult(c.Params(), total)
				page := rapid.IntRange(1, total).Draw(t, "page")
				if _, err := c.SetPage(page); err != nil {
					t.Fatalf("page %d: %v", page, err)
				}
				after := c.State()
				if after.Page != page {
					t.Fatalf("page %d, want %d", after.Page, page)
				}
				for k, v := range before.Filters {
					if after.Filters[k] != v {
						t.Fatalf("filter %s changed from %s to %s on page change", k, v, after.Filters[k])
					}
				}
				if after.Search != before.Search {
					t.Fatalf("search changed on page change")
				}
			}
		}
	})
}
