package selection

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func posts(username string, n int) []Post {
	out := make([]Post, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, Post{
			Rank:     i,
			ImageURL: fmt.Sprintf("https://cdn.example.com/%s/%d.jpg", username, i),
		})
	}
	return out
}

func TestAlphaBetaExample(t *testing.T) {
	s := NewSession(5)
	alpha := s.AddSuccess("alpha", posts("alpha", 2))
	s.AddEmpty("beta", "No posts found. The account might be private or empty.")

	require.NoError(t, s.SetSelected(Key{Result: alpha, Post: 1}, true))

	rows := s.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "alpha", rows[0].Username)
	assert.Equal(t, []string{"https://cdn.example.com/alpha/2.jpg", "", "", "", ""}, rows[0].Photos)
}

func TestSelectedRankOrdering(t *testing.T) {
	s := NewSession(5)
	i := s.AddSuccess("u", posts("u", 5))

	// select posts 4 and 2, in that order
	require.NoError(t, s.SetSelected(Key{i, 3}, true))
	require.NoError(t, s.SetSelected(Key{i, 1}, true))

	rows := s.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, []string{
		"https://cdn.example.com/u/2.jpg",
		"https://cdn.example.com/u/4.jpg",
		"", "", "",
	}, rows[0].Photos)
}

func TestPostsWithoutImageAreDropped(t *testing.T) {
	s := NewSession(5)
	in := posts("u", 4)
	in[1].ImageURL = ""
	i := s.AddSuccess("u", in)

	r, err := s.Result(i)
	require.NoError(t, err)
	require.Len(t, r.Posts, 3)
	assert.Equal(t, []int{1, 3, 4}, []int{r.Posts[0].Rank, r.Posts[1].Rank, r.Posts[2].Rank})

	require.NoError(t, s.SelectAll(i, true))
	photos := s.Rows()[0].Photos
	assert.Equal(t, "", photos[3])
	assert.NotContains(t, photos[:3], "")
}

func TestPostsBeyondLimitAreDropped(t *testing.T) {
	s := NewSession(3)
	i := s.AddSuccess("u", posts("u", 6))

	r, _ := s.Result(i)
	assert.Len(t, r.Posts, 3)

	require.NoError(t, s.SelectAll(i, true))
	row := s.Rows()[0]
	assert.Len(t, row.Photos, 3)
	assert.Len(t, row.Record(), 4)
}

func TestSuccessWithoutSelectionStillHasRow(t *testing.T) {
	s := NewSession(5)
	s.AddSuccess("u", posts("u", 3))

	rows := s.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"", "", "", "", ""}, rows[0].Photos)
	assert.True(t, s.HasRows())
}

func TestRowsNeverExceedUsernames(t *testing.T) {
	s := NewSession(5)
	s.AddSuccess("a", posts("a", 1))
	s.AddFailed("b", "network error")
	s.AddEmpty("c", "no posts")
	s.AddSuccess("a", posts("a", 2))

	assert.Len(t, s.Rows(), 2)
	assert.LessOrEqual(t, len(s.Rows()), s.Len())
}

func TestOnlyFailuresHasNoRows(t *testing.T) {
	s := NewSession(5)
	s.AddFailed("a", "auth error")
	s.AddEmpty("b", "no posts")

	assert.False(t, s.HasRows())
	assert.Empty(t, s.Rows())
}

func TestNewSessionClearsSelections(t *testing.T) {
	first := NewSession(5)
	i := first.AddSuccess("u", posts("u", 2))
	require.NoError(t, first.SelectAll(i, true))

	second := NewSession(5)
	j := second.AddSuccess("u", posts("u", 2))
	r, _ := second.Result(j)
	assert.Equal(t, []bool{false, false}, r.Selected)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestToggle(t *testing.T) {
	s := NewSession(5)
	i := s.AddSuccess("u", posts("u", 2))

	on, err := s.Toggle(Key{i, 0})
	require.NoError(t, err)
	assert.True(t, on)

	on, err = s.Toggle(Key{i, 0})
	require.NoError(t, err)
	assert.False(t, on)

	_, err = s.Toggle(Key{i, 5})
	assert.Error(t, err)
	_, err = s.Toggle(Key{7, 0})
	assert.Error(t, err)
}

func TestReplaceSelection(t *testing.T) {
	s := NewSession(5)
	a := s.AddSuccess("a", posts("a", 3))
	b := s.AddSuccess("b", posts("b", 3))
	require.NoError(t, s.SelectAll(a, true))

	require.NoError(t, s.ReplaceSelection([]Key{{b, 2}, {a, 0}}))
	results := s.Results()
	assert.Equal(t, []bool{true, false, false}, results[a].Selected)
	assert.Equal(t, []bool{false, false, true}, results[b].Selected)

	// invalid key leaves the selection untouched
	err := s.ReplaceSelection([]Key{{a, 1}, {b, 9}})
	require.Error(t, err)
	assert.Equal(t, []bool{true, false, false}, s.Results()[a].Selected)
}

func TestResultsAreCopies(t *testing.T) {
	s := NewSession(5)
	i := s.AddSuccess("u", posts("u", 2))

	r := s.Results()[i]
	r.Selected[0] = true
	r.Posts[0].ImageURL = "mutated"

	fresh, _ := s.Result(i)
	assert.False(t, fresh.Selected[0])
	assert.NotEqual(t, "mutated", fresh.Posts[0].ImageURL)
}

func TestSummary(t *testing.T) {
	s := NewSession(5)
	a := s.AddSuccess("a", posts("a", 3))
	s.AddEmpty("b", "")
	s.AddFailed("c", "")
	require.NoError(t, s.SetSelected(Key{a, 2}, true))

	assert.Equal(t, Summary{Usernames: 3, Success: 1, Empty: 1, Failed: 1, Posts: 3, Selected: 1}, s.Summary())
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("3:4")
	require.NoError(t, err)
	assert.Equal(t, Key{Result: 3, Post: 4}, k)
	assert.Equal(t, "3:4", k.String())

	for _, bad := range []string{"", "3", "a:1", "1:b", "-1:0", "1:-2"} {
		_, err := ParseKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestHeader(t *testing.T) {
	assert.Equal(t, []string{"username", "photo_1", "photo_2", "photo_3"}, Header(3))
}

func TestNewExportRowTruncates(t *testing.T) {
	row := NewExportRow("u", []string{"a", "b", "c"}, 2)
	assert.Equal(t, []string{"a", "b"}, row.Photos)
}

func TestConcurrentSelection(t *testing.T) {
	s := NewSession(5)
	i := s.AddSuccess("u", posts("u", 5))

	var wg sync.WaitGroup
	for n := 0; n < 50; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = s.SetSelected(Key{i, n % 5}, true)
			_ = s.Rows()
		}(n)
	}
	wg.Wait()

	assert.Equal(t, 5, s.Summary().Selected)
}
