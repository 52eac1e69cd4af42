// Package selection holds the state of one fetch cycle: the posts returned
// for each submitted username, which of them the user picked, and the
// export table derived from those picks.
//
// Rows are derived, never stored. A username contributes a row only when its
// fetch succeeded; the row lists the selected image URLs in provider order
// and is padded with empty cells to the session limit:
//
//	s := selection.NewSession(5)
//	i := s.AddSuccess("alpha", posts)
//	s.SetSelected(selection.Key{Result: i, Post: 1}, true)
//	s.AddEmpty("beta", "no posts found")
//	rows := s.Rows() // [{alpha [url2 "" "" "" ""]}]
package selection
