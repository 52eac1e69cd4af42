package web

import (
	"embed"
	"html/template"
	"unicode/utf8"

	"igpicker/pkg/logger"
	"igpicker/pkg/selection"
)

//go:embed templates/*.html
var templateFS embed.FS

type postView struct {
	Key       string
	Rank      int
	ImageURL  string
	Permalink string
	Caption   string
	Checked   bool
}

type resultView struct {
	Username string
	Status   selection.Status
	Message  string
	Posts    []postView
}

type pageData struct {
	Version         string
	Usernames       string
	TokenConfigured bool
	Limit           int
	Error           string
	Results         []resultView
	Summary         selection.Summary
	Saved           bool
	Exportable      bool
	Header          []string
	Rows            []selection.ExportRow
}

func parseTemplates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"truncate": truncate,
	}).ParseFS(templateFS, "templates/*.html"))
}

func truncate(n int, s string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

func (h *handlers) page(st BrowserState, errMsg string) pageData {
	data := pageData{
		Version:         logger.Version,
		Usernames:       st.Usernames,
		TokenConfigured: h.token != nil && h.token() != "",
		Limit:           h.runner.Limit(),
		Error:           errMsg,
		Saved:           st.Saved,
	}
	if st.Session == nil {
		return data
	}

	s := st.Session
	data.Limit = s.Limit
	data.Summary = s.Summary()
	for i, r := range s.Results() {
		rv := resultView{Username: r.Username, Status: r.Status, Message: r.Message}
		for p, post := range r.Posts {
			rv.Posts = append(rv.Posts, postView{
				Key:       selection.Key{Result: i, Post: p}.String(),
				Rank:      post.Rank,
				ImageURL:  post.ImageURL,
				Permalink: post.Permalink,
				Caption:   post.Caption,
				Checked:   r.Selected[p],
			})
		}
		data.Results = append(data.Results, rv)
	}
	data.Exportable = s.HasRows()
	if st.Saved && data.Exportable {
		data.Header = selection.Header(s.Limit)
		data.Rows = s.Rows()
	}
	return data
}
