package web

import (
	"bytes"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/site-report/internal/action"
)

var formTemplate = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Website Report</title>
</head>
<body>
<form method="post" action="/">
  <label>URL: <input type="text" name="url" value="{{.URL}}" size="60"></label><br>
  <label>Notes: <textarea name="notes" rows="3" cols="60">{{.Notes}}</textarea></label><br>
  <button type="submit">Generate Report</button>
</form>
<div id="output">{{if .Output}}<pre>{{.Output}}</pre>{{end}}</div>
</body>
</html>
`))

type formView struct {
	URL    string
	Notes  string
	Output string
}

func (s *Server) handleForm(w http.ResponseWriter, _ *http.Request) {
	s.renderForm(w, formView{URL: s.form.DefaultURL, Notes: s.form.DefaultNotes})
}

// handleFormSubmit runs one trigger and re-renders the form with a fresh
// output region. The URL is passed through as typed.
func (s *Server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	view := formView{URL: r.PostForm.Get("url"), Notes: r.PostForm.Get("notes")}

	out := s.runner.Run(r.Context(), view.URL, view.Notes)

	var buf bytes.Buffer
	if err := action.Render(&buf, out); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	view.Output = buf.String()
	s.renderForm(w, view)
}

func (s *Server) renderForm(w http.ResponseWriter, view formView) {
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, view); err != nil {
		zap.L().Error("web: render form failed", zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
