package handlers

import (
	"bytes"
	"html/template"
	"net/http"
)

// renderer executes page templates with the per-request fields every page needs
type renderer struct {
	templates *template.Template
	mw        *Middleware
}

func (rd renderer) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	if _, ok := data["User"]; !ok {
		if user := GetUserFromContext(r.Context()); user != nil {
			data["User"] = user
		}
	}
	data["CSRFToken"] = rd.mw.CSRFToken(r)

	var buf bytes.Buffer
	if err := rd.templates.ExecuteTemplate(&buf, name, data); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error rendering "+name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
