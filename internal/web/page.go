package web

import (
	"bytes"
	"html/template"
	"net/http"

	appLog "fbtimeline/internal/log"
	"fbtimeline/internal/render"
)

var timelinePage = template.Must(template.New("timeline").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Free/busy timeline</title>
<style>
body{margin:0;font-family:sans-serif;background:#fff}
#timeline{overflow-x:auto}
.failed{color:#a40000;font-size:12px;margin:4px}
</style>
</head>
<body>
<div id="timeline" data-ready="true" data-loaded-at="{{.LoadedAt}}">
{{range .Failed}}<div class="failed">{{.}}</div>
{{end}}{{.SVG}}
</div>
</body>
</html>
`))

type pageData struct {
	LoadedAt string
	Failed   []string
	SVG      template.HTML
}

// handleTimeline serves an HTML page wrapping the SVG timeline. The root
// element carries data-ready="true" for headless capture.
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	sc, snap, opts, err := s.scene(r)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	surface := render.NewSVGSurface()
	render.Draw(surface, sc, opts)

	data := pageData{
		LoadedAt: snap.LoadedAt.Format("2006-01-02 15:04:05"),
		// The SVG surface escapes every label it writes.
		SVG: template.HTML(surface.String()),
	}
	for _, a := range snap.Attendees {
		if err := snap.Errors[a.ID]; err != nil {
			data.Failed = append(data.Failed, a.Label()+": no free/busy data")
		}
	}

	var buf bytes.Buffer
	if err := timelinePage.Execute(&buf, data); err != nil {
		appLog.Error("timeline page render failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
