package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/readersforest/internal/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutTemplate = "templates/layout.html"

var templateFuncs = template.FuncMap{
	"formatRating": func(v float64) string {
		return fmt.Sprintf("%.2f", v)
	},
	"formatDate": func(t time.Time) string {
		return t.Format("2 Jan 2006")
	},
	"stars": func(n int) []struct{} {
		if n < 0 {
			n = 0
		}
		return make([]struct{}, n)
	},
}

// HTMLRenderer renders full pages wrapped in the shared layout. A page that
// is missing from the set is answered with the JSON of its data instead.
type HTMLRenderer struct {
	pages map[string]*template.Template
}

// NewHTMLRenderer parses the embedded templates.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	return newHTMLRenderer(templateFS)
}

func newHTMLRenderer(fsys fs.FS) (*HTMLRenderer, error) {
	layout, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(fsys, layoutTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layoutTemplate {
			continue
		}
		page, err := template.Must(layout.Clone()).ParseFS(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		pages[path.Base(file)] = page
	}

	return &HTMLRenderer{pages: pages}, nil
}

// Render implements auth.Renderer.
func (r *HTMLRenderer) Render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["CurrentUser"]; !ok {
		data["CurrentUser"] = auth.GetFirstName(c)
	}
	data["LoggedIn"] = auth.IsAuthenticated(c)

	var page *template.Template
	if r != nil {
		page = r.pages[name]
	}
	if page == nil {
		renderJSON(c, status, data)
		return
	}

	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render template")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func renderJSON(c *gin.Context, status int, data gin.H) {
	out := make(gin.H, len(data))
	for k, v := range data {
		if _, isHTML := v.(template.HTML); isHTML {
			continue
		}
		out[k] = v
	}
	c.JSON(status, out)
}
