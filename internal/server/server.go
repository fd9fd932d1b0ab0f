// Package server provides the local web UI: a story index backed by the
// local database and a generate form that runs the pipeline on an
// uploaded template.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/suvichaar/storygen/internal/database"
	"github.com/suvichaar/storygen/internal/pipeline"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Uploaded templates and source images are small HTML/JPEG files;
// anything larger is a mistake.
const maxUploadBytes = 32 << 20

// Runner runs one story-generation pipeline.
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) *pipeline.Result
}

// Server is the HTTP server for the story index and generate form.
type Server struct {
	db     *database.DB
	runner Runner
	pages  map[string]*template.Template
	mux    *http.ServeMux
}

// New creates a new Server.
func New(db *database.DB, runner Runner) (*Server, error) {
	funcMap := template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "generate.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, runner: runner, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Routes
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/generate", s.handleGenerate)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	stories, err := s.db.GetAllStories()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	stats, _ := s.db.GetStats()

	s.render(w, "index.html", map[string]any{
		"Stories": stories,
		"Stats":   stats,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.render(w, "generate.html", map[string]any{})
		return
	}

	in, err := s.parseGenerateForm(r)
	if err != nil {
		s.render(w, "generate.html", map[string]any{"Error": err.Error()})
		return
	}

	result := s.runner.Run(r.Context(), in)
	for _, step := range result.Steps {
		if step.Err != nil {
			s.render(w, "generate.html", map[string]any{
				"Error": fmt.Sprintf("%s failed: %v", step.Name, step.Err),
				"Steps": result.Steps,
			})
			return
		}
	}

	s.render(w, "generate.html", map[string]any{
		"Artifact": result.Artifact,
		"Steps":    result.Steps,
	})
}

func (s *Server) parseGenerateForm(r *http.Request) (pipeline.Input, error) {
	var in pipeline.Input

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return in, fmt.Errorf("parsing upload: %w", err)
	}

	in.Kind = pipeline.KindQuiz
	if r.FormValue("kind") == pipeline.KindSummary {
		in.Kind = pipeline.KindSummary
	}
	in.Topic = strings.TrimSpace(r.FormValue("topic"))
	in.Strategy = r.FormValue("images")
	if q := r.FormValue("questions"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || (n != 4 && n != 5) {
			return in, fmt.Errorf("questions must be 4 or 5")
		}
		in.Questions = n
	}
	for _, kw := range strings.Split(r.FormValue("keywords"), ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			in.Keywords = append(in.Keywords, kw)
		}
	}

	tmpl, err := readUpload(r, "template")
	if err != nil {
		return in, fmt.Errorf("a template upload is required")
	}
	in.TemplateHTML = string(tmpl)

	if img, err := readUpload(r, "image"); err == nil {
		in.Image = img
	}
	if in.Kind == pipeline.KindSummary && len(in.Image) == 0 {
		return in, fmt.Errorf("summaries need a source image upload")
	}
	if in.Kind == pipeline.KindQuiz && in.Topic == "" && len(in.Image) == 0 && len(in.Keywords) == 0 {
		return in, fmt.Errorf("provide a topic, a source image, or keywords")
	}
	return in, nil
}

func readUpload(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadBytes))
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, runner Runner, port int) error {
	srv, err := New(db, runner)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
