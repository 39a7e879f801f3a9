package ui

import (
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gozunis/domain/core"
	"gozunis/internal/errors"
	"gozunis/internal/profiling"
	"gozunis/ports"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// App serves human-readable run reports rendered from markdown
type App struct {
	router    *chi.Mux
	repo      ports.RunRepository
	profiler  *profiling.HistoryProfiler
	templates *template.Template
	port      string
}

// Config holds UI application configuration
type Config struct {
	Port string
}

// NewApp creates a new UI application reading runs from repo
func NewApp(config Config, repo ports.RunRepository) (*App, error) {
	templates, err := template.ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if config.Port == "" {
		config.Port = "8081"
	}

	app := &App{
		router:    chi.NewRouter(),
		repo:      repo,
		profiler:  profiling.NewHistoryProfiler(),
		templates: templates,
		port:      config.Port,
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/reports", http.StatusFound)
	})
	a.router.Get("/reports", a.handleRunList)
	a.router.Get("/reports/benchmarks", a.handleBenchmarks)
	a.router.Get("/reports/{id}", a.handleRunReport)
	a.router.Get("/reports/{id}/markdown", a.handleRunMarkdown)
}

// Handler exposes the router, for mounting and tests
func (a *App) Handler() http.Handler { return a.router }

// Start starts the HTTP server
func (a *App) Start() error {
	addr := ":" + a.port
	log.Printf("Starting report server on %s", addr)
	return http.ListenAndServe(addr, a.router)
}

func (a *App) handleRunList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = v
	}

	runs, err := a.repo.ListRuns(r.Context(), limit, 0)
	if err != nil {
		a.renderError(w, err)
		return
	}
	a.renderMarkdown(w, "Runs", RunListMarkdown(runs))
}

func (a *App) handleRunReport(w http.ResponseWriter, r *http.Request) {
	md, ok := a.runMarkdown(w, r)
	if !ok {
		return
	}
	a.renderMarkdown(w, "Run "+chi.URLParam(r, "id"), md)
}

func (a *App) handleRunMarkdown(w http.ResponseWriter, r *http.Request) {
	md, ok := a.runMarkdown(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write(md)
}

func (a *App) runMarkdown(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	stored, err := a.repo.GetRun(r.Context(), id)
	if err != nil {
		a.renderError(w, err)
		return nil, false
	}
	profile, err := a.profiler.Profile(stored.History, stored.Manifest.Config.UseSurvey)
	if err != nil {
		profile = nil
	}
	return RunMarkdown(stored, profile), true
}

func (a *App) handleBenchmarks(w http.ResponseWriter, r *http.Request) {
	suite := r.URL.Query().Get("suite")
	rows, err := a.repo.ListBenchmarks(r.Context(), suite, 200)
	if err != nil {
		a.renderError(w, err)
		return
	}
	md, err := BenchmarkMarkdown(suite, rows)
	if err != nil {
		a.renderError(w, err)
		return
	}
	a.renderMarkdown(w, "Benchmarks", md)
}

// renderMarkdown converts md to HTML and wraps it in the page layout
func (a *App) renderMarkdown(w http.ResponseWriter, title string, md []byte) {
	data := struct {
		Title string
		Body  template.HTML
	}{title, template.HTML(ToHTML(md))}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func (a *App) renderError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), errors.HTTPStatus(err))
}
