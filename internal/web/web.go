package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"webcal/internal/calendar"
	"webcal/internal/capture"
	"webcal/internal/config"
	"webcal/internal/ics"
	appLog "webcal/internal/log"
	"webcal/internal/model"
	"webcal/internal/recur"
)

// Server provides the HTTP API and the embedded calendar UI.
type Server struct {
	cfg *config.Config
	svc *calendar.Service
	mux *http.ServeMux
}

// embeddedStatic contains the calendar web UI (month grid, dialog form,
// color-filter sidebar).
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server around the calendar service.
func NewServer(cfg *config.Config, svc *calendar.Service) *Server {
	s := &Server{
		cfg: cfg,
		svc: svc,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="webcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/events/prompts", s.handlePrompts)
	s.mux.HandleFunc("/api/events.ics", s.handleExport)
	s.mux.HandleFunc("/api/colors", s.handleColors)
	s.mux.HandleFunc("/api/import", s.handleImport)
	s.mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("/preview.png", s.handlePreview)

	// Embedded UI; all non-/api/* paths fall back to this handler.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleEvents is the event collection endpoint, one path for all four
// methods like the UI has always used:
//
//	GET    /api/events  -> full instance list (storage order)
//	POST   /api/events  -> create (single or expanded series)
//	PUT    /api/events  -> edit one instance or propagate across its series
//	DELETE /api/events  -> delete one instance or a whole series
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListEvents(w, r)
	case http.MethodPost:
		s.handleCreateEvent(w, r)
	case http.MethodPut:
		s.handleUpdateEvent(w, r)
	case http.MethodDelete:
		s.handleDeleteEvent(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	events, err := s.svc.Events()
	if err != nil {
		appLog.Error("api events: list failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// createRequest is the JSON body for POST /api/events: the dialog's fields
// plus the conflict confirmation flag.
type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Date        string `json:"date"`      // "2006-01-02", the selected day
	StartTime   string `json:"startTime"` // "HH:MM"
	EndTime     string `json:"endTime"`   // "HH:MM"
	Recurrence  string `json:"recurrence"`
	Confirm     bool   `json:"confirm"`
}

// conflictResponse is returned with 409 when a candidate interval overlaps
// existing events and the request did not confirm.
type conflictResponse struct {
	Conflicts []model.EventInstance `json:"conflicts"`
	// RecurrenceWarning notes that only the first instance of a recurring
	// series is screened; later instances might also conflict.
	RecurrenceWarning bool `json:"recurrenceWarning,omitempty"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rule, err := recur.ParseRule(req.Recurrence)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	loc := resolveLocationOrLocal(s.cfg.Timezone)
	base, err := time.ParseInLocation("2006-01-02", req.Date, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	if req.Color == "" {
		req.Color = s.cfg.DefaultColor
	}

	result, err := s.svc.Create(calendar.CreateRequest{
		Title:       req.Title,
		Description: req.Description,
		Color:       req.Color,
		Base:        base,
		StartOfDay:  req.StartTime,
		EndOfDay:    req.EndTime,
		Rule:        rule,
		Confirm:     req.Confirm,
	})
	if err != nil {
		writeValidationOrServerError(w, err)
		return
	}

	if result.Created == nil {
		writeJSON(w, http.StatusConflict, conflictResponse{
			Conflicts:         result.Conflicts,
			RecurrenceWarning: result.RecurrenceWarning,
		})
		return
	}

	writeJSON(w, http.StatusCreated, result.Created)
}

// updateRequest is the JSON body for PUT /api/events. The two ApplyToSeries
// flags carry the user's answers to the prompts from /api/events/prompts;
// description changes propagate without asking, time changes never do.
type updateRequest struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       string `json:"color"`
	StartTime   string `json:"startTime"` // "HH:MM", applied to the instance's own day
	EndTime     string `json:"endTime"`   // "HH:MM"

	ApplyTitleToSeries bool `json:"applyTitleToSeries"`
	ApplyColorToSeries bool `json:"applyColorToSeries"`
	Confirm            bool `json:"confirm"`
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	prior, err := s.svc.Get(req.ID)
	if err != nil {
		writeValidationOrServerError(w, err)
		return
	}

	// The dialog edits times of day; the instance keeps its own day. The
	// end rolls forward past midnight when not after the start.
	start, end, err := recur.Range(prior.Start, req.StartTime, req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.svc.Update(calendar.UpdateRequest{
		ID:                 req.ID,
		Title:              req.Title,
		Description:        req.Description,
		Color:              req.Color,
		Start:              start,
		End:                end,
		ApplyTitleToSeries: req.ApplyTitleToSeries,
		ApplyColorToSeries: req.ApplyColorToSeries,
		Confirm:            req.Confirm,
	})
	if err != nil {
		writeValidationOrServerError(w, err)
		return
	}

	if !result.Applied {
		writeJSON(w, http.StatusConflict, conflictResponse{Conflicts: result.Conflicts})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "event updated"})
}

// deleteRequest is the JSON body for DELETE /api/events.
type deleteRequest struct {
	ID                string `json:"id"`
	DeleteAllInSeries bool   `json:"deleteAllInSeries"`
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.svc.Delete(req.ID, req.DeleteAllInSeries); err != nil {
		writeValidationOrServerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "event deleted"})
}

// handlePrompts tells the dialog which series-propagation confirmations an
// edit would require before it submits the PUT.
//
// GET /api/events/prompts?id=...&title=...&color=...
func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	id := q.Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	prompts, err := s.svc.Prompts(id, q.Get("title"), q.Get("color"))
	if err != nil {
		writeValidationOrServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompts)
}

func (s *Server) handleColors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	colors, err := s.svc.Colors()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load colors")
		return
	}
	if colors == nil {
		colors = []string{}
	}
	writeJSON(w, http.StatusOK, colors)
}

// handleExport serves the whole collection as an iCalendar document.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	events, err := s.svc.Events()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ics.Export(events)))
}

// importRequest is the JSON body for POST /api/import: either a subscription
// URL (fetched with conditional-GET caching) or a raw ICS payload.
type importRequest struct {
	URL string `json:"url"`
	ICS string `json:"ics"`
}

type importResponse struct {
	Imported      int      `json:"imported"`
	TruncatedUIDs []string `json:"truncatedUids,omitempty"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var (
		src  ics.Source
		body []byte
	)
	switch {
	case req.URL != "":
		src = ics.Source{ID: req.URL, URL: req.URL}
		fetcher := ics.NewFetcher(s.cfg.ImportCacheDir)
		res, err := fetcher.Fetch(r.Context(), src)
		if err != nil {
			appLog.Error("api import: fetch failed", err)
			writeError(w, http.StatusBadGateway, "failed to fetch ICS source")
			return
		}
		body = res.Body
	case req.ICS != "":
		src = ics.Source{ID: "upload"}
		body = []byte(req.ICS)
	default:
		writeError(w, http.StatusBadRequest, "either url or ics is required")
		return
	}

	parsed, err := ics.Parse(src, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse ICS payload")
		return
	}

	now := time.Now().In(resolveLocationOrLocal(s.cfg.Timezone))
	result, err := ics.Expand(parsed, ics.ExpandConfig{
		RangeStart: now.AddDate(0, 0, -1),
		RangeEnd:   now.AddDate(0, 0, s.cfg.ImportHorizonDays),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.Import(result.Instances); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store imported events")
		return
	}

	writeJSON(w, http.StatusOK, importResponse{
		Imported:      len(result.Instances),
		TruncatedUIDs: result.TruncatedUIDs,
	})
}

// handleSnapshot captures a PNG of the month view via headless Chromium and
// writes it to the configured preview path.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.cfg.Snapshot.Enabled {
		writeError(w, http.StatusNotImplemented, "snapshot capture is disabled")
		return
	}

	// Detached context: the capture may outlive the triggering request's
	// deadline but is bounded by the capture timeout itself.
	err := capture.CalendarPNG(context.Background(), capture.Options{
		URL:        "http://" + s.cfg.Listen + "/",
		OutputPath: s.cfg.Snapshot.Path,
		Width:      s.cfg.Snapshot.Width,
		Height:     s.cfg.Snapshot.Height,
	})
	if err != nil {
		appLog.Error("api snapshot: capture failed", err)
		writeError(w, http.StatusInternalServerError, "capture failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"preview": "/preview.png"})
}

// handlePreview serves the last captured PNG snapshot from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.Snapshot.Path)
}

// staticFileServer returns an http.Handler that serves the embedded UI.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// API requests never fall through to the static UI; a missing API
		// route gets a 404, not HTML.
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			http.NotFound(w, r)
			return
		}

		fileServer.ServeHTTP(w, r)
	})
}

// StartServer runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func StartServer(ctx context.Context, cfg *config.Config, svc *calendar.Service) error {
	s := NewServer(cfg, svc)
	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// writeValidationOrServerError maps service errors onto status codes:
// validation problems are the client's to fix, a missing event is 404, and
// anything else is a store failure the client can only retry.
func writeValidationOrServerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, calendar.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrMissingTitle),
		errors.Is(err, model.ErrMissingTimes),
		errors.Is(err, model.ErrEndNotAfterStart),
		errors.Is(err, recur.ErrUnknownRule),
		errors.Is(err, recur.ErrBadTimeOfDay):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "operation failed")
	}
}
