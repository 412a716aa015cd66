package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discpack/internal/formatter"
	"github.com/desertthunder/discpack/internal/models"
	"github.com/desertthunder/discpack/internal/services"
	"github.com/desertthunder/discpack/internal/session"
	"github.com/desertthunder/discpack/internal/shared"
	"github.com/desertthunder/discpack/internal/tasks"
)

const multipartMemory = 32 << 20

// Engine is the build pipeline behind the API.
type Engine interface {
	Preview(ctx context.Context, progress chan<- tasks.ProgressUpdate, tracks []models.Track) ([]models.Assignment, []models.Track, error)
	Build(ctx context.Context, progress chan<- tasks.ProgressUpdate, req tasks.BuildRequest) (*tasks.BuildResult, error)
}

// PackAPI serves the slot catalog, assignment previews and pack builds.
//
// Every request gets its own session and registry, so uploads are deduplicated and capped exactly like the TUI
// and concurrent requests never share handles.
type PackAPI struct {
	engine Engine
	logger *log.Logger
}

var _ Handler = (*PackAPI)(nil)

// NewPackAPI creates a [PackAPI].
func NewPackAPI(engine Engine, logger *log.Logger) *PackAPI {
	if logger == nil {
		logger = log.Default()
	}
	return &PackAPI{engine: engine, logger: logger}
}

func (a *PackAPI) newSession() *session.Session {
	return session.New(session.NewRegistry(session.TempMaterializer{}, a.logger))
}

// Routes returns the HTTP routes this handler serves.
func (a *PackAPI) Routes() []string {
	return []string{"/api/slots", "/api/preview", "/api/build"}
}

// ServeHTTP dispatches to the route handlers.
func (a *PackAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := http.MethodPost
	if r.URL.Path == "/api/slots" {
		method = http.MethodGet
	}
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	switch r.URL.Path {
	case "/api/slots":
		a.slots(w, r)
	case "/api/preview":
		a.preview(w, r)
	case "/api/build":
		a.build(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (a *PackAPI) slots(w http.ResponseWriter, r *http.Request) {
	format, err := formatter.ParseFormat(formatOr(r, formatter.FormatJSON))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := formatter.RenderSlots(models.Slots(), format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeBody(w, format, data)
}

// upload is a parsed multipart request.
type upload struct {
	tracks  []models.Track
	icon    []byte
	warning error
}

func (a *PackAPI) readUpload(r *http.Request, sess *session.Session) (*upload, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	files := r.MultipartForm.File["tracks"]
	if len(files) == 0 {
		return nil, shared.ErrNoTracks
	}

	tracks := make([]models.Track, 0, len(files))
	for _, fh := range files {
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, services.LoadTrack(fh.Filename, data))
	}

	u := &upload{}
	added, err := sess.AddTracks(tracks)
	if err != nil {
		if !tasks.IsSoft(err) {
			return nil, err
		}
		u.warning = err
	}
	u.tracks = added

	if icons := r.MultipartForm.File["icon"]; len(icons) > 0 {
		data, err := readPart(icons[0])
		if err != nil {
			return nil, err
		}
		u.icon = data
	}
	return u, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", shared.ErrInvalidInput, fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", shared.ErrInvalidInput, fh.Filename, err)
	}
	return data, nil
}

func (a *PackAPI) preview(w http.ResponseWriter, r *http.Request) {
	format, err := formatter.ParseFormat(formatOr(r, formatter.FormatJSON))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sess := a.newSession()
	defer sess.Close()

	u, err := a.readUpload(r, sess)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}

	assignments, dropped, err := a.engine.Preview(r.Context(), nil, u.tracks)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}

	data, err := formatter.Report{Assignments: assignments, Dropped: dropped}.Render(format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	setWarning(w, u.warning)
	writeBody(w, format, data)
}

// BuildSummary is the JSON response of a build requested with format=json.
type BuildSummary struct {
	Metadata    models.Metadata     `json:"metadata"`
	Manifest    *models.Manifest    `json:"manifest"`
	Assignments []models.Assignment `json:"assignments"`
	Dropped     []models.Track      `json:"dropped,omitempty"`
	HasIcon     bool                `json:"has_icon"`
	Size        int                 `json:"size"`
	BuildID     string              `json:"build_id,omitempty"`
	Warning     string              `json:"warning,omitempty"`
}

func (a *PackAPI) build(w http.ResponseWriter, r *http.Request) {
	sess := a.newSession()
	defer sess.Close()

	u, err := a.readUpload(r, sess)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}

	version, err := models.ParseVersion(r.FormValue("version"))
	if err != nil {
		err = fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
		writeError(w, errorStatus(err), err)
		return
	}
	noIcon, _ := strconv.ParseBool(r.FormValue("no_icon"))

	result, err := a.engine.Build(r.Context(), nil, tasks.BuildRequest{
		Tracks: u.tracks,
		Metadata: models.MetadataInput{
			Name:        r.FormValue("name"),
			Description: r.FormValue("description"),
			Version:     version,
		},
		Icon:   u.icon,
		NoIcon: noIcon,
	})
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}

	a.logger.Info("served pack", "pack", result.Metadata.Name, "tracks", len(result.Assignments), "bytes", len(result.Archive))
	setWarning(w, u.warning)

	if strings.EqualFold(r.URL.Query().Get("format"), formatter.FormatJSON) {
		summary := BuildSummary{
			Metadata:    result.Metadata,
			Manifest:    result.Manifest,
			Assignments: result.Assignments,
			Dropped:     result.Dropped,
			HasIcon:     result.HasIcon,
			Size:        len(result.Archive),
			BuildID:     result.BuildID,
		}
		if u.warning != nil {
			summary.Warning = u.warning.Error()
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Metadata.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Archive)))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Archive)
}

// errorStatus maps pipeline errors to HTTP status codes.
func errorStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, shared.ErrBuildInProgress):
		return http.StatusConflict
	case errors.Is(err, shared.ErrNoTracks), errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrProbeFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func formatOr(r *http.Request, fallback string) string {
	if f := r.URL.Query().Get("format"); f != "" {
		return f
	}
	return fallback
}

func setWarning(w http.ResponseWriter, warning error) {
	if warning != nil {
		w.Header().Set("X-Discpack-Warning", warning.Error())
	}
}
