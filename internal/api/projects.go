package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/catalog"
	"github.com/heimdex/heimdex-editor/internal/edit"
	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/session"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const maxBodyBytes = 1 << 20

// sessionFor resolves the {id} URL parameter, writing a 404 when missing.
func sessionFor(cfg ServerConfig, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := cfg.Sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
		return nil, false
	}
	return sess, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions := cfg.Sessions.List()
		resp := ProjectsResponse{Projects: make([]ProjectSummary, len(sessions))}
		for i, s := range sessions {
			resp.Projects[i] = SnapshotToSummary(s.Snapshot())
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProjectRequest
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}
		sess := cfg.Sessions.Create(req.Settings())
		WriteJSON(w, http.StatusCreated, sess.Snapshot())
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func closeProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Sessions.Close(chi.URLParam(r, "id")) {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func updateSettingsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(cfg, w, r)
		if !ok {
			return
		}
		current := sess.Settings()
		req := CreateProjectRequest{
			Name:      current.Name,
			Width:     current.Width,
			Height:    current.Height,
			FrameRate: current.FrameRate,
		}
		if !decodeBody(w, r, &req) {
			return
		}
		sess.UpdateSettings(req.Settings())
		WriteJSON(w, http.StatusOK, sess.Settings())
	}
}

func viewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(cfg, w, r)
		if !ok {
			return
		}
		snap := sess.Snapshot()
		req := ViewRequest{PixelsPerSecond: snap.Zoom}
		if !decodeBody(w, r, &req) {
			return
		}
		magnet := snap.Magnet
		if req.Magnet != nil {
			magnet = *req.Magnet
		}
		sess.SetView(req.PixelsPerSecond, magnet)
		WriteJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func listElementsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, ElementsResponse{Elements: sess.Elements()})
	}
}

func addElementHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(cfg, w, r)
		if !ok {
			return
		}
		var req AddElementRequest
		if !decodeBody(w, r, &req) {
			return
		}
		kind, valid := timeline.ParseTrackKind(req.TrackKind)
		if !valid {
			WriteError(w, http.StatusBadRequest, "unknown track kind", "BAD_REQUEST")
			return
		}
		el, added := sess.AddElement(kind)
		if !added {
			WriteError(w, http.StatusInternalServerError, "failed to add element", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusCreated, el)
	}
}

func importElementHandler(cfg ServerConfig, urls *mediaURLs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(cfg, w, r)
		if !ok {
			return
		}
		var req ImportElementRequest
		if !decodeBody(w, r, &req) {
			return
		}
		asset, err := cfg.Catalog.Asset(r.Context(), req.AssetID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if asset == nil {
			WriteError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
			return
		}

		src := edit.Source{
			Ref:       asset.ID,
			Name:      asset.Name,
			Kind:      asset.Kind,
			Duration:  asset.Duration,
			Unbounded: !asset.Probed,
		}
		urls.Warm(r.Context(), asset.ID)
		el, added := sess.ImportAsset(src)
		if !added {
			WriteError(w, http.StatusBadRequest, "asset cannot be placed", "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusCreated, el)
	}
}

func updateElementHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(cfg, w, r)
		if !ok {
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		patch, err := decodePatch(body)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		el, found := sess.UpdateElement(chi.URLParam(r, "eid"), patch)
		if !found {
			WriteError(w, http.StatusNotFound, "element not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, el)
	}
}

func deleteElementHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(cfg, w, r)
		if !ok {
			return
		}
		ripple, _ := strconv.ParseBool(r.URL.Query().Get("ripple"))
		if !sess.DeleteElement(chi.URLParam(r, "eid"), ripple) {
			WriteError(w, http.StatusNotFound, "element not found", "NOT_FOUND")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func applyPresetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(cfg, w, r)
		if !ok {
			return
		}
		var req ApplyPresetRequest
		if !decodeBody(w, r, &req) {
			return
		}
		preset, err := cfg.Catalog.Preset(r.Context(), req.PresetID)
		if errors.Is(err, catalog.ErrPresetNotFound) {
			WriteError(w, http.StatusNotFound, "preset not found", "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		eid := chi.URLParam(r, "eid")
		if _, found := sess.Element(eid); !found {
			WriteError(w, http.StatusNotFound, "element not found", "NOT_FOUND")
			return
		}
		el, applied := sess.ApplyFX(eid, preset.FX)
		if !applied {
			WriteError(w, http.StatusBadRequest, "effects apply to video elements only", "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, el)
	}
}

func splitHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(cfg, w, r)
		if !ok {
			return
		}
		var req SplitRequest
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}

		var created []string
		if req.Time != nil {
			created = sess.Split(*req.Time)
		} else {
			created = sess.SplitAtPlayhead()
		}
		if created == nil {
			created = []string{}
		}
		WriteJSON(w, http.StatusOK, SplitResponse{Created: created})
	}
}

func arrangeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, ArrangeResponse{Arranged: sess.AutoArrange()})
	}
}

func activeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(cfg, w, r)
		if !ok {
			return
		}
		q := r.URL.Query()

		t, _ := sess.Playhead()
		if v := q.Get("t"); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "invalid time", "BAD_REQUEST")
				return
			}
			t = parsed
		}

		kind := timeline.TrackVideo
		if v := q.Get("track"); v != "" {
			k, valid := timeline.ParseTrackKind(v)
			if !valid {
				WriteError(w, http.StatusBadRequest, "unknown track kind", "BAD_REQUEST")
				return
			}
			kind = k
		}

		elements := sess.ActiveAt(t, kind)
		if elements == nil {
			elements = []timeline.Element{}
		}
		WriteJSON(w, http.StatusOK, ElementsResponse{Elements: elements})
	}
}

func playbackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(cfg, w, r)
		if !ok {
			return
		}
		var req PlaybackRequest
		if !decodeBody(w, r, &req) {
			return
		}

		switch req.Action {
		case "play":
			sess.Play()
		case "pause":
			sess.Pause()
		case "toggle":
			sess.Toggle()
		case "seek":
			sess.Seek(req.Time)
		case "loop":
			sess.SetLoop(req.Loop)
		default:
			WriteError(w, http.StatusBadRequest, "unknown playback action", "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(cfg, w, r)
		if !ok {
			return
		}
		var req ExportRequest
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}
		if req.Format == "" {
			req.Format = render.FormatEDL
		}
		renderer, found := cfg.Renderers[req.Format]
		if !found {
			WriteError(w, http.StatusBadRequest, "unsupported export format", "BAD_REQUEST")
			return
		}

		snap := sess.Snapshot()
		artifact, err := renderer.Render(r.Context(), render.Job{
			ProjectID: snap.ID,
			Title:     snap.Settings.Name,
			Settings:  snap.Settings,
			Elements:  snap.Elements,
			Duration:  snap.Duration,
			OutputDir: req.OutputDir,
		})
		if err != nil {
			writeRenderError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ExportResponse{Artifact: artifact})
	}
}

func writeRenderError(w http.ResponseWriter, err error) {
	var re *render.RenderError
	switch {
	case errors.Is(err, export.ErrOutputDirTraversal),
		errors.Is(err, export.ErrOutputDirMissing),
		errors.Is(err, export.ErrOutputDirRequired):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_OUTPUT_DIR")
	case errors.As(err, &re):
		WriteError(w, http.StatusBadGateway, err.Error(), "RENDER_FAILED")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
