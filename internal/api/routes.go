package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/catalog"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()
	urls := newMediaURLs(cfg)

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	// Media elements cannot send an Authorization header.
	r.Group(func(r chi.Router) {
		r.Use(LoopbackGuard())
		r.Get("/assets/{id}/media", assetMediaHandler(cfg))
		r.Head("/assets/{id}/media", assetMediaHandler(cfg))
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Get("/assets", listAssetsHandler(cfg))
		r.Post("/assets", importAssetHandler(cfg))
		r.Get("/assets/{id}", getAssetHandler(cfg))
		r.Delete("/assets/{id}", deleteAssetHandler(cfg))
		r.Post("/assets/{id}/probe", reprobeAssetHandler(cfg))

		r.Get("/presets", listPresetsHandler(cfg))
		r.Post("/presets", savePresetHandler(cfg))
		r.Delete("/presets/{id}", deletePresetHandler(cfg))

		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))

		r.Get("/projects", listProjectsHandler(cfg))
		r.Post("/projects", createProjectHandler(cfg))
		r.Route("/projects/{id}", func(r chi.Router) {
			r.Get("/", getProjectHandler(cfg))
			r.Delete("/", closeProjectHandler(cfg))
			r.Put("/settings", updateSettingsHandler(cfg))
			r.Post("/view", viewHandler(cfg))

			r.Get("/elements", listElementsHandler(cfg))
			r.Post("/elements", addElementHandler(cfg))
			r.Post("/elements/import", importElementHandler(cfg, urls))
			r.Patch("/elements/{eid}", updateElementHandler(cfg))
			r.Delete("/elements/{eid}", deleteElementHandler(cfg))
			r.Post("/elements/{eid}/preset", applyPresetHandler(cfg))

			r.Post("/split", splitHandler(cfg))
			r.Post("/arrange", arrangeHandler(cfg))
			r.Get("/active", activeHandler(cfg))
			r.Post("/playback", playbackHandler(cfg))
			r.Post("/export", exportHandler(cfg))
			r.Get("/ws", wsHandler(cfg, urls))
		})
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := cfg.Version
		if version == "" {
			version = "dev"
		}
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		assets, _ := cfg.Catalog.Assets(ctx)
		jobs, _ := cfg.Repository.ListJobs(ctx, 10)

		state := "idle"
		var activeJob *JobResponse
		jobsRunning := 0
		lastError := ""

		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			state = "paused"
		}

		for _, j := range jobs {
			if j.Status == catalog.JobStatusRunning {
				state = "working"
				resp := JobToResponse(j)
				activeJob = &resp
				jobsRunning++
			}
			if j.Status == catalog.JobStatusFailed && lastError == "" {
				lastError = j.Error
			}
		}

		if lastError != "" && state == "idle" {
			state = "error"
		}

		projects := 0
		if cfg.Sessions != nil {
			projects = cfg.Sessions.Count()
		}

		WriteJSON(w, http.StatusOK, StatusResponse{
			State:        state,
			LastError:    lastError,
			ProjectCount: projects,
			AssetCount:   len(assets),
			JobsRunning:  jobsRunning,
			ActiveJob:    activeJob,
		})
	}
}

func listAssetsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assets, err := cfg.Catalog.Assets(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list assets", "INTERNAL_ERROR")
			return
		}
		if assets == nil {
			assets = []*catalog.Asset{}
		}
		WriteJSON(w, http.StatusOK, AssetsResponse{Assets: assets})
	}
}

func importAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ImportAssetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		if req.Folder {
			job, err := cfg.Catalog.ImportFolder(r.Context(), req.Path)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			WriteJSON(w, http.StatusAccepted, JobToResponse(job))
			return
		}

		asset, err := cfg.Catalog.ImportFile(r.Context(), req.Path)
		if err != nil {
			code := "BAD_REQUEST"
			if errors.Is(err, catalog.ErrUnsupported) {
				code = "UNSUPPORTED_MEDIA"
			}
			WriteError(w, http.StatusBadRequest, err.Error(), code)
			return
		}
		WriteJSON(w, http.StatusCreated, asset)
	}
}

func getAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asset, err := cfg.Catalog.Asset(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if asset == nil {
			WriteError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, asset)
	}
}

func deleteAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := cfg.Catalog.RemoveAsset(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, catalog.ErrAssetNotFound) {
			WriteError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reprobeAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Catalog.QueueReprobe(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, catalog.ErrAssetNotFound) {
			WriteError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusAccepted, JobToResponse(job))
	}
}

func assetMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		asset, err := cfg.Catalog.Asset(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if asset == nil {
			WriteError(w, http.StatusNotFound, "asset not found", "NOT_FOUND")
			return
		}

		if err := cfg.Media.ServeFile(w, r, asset.Path); err != nil {
			cfg.Logger.Error("media serve error", "error", err, "asset_id", id)
		}
	}
}

func listPresetsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presets, err := cfg.Catalog.Presets(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list presets", "INTERNAL_ERROR")
			return
		}
		if presets == nil {
			presets = []*timeline.EffectPreset{}
		}
		WriteJSON(w, http.StatusOK, PresetsResponse{Presets: presets})
	}
}

func savePresetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SavePresetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		preset, err := cfg.Catalog.SavePreset(r.Context(), req.Name, req.FX)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusCreated, preset)
	}
}

func deletePresetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Catalog.DeletePreset(r.Context(), chi.URLParam(r, "id")); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
			limit = v
		}
		jobs, err := cfg.Repository.ListJobs(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Repository.GetJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}
