package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/heimdex/heimdex-editor/internal/catalog"
	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/media"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/probe"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/session"
	"github.com/heimdex/heimdex-editor/internal/storage"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const testToken = "test-token"

type fakeProber struct {
	duration float64
}

func (p *fakeProber) Probe(_ context.Context, _ string) (*probe.Result, error) {
	return &probe.Result{Duration: p.duration, HasVideo: true}, nil
}

type testEnv struct {
	cfg    ServerConfig
	router http.Handler
	sched  *playback.ManualScheduler
	repo   catalog.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := catalog.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), "auth_token", testToken); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	svc := catalog.NewService(repo, &fakeProber{duration: 10}, 5, logger)
	sched := playback.NewManualScheduler()
	sessions := session.NewManager(session.Options{
		IDs:       &timeline.CounterGenerator{},
		Seed:      func() int64 { return 7 },
		Scheduler: func(sync.Locker) playback.Scheduler { return sched },
		Logger:    logger,
	})
	t.Cleanup(sessions.Shutdown)

	lookup := func(ref string) (string, bool) {
		a, err := svc.Asset(context.Background(), ref)
		if err != nil || a == nil {
			return "", false
		}
		return a.Path, true
	}

	cfg := ServerConfig{
		Version:    "test",
		Sessions:   sessions,
		Catalog:    svc,
		Repository: repo,
		Runner:     catalog.NewRunner(svc, repo, logger),
		Media:      media.NewServer(logger),
		Resolver:   storage.NewLocalResolver("http://127.0.0.1:8787", testToken),
		Renderers: map[string]render.Renderer{
			render.FormatEDL:    render.NewEDLRenderer(lookup, filepath.Join(t.TempDir(), "exports"), logger),
			render.FormatRemote: render.NewStubRenderer(logger),
		},
		Logger:    logger,
		StartTime: time.Now(),
	}
	return &testEnv{cfg: cfg, router: NewRouter(cfg), sched: sched, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) createProject(t *testing.T) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/projects", map[string]any{"name": "Trailer"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create project status = %d, body = %s", rr.Code, rr.Body.String())
	}
	return decodeJSONBody(t, rr)["id"].(string)
}

func (e *testEnv) importAsset(t *testing.T, name string) *catalog.Asset {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("0123456789abcdefghij"), 0644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	asset, err := e.cfg.Catalog.ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	return asset
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func decodeElement(t *testing.T, rr *httptest.ResponseRecorder) timeline.Element {
	t.Helper()
	var el timeline.Element
	if err := json.NewDecoder(rr.Body).Decode(&el); err != nil {
		t.Fatalf("decode element: %v", err)
	}
	return el
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", "", http.StatusUnauthorized},
		{"bad scheme", "Basic abc", "", http.StatusUnauthorized},
		{"bearer", "Bearer " + testToken, "", http.StatusOK},
		{"query token", "", "?token=" + testToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/projects"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			env.router.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProject(t)

	rr := env.do(t, http.MethodGet, "/projects", nil)
	var list ProjectsResponse
	json.NewDecoder(rr.Body).Decode(&list)
	if len(list.Projects) != 1 || list.Projects[0].Settings.Name != "Trailer" {
		t.Fatalf("projects = %+v", list.Projects)
	}
	if list.Projects[0].Settings.FrameRate != 30 {
		t.Errorf("frame rate = %v, want default 30", list.Projects[0].Settings.FrameRate)
	}

	rr = env.do(t, http.MethodPut, "/projects/"+id+"/settings", map[string]any{"frame_rate": 25})
	if rr.Code != http.StatusOK {
		t.Fatalf("settings status = %d", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["frame_rate"].(float64) != 25 || body["name"] != "Trailer" {
		t.Errorf("settings = %v", body)
	}

	rr = env.do(t, http.MethodDelete, "/projects/"+id, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("close status = %d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/projects/"+id, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("get closed project status = %d, want 404", rr.Code)
	}
}

func TestElementEditing(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProject(t)
	base := "/projects/" + id

	rr := env.do(t, http.MethodPost, base+"/elements", AddElementRequest{TrackKind: "text"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body = %s", rr.Code, rr.Body.String())
	}
	text := decodeElement(t, rr)
	if text.TrackKind != timeline.TrackText {
		t.Errorf("kind = %s", text.TrackKind)
	}

	rr = env.do(t, http.MethodPost, base+"/elements", AddElementRequest{TrackKind: "subtitle"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown kind status = %d, want 400", rr.Code)
	}

	rr = env.do(t, http.MethodPatch, base+"/elements/"+text.ID, map[string]any{"start_time": -4, "content": "Hello"})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", rr.Code, rr.Body.String())
	}
	patched := decodeElement(t, rr)
	if patched.StartTime != 0 || patched.Content != "Hello" {
		t.Errorf("patched = %+v, want start clamped to 0", patched)
	}

	rr = env.do(t, http.MethodPatch, base+"/elements/"+text.ID, map[string]any{"track_kind": "video"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("immutable patch status = %d, want 400", rr.Code)
	}

	rr = env.do(t, http.MethodPatch, base+"/elements/missing", map[string]any{"name": "x"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing element status = %d, want 404", rr.Code)
	}

	rr = env.do(t, http.MethodDelete, base+"/elements/"+text.ID+"?ripple=true", nil)
	if rr.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rr.Code)
	}
	rr = env.do(t, http.MethodDelete, base+"/elements/"+text.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rr.Code)
	}
}

func TestImportSplitAndActive(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProject(t)
	base := "/projects/" + id
	asset := env.importAsset(t, "beach.mp4")

	rr := env.do(t, http.MethodPost, base+"/elements/import", ImportElementRequest{AssetID: asset.ID})
	if rr.Code != http.StatusCreated {
		t.Fatalf("import status = %d, body = %s", rr.Code, rr.Body.String())
	}
	el := decodeElement(t, rr)
	if el.SourceRef != asset.ID || el.SourceDuration != 10 {
		t.Errorf("imported = %+v", el)
	}

	rr = env.do(t, http.MethodPost, base+"/elements/import", ImportElementRequest{AssetID: "nope"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown asset status = %d, want 404", rr.Code)
	}

	split := 4.0
	rr = env.do(t, http.MethodPost, base+"/split", SplitRequest{Time: &split})
	if rr.Code != http.StatusOK {
		t.Fatalf("split status = %d", rr.Code)
	}
	var sr SplitResponse
	json.NewDecoder(rr.Body).Decode(&sr)
	if len(sr.Created) != 1 {
		t.Fatalf("created = %v, want one", sr.Created)
	}

	rr = env.do(t, http.MethodGet, base+"/active?t=5&track=video", nil)
	var active ElementsResponse
	json.NewDecoder(rr.Body).Decode(&active)
	if len(active.Elements) != 1 || active.Elements[0].ID != sr.Created[0] {
		t.Fatalf("active = %+v, want %s", active.Elements, sr.Created[0])
	}
	if active.Elements[0].TrimStart != 4 {
		t.Errorf("right half trim = %v, want 4", active.Elements[0].TrimStart)
	}

	rr = env.do(t, http.MethodGet, base+"/active?t=abc", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad time status = %d, want 400", rr.Code)
	}
}

func TestPlaybackHandler(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProject(t)
	base := "/projects/" + id
	env.do(t, http.MethodPost, base+"/elements", AddElementRequest{TrackKind: "video"})

	rr := env.do(t, http.MethodPost, base+"/playback", PlaybackRequest{Action: "play"})
	if rr.Code != http.StatusOK {
		t.Fatalf("play status = %d", rr.Code)
	}
	if state := decodeJSONBody(t, rr)["state"]; state != "playing" {
		t.Errorf("state = %v, want playing", state)
	}

	env.sched.Advance(500 * time.Millisecond)

	rr = env.do(t, http.MethodPost, base+"/playback", PlaybackRequest{Action: "pause"})
	body := decodeJSONBody(t, rr)
	if body["time"].(float64) <= 0 {
		t.Errorf("time = %v, want advanced", body["time"])
	}

	rr = env.do(t, http.MethodPost, base+"/playback", PlaybackRequest{Action: "seek", Time: 999})
	body = decodeJSONBody(t, rr)
	if body["time"].(float64) != body["duration"].(float64) {
		t.Errorf("seek beyond end: time = %v, duration = %v", body["time"], body["duration"])
	}

	rr = env.do(t, http.MethodPost, base+"/playback", PlaybackRequest{Action: "rewind"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown action status = %d, want 400", rr.Code)
	}
}

func TestPresetRoutes(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProject(t)
	base := "/projects/" + id

	rr := env.do(t, http.MethodPost, "/presets", SavePresetRequest{Name: "Shake", FX: timeline.FX{Enabled: true, Intensity: 0.8}})
	if rr.Code != http.StatusCreated {
		t.Fatalf("save preset status = %d, body = %s", rr.Code, rr.Body.String())
	}
	presetID := decodeJSONBody(t, rr)["id"].(string)

	rr = env.do(t, http.MethodPost, base+"/elements", AddElementRequest{TrackKind: "video"})
	video := decodeElement(t, rr)
	rr = env.do(t, http.MethodPost, base+"/elements", AddElementRequest{TrackKind: "audio"})
	audio := decodeElement(t, rr)

	rr = env.do(t, http.MethodPost, base+"/elements/"+video.ID+"/preset", ApplyPresetRequest{PresetID: presetID})
	if rr.Code != http.StatusOK {
		t.Fatalf("apply status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if el := decodeElement(t, rr); el.FX == nil || el.FX.Intensity != 0.8 {
		t.Errorf("fx = %+v", el.FX)
	}

	rr = env.do(t, http.MethodPost, base+"/elements/"+audio.ID+"/preset", ApplyPresetRequest{PresetID: presetID})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("apply to audio status = %d, want 400", rr.Code)
	}

	rr = env.do(t, http.MethodPost, base+"/elements/"+video.ID+"/preset", ApplyPresetRequest{PresetID: "missing"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing preset status = %d, want 404", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/presets", nil)
	var presets PresetsResponse
	json.NewDecoder(rr.Body).Decode(&presets)
	if len(presets.Presets) != 1 {
		t.Errorf("presets = %d, want 1", len(presets.Presets))
	}
}

func TestExportEDL(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProject(t)
	base := "/projects/" + id
	asset := env.importAsset(t, "beach.mp4")
	env.do(t, http.MethodPost, base+"/elements/import", ImportElementRequest{AssetID: asset.ID})

	out := t.TempDir()
	rr := env.do(t, http.MethodPost, base+"/export", ExportRequest{Format: "edl", OutputDir: out})
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp ExportResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Artifact == nil || resp.Artifact.EventCount != 1 {
		t.Fatalf("artifact = %+v", resp.Artifact)
	}
	data, err := os.ReadFile(resp.Artifact.Path)
	if err != nil {
		t.Fatalf("read edl: %v", err)
	}
	if !strings.Contains(string(data), "TITLE: Trailer") {
		t.Errorf("edl missing title:\n%s", data)
	}

	rr = env.do(t, http.MethodPost, base+"/export", ExportRequest{Format: "edl", OutputDir: out + "/../etc"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("traversal status = %d, want 400", rr.Code)
	}

	rr = env.do(t, http.MethodPost, base+"/export", ExportRequest{Format: "remote"})
	if rr.Code != http.StatusOK {
		t.Errorf("remote stub status = %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, base+"/export", ExportRequest{Format: "mov"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d, want 400", rr.Code)
	}
}

func TestAssetRoutes(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mp3")
	os.WriteFile(path, []byte("id3"), 0644)

	rr := env.do(t, http.MethodPost, "/assets", ImportAssetRequest{Path: path})
	if rr.Code != http.StatusCreated {
		t.Fatalf("import status = %d, body = %s", rr.Code, rr.Body.String())
	}
	body := decodeJSONBody(t, rr)
	if body["kind"] != "audio" {
		t.Errorf("kind = %v, want audio", body["kind"])
	}
	assetID := body["id"].(string)

	txt := filepath.Join(dir, "notes.txt")
	os.WriteFile(txt, []byte("x"), 0644)
	rr = env.do(t, http.MethodPost, "/assets", ImportAssetRequest{Path: txt})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unsupported status = %d, want 400", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/assets", ImportAssetRequest{Path: dir, Folder: true})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("folder status = %d, body = %s", rr.Code, rr.Body.String())
	}
	jobID := decodeJSONBody(t, rr)["id"].(string)

	rr = env.do(t, http.MethodGet, "/jobs/"+jobID, nil)
	if rr.Code != http.StatusOK {
		t.Errorf("get job status = %d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, "/jobs/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing job status = %d, want 404", rr.Code)
	}

	rr = env.do(t, http.MethodDelete, "/assets/"+assetID, nil)
	if rr.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rr.Code)
	}
	rr = env.do(t, http.MethodDelete, "/assets/"+assetID, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rr.Code)
	}
}

func TestStatusHandler(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t)
	env.importAsset(t, "a.mp4")

	rr := env.do(t, http.MethodGet, "/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp StatusResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.ProjectCount != 1 || resp.AssetCount != 1 {
		t.Errorf("status = %+v", resp)
	}
	if resp.State != "idle" {
		t.Errorf("state = %q, want idle", resp.State)
	}
}

func TestAssetMediaRange(t *testing.T) {
	env := newTestEnv(t)
	asset := env.importAsset(t, "clip.mp4")

	server := httptest.NewServer(env.router)
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/assets/"+asset.ID+"/media", nil)
	req.Header.Set("Range", "bytes=0-3")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "0123" {
		t.Errorf("body = %q, want 0123", body)
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes 0-3/20" {
		t.Errorf("Content-Range = %q", got)
	}

	resp2, err := http.Get(server.URL + "/assets/missing/media")
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("missing asset status = %d, want 404", resp2.StatusCode)
	}
}
