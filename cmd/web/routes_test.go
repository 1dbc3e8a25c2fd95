package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AdamBeresnev/art-battle/internal/battle"
	"github.com/AdamBeresnev/art-battle/internal/config"
	"github.com/AdamBeresnev/art-battle/internal/db"
	"github.com/AdamBeresnev/art-battle/internal/middleware"
	"github.com/AdamBeresnev/art-battle/internal/service"
	"github.com/AdamBeresnev/art-battle/internal/store"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	keys []string
}

func (f *fakeUploader) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	f.keys = append(f.keys, key)
	return "https://cdn.example.com/" + key, nil
}

type testServer struct {
	app     *application
	handler http.Handler
	event   *battle.Event
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, service.DefaultScoringConfig)
}

func newTestServerWith(t *testing.T, scoringCfg service.ScoringConfig) *testServer {
	t.Helper()

	database, err := db.InitDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database.DB, "file://../../migrations"))

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(database.DB, 0)

	eventStore := store.NewEventStore(database)
	artworkStore := store.NewArtworkStore(database)
	pointsStore := store.NewPointsStore(database)
	lifecycle := service.NewLifecycleService(eventStore)
	events := service.NewEventService(database, eventStore, artworkStore, lifecycle)

	cfg := &config.Config{MaxUploadBytes: 1 << 20}
	cfg.Scoring.AttackRequiresCounterArt = scoringCfg.AttackRequiresCounterArt

	app := &application{
		cfg:            cfg,
		sessionManager: sessionManager,
		events:         events,
		scoring:        service.NewScoringService(database, eventStore, artworkStore, pointsStore, lifecycle, scoringCfg),
		profiles:       service.NewProfileService(database, store.NewProfileStore(database)),
	}

	event, err := events.CreateEvent(context.Background(), service.CreateEventInput{
		Title:     "Live Battle",
		Theme:     "Robots",
		StartTime: time.Now().Add(-time.Hour),
		EndTime:   time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	return &testServer{app: app, handler: app.routes(), event: event}
}

// signIn creates a profile and a stored session for it
func (ts *testServer) signIn(t *testing.T, name string) (uuid.UUID, *http.Cookie) {
	t.Helper()

	p, err := ts.app.profiles.FindOrCreateByProvider(context.Background(), goth.User{
		Provider: "discord",
		UserID:   uuid.NewString(),
		NickName: name,
	})
	require.NoError(t, err)

	ctx, err := ts.app.sessionManager.Load(context.Background(), "")
	require.NoError(t, err)
	ts.app.sessionManager.Put(ctx, middleware.SessionUserKey, p.UserID.String())
	token, _, err := ts.app.sessionManager.Commit(ctx)
	require.NoError(t, err)

	return p.UserID, &http.Cookie{Name: ts.app.sessionManager.Cookie.Name, Value: token}
}

func (ts *testServer) do(t *testing.T, cookie *http.Cookie, method, target string, form url.Values) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	}
	return rec, decoded
}

func TestRoutes_RequireSession(t *testing.T) {
	ts := newTestServer(t)

	rec, body := ts.do(t, nil, http.MethodGet, "/events/"+ts.event.ID.String(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Sign in required", body["error"])
}

func TestRoutes_BattleFlow(t *testing.T) {
	ts := newTestServer(t)
	eventPath := "/events/" + ts.event.ID.String()

	u1, c1 := ts.signIn(t, "u1")
	u2, c2 := ts.signIn(t, "u2")

	rec, body := ts.do(t, c1, http.MethodPost, eventPath+"/join", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A", body["team"])
	rec, body = ts.do(t, c2, http.MethodPost, eventPath+"/join", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "B", body["team"])

	rec, body = ts.do(t, c1, http.MethodPost, eventPath+"/artworks", url.Values{"title": {""}, "image_url": {"https://cdn.example.com/a.png"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TITLE_REQUIRED", body["code"])

	rec, body = ts.do(t, c1, http.MethodPost, eventPath+"/artworks", url.Values{"title": {"Mech"}, "image_url": {"https://cdn.example.com/mech.png"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, false, body["points_pending"])
	artwork := body["artwork"].(map[string]any)
	artworkPath := "/artworks/" + artwork["id"].(string)

	rec, body = ts.do(t, c1, http.MethodPost, artworkPath+"/like", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "SELF_INTERACTION", body["code"])

	rec, body = ts.do(t, c2, http.MethodPost, artworkPath+"/like", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["liked"])

	rec, _ = ts.do(t, c2, http.MethodPost, artworkPath+"/attack", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body = ts.do(t, c2, http.MethodPost, artworkPath+"/attack", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_ATTACKED", body["code"])

	rec, body = ts.do(t, c1, http.MethodGet, eventPath+"/scores", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	teams := body["teams"].([]any)
	require.Len(t, teams, 2)
	assert.Equal(t, float64(4), teams[0].(map[string]any)["total_points"])
	assert.Equal(t, float64(2), teams[1].(map[string]any)["total_points"])

	rec, body = ts.do(t, c2, http.MethodGet, "/users/"+u1.String()+"/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(4), body["total_points"])

	rec, body = ts.do(t, c1, http.MethodGet, "/users/"+u2.String()+"/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["total_points"])

	rec, body = ts.do(t, c1, http.MethodGet, eventPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Robots", body["current_theme"])
	assert.Len(t, body["artworks"], 1)
}

func TestRoutes_BadIDs(t *testing.T) {
	ts := newTestServer(t)
	_, cookie := ts.signIn(t, "someone")

	rec, body := ts.do(t, cookie, http.MethodGet, "/events/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ID", body["code"])

	rec, body = ts.do(t, cookie, http.MethodGet, "/events/"+uuid.NewString()+"/scores", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EVENT_NOT_FOUND", body["code"])

	rec, body = ts.do(t, cookie, http.MethodPost, "/artworks/"+uuid.NewString()+"/like", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ARTWORK_NOT_FOUND", body["code"])
}

func pngUpload(t *testing.T, titleField, title, fileField string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField(titleField, title))
	part, err := writer.CreateFormFile(fileField, "mech.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestRoutes_SubmitArtworkUpload(t *testing.T) {
	ts := newTestServer(t)
	eventPath := "/events/" + ts.event.ID.String()
	_, cookie := ts.signIn(t, "artist")

	post := func() *httptest.ResponseRecorder {
		body, contentType := pngUpload(t, "title", "Big Mech", "image")
		req := httptest.NewRequest(http.MethodPost, eventPath+"/artworks", body)
		req.Header.Set("Content-Type", contentType)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		return rec
	}

	uploads := &fakeUploader{}
	ts.app.uploads = uploads

	// Not a participant yet, nothing is uploaded
	rec := post()
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, uploads.keys)

	rec, _ = ts.do(t, cookie, http.MethodPost, eventPath+"/join", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = post()
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, uploads.keys, 1)
	assert.True(t, strings.HasPrefix(uploads.keys[0], "artworks/"+ts.event.ID.String()+"/big-mech-"))
	assert.True(t, strings.HasSuffix(uploads.keys[0], ".png"))

	var outcome service.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	require.NotNil(t, outcome.Artwork)
	assert.Equal(t, "https://cdn.example.com/"+uploads.keys[0], outcome.Artwork.ImageURL)

	ts.app.uploads = nil
	rec = post()
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "IMAGE_INVALID")
}

func TestRoutes_LaunchAttackUpload(t *testing.T) {
	cfg := service.DefaultScoringConfig
	cfg.AttackRequiresCounterArt = true
	ts := newTestServerWith(t, cfg)
	eventPath := "/events/" + ts.event.ID.String()

	_, owner := ts.signIn(t, "owner")
	_, rival := ts.signIn(t, "rival")
	for _, c := range []*http.Cookie{owner, rival} {
		rec, _ := ts.do(t, c, http.MethodPost, eventPath+"/join", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, body := ts.do(t, owner, http.MethodPost, eventPath+"/artworks", url.Values{"title": {"Mech"}, "image_url": {"https://cdn.example.com/mech.png"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	attackPath := "/artworks/" + body["artwork"].(map[string]any)["id"].(string) + "/attack"

	uploads := &fakeUploader{}
	ts.app.uploads = uploads

	attack := func(cookie *http.Cookie) *httptest.ResponseRecorder {
		body, contentType := pngUpload(t, "fight_title", "Counter Mech", "fight_image")
		req := httptest.NewRequest(http.MethodPost, attackPath, body)
		req.Header.Set("Content-Type", contentType)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		return rec
	}

	tests := []struct {
		name        string
		cookie      *http.Cookie
		wantStatus  int
		wantCode    string
		wantUploads int
	}{
		{"own artwork uploads nothing", owner, http.StatusForbidden, "SELF_INTERACTION", 0},
		{"rival attack uploads the counter art", rival, http.StatusCreated, "", 1},
		{"repeated attack uploads nothing", rival, http.StatusConflict, "ALREADY_ATTACKED", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := attack(tt.cookie)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantCode != "" {
				assert.Contains(t, rec.Body.String(), tt.wantCode)
			}
			assert.Len(t, uploads.keys, tt.wantUploads)
		})
	}

	require.Len(t, uploads.keys, 1)
	assert.True(t, strings.HasPrefix(uploads.keys[0], "artworks/"+ts.event.ID.String()+"/counter-mech-"))
	assert.True(t, strings.HasSuffix(uploads.keys[0], ".png"))
}

func TestRoutes_Logout(t *testing.T) {
	ts := newTestServer(t)
	_, cookie := ts.signIn(t, "leaving")

	rec, _ := ts.do(t, cookie, http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = ts.do(t, cookie, http.MethodGet, "/events/"+ts.event.ID.String(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
