package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/lukewen/studyblog/config"
	"github.com/lukewen/studyblog/models"
	"github.com/lukewen/studyblog/utils"
)

func newTestRouter(t *testing.T, mediaCap int) (*gin.Engine, *gorm.DB, config.AppConfig) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Post{}, &models.Media{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.AppConfig{
		GinMode:            "test",
		AdminPassword:      "letmein",
		SessionSecret:      "test-secret",
		SessionTTLHours:    1,
		UploadDir:          t.TempDir(),
		MaxUploadMB:        5,
		ImageExts:          []string{"png", "jpg", "jpeg", "gif", "webp"},
		VideoExts:          []string{"mp4", "webm", "ogg", "mov", "m4v"},
		MediaPerPost:       mediaCap,
		RateLimitPerMinute: 1000,
		AllowedOrigins:     []string{"*"},
	}
	return SetupRouter(cfg, db), db, cfg
}

func doRequest(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) utils.JSONResponse {
	t.Helper()
	var resp utils.JSONResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return resp
}

// login posts the shared password and returns the session cookie.
func login(t *testing.T, r *gin.Engine, password string) *http.Cookie {
	t.Helper()
	form := url.Values{"password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := doRequest(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == utils.SessionCookieName {
			return c
		}
	}
	t.Fatal("login response carried no session cookie")
	return nil
}

type uploadFile struct {
	name    string
	content string
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files []uploadFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("media", f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(f.content)); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestRouter(t, 15)

	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeBody(t, w); resp.Code != 0 {
		t.Fatalf("code = %d, want 0", resp.Code)
	}
}

func TestUnknownSlugAndTopicReturn404(t *testing.T) {
	r, _, _ := newTestRouter(t, 15)

	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/post/does-not-exist", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("slug lookup status = %d", w.Code)
	}

	w = doRequest(r, httptest.NewRequest(http.MethodGet, "/topic/knitting", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown topic status = %d", w.Code)
	}
}

func TestAdminRoutesRedirectWithoutSession(t *testing.T) {
	r, db, _ := newTestRouter(t, 15)

	for _, target := range []string{"/admin", "/admin/new", "/admin/edit/1"} {
		w := doRequest(r, httptest.NewRequest(http.MethodGet, target, nil))
		if w.Code != http.StatusFound {
			t.Fatalf("GET %s status = %d, want 302", target, w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "/login" {
			t.Fatalf("GET %s redirected to %q", target, loc)
		}
	}

	// An unauthenticated create must not touch the database.
	req := multipartRequest(t, "/admin/new", map[string]string{
		"title": "Sneaky", "topic": "music", "content": "nope",
	}, nil)
	if w := doRequest(r, req); w.Code != http.StatusFound {
		t.Fatalf("unauthenticated create status = %d, want 302", w.Code)
	}
	var count int64
	db.Model(&models.Post{}).Count(&count)
	if count != 0 {
		t.Fatalf("unauthenticated create persisted %d post(s)", count)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	r, _, _ := newTestRouter(t, 15)

	form := url.Values{"password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := doRequest(r, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == utils.SessionCookieName && c.Value != "" {
			t.Fatal("failed login still set a session cookie")
		}
	}
}

func TestLoginAcceptsJSONBody(t *testing.T) {
	r, _, _ := newTestRouter(t, 15)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"password":"letmein"}`))
	req.Header.Set("Content-Type", "application/json")
	if w := doRequest(r, req); w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestCreatePostWithMixedMedia(t *testing.T) {
	r, db, _ := newTestRouter(t, 15)
	cookie := login(t, r, "letmein")

	req := multipartRequest(t, "/admin/new", map[string]string{
		"title":   "Pick and Roll Basics",
		"topic":   "basketball",
		"content": "<p>Notes on screening angles.</p>",
	}, []uploadFile{
		{name: "diagram.png", content: "png bytes"},
		{name: "malware.exe", content: "mz"},
	})
	req.AddCookie(cookie)

	w := doRequest(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	data, _ := resp.Data.(map[string]interface{})
	warnings, _ := data["warnings"].([]interface{})
	if len(warnings) != 1 || !strings.Contains(fmt.Sprint(warnings[0]), "unsupported") {
		t.Fatalf("warnings = %v, want one unsupported-file warning", warnings)
	}

	var post models.Post
	if err := db.Preload("Media").First(&post).Error; err != nil {
		t.Fatalf("post not persisted: %v", err)
	}
	if post.Slug != "pick-and-roll-basics" {
		t.Fatalf("slug = %q", post.Slug)
	}
	if len(post.Media) != 1 || post.Media[0].Kind != models.MediaKindImage {
		t.Fatalf("media = %+v, want one image", post.Media)
	}

	// The stored file is reachable through the static route.
	static := doRequest(r, httptest.NewRequest(http.MethodGet, post.Media[0].URL, nil))
	if static.Code != http.StatusOK || static.Body.String() != "png bytes" {
		t.Fatalf("static fetch of %s: status %d body %q", post.Media[0].URL, static.Code, static.Body.String())
	}
}

func TestCreateEnforcesMediaCap(t *testing.T) {
	r, db, _ := newTestRouter(t, 2)
	cookie := login(t, r, "letmein")

	req := multipartRequest(t, "/admin/new", map[string]string{
		"title": "Chord Voicings", "topic": "music", "content": "x",
	}, []uploadFile{
		{name: "a.png", content: "a"},
		{name: "b.png", content: "b"},
		{name: "c.png", content: "c"},
	})
	req.AddCookie(cookie)

	w := doRequest(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	data, _ := resp.Data.(map[string]interface{})
	warnings, _ := data["warnings"].([]interface{})
	if len(warnings) != 1 || !strings.Contains(fmt.Sprint(warnings[0]), "dropped") {
		t.Fatalf("warnings = %v, want one dropped-files warning", warnings)
	}

	var count int64
	db.Model(&models.Media{}).Count(&count)
	if count != 2 {
		t.Fatalf("media rows = %d, want 2", count)
	}
}

func TestUpdateRepeatedDeleteIDsKeepCapEnforced(t *testing.T) {
	r, db, _ := newTestRouter(t, 2)
	cookie := login(t, r, "letmein")

	req := multipartRequest(t, "/admin/new", map[string]string{
		"title": "Zone Defense", "topic": "basketball", "content": "x",
	}, []uploadFile{
		{name: "a.png", content: "a"},
		{name: "b.png", content: "b"},
	})
	req.AddCookie(cookie)
	if w := doRequest(r, req); w.Code != http.StatusOK {
		t.Fatalf("create status = %d", w.Code)
	}

	var post models.Post
	if err := db.Preload("Media").First(&post).Error; err != nil {
		t.Fatalf("post not persisted: %v", err)
	}
	victim := fmt.Sprint(post.Media[0].ID)

	// Submitting one deletion id twice must not widen the upload budget.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("title", "Zone Defense")
	mw.WriteField("topic", "basketball")
	mw.WriteField("content", "x")
	mw.WriteField("delete_media", victim)
	mw.WriteField("delete_media", victim)
	for _, f := range []uploadFile{{name: "c.png", content: "c"}, {name: "d.png", content: "d"}} {
		part, err := mw.CreateFormFile("media", f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write([]byte(f.content))
	}
	mw.Close()

	edit := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/admin/edit/%d", post.ID), &buf)
	edit.Header.Set("Content-Type", mw.FormDataContentType())
	edit.AddCookie(cookie)

	w := doRequest(r, edit)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	data, _ := resp.Data.(map[string]interface{})
	warnings, _ := data["warnings"].([]interface{})
	if len(warnings) != 1 || !strings.Contains(fmt.Sprint(warnings[0]), "dropped") {
		t.Fatalf("warnings = %v, want one dropped-files warning", warnings)
	}

	var count int64
	db.Model(&models.Media{}).Where("post_id = ?", post.ID).Count(&count)
	if count != 2 {
		t.Fatalf("media rows = %d, want the cap of 2", count)
	}
}

func TestCreateValidationFailureReturnsFieldErrors(t *testing.T) {
	r, db, _ := newTestRouter(t, 15)
	cookie := login(t, r, "letmein")

	req := multipartRequest(t, "/admin/new", map[string]string{
		"title": "", "topic": "astrology", "content": "",
	}, nil)
	req.AddCookie(cookie)

	w := doRequest(r, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	data, _ := resp.Data.(map[string]interface{})
	fields, _ := data["fields"].(map[string]interface{})
	for _, f := range []string{"title", "topic", "content"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("missing field error for %q in %v", f, fields)
		}
	}

	var count int64
	db.Model(&models.Post{}).Count(&count)
	if count != 0 {
		t.Fatalf("invalid submission persisted %d post(s)", count)
	}
}

func TestUpdateChangesFieldsAndKeepsSlug(t *testing.T) {
	r, db, _ := newTestRouter(t, 15)
	cookie := login(t, r, "letmein")

	req := multipartRequest(t, "/admin/new", map[string]string{
		"title": "Kanji Review", "topic": "japanese-studies", "content": "first pass",
	}, nil)
	req.AddCookie(cookie)
	if w := doRequest(r, req); w.Code != http.StatusOK {
		t.Fatalf("create status = %d", w.Code)
	}

	var post models.Post
	if err := db.First(&post).Error; err != nil {
		t.Fatalf("post not persisted: %v", err)
	}

	req = multipartRequest(t, fmt.Sprintf("/admin/edit/%d", post.ID), map[string]string{
		"title": "Kanji Review, Week Two", "topic": "japanese-studies", "content": "second pass",
	}, nil)
	req.AddCookie(cookie)
	if w := doRequest(r, req); w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}

	var updated models.Post
	db.First(&updated, post.ID)
	if updated.Title != "Kanji Review, Week Two" {
		t.Fatalf("title = %q", updated.Title)
	}
	if updated.Slug != post.Slug {
		t.Fatalf("slug changed without regenerate flag: %q -> %q", post.Slug, updated.Slug)
	}
}

func TestDeleteRemovesPostAndMedia(t *testing.T) {
	r, db, _ := newTestRouter(t, 15)
	cookie := login(t, r, "letmein")

	req := multipartRequest(t, "/admin/new", map[string]string{
		"title": "Index Funds", "topic": "finance", "content": "notes",
	}, []uploadFile{{name: "chart.png", content: "chart"}})
	req.AddCookie(cookie)
	if w := doRequest(r, req); w.Code != http.StatusOK {
		t.Fatalf("create status = %d", w.Code)
	}

	var post models.Post
	if err := db.Preload("Media").First(&post).Error; err != nil {
		t.Fatalf("post not persisted: %v", err)
	}
	mediaURL := post.Media[0].URL

	del := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/admin/delete/%d", post.ID), nil)
	del.AddCookie(cookie)
	if w := doRequest(r, del); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", w.Code, w.Body.String())
	}

	var posts, media int64
	db.Model(&models.Post{}).Count(&posts)
	db.Model(&models.Media{}).Count(&media)
	if posts != 0 || media != 0 {
		t.Fatalf("after delete: %d post(s), %d media row(s)", posts, media)
	}

	if w := doRequest(r, httptest.NewRequest(http.MethodGet, mediaURL, nil)); w.Code == http.StatusOK {
		t.Fatalf("stored file still served after delete: %s", mediaURL)
	}
}

func TestPublicRoutesServeCreatedPost(t *testing.T) {
	r, _, _ := newTestRouter(t, 15)
	cookie := login(t, r, "letmein")

	req := multipartRequest(t, "/admin/new", map[string]string{
		"title": "Spaced Repetition", "topic": "general-learning", "content": "how to schedule reviews",
	}, nil)
	req.AddCookie(cookie)
	if w := doRequest(r, req); w.Code != http.StatusOK {
		t.Fatalf("create status = %d", w.Code)
	}

	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/post/spaced-repetition", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("slug fetch status = %d", w.Code)
	}

	w = doRequest(r, httptest.NewRequest(http.MethodGet, "/topic/general-learning", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("topic fetch status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "spaced-repetition") {
		t.Fatalf("topic listing missing post: %s", w.Body.String())
	}

	w = doRequest(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("index status = %d", w.Code)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	r, _, _ := newTestRouter(t, 15)
	cookie := login(t, r, "letmein")

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	w := doRequest(r, req)
	if w.Code != http.StatusFound {
		t.Fatalf("logout status = %d, want 302", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == utils.SessionCookieName && c.MaxAge >= 0 {
			t.Fatal("logout did not expire the session cookie")
		}
	}
}
