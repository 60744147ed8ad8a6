package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehber/rehber/internal/config"
	"github.com/rehber/rehber/internal/repository"
	"github.com/rehber/rehber/internal/service"
)

type testEnv struct {
	router http.Handler
	repo   *repository.JSONRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	repo, err := repository.NewJSONRepository(dir)
	require.NoError(t, err)
	images, err := repository.NewFileImageStore(dir, 1<<20)
	require.NoError(t, err)
	svc := service.NewContactService(service.Deps{Repo: repo, Images: images})

	contacts := NewContactHandler(svc, 0)
	phones := NewPhoneHandler()
	exports := NewExportHandler(svc)
	uploads := NewUploadHandler(images)
	health := NewHealthHandler(&config.Config{Env: "test", DataDir: dir}, "dev", &StoreHealthChecker{Repo: repo})

	r := chi.NewRouter()
	r.Get("/health", health.ServeHTTP)
	r.Get("/ready", health.ReadinessHandler)
	r.Get("/live", health.LivenessHandler)
	r.Route("/api", func(r chi.Router) {
		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", contacts.List)
			r.Post("/", contacts.Create)
			r.Post("/import", contacts.Import)
			r.Get("/view", contacts.View)
			r.Get("/{id}", contacts.Get)
			r.Put("/{id}", contacts.Update)
			r.Delete("/{id}", contacts.Delete)
			r.Get("/{id}/card", contacts.Card)
			r.Post("/{id}/merge", contacts.Merge)
			r.Post("/{id}/favorite", contacts.ToggleFavorite)
		})
		r.Post("/phone/format", phones.Format)
		r.Post("/phone/validate", phones.Validate)
		r.Get("/phone/countries", phones.Countries)
		r.Get("/export/vcf", exports.VCard)
		r.Get("/export/csv", exports.CSV)
		r.Get("/export/json", exports.JSON)
		r.Post("/upload", uploads.Upload)
	})
	return &testEnv{router: r, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *testEnv) create(t *testing.T, body string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/contacts", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "success", out["status"])
	return out["contact"].(map[string]any)["id"].(string)
}

func TestContactLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.create(t, `{"firstName":"Ayşe","lastName":"Yılmaz","phones":{"mobile":"+905551234567"}}`)

	rec := env.do(t, http.MethodGet, "/api/contacts/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, "Ayşe Yılmaz", got["name"])
	assert.Equal(t, "+905551234567", got["phone"])

	rec = env.do(t, http.MethodGet, "/api/contacts/"+id+"/card", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "+90 (555) 123 45 67")

	rec = env.do(t, http.MethodPut, "/api/contacts/"+id, `{"company":"Acme","id":"hijack"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode(t, rec)["contact"].(map[string]any)
	assert.Equal(t, id, updated["id"])
	assert.Equal(t, "Acme", updated["company"])
	assert.Equal(t, "Ayşe", updated["firstName"])

	rec = env.do(t, http.MethodPost, "/api/contacts/"+id+"/favorite", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["contact"].(map[string]any)["isFavorite"])

	rec = env.do(t, http.MethodGet, "/api/contacts?q=ay%C5%9F", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = env.do(t, http.MethodDelete, "/api/contacts/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decode(t, rec)["status"])

	rec = env.do(t, http.MethodDelete, "/api/contacts/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code, "delete is idempotent")

	rec = env.do(t, http.MethodGet, "/api/contacts/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/contacts", `{"notes":"nothing else"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/contacts", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/contacts", `{"name":"Ali","phones":{"mobile":"0555 123 45 67"}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "missing_country_code", body["kind"])
	assert.Equal(t, "phones.mobile", body["field"])

	rec = env.do(t, http.MethodPost, "/api/contacts", `{"name":"Ali","emails":{"home":"not-an-email"}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "emails[home]")
}

func TestCreateConflicts(t *testing.T) {
	env := newTestEnv(t)
	id := env.create(t, `{"name":"Ali Veli","phone":"+90 555 111 22 33"}`)

	rec := env.do(t, http.MethodPost, "/api/contacts", `{"name":"Başka","phone":"+905551112233"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "phone", body["conflictType"])
	assert.Equal(t, id, body["existingId"])
	assert.NotContains(t, body, "existingContact")

	rec = env.do(t, http.MethodPost, "/api/contacts", `{"name":"  ali veli "}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "name", body["conflictType"])
	assert.Equal(t, "Bu isimde bir kayıt zaten var.", body["message"])
	assert.Contains(t, body, "existingContact")
}

func TestUpdateMissingAndMerge(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/contacts/nope", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/contacts/nope", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	id := env.create(t, `{"name":"Ali","phones":{"mobile":"+905551112233"}}`)
	rec = env.do(t, http.MethodPost, "/api/contacts/"+id+"/merge", `{"name":"Ali","phones":{"mobile":"+905554445566"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	phones := decode(t, rec)["contact"].(map[string]any)["phones"].(map[string]any)
	assert.Len(t, phones, 2)
}

func TestImportAndView(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/contacts/import", `{"name":"not an array"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/contacts/import", `[{"name":"Zeynep"},{"name":"Can","isFavorite":true}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["count"])

	rec = env.do(t, http.MethodGet, "/api/contacts/view?tab=fav", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode(t, rec)
	assert.Equal(t, float64(2), view["countAll"])
	assert.Equal(t, float64(1), view["countFav"])
	assert.Equal(t, float64(1), view["shown"])
}

func TestPhoneEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/phone/format", `{"value":"+905551234567"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "+90 (555) 123 45 67", body["formatted"])
	assert.Equal(t, "formatted", body["outcome"])
	assert.Equal(t, "TR", body["region"])

	rec = env.do(t, http.MethodPost, "/api/phone/validate", `{"values":["+905551234567",""]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["valid"])

	rec = env.do(t, http.MethodPost, "/api/phone/validate", `{"values":["+905551234567","+999 1"]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, float64(1), body["index"])
	assert.Equal(t, "unknown_country_code", body["kind"])

	rec = env.do(t, http.MethodGet, "/api/phone/countries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"prefix":"+90"`)
}

func TestExports(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, `{"firstName":"Şule","phones":{"mobile":"+905551234567"}}`)

	rec := env.do(t, http.MethodGet, "/api/export/vcf?encoding=iso-8859-9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/vcard;charset=iso-8859-9", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "rehber.vcf")
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte("FN:\xdeule\r\n")))

	rec = env.do(t, http.MethodGet, "/api/export/vcf?encoding=klingon", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/export/csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "rehber.csv")
	assert.Contains(t, rec.Body.String(), "Ad,Soyad,Telefonlar")

	rec = env.do(t, http.MethodGet, "/api/export/json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "rehber_db.json")
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("\x89PNG fake"))
	req.Header.Set("X-File-Ext", ".png")
	req.Header.Set("X-Contact-Name", "Ali Veli")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	url := decode(t, rec)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "/contact_images/ali_veli_"))
	assert.True(t, strings.HasSuffix(url, ".png"))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body["checks"], "store")

	rec = env.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready\n", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
