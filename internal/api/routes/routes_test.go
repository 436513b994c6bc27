package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"civic-portal/internal/api/session"
	"civic-portal/internal/config"
	"civic-portal/internal/logger"
	"civic-portal/internal/metrics"
	"civic-portal/internal/models"
	"civic-portal/internal/services"
	"civic-portal/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "secret123"

type testEnv struct {
	cfg  *config.Config
	db   *gorm.DB
	auth *services.AuthService
	r    *gin.Engine
}

// setupTestDB opens a fresh SQLite database, initializes the schema and
// mounts the routes on a test router.
func setupTestDB(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Database.SQLite.Path = filepath.Join(dir, "portal_test.db")
	cfg.Security.BcryptCost = bcrypt.MinCost
	cfg.Uploads.Dir = filepath.Join(dir, "uploads")
	cfg.Session.Secret = "test-secret-key-for-testing-only"
	cfg.Session.Issuer = "civic-portal-test"
	require.NoError(t, os.MkdirAll(cfg.Uploads.Dir, 0755))

	db, err := models.Open(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { models.Close(db) })

	gw, err := store.FromGorm(db)
	require.NoError(t, err)

	log := logger.Discard()
	auth := services.NewAuthService(db, &cfg)
	require.NoError(t, services.NewSetupService(db, auth, &cfg, log).EnsureSchema(context.Background()))

	return &testEnv{
		cfg:  &cfg,
		db:   db,
		auth: auth,
		r:    setupTestRouter(Deps{Config: &cfg, DB: db, Gateway: gw, Logger: log, Metrics: metrics.NewMetrics()}),
	}
}

// setupTestRouter creates a test router with routes
func setupTestRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupRoutes(r, deps)
	return r
}

// createTestUser registers a citizen with testPassword.
func createTestUser(t *testing.T, env *testEnv, name, email string) *models.User {
	t.Helper()
	user, err := env.auth.Register(context.Background(), services.RegisterInput{
		Name:     name,
		Email:    email,
		Password: testPassword,
		Confirm:  testPassword,
	})
	require.NoError(t, err)
	return user
}

// createTestToken issues a session token for user and stores the session.
func createTestToken(t *testing.T, env *testEnv, user *models.User) string {
	t.Helper()
	token, expiresAt, err := session.NewManager(env.cfg.Session).Issue(user, false)
	require.NoError(t, err)
	require.NoError(t, env.auth.CreateSession(context.Background(), user.ID, token, expiresAt))
	return token
}

func adminUser(t *testing.T, env *testEnv) *models.User {
	t.Helper()
	var admin models.User
	require.NoError(t, env.db.Where("email = ?", env.cfg.Admin.Email).First(&admin).Error)
	return &admin
}

// browser keeps cookies between requests the way a user agent would.
type browser struct {
	t       *testing.T
	r       *gin.Engine
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, env *testEnv) *browser {
	return &browser{t: t, r: env.r, cookies: map[string]*http.Cookie{}}
}

// signedIn returns a browser already holding a session cookie for user.
func signedIn(t *testing.T, env *testEnv, user *models.User) *browser {
	b := newBrowser(t, env)
	b.cookies[session.CookieName] = &http.Cookie{Name: session.CookieName, Value: createTestToken(t, env, user)}
	return b
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	w := httptest.NewRecorder()
	b.r.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest("GET", path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

type pageResponse struct {
	Page string `json:"page"`
	User struct {
		ID              uint `json:"id"`
		IsAuthenticated bool `json:"is_authenticated"`
		IsAdmin         bool `json:"is_admin"`
	} `json:"user"`
	Flashes []session.Flash        `json:"flashes"`
	Data    map[string]interface{} `json:"data"`
}

func decodePage(t *testing.T, w *httptest.ResponseRecorder) pageResponse {
	t.Helper()
	var p pageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p), w.Body.String())
	return p
}

// flashesAt follows a redirect and returns the flash messages shown there.
func (b *browser) flashesAt(path string) []string {
	p := decodePage(b.t, b.get(path))
	msgs := make([]string, len(p.Flashes))
	for i, f := range p.Flashes {
		msgs[i] = f.Message
	}
	return msgs
}

func TestPublicPages(t *testing.T) {
	env := setupTestDB(t)
	b := newBrowser(t, env)

	t.Run("home", func(t *testing.T) {
		w := b.get("/")
		assert.Equal(t, http.StatusOK, w.Code)
		p := decodePage(t, w)
		assert.Equal(t, "index", p.Page)
		assert.False(t, p.User.IsAuthenticated)
		assert.NotNil(t, p.Flashes)
		assert.Len(t, p.Data["servicios"], len(services.DefaultServices))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

		w = b.get("/index")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "index", decodePage(t, w).Page)
	})

	t.Run("service catalogue", func(t *testing.T) {
		p := decodePage(t, b.get("/servicios"))
		assert.Equal(t, "servicios", p.Page)
		assert.Len(t, p.Data["servicios"], len(services.DefaultServices))
	})

	t.Run("missing project", func(t *testing.T) {
		w := b.get("/proyecto/999")
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/proyectos", w.Header().Get("Location"))
		assert.Contains(t, b.flashesAt("/proyectos"), "Proyecto no encontrado")
	})

	t.Run("unknown path", func(t *testing.T) {
		w := b.get("/no-existe")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", decodePage(t, w).Page)
	})

	t.Run("health", func(t *testing.T) {
		w := b.get("/health")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"healthy"`)
	})

	t.Run("statistics api", func(t *testing.T) {
		w := b.get("/api/estadisticas")
		assert.Equal(t, http.StatusOK, w.Code)
		var stats map[string]int64
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, int64(1), stats["total_usuarios"])
	})

	t.Run("metrics", func(t *testing.T) {
		w := b.get("/metrics")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "portal_http_requests_total")
	})

	t.Run("contact form", func(t *testing.T) {
		w := b.post("/contacto", url.Values{
			"nombre":  {"Luis"},
			"email":   {"luis@example.com"},
			"asunto":  {"Horario"},
			"mensaje": {"¿Abren los sábados?"},
		})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Contains(t, b.flashesAt("/contacto"), "¡Mensaje enviado correctamente! Nos pondremos en contacto pronto.")

		var count int64
		require.NoError(t, env.db.Model(&models.ContactMessage{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestDB(t)

	t.Run("register then sign in", func(t *testing.T) {
		b := newBrowser(t, env)
		w := b.post("/register", url.Values{
			"nombre":           {"Ana Pérez"},
			"email":            {"Ana@Example.com"},
			"password":         {testPassword},
			"confirm_password": {testPassword},
		})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login?registro=ok", w.Header().Get("Location"))

		w = b.post("/login", url.Values{"usuario": {"ana@example.com"}, "password": {testPassword}})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		assert.Contains(t, b.cookies, session.CookieName)

		p := decodePage(t, b.get("/perfil"))
		assert.Equal(t, "perfil", p.Page)
		assert.True(t, p.User.IsAuthenticated)
	})

	t.Run("duplicate email", func(t *testing.T) {
		b := newBrowser(t, env)
		w := b.post("/register", url.Values{
			"nombre":           {"Otra Ana"},
			"email":            {"ana@example.com"},
			"password":         {testPassword},
			"confirm_password": {testPassword},
		})
		assert.Equal(t, "/login?register=true", w.Header().Get("Location"))
		assert.Contains(t, b.flashesAt("/login"), "Este correo electrónico ya está registrado")
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		b := newBrowser(t, env)
		w := b.post("/login", url.Values{"usuario": {"ana@example.com"}, "password": {"wrong-pass"}})
		assert.Equal(t, "/login", w.Header().Get("Location"))
		first := b.flashesAt("/login")

		b.post("/login", url.Values{"usuario": {"nadie@example.com"}, "password": {"wrong-pass"}})
		second := b.flashesAt("/login")

		assert.Equal(t, []string{"Correo o contraseña incorrectos"}, first)
		assert.Equal(t, first, second)
	})

	t.Run("admin lands on the dashboard", func(t *testing.T) {
		b := newBrowser(t, env)
		w := b.post("/login", url.Values{"usuario": {env.cfg.Admin.Email}, "password": {env.cfg.Admin.DefaultPassword}})
		assert.Equal(t, "/admin", w.Header().Get("Location"))

		p := decodePage(t, b.get("/admin"))
		assert.Equal(t, "admin_dashboard", p.Page)
		assert.True(t, p.User.IsAdmin)
	})

	t.Run("returns to the page that required login", func(t *testing.T) {
		b := newBrowser(t, env)
		w := b.get("/mis_reportes")
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))

		w = b.post("/login", url.Values{"usuario": {"ana@example.com"}, "password": {testPassword}})
		assert.Equal(t, "/mis_reportes", w.Header().Get("Location"))
	})

	t.Run("check email", func(t *testing.T) {
		b := newBrowser(t, env)
		assert.JSONEq(t, `{"available":false,"message":"Email ya registrado"}`, b.get("/api/check-email?email=ana@example.com").Body.String())
		assert.JSONEq(t, `{"available":true,"message":"Email disponible"}`, b.get("/api/check-email?email=nuevo@example.com").Body.String())
		assert.JSONEq(t, `{"available":false,"message":"Email requerido"}`, b.get("/api/check-email").Body.String())
	})
}

func TestChangePasswordSignsOutOtherBrowsers(t *testing.T) {
	env := setupTestDB(t)
	ana := createTestUser(t, env, "Ana", "ana@example.com")
	laptop := signedIn(t, env, ana)
	phone := signedIn(t, env, ana)

	w := laptop.post("/cambiar-contrasena", url.Values{
		"current_password": {testPassword},
		"new_password":     {"nueva-clave"},
		"confirm_password": {"nueva-clave"},
	})
	assert.Equal(t, "/perfil", w.Header().Get("Location"))
	assert.Contains(t, laptop.flashesAt("/perfil"), "Contraseña cambiada exitosamente")

	assert.Equal(t, http.StatusOK, laptop.get("/perfil").Code)

	w = phone.get("/perfil")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestSessionGuards(t *testing.T) {
	env := setupTestDB(t)
	citizen := createTestUser(t, env, "Ana", "ana@example.com")

	t.Run("citizen cannot open admin pages", func(t *testing.T) {
		b := signedIn(t, env, citizen)
		for _, path := range []string{"/admin", "/admin/usuarios", "/debug/db"} {
			w := b.get(path)
			assert.Equal(t, http.StatusSeeOther, w.Code, path)
			assert.Equal(t, "/", w.Header().Get("Location"), path)
		}
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		b := signedIn(t, env, citizen)
		token := b.cookies[session.CookieName].Value

		w := b.get("/logout")
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.NotContains(t, b.cookies, session.CookieName)

		replay := newBrowser(t, env)
		replay.cookies[session.CookieName] = &http.Cookie{Name: session.CookieName, Value: token}
		w = replay.get("/perfil")
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})

	t.Run("deactivated account loses its session", func(t *testing.T) {
		other := createTestUser(t, env, "Bea", "bea@example.com")
		b := signedIn(t, env, other)
		require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", other.ID).Update("active", false).Error)

		w := b.get("/perfil")
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/perfil", nil)
		req.Header.Set("Authorization", "Bearer "+createTestToken(t, env, citizen))
		w := httptest.NewRecorder()
		env.r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestReportFlow(t *testing.T) {
	env := setupTestDB(t)
	ana := createTestUser(t, env, "Ana", "ana@example.com")
	bea := createTestUser(t, env, "Bea", "bea@example.com")
	owner := signedIn(t, env, ana)

	w := owner.post("/reportar", url.Values{
		"titulo":      {"Bache en la calle"},
		"descripcion": {"Un bache profundo"},
		"categoria":   {"vias"},
		"ubicacion":   {"Calle Mayor 3"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/mis_reportes", w.Header().Get("Location"))

	var report models.Report
	require.NoError(t, env.db.Where("user_id = ?", ana.ID).First(&report).Error)
	path := "/reporte/" + uintToString(report.ID)

	t.Run("listed for the owner", func(t *testing.T) {
		p := decodePage(t, owner.get("/mis_reportes"))
		assert.Contains(t, p.Flashes, session.Flash{Category: session.Success, Message: "Reporte enviado exitosamente. Será revisado por el personal correspondiente."})
		assert.Len(t, p.Data["reportes"], 1)
		assert.Equal(t, []interface{}{"vias"}, p.Data["categorias"])
	})

	t.Run("missing fields", func(t *testing.T) {
		w := owner.post("/reportar", url.Values{"titulo": {"Solo titulo"}})
		assert.Equal(t, "/reportar", w.Header().Get("Location"))
		assert.Len(t, owner.flashesAt("/reportar"), 1)
	})

	t.Run("other citizens are turned away", func(t *testing.T) {
		b := signedIn(t, env, bea)
		w := b.get(path)
		assert.Equal(t, "/mis_reportes", w.Header().Get("Location"))
		assert.Contains(t, b.flashesAt("/mis_reportes"), "No tiene permisos para ver este reporte")

		w = b.post(path+"/comentar", url.Values{"comentario": {"hola"}})
		assert.Equal(t, "/mis_reportes", w.Header().Get("Location"))
	})

	t.Run("owner comments", func(t *testing.T) {
		w := owner.post(path+"/comentar", url.Values{"comentario": {"Sigue igual"}})
		assert.Equal(t, path, w.Header().Get("Location"))

		p := decodePage(t, owner.get(path))
		assert.Equal(t, "ver_reporte", p.Page)
		assert.Len(t, p.Data["comentarios"], 1)
	})

	t.Run("admin resolves with an answer", func(t *testing.T) {
		admin := signedIn(t, env, adminUser(t, env))
		w := admin.post("/admin/reportes/"+uintToString(report.ID)+"/editar", url.Values{
			"estado":          {models.ReportResolved},
			"respuesta_admin": {"Reparado"},
		})
		assert.Equal(t, "/admin/reportes", w.Header().Get("Location"))

		var updated models.Report
		require.NoError(t, env.db.First(&updated, report.ID).Error)
		assert.Equal(t, models.ReportResolved, updated.Status)

		var answers int64
		require.NoError(t, env.db.Model(&models.Comment{}).
			Where("report_id = ? AND kind = ?", report.ID, models.CommentKindAdminAnswer).
			Count(&answers).Error)
		assert.Equal(t, int64(1), answers)

		var audits int64
		require.NoError(t, env.db.Model(&models.AuditLog{}).Where("resource = ? AND action = ?", "reportes", "update").Count(&audits).Error)
		assert.Equal(t, int64(1), audits)
	})
}

func TestReportUpload(t *testing.T) {
	env := setupTestDB(t)
	ana := createTestUser(t, env, "Ana", "ana@example.com")

	multipartReport := func(filename string, content []byte) *http.Request {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		for k, v := range map[string]string{
			"titulo":      "Farola rota",
			"descripcion": "No enciende",
			"categoria":   "alumbrado",
			"ubicacion":   "Plaza",
		} {
			require.NoError(t, mw.WriteField(k, v))
		}
		fw, err := mw.CreateFormFile("imagen", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest("POST", "/reportar", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Referer", "/reportar")
		return req
	}

	t.Run("image stored with the report", func(t *testing.T) {
		b := signedIn(t, env, ana)
		w := b.do(multipartReport("farola.png", []byte("fake png")))
		assert.Equal(t, "/mis_reportes", w.Header().Get("Location"))

		var report models.Report
		require.NoError(t, env.db.Where("user_id = ?", ana.ID).First(&report).Error)
		require.NotNil(t, report.Image)
		assert.FileExists(t, filepath.Join(env.cfg.Uploads.Dir, *report.Image))
	})

	t.Run("disallowed extension", func(t *testing.T) {
		b := signedIn(t, env, ana)
		w := b.do(multipartReport("script.exe", []byte("MZ")))
		assert.Equal(t, "/reportar", w.Header().Get("Location"))
		assert.Contains(t, b.flashesAt("/reportar"), "Tipo de archivo no permitido")
	})

	t.Run("oversized body", func(t *testing.T) {
		small := *env.cfg
		small.Uploads.MaxBytes = 512
		gw, err := store.FromGorm(env.db)
		require.NoError(t, err)
		r := setupTestRouter(Deps{Config: &small, DB: env.db, Gateway: gw, Logger: logger.Discard()})

		b := &browser{t: t, r: r, cookies: map[string]*http.Cookie{}}
		b.cookies[session.CookieName] = &http.Cookie{Name: session.CookieName, Value: createTestToken(t, env, ana)}

		w := b.do(multipartReport("grande.png", bytes.Repeat([]byte("x"), 2048)))
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/reportar", w.Header().Get("Location"))
		assert.Contains(t, b.flashesAt("/reportar"), "El archivo es demasiado grande. El tamaño máximo es 16MB.")

		for referer, want := range map[string]string{
			"http://example.com/reportar?x=1": "/reportar?x=1",
			"https://evil.example/phish":      "/",
			"//evil.example/phish":            "/",
			"javascript:alert(1)":             "/",
			"":                                "/",
		} {
			req := multipartReport("grande.png", bytes.Repeat([]byte("x"), 2048))
			req.Header.Set("Referer", referer)
			w := b.do(req)
			assert.Equal(t, http.StatusSeeOther, w.Code)
			assert.Equal(t, want, w.Header().Get("Location"), "referer %q", referer)
		}
	})
}

func TestComplaintFlow(t *testing.T) {
	env := setupTestDB(t)
	ana := createTestUser(t, env, "Ana", "ana@example.com")
	bea := createTestUser(t, env, "Bea", "bea@example.com")
	owner := signedIn(t, env, ana)

	w := owner.post("/denunciar", url.Values{
		"titulo":      {"Cobro indebido"},
		"descripcion": {"Me pidieron dinero"},
		"tipo":        {"corrupcion"},
		"anonimo":     {"on"},
	})
	require.Equal(t, "/mis_denuncias", w.Header().Get("Location"))

	var complaint models.Complaint
	require.NoError(t, env.db.Where("user_id = ?", ana.ID).First(&complaint).Error)
	assert.True(t, complaint.Anonymous)
	path := "/denuncia/" + uintToString(complaint.ID)

	t.Run("owner sees own name", func(t *testing.T) {
		p := decodePage(t, owner.get(path))
		assert.Equal(t, "Ana", p.Data["denuncia"].(map[string]interface{})["user_name"])
	})

	t.Run("admin sees it masked", func(t *testing.T) {
		admin := signedIn(t, env, adminUser(t, env))
		p := decodePage(t, admin.get("/admin/denuncias"))
		items := p.Data["denuncias"].([]interface{})
		require.Len(t, items, 1)
		assert.Equal(t, services.AnonymousName, items[0].(map[string]interface{})["user_name"])
	})

	t.Run("others are turned away", func(t *testing.T) {
		b := signedIn(t, env, bea)
		w := b.get(path)
		assert.Equal(t, "/mis_denuncias", w.Header().Get("Location"))
		assert.Contains(t, b.flashesAt("/mis_denuncias"), "No tiene permisos para ver esta denuncia")
	})

	t.Run("admin update records notes in the audit trail", func(t *testing.T) {
		admin := signedIn(t, env, adminUser(t, env))
		w := admin.post("/admin/denuncias/"+uintToString(complaint.ID)+"/editar", url.Values{
			"estado":        {models.ComplaintInvestigating},
			"observaciones": {"Se abre expediente"},
		})
		assert.Equal(t, "/admin/denuncias", w.Header().Get("Location"))

		var entry models.AuditLog
		require.NoError(t, env.db.Where("resource = ?", "denuncias").Order("id DESC").First(&entry).Error)
		assert.Contains(t, entry.Details, "Se abre expediente")
	})
}

func TestAdminPages(t *testing.T) {
	env := setupTestDB(t)
	ana := createTestUser(t, env, "Ana", "ana@example.com")
	admin := signedIn(t, env, adminUser(t, env))

	t.Run("export users", func(t *testing.T) {
		w := admin.get("/admin/exportar/usuarios")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
		assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
		assert.Contains(t, w.Body.String(), "ana@example.com")
	})

	t.Run("unknown export", func(t *testing.T) {
		w := admin.get("/admin/exportar/planetas")
		assert.Equal(t, "/admin", w.Header().Get("Location"))
		assert.Contains(t, admin.flashesAt("/admin"), "Tipo de exportación no válido")
	})

	t.Run("edit user", func(t *testing.T) {
		w := admin.post("/admin/usuarios/"+uintToString(ana.ID)+"/editar", url.Values{
			"nombre": {"Ana María"},
			"email":  {"ana@example.com"},
			"rol_id": {"2"},
			"activo": {"on"},
		})
		assert.Equal(t, "/admin/usuarios", w.Header().Get("Location"))

		var updated models.User
		require.NoError(t, env.db.First(&updated, ana.ID).Error)
		assert.Equal(t, "Ana María", updated.Name)
		assert.True(t, updated.Active)
	})

	t.Run("last admin keeps the role", func(t *testing.T) {
		self := adminUser(t, env)
		w := admin.post("/admin/usuarios/"+uintToString(self.ID)+"/editar", url.Values{
			"nombre": {self.Name},
			"email":  {self.Email},
			"rol_id": {"2"},
			"activo": {"on"},
		})
		assert.Equal(t, "/admin/usuarios/"+uintToString(self.ID)+"/editar", w.Header().Get("Location"))
		assert.Contains(t, admin.flashesAt("/admin"), services.ErrLastAdmin.Error())
	})

	t.Run("reply to contact", func(t *testing.T) {
		msg := &models.ContactMessage{Name: "Luis", Email: "luis@example.com", Subject: "Hola", Message: "Consulta", Status: models.ContactNew}
		require.NoError(t, env.db.Create(msg).Error)

		w := admin.post("/admin/contactos/"+uintToString(msg.ID)+"/responder", url.Values{"respuesta": {"Gracias"}})
		assert.Equal(t, "/admin/contactos", w.Header().Get("Location"))

		var updated models.ContactMessage
		require.NoError(t, env.db.First(&updated, msg.ID).Error)
		assert.Equal(t, models.ContactReplied, updated.Status)
	})

	t.Run("publish notice", func(t *testing.T) {
		w := admin.post("/admin/avisos", url.Values{
			"titulo":     {"Corte de agua"},
			"contenido":  {"Martes de 9 a 12"},
			"tipo":       {"servicios"},
			"importante": {"on"},
		})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/aviso/"))

		p := decodePage(t, newBrowser(t, env).get("/avisos"))
		assert.Len(t, p.Data["avisos"], 1)
	})

	t.Run("create project", func(t *testing.T) {
		w := admin.post("/admin/proyectos", url.Values{
			"nombre":            {"Parque central"},
			"presupuesto":       {"125000.50"},
			"porcentaje_avance": {"40"},
			"estado":            {models.ProjectInProgress},
		})
		assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/proyecto/"))

		p := decodePage(t, newBrowser(t, env).get(w.Header().Get("Location")))
		assert.Equal(t, "proyecto_detalle", p.Page)
	})

	t.Run("database diagnostics", func(t *testing.T) {
		w := admin.get("/debug/db")
		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Type   string           `json:"type"`
			Counts map[string]int64 `json:"counts"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "sqlite", resp.Type)
		assert.Equal(t, int64(2), resp.Counts["users"])

		w = admin.get("/debug/db-structure")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "reset_tokens")
	})
}

func uintToString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
