// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/folio-go/internal/cache"
	"github.com/olegiv/folio-go/internal/render"
	"github.com/olegiv/folio-go/internal/service"
	"github.com/olegiv/folio-go/internal/store"
	"github.com/olegiv/folio-go/internal/testutil"
	"github.com/olegiv/folio-go/internal/version"
	"github.com/olegiv/folio-go/web"
)

var testCSRFKey = []byte("0123456789abcdef0123456789abcdef")

type recordingQueue struct {
	mu  sync.Mutex
	ids []int64
}

func (q *recordingQueue) Enqueue(id int64) {
	q.mu.Lock()
	q.ids = append(q.ids, id)
	q.mu.Unlock()
}

func (q *recordingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}

type testApp struct {
	srv   *httptest.Server
	db    *store.DB
	queue *recordingQueue
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWith(t, nil)
}

// newTestAppWith lets a test adjust the router config before it is built.
func newTestAppWith(t *testing.T, configure func(*Config)) *testApp {
	t.Helper()

	db := testutil.TestDB(t)
	sm := scs.New()

	templates, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("fs.Sub templates: %v", err)
	}
	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		t.Fatalf("fs.Sub static: %v", err)
	}
	renderer, err := render.New(render.Config{TemplatesFS: templates, SessionManager: sm})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	c, _ := cache.New(cache.Config{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })

	events := service.NewEventService(db)
	queue := &recordingQueue{}

	cfg := Config{
		DB:             db,
		Sessions:       sm,
		Renderer:       renderer,
		Accounts:       service.NewAccountService(db),
		Projects:       service.NewProjectService(db, cache.NewProjectCache(c, db.Queries(), time.Minute)),
		Contacts:       service.NewContactService(db, queue, events),
		Events:         events,
		Version:        &version.Info{Version: "v0.0.0-test"},
		StaticFS:       static,
		CSRFKey:        testCSRFKey,
		IsDevelopment:  true,
		MetricsEnabled: true,
	}
	if configure != nil {
		configure(&cfg)
	}
	h, err := NewRouter(cfg)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &testApp{srv: srv, db: db, queue: queue}
}

// client is one browser: a cookie jar that does not follow redirects.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (a *testApp) newClient(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New: %v", err)
	}
	return &client{
		t:    t,
		base: a.srv.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) do(req *http.Request) (*http.Response, string) {
	c.t.Helper()
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("reading body: %v", err)
	}
	return resp, string(body)
}

func (c *client) get(path string) (*http.Response, string) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		c.t.Fatalf("NewRequest: %v", err)
	}
	return c.do(req)
}

func (c *client) post(path string, form url.Values) (*http.Response, string) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		c.t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) register(email, name string) *http.Response {
	c.t.Helper()
	resp, _ := c.post("/register", url.Values{
		"email":    {email},
		"password": {"correct horse battery"},
		"name":     {name},
	})
	return resp
}

func projectForm(title string) url.Values {
	return url.Values{
		"title":    {title},
		"subtitle": {title + " in one line"},
		"img_url":  {"https://example.com/" + strings.ReplaceAll(title, " ", "-") + ".png"},
		"body":     {"Built with **Go**."},
	}
}

func assertRedirect(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if got := resp.Header.Get("Location"); got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d", resp.StatusCode, want)
	}
}

func countProjects(t *testing.T, db *store.DB) int64 {
	t.Helper()
	n, err := db.Queries().CountProjects(t.Context())
	if err != nil {
		t.Fatalf("CountProjects: %v", err)
	}
	return n
}

func TestNewRouterValidation(t *testing.T) {
	if _, err := NewRouter(Config{}); err == nil {
		t.Error("expected error for empty config")
	}

	db := testutil.TestDB(t)
	_, err := NewRouter(Config{
		DB:       db,
		Sessions: scs.New(),
		Renderer: &render.Renderer{},
		Accounts: service.NewAccountService(db),
		Projects: &service.ProjectService{},
		Contacts: &service.ContactService{},
		Events:   service.NewEventService(db),
		CSRFKey:  []byte("short"),
	})
	if err == nil || !strings.Contains(err.Error(), "CSRF key") {
		t.Errorf("err = %v, want CSRF key error", err)
	}
}

func TestPublicPages(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)

	for _, path := range []string{"/", "/about", "/contact", "/register", "/admin"} {
		t.Run(path, func(t *testing.T) {
			resp, body := c.get(path)
			assertStatus(t, resp, http.StatusOK)
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
			if !strings.Contains(body, "Log In") {
				t.Error("anonymous navigation should offer Log In")
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)

	for _, path := range []string{"/project/999", "/project/abc", "/project/0", "/no-such-page"} {
		t.Run(path, func(t *testing.T) {
			resp, body := c.get(path)
			assertStatus(t, resp, http.StatusNotFound)
			if !strings.Contains(body, "Not Found") {
				t.Error("404 page should carry its title")
			}
		})
	}
}

func TestAdminWorkflow(t *testing.T) {
	app := newTestApp(t)
	admin := app.newClient(t)

	assertRedirect(t, admin.register("owner@example.com", "Owner"), "/")

	_, body := admin.get("/")
	if !strings.Contains(body, "Welcome, Owner!") {
		t.Error("expected welcome flash after registration")
	}
	if !strings.Contains(body, "Create New Project") {
		t.Error("first user should see admin controls")
	}

	resp, _ := admin.post("/new-project", projectForm("Folio Site"))
	assertRedirect(t, resp, "/")

	projects, err := app.db.Queries().ListProjects(t.Context())
	if err != nil || len(projects) != 1 {
		t.Fatalf("ListProjects = %v, %v; want one project", projects, err)
	}
	id := projects[0].ID

	_, body = admin.get("/")
	if !strings.Contains(body, "Folio Site") {
		t.Error("index should list the new project")
	}

	resp, body = admin.get(fmt.Sprintf("/project/%d", id))
	assertStatus(t, resp, http.StatusOK)
	if !strings.Contains(body, "<strong>Go</strong>") {
		t.Error("project body should be rendered from markdown")
	}

	resp, body = admin.get(fmt.Sprintf("/edit-project/%d", id))
	assertStatus(t, resp, http.StatusOK)
	if !strings.Contains(body, `value="Folio Site"`) {
		t.Error("edit form should be pre-filled")
	}

	edited := projectForm("Folio Site v2")
	resp, _ = admin.post(fmt.Sprintf("/edit-project/%d", id), edited)
	assertRedirect(t, resp, fmt.Sprintf("/project/%d", id))

	_, body = admin.get(fmt.Sprintf("/project/%d", id))
	if !strings.Contains(body, "Folio Site v2") {
		t.Error("project should show the edited title")
	}

	resp, _ = admin.get(fmt.Sprintf("/delete/%d", id))
	assertRedirect(t, resp, "/")
	if n := countProjects(t, app.db); n != 0 {
		t.Errorf("projects after delete = %d, want 0", n)
	}

	resp, _ = admin.get(fmt.Sprintf("/project/%d", id))
	assertStatus(t, resp, http.StatusNotFound)

	resp, _ = admin.get(fmt.Sprintf("/delete/%d", id))
	assertStatus(t, resp, http.StatusNotFound)
	resp, _ = admin.get(fmt.Sprintf("/edit-project/%d", id))
	assertStatus(t, resp, http.StatusNotFound)
}

func TestAdminRoutesForbidden(t *testing.T) {
	app := newTestApp(t)
	project := testutil.CreateProject(t, app.db, "Keep")

	admin := app.newClient(t)
	admin.register("owner@example.com", "Owner")

	visitor := app.newClient(t)
	visitor.register("visitor@example.com", "Visitor")

	anonymous := app.newClient(t)

	for name, c := range map[string]*client{"anonymous": anonymous, "non-admin": visitor} {
		t.Run(name, func(t *testing.T) {
			resp, _ := c.get("/new-project")
			assertStatus(t, resp, http.StatusForbidden)

			resp, _ = c.post("/new-project", projectForm("Sneaky"))
			assertStatus(t, resp, http.StatusForbidden)

			resp, _ = c.get(fmt.Sprintf("/edit-project/%d", project.ID))
			assertStatus(t, resp, http.StatusForbidden)

			resp, _ = c.post(fmt.Sprintf("/edit-project/%d", project.ID), projectForm("Changed"))
			assertStatus(t, resp, http.StatusForbidden)

			resp, _ = c.get(fmt.Sprintf("/delete/%d", project.ID))
			assertStatus(t, resp, http.StatusForbidden)
		})
	}

	got, err := app.db.Queries().GetProject(t.Context(), project.ID)
	if err != nil {
		t.Fatalf("project should survive: %v", err)
	}
	if got.Title != "Keep" {
		t.Errorf("title = %q, want unchanged", got.Title)
	}
	if n := countProjects(t, app.db); n != 1 {
		t.Errorf("projects = %d, want 1", n)
	}
}

func TestProjectValidation(t *testing.T) {
	app := newTestApp(t)
	admin := app.newClient(t)
	admin.register("owner@example.com", "Owner")

	bad := projectForm("Broken")
	bad.Set("img_url", "not a url")
	bad.Set("body", "")
	resp, body := admin.post("/new-project", bad)
	assertStatus(t, resp, http.StatusOK)
	if !strings.Contains(body, "Please enter a valid http or https URL.") {
		t.Error("expected URL error")
	}
	if !strings.Contains(body, "Content is required.") {
		t.Error("expected body error")
	}
	if !strings.Contains(body, `value="Broken"`) {
		t.Error("submitted values should be kept")
	}
	if n := countProjects(t, app.db); n != 0 {
		t.Errorf("projects = %d, want 0", n)
	}

	resp, _ = admin.post("/new-project", projectForm("Taken"))
	assertRedirect(t, resp, "/")
	resp, body = admin.post("/new-project", projectForm("Taken"))
	assertStatus(t, resp, http.StatusOK)
	if !strings.Contains(body, "A project with this title already exists.") {
		t.Error("expected duplicate title error")
	}
	if n := countProjects(t, app.db); n != 1 {
		t.Errorf("projects = %d, want 1", n)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app := newTestApp(t)
	app.newClient(t).register("owner@example.com", "Owner")

	c := app.newClient(t)
	assertRedirect(t, c.register("Owner@Example.com", "Again"), "/admin")

	_, body := c.get("/admin")
	if !strings.Contains(body, "already signed up with that email, log in instead!") {
		t.Error("expected duplicate registration flash on the login page")
	}
	n, err := app.db.Queries().CountUsers(t.Context())
	if err != nil || n != 1 {
		t.Errorf("CountUsers = %d, %v; want 1", n, err)
	}
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)

	resp, body := c.post("/register", url.Values{
		"email":    {"not-an-email"},
		"password": {"short"},
		"name":     {"Someone"},
	})
	assertStatus(t, resp, http.StatusOK)
	if !strings.Contains(body, "Please enter a valid email address.") {
		t.Error("expected email error")
	}
	if !strings.Contains(body, `value="Someone"`) {
		t.Error("name should be kept")
	}
	if strings.Contains(body, `value="short"`) {
		t.Error("password must never be echoed")
	}
	n, _ := app.db.Queries().CountUsers(t.Context())
	if n != 0 {
		t.Errorf("CountUsers = %d, want 0", n)
	}
}

func TestLoginLogout(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)
	c.register("owner@example.com", "Owner")

	resp, _ := c.get("/logout")
	assertRedirect(t, resp, "/")
	_, body := c.get("/")
	if !strings.Contains(body, "Log In") || strings.Contains(body, "Log Out") {
		t.Error("logged-out navigation expected")
	}

	resp, _ = c.post("/admin", url.Values{"email": {"owner@example.com"}, "password": {"wrong password"}})
	assertRedirect(t, resp, "/admin")
	_, body = c.get("/admin")
	if !strings.Contains(body, "Invalid email or password.") {
		t.Error("expected generic failure flash")
	}

	resp, _ = c.post("/admin", url.Values{"email": {"nobody@example.com"}, "password": {"whatever"}})
	assertRedirect(t, resp, "/admin")

	resp, _ = c.post("/admin", url.Values{"email": {"owner@example.com"}, "password": {"correct horse battery"}})
	assertRedirect(t, resp, "/")
	_, body = c.get("/")
	if !strings.Contains(body, "Log Out") {
		t.Error("logged-in navigation expected")
	}

	// Signed-in users skip the login page
	resp, _ = c.get("/admin")
	assertRedirect(t, resp, "/")
}

func TestLoginValidation(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)

	resp, body := c.post("/admin", url.Values{"email": {""}, "password": {""}})
	assertStatus(t, resp, http.StatusOK)
	if !strings.Contains(body, "Email is required.") || !strings.Contains(body, "Password is required.") {
		t.Error("expected required field errors")
	}
}

func TestContactSubmit(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)

	resp, _ := c.post("/contact", url.Values{
		"name":    {"Ada"},
		"email":   {"ada@example.com"},
		"subject": {"Hello"},
		"message": {"I liked your project."},
	})
	assertRedirect(t, resp, "/contact")

	_, body := c.get("/contact")
	if !strings.Contains(body, "Message sent! I will get back to you as soon as possible!") {
		t.Error("expected confirmation flash")
	}

	n, err := app.db.Queries().CountContacts(t.Context())
	if err != nil || n != 1 {
		t.Fatalf("CountContacts = %d, %v; want 1", n, err)
	}
	pending, _ := app.db.Queries().CountMailDeliveriesByStatus(t.Context(), store.MailStatusPending)
	if pending != 1 {
		t.Errorf("pending deliveries = %d, want 1", pending)
	}
	if app.queue.len() != 1 {
		t.Errorf("queued deliveries = %d, want 1", app.queue.len())
	}
}

func TestContactValidation(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)

	resp, body := c.post("/contact", url.Values{
		"name":    {"Ada"},
		"email":   {"nope"},
		"subject": {""},
		"message": {"Hi"},
	})
	assertStatus(t, resp, http.StatusOK)
	if !strings.Contains(body, "Please enter a valid email address.") || !strings.Contains(body, "Subject is required.") {
		t.Error("expected field errors")
	}
	n, _ := app.db.Queries().CountContacts(t.Context())
	if n != 0 {
		t.Errorf("CountContacts = %d, want 0", n)
	}
	if app.queue.len() != 0 {
		t.Error("nothing should be queued")
	}
}

func TestCrossSitePostRejected(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)

	req, _ := http.NewRequest(http.MethodPost, app.srv.URL+"/contact", strings.NewReader(url.Values{
		"name": {"Eve"}, "email": {"eve@example.com"}, "subject": {"x"}, "message": {"y"},
	}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	resp, _ := c.do(req)
	assertStatus(t, resp, http.StatusForbidden)
}

func TestCrossSiteDeleteRejected(t *testing.T) {
	app := newTestApp(t)
	project := testutil.CreateProject(t, app.db, "Keep")
	admin := app.newClient(t)
	admin.register("owner@example.com", "Owner")

	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/delete/%d", app.srv.URL, project.ID), nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	resp, _ := admin.do(req)
	assertStatus(t, resp, http.StatusForbidden)
	if n := countProjects(t, app.db); n != 1 {
		t.Fatalf("projects after cross-site delete = %d, want 1", n)
	}

	req, _ = http.NewRequest(http.MethodGet, fmt.Sprintf("%s/delete/%d", app.srv.URL, project.ID), nil)
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	resp, _ = admin.do(req)
	assertRedirect(t, resp, "/")
	if n := countProjects(t, app.db); n != 0 {
		t.Errorf("projects after same-origin delete = %d, want 0", n)
	}
}

func TestClientIPProxyHeaders(t *testing.T) {
	submit := func(t *testing.T, app *testApp) string {
		t.Helper()
		req, _ := http.NewRequest(http.MethodPost, app.srv.URL+"/contact", strings.NewReader(url.Values{
			"name": {"Ada"}, "email": {"ada@example.com"}, "subject": {"Hi"}, "message": {"Hello"},
		}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		resp, _ := app.newClient(t).do(req)
		assertRedirect(t, resp, "/contact")

		var ip string
		if err := app.db.QueryRowContext(t.Context(), `SELECT ip_address FROM contacts`).Scan(&ip); err != nil {
			t.Fatalf("reading contact: %v", err)
		}
		return ip
	}

	t.Run("untrusted", func(t *testing.T) {
		if ip := submit(t, newTestApp(t)); ip != "127.0.0.1" {
			t.Errorf("ip_address = %q, want the socket address", ip)
		}
	})
	t.Run("trusted proxy", func(t *testing.T) {
		app := newTestAppWith(t, func(c *Config) { c.TrustProxy = true })
		if ip := submit(t, app); ip != "203.0.113.9" {
			t.Errorf("ip_address = %q, want the forwarded address", ip)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)

	resp, body := c.get("/health")
	assertStatus(t, resp, http.StatusOK)
	var public map[string]any
	if err := json.Unmarshal([]byte(body), &public); err != nil {
		t.Fatalf("decoding /health: %v", err)
	}
	if public["status"] != "healthy" || len(public) != 1 {
		t.Errorf("anonymous /health = %v, want status only", public)
	}

	c.register("owner@example.com", "Owner")
	_, body = c.get("/health?verbose=true")
	var full struct {
		Status  string                    `json:"status"`
		Version string                    `json:"version"`
		Checks  map[string]map[string]any `json:"checks"`
		System  map[string]any            `json:"system"`
	}
	if err := json.Unmarshal([]byte(body), &full); err != nil {
		t.Fatalf("decoding admin /health: %v", err)
	}
	if full.Version != "v0.0.0-test" {
		t.Errorf("version = %q", full.Version)
	}
	for _, name := range []string{"database", "disk", "mail"} {
		if _, ok := full.Checks[name]; !ok {
			t.Errorf("missing %s check", name)
		}
	}
	if full.System == nil {
		t.Error("verbose health should include system info")
	}

	resp, body = c.get("/health/live")
	assertStatus(t, resp, http.StatusOK)
	if !strings.Contains(body, "alive") {
		t.Errorf("/health/live = %s", body)
	}

	resp, body = c.get("/health/ready")
	assertStatus(t, resp, http.StatusOK)
	if !strings.Contains(body, "ready") {
		t.Errorf("/health/ready = %s", body)
	}
}

func TestStaticAndMetrics(t *testing.T) {
	app := newTestApp(t)
	c := app.newClient(t)

	resp, body := c.get("/static/css/site.css")
	assertStatus(t, resp, http.StatusOK)
	if !strings.HasPrefix(resp.Header.Get("Cache-Control"), "public, max-age=") {
		t.Errorf("Cache-Control = %q", resp.Header.Get("Cache-Control"))
	}
	if body == "" {
		t.Error("stylesheet should not be empty")
	}

	c.get("/about")
	resp, body = c.get("/metrics")
	assertStatus(t, resp, http.StatusOK)
	if !strings.Contains(body, "folio_http_request_duration_seconds") {
		t.Error("metrics should expose request durations")
	}
}

func TestSecurityHeaders(t *testing.T) {
	app := newTestApp(t)
	resp, _ := app.newClient(t).get("/")
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if resp.Header.Get("Content-Security-Policy") == "" {
		t.Error("expected a Content-Security-Policy header")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	app := newTestApp(t)
	resp, _ := app.newClient(t).post("/about", url.Values{})
	assertStatus(t, resp, http.StatusMethodNotAllowed)
}
