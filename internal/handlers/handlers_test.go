package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/arzan03/SecureDrop/internal/db"
	"github.com/arzan03/SecureDrop/internal/models"
	"github.com/arzan03/SecureDrop/internal/services"
	"github.com/arzan03/SecureDrop/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type testServer struct {
	app     *fiber.App
	auth    *services.AuthService
	objects *storage.MemoryStore
}

func newTestServer(t *testing.T, mutate func(*services.TransferOptions)) *testServer {
	t.Helper()

	opts := services.DefaultTransferOptions()
	opts.BaseURL = "http://localhost:8080"
	opts.MaxFileSize = 64 * 1024
	if mutate != nil {
		mutate(&opts)
	}

	objects := storage.NewMemoryStore()
	transfers := services.NewTransferService(db.NewMemorySessionStore(), objects, opts)
	auth := services.NewAuthService(db.NewMemoryUserStore(), "handler-test-secret", time.Hour)

	h := New(transfers, auth, "TransferApp", map[string]HealthCheck{
		"objects": objects.Ping,
	})

	app := fiber.New(fiber.Config{BodyLimit: 1024 * 1024})
	app.Use(recover.New())
	SetupRoutes(app, h, 0)

	return &testServer{app: app, auth: auth, objects: objects}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", req.Method, req.URL.Path, err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, body
}

func (s *testServer) anonymousToken(t *testing.T) string {
	t.Helper()
	resp, body := s.do(t, httptest.NewRequest(http.MethodPost, "/auth/anonymous", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("anonymous sign-in failed: %d %s", resp.StatusCode, body)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	return out.Token
}

func uploadRequest(t *testing.T, token, name, contentType string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/transfer", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (s *testServer) upload(t *testing.T, token, name string, data []byte) services.UploadResult {
	t.Helper()
	resp, body := s.do(t, uploadRequest(t, token, name, "text/plain", data))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload failed: %d %s", resp.StatusCode, body)
	}
	var res services.UploadResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	return res
}

func TestTransferFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.anonymousToken(t)
	data := []byte(strings.Repeat("hello world\n", 500))

	res := srv.upload(t, token, "greeting.txt", data)
	if res.Key == "" || len(res.Code) != 6 {
		t.Fatalf("unexpected upload result %+v", res)
	}
	if !res.WasCompressed {
		t.Error("expected repetitive text to be compressed")
	}
	if res.ShareLink != "http://localhost:8080/receive/"+res.Code {
		t.Errorf("unexpected share link %q", res.ShareLink)
	}

	t.Run("info hides key", func(t *testing.T) {
		resp, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/transfer/"+res.Code, nil))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if bytes.Contains(body, []byte(res.Key)) {
			t.Error("info response leaks the key")
		}
		var info services.SessionInfo
		if err := json.Unmarshal(body, &info); err != nil {
			t.Fatal(err)
		}
		if info.State != models.StateActive || info.FileName != "greeting.txt" {
			t.Errorf("unexpected info %+v", info)
		}
	})

	t.Run("owner listing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transfer", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, body := srv.do(t, req)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var out struct {
			Count int `json:"count"`
		}
		_ = json.Unmarshal(body, &out)
		if out.Count != 1 {
			t.Errorf("expected 1 transfer, got %d", out.Count)
		}
	})

	t.Run("download once via share link", func(t *testing.T) {
		resp, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/receive/"+strings.ToLower(res.Code), nil))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
		}
		if !bytes.Equal(body, data) {
			t.Error("downloaded body does not match upload")
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "greeting.txt") {
			t.Errorf("unexpected Content-Disposition %q", cd)
		}

		resp, _ = srv.do(t, httptest.NewRequest(http.MethodGet, "/transfer/"+res.Code+"/download", nil))
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("expected 409 on second download, got %d", resp.StatusCode)
		}
	})
}

func TestUploadRequiresToken(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, _ := srv.do(t, uploadRequest(t, "", "a.txt", "text/plain", []byte("hi")))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = srv.do(t, uploadRequest(t, "garbage", "a.txt", "text/plain", []byte("hi")))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", resp.StatusCode)
	}
}

func TestUploadErrors(t *testing.T) {
	srv := newTestServer(t, nil)
	token := srv.anonymousToken(t)

	t.Run("too large", func(t *testing.T) {
		resp, _ := srv.do(t, uploadRequest(t, token, "big.bin", "application/octet-stream", make([]byte, 64*1024+1)))
		if resp.StatusCode != http.StatusRequestEntityTooLarge {
			t.Errorf("expected 413, got %d", resp.StatusCode)
		}
	})

	t.Run("missing file field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/transfer", strings.NewReader(""))
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := srv.do(t, req)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestDownloadStatusCodes(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		srv := newTestServer(t, nil)
		for _, code := range []string{"ZZZZZZ", "bad!"} {
			resp, _ := srv.do(t, httptest.NewRequest(http.MethodGet, "/transfer/"+code+"/download", nil))
			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("%s: expected 404, got %d", code, resp.StatusCode)
			}
		}
	})

	t.Run("expired", func(t *testing.T) {
		offset := time.Duration(0)
		srv := newTestServer(t, func(o *services.TransferOptions) {
			o.TTL = time.Hour
			o.Clock = func() time.Time { return time.Now().Add(offset) }
		})
		res := srv.upload(t, srv.anonymousToken(t), "a.txt", []byte("soon gone"))
		offset = 2 * time.Hour

		resp, _ := srv.do(t, httptest.NewRequest(http.MethodGet, "/transfer/"+res.Code+"/download", nil))
		if resp.StatusCode != http.StatusGone {
			t.Errorf("expected 410, got %d", resp.StatusCode)
		}
	})

	t.Run("corrupt", func(t *testing.T) {
		srv := newTestServer(t, nil)
		res := srv.upload(t, srv.anonymousToken(t), "a.txt", []byte("fragile"))

		if _, err := srv.objects.Put(context.Background(), models.ObjectKey(res.Code, "a.txt"), bytes.Repeat([]byte{0}, 80), ""); err != nil {
			t.Fatal(err)
		}
		resp, _ := srv.do(t, httptest.NewRequest(http.MethodGet, "/transfer/"+res.Code+"/download", nil))
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d", resp.StatusCode)
		}
	})
}

func TestDeleteTransfer(t *testing.T) {
	srv := newTestServer(t, nil)
	owner := srv.anonymousToken(t)
	stranger := srv.anonymousToken(t)
	res := srv.upload(t, owner, "a.txt", []byte("mine"))

	del := func(token string) int {
		req := httptest.NewRequest(http.MethodDelete, "/transfer/"+res.Code, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := srv.do(t, req)
		return resp.StatusCode
	}

	if code := del(stranger); code != http.StatusForbidden {
		t.Errorf("expected 403 for stranger, got %d", code)
	}
	if code := del(owner); code != http.StatusOK {
		t.Errorf("expected 200 for owner, got %d", code)
	}
	if code := del(owner); code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", code)
	}
	if srv.objects.Len() != 0 {
		t.Errorf("expected object removed, %d left", srv.objects.Len())
	}
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	post := func(path string, payload any) (*http.Response, []byte) {
		raw, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		return srv.do(t, req)
	}

	creds := map[string]string{"email": "test@example.com", "password": "password123"}

	if resp, body := post("/auth/register", creds); resp.StatusCode != http.StatusCreated {
		t.Fatalf("register failed: %d %s", resp.StatusCode, body)
	}
	if resp, _ := post("/auth/register", creds); resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}
	if resp, _ := post("/auth/register", map[string]string{"email": "x@example.com", "password": "1"}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for weak password, got %d", resp.StatusCode)
	}

	resp, body := post("/auth/login", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d %s", resp.StatusCode, body)
	}
	var out struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	_ = json.Unmarshal(body, &out)
	if out.Token == "" || out.Role != models.RoleUser {
		t.Errorf("unexpected login response %s", body)
	}

	if resp, _ := post("/auth/login", map[string]string{"email": "test@example.com", "password": "nope"}); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
}

func TestAdminRoutes(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()

	if err := srv.auth.EnsureAdmin(ctx, "admin@example.com", "supersecret"); err != nil {
		t.Fatal(err)
	}
	adminToken, _, err := srv.auth.Login(ctx, "admin@example.com", "supersecret")
	if err != nil {
		t.Fatal(err)
	}
	userToken := srv.anonymousToken(t)
	res := srv.upload(t, userToken, "a.txt", []byte("admin can see this"))

	get := func(path, token string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := srv.do(t, req)
		return resp.StatusCode
	}

	if code := get("/admin/transfers", userToken); code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", code)
	}
	if code := get("/admin/transfers", adminToken); code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", code)
	}
	if code := get("/admin/users", adminToken); code != http.StatusOK {
		t.Errorf("expected 200 listing users, got %d", code)
	}
	if code := get("/admin/user/000000000000000000000000", adminToken); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown user, got %d", code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/admin/transfer/"+res.Code, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	if resp, _ := srv.do(t, req); resp.StatusCode != http.StatusOK {
		t.Errorf("expected admin delete to succeed, got %d", resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte(`"status":"ok"`)) {
		t.Errorf("unexpected health body %s", body)
	}

	resp, _ = srv.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from /metrics, got %d", resp.StatusCode)
	}
}

func TestHealthReportsFailingBackend(t *testing.T) {
	transfers := services.NewTransferService(db.NewMemorySessionStore(), storage.NewMemoryStore(), services.DefaultTransferOptions())
	auth := services.NewAuthService(db.NewMemoryUserStore(), "s", time.Hour)
	h := New(transfers, auth, "TransferApp", map[string]HealthCheck{
		"mongo": func(context.Context) error { return errors.New("connection refused") },
	})
	app := fiber.New()
	SetupRoutes(app, h, 0)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestUploadLongFileNames(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
	}{
		{"dotfile", "." + strings.Repeat("a", 300)},
		{"long extension", "a." + strings.Repeat("b", 300)},
		{"multibyte", strings.Repeat("é", 200) + ".txt"},
	}

	srv := newTestServer(t, nil)
	token := srv.anonymousToken(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := srv.upload(t, token, tt.fileName, []byte("payload"))
			if len(res.FileName) > 255 || !utf8.ValidString(res.FileName) {
				t.Errorf("stored file name %q is not a valid 255-byte name", res.FileName)
			}

			resp, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/transfer/"+res.Code+"/download", nil))
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			if string(body) != "payload" {
				t.Errorf("unexpected body %q", body)
			}
		})
	}
}
