package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gamecatalog/visibility-backend/internal/auth"
	"github.com/gamecatalog/visibility-backend/internal/config"
	"github.com/gamecatalog/visibility-backend/internal/handlers"
	"github.com/gamecatalog/visibility-backend/internal/models"
	"github.com/gamecatalog/visibility-backend/internal/routes"
	"github.com/gamecatalog/visibility-backend/internal/services"
	"github.com/gamecatalog/visibility-backend/internal/store"
	"github.com/gamecatalog/visibility-backend/internal/store/storetest"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testServer struct {
	app    *fiber.App
	db     *gorm.DB
	st     *store.GormStore
	issuer *auth.TokenIssuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:             "routes-test-secret-routes-test-secret",
		JWTAccessExpiry:       15 * time.Minute,
		JWTRefreshExpiry:      time.Hour,
		BcryptCost:            bcrypt.MinCost,
		PasswordMinLength:     8,
		RateLimitMax:          1000,
		AuthRateLimitMax:      1000,
		NotificationPollLimit: 50,
	}
	db := storetest.OpenDB(t)
	st := store.NewGormStore(db)
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTAccessExpiry)

	app := fiber.New()
	app.Use(requestid.New())
	routes.Setup(app, cfg, auth.NewHydrator(st), routes.Handlers{
		Auth:         handlers.NewAuthHandler(services.NewAuthService(st, st, issuer, cfg)),
		Profile:      handlers.NewProfileHandler(services.NewProfileService(st)),
		Visibility:   handlers.NewVisibilityHandler(services.NewVisibilityService(st)),
		Notification: handlers.NewNotificationHandler(services.NewNotificationService(st, st, cfg.NotificationPollLimit)),
		Health:       handlers.NewHealthHandler(st),
	}, nil)

	return &testServer{app: app, db: db, st: st, issuer: issuer}
}

func (s *testServer) seedUser(t *testing.T, email, role string) (uuid.UUID, string) {
	t.Helper()
	hash, err := auth.HashPassword("password123", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &models.User{ID: uuid.New(), Email: email, Password: hash, Role: role}
	if err := s.st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
	token, _, err := s.issuer.Issue(u.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return u.ID, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, out
}

func ids(t *testing.T, v interface{}) []string {
	t.Helper()
	list, ok := v.([]interface{})
	if !ok {
		t.Fatalf("value %v is not a list", v)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, item.(string))
	}
	return out
}

func expectIDs(t *testing.T, name string, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s = %v, want %v", name, got, want)
		}
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, "GET", "/api/health", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["db"] != "ok" {
		t.Fatalf("db = %v, want ok", body["db"])
	}
}

func TestVisibilityScenario(t *testing.T) {
	s := newTestServer(t)
	_, userToken := s.seedUser(t, "u@example.com", models.RoleUser)
	_, adminToken := s.seedUser(t, "a@example.com", models.RoleAdmin)

	status, body := s.do(t, "POST", "/api/games/visibility", userToken, map[string]string{"gameId": "g1", "action": "hide"})
	if status != fiber.StatusOK || body["success"] != true {
		t.Fatalf("hide = %d %v, want 200 success", status, body)
	}

	_, body = s.do(t, "GET", "/api/games/status", userToken, nil)
	expectIDs(t, "hidden", ids(t, body["hidden"]), "g1")

	status, body = s.do(t, "POST", "/api/games/visibility", userToken, map[string]string{"gameId": "g1", "action": "delete"})
	if status != fiber.StatusForbidden {
		t.Fatalf("user delete = %d %v, want 403", status, body)
	}

	status, _ = s.do(t, "POST", "/api/games/visibility", adminToken, map[string]string{"gameId": "g1", "action": "delete"})
	if status != fiber.StatusOK {
		t.Fatalf("admin delete = %d, want 200", status)
	}

	_, body = s.do(t, "GET", "/api/games/status", "", nil)
	expectIDs(t, "anonymous deleted", ids(t, body["deleted"]), "g1")
	expectIDs(t, "anonymous hidden", ids(t, body["hidden"]))

	_, body = s.do(t, "GET", "/api/games/status", userToken, nil)
	expectIDs(t, "user deleted", ids(t, body["deleted"]), "g1")
	expectIDs(t, "user hidden", ids(t, body["hidden"]), "g1")

	s.do(t, "POST", "/api/games/visibility", adminToken, map[string]string{"gameId": "g1", "action": "restore"})
	_, body = s.do(t, "GET", "/api/games/status", "", nil)
	expectIDs(t, "anonymous deleted", ids(t, body["deleted"]))
}

func TestDemotionAppliesToUnexpiredToken(t *testing.T) {
	s := newTestServer(t)
	adminID, token := s.seedUser(t, "a@example.com", models.RoleAdmin)

	status, _ := s.do(t, "POST", "/api/games/visibility", token, map[string]string{"gameId": "g1", "action": "delete"})
	if status != fiber.StatusOK {
		t.Fatalf("delete = %d, want 200", status)
	}

	if err := s.st.SetUserRole(context.Background(), adminID, models.RoleUser); err != nil {
		t.Fatalf("demote: %v", err)
	}

	status, _ = s.do(t, "POST", "/api/games/visibility", token, map[string]string{"gameId": "g1", "action": "restore"})
	if status != fiber.StatusForbidden {
		t.Fatalf("restore after demotion = %d, want 403", status)
	}
	status, _ = s.do(t, "POST", "/api/admin/notifications", token, map[string]string{"userId": adminID.String(), "content": "hi"})
	if status != fiber.StatusForbidden {
		t.Fatalf("admin route after demotion = %d, want 403", status)
	}
}

func TestSessionEnforcement(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.seedUser(t, "u@example.com", models.RoleUser)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"visibility without token", "POST", "/api/games/visibility", "", fiber.StatusUnauthorized},
		{"notifications without token", "GET", "/api/notifications", "", fiber.StatusUnauthorized},
		{"me without token", "GET", "/api/me", "", fiber.StatusUnauthorized},
		{"status with garbage token", "GET", "/api/games/status", "garbage", fiber.StatusUnauthorized},
		{"admin route as user", "PUT", "/api/admin/users/" + userID.String() + "/role", token, fiber.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, tt.method, tt.path, tt.token, map[string]string{"role": "admin"})
			if status != tt.want {
				t.Fatalf("status = %d %v, want %d", status, body, tt.want)
			}
			if body["error"] != true {
				t.Fatalf("body = %v, want error envelope", body)
			}
		})
	}
}

func TestDeletedAccountTokenIsRejected(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.seedUser(t, "gone@example.com", models.RoleUser)

	if err := s.db.Delete(&models.User{}, "id = ?", userID).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	status, _ := s.do(t, "GET", "/api/me", token, nil)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
}

func TestValidationErrorDetails(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seedUser(t, "u@example.com", models.RoleUser)

	status, body := s.do(t, "POST", "/api/games/visibility", token, map[string]string{"gameId": "", "action": "hide"})
	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	details, ok := body["details"].(map[string]interface{})
	if !ok || details["gameId"] == nil {
		t.Fatalf("details = %v, want gameId entry", body["details"])
	}
}

func TestAuthFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, "POST", "/api/auth/register", "", map[string]string{"email": "new@example.com", "password": "password123"})
	if status != fiber.StatusCreated {
		t.Fatalf("register = %d %v, want 201", status, body)
	}

	status, body = s.do(t, "POST", "/api/auth/register", "", map[string]string{"email": "new@example.com", "password": "password123"})
	if status != fiber.StatusConflict {
		t.Fatalf("duplicate register = %d %v, want 409", status, body)
	}

	status, body = s.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "wrong-password"})
	if status != fiber.StatusUnauthorized || body["message"] != "Invalid email or password" {
		t.Fatalf("bad login = %d %v", status, body)
	}

	status, body = s.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "bogus", "password": "x"})
	if status != fiber.StatusUnauthorized || body["message"] != "Invalid email or password" {
		t.Fatalf("malformed login = %d %v", status, body)
	}

	status, body = s.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "password123"})
	if status != fiber.StatusOK {
		t.Fatalf("login = %d %v, want 200", status, body)
	}
	access, _ := body["access_token"].(string)
	refresh, _ := body["refresh_token"].(string)

	status, body = s.do(t, "GET", "/api/me", access, nil)
	if status != fiber.StatusOK || body["email"] != "new@example.com" || body["role"] != "user" {
		t.Fatalf("me = %d %v", status, body)
	}

	status, body = s.do(t, "PUT", "/api/me", access, map[string]string{"alias": "newbie"})
	if status != fiber.StatusOK || body["alias"] != "newbie" {
		t.Fatalf("update me = %d %v", status, body)
	}

	status, _ = s.do(t, "POST", "/api/auth/logout", access, map[string]string{"refresh_token": refresh})
	if status != fiber.StatusOK {
		t.Fatalf("logout = %d, want 200", status)
	}
	status, _ = s.do(t, "POST", "/api/auth/refresh", "", map[string]string{"refresh_token": refresh})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("refresh after logout = %d, want 401", status)
	}
}

func TestNotificationsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	userID, userToken := s.seedUser(t, "u@example.com", models.RoleUser)
	_, adminToken := s.seedUser(t, "a@example.com", models.RoleAdmin)

	status, body := s.do(t, "POST", "/api/admin/notifications", adminToken, map[string]string{"userId": userID.String(), "content": "Welcome"})
	if status != fiber.StatusCreated {
		t.Fatalf("create = %d %v, want 201", status, body)
	}
	id, _ := body["id"].(string)

	_, body = s.do(t, "GET", "/api/notifications", userToken, nil)
	list, _ := body["notifications"].([]interface{})
	if len(list) != 1 {
		t.Fatalf("notifications = %v, want 1", body)
	}

	for i := 0; i < 2; i++ {
		status, _ = s.do(t, "POST", "/api/notifications/"+id+"/dismiss", userToken, nil)
		if status != fiber.StatusOK {
			t.Fatalf("dismiss #%d = %d, want 200", i+1, status)
		}
	}

	_, body = s.do(t, "GET", "/api/notifications", userToken, nil)
	list, _ = body["notifications"].([]interface{})
	if len(list) != 0 {
		t.Fatalf("notifications after dismiss = %v, want none", list)
	}

	status, _ = s.do(t, "POST", "/api/notifications/not-a-uuid/dismiss", userToken, nil)
	if status != fiber.StatusBadRequest {
		t.Fatalf("bad id = %d, want 400", status)
	}
}

func TestAdminSetsRole(t *testing.T) {
	s := newTestServer(t)
	userID, userToken := s.seedUser(t, "u@example.com", models.RoleUser)
	adminID, adminToken := s.seedUser(t, "a@example.com", models.RoleAdmin)

	status, body := s.do(t, "PUT", "/api/admin/users/"+userID.String()+"/role", adminToken, map[string]string{"role": "admin"})
	if status != fiber.StatusOK {
		t.Fatalf("promote = %d %v, want 200", status, body)
	}

	_, body = s.do(t, "GET", "/api/me", userToken, nil)
	if body["role"] != "admin" {
		t.Fatalf("role after promotion = %v, want admin", body["role"])
	}

	status, _ = s.do(t, "PUT", "/api/admin/users/"+adminID.String()+"/role", adminToken, map[string]string{"role": "user"})
	if status != fiber.StatusConflict {
		t.Fatalf("self demotion = %d, want 409", status)
	}
}
