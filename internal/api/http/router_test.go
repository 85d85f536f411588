package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/points-service/internal/api/http/handlers"
	"github.com/spec-kit/points-service/internal/auth"
	"github.com/spec-kit/points-service/internal/events"
	"github.com/spec-kit/points-service/internal/observability"
	"github.com/spec-kit/points-service/internal/repository/memory"
	"github.com/spec-kit/points-service/internal/service"
)

const testDomain = "@bestis.ro"

type testServer struct {
	app    *fiber.App
	store  *memory.Store
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	roles := service.NewRoleService(service.RoleDependencies{AdminRepo: store.Admins(), SecretaryRepo: store.Secretaries()})
	requests := service.NewRequestService(service.RequestDependencies{RequestRepo: store.Requests(), TaskRepo: store.Tasks(), Dispatcher: dispatcher, Logger: logger})
	tasks := service.NewTaskService(service.TaskDependencies{TaskRepo: store.Tasks(), Dispatcher: dispatcher, Logger: logger})
	leaderboard := service.NewLeaderboardService(service.LeaderboardDependencies{RequestRepo: store.Requests(), TaskRepo: store.Tasks(), Logger: logger})
	transfers := service.NewTransferService(service.TransferDependencies{
		TransferRepo:  store.Transfers(),
		AdminRepo:     store.Admins(),
		SecretaryRepo: store.Secretaries(),
		Transactor:    store,
		Dispatcher:    dispatcher,
		Logger:        logger,
		EmailDomain:   testDomain,
		BaseURL:       "https://points.bestis.ro",
		BcryptCost:    bcrypt.MinCost,
	})
	secretaries := service.NewSecretaryService(service.SecretaryDependencies{SecretaryRepo: store.Secretaries(), AdminRepo: store.Admins(), Dispatcher: dispatcher, Logger: logger, EmailDomain: testDomain})

	tokens := auth.NewTokenManager("test-secret", 30)
	app := NewApp("points-service", 4<<20)
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("points-service", "test", nil, nil, metrics),
		Auth:           handlers.NewAuthHandler(nil, tokens, logger, false),
		Requests:       handlers.NewRequestsHandler(requests),
		Tasks:          handlers.NewTasksHandler(tasks, leaderboard),
		Transfers:      handlers.NewTransfersHandler(transfers),
		Secretaries:    handlers.NewSecretariesHandler(secretaries),
		Uploads:        handlers.NewUploadsHandler(nil),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, roles),
	})
	return &testServer{app: app, store: store, tokens: tokens}
}

func (s *testServer) tokenFor(t *testing.T, email string) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(auth.Identity{Subject: "uid-" + email, Email: email, Name: email})
	require.NoError(t, err)
	return token
}

func (s *testServer) makeAdmin(t *testing.T, email string, depts ...string) string {
	t.Helper()
	_, err := service.BootstrapAdmin(context.Background(), s.store.Admins(), email, depts, testDomain, time.Now())
	require.NoError(t, err)
	return s.tokenFor(t, email)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func TestHealthAndDepartments(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, fiber.MethodGet, "/health/ready", "", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, env := s.do(t, fiber.MethodGet, "/departments", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var depts []map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &depts))
	require.Len(t, depts, 5)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, fiber.MethodGet, "/me", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, status)
	require.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, _ = s.do(t, fiber.MethodGet, "/me", "garbage", nil)
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, env = s.do(t, fiber.MethodGet, "/me", s.makeAdmin(t, "admin@bestis.ro", "HR"), nil)
	require.Equal(t, fiber.StatusOK, status)
	var me map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &me))
	require.Equal(t, "admin", me["role"])
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.makeAdmin(t, "admin@bestis.ro", "HR")
	memberToken := s.tokenFor(t, "member@bestis.ro")

	status, _ := s.do(t, fiber.MethodPost, "/admin/tasks", adminToken, map[string]any{
		"department": "HR", "description": "Organize event", "points": 100,
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, env := s.do(t, fiber.MethodPost, "/requests", memberToken, map[string]any{
		"department": "HR", "task": "Organize event", "task_number": "2",
	})
	require.Equal(t, fiber.StatusCreated, status)
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Equal(t, "pending", created.Status)

	status, env = s.do(t, fiber.MethodPost, "/admin/requests/"+created.ID+"/approve", memberToken, nil)
	require.Equal(t, fiber.StatusForbidden, status)
	require.Equal(t, "FORBIDDEN", env.Error.Code)

	status, _ = s.do(t, fiber.MethodPost, "/admin/requests/"+created.ID+"/approve", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, env = s.do(t, fiber.MethodGet, "/requests/"+created.ID, memberToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var fetched struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &fetched))
	require.Equal(t, created.ID, fetched.ID)
	require.Equal(t, "approved", fetched.Status)

	status, env = s.do(t, fiber.MethodGet, "/admin/requests?status=approved&department=HR", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var reviewed []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reviewed))
	require.Len(t, reviewed, 1)
	require.Equal(t, created.ID, reviewed[0].ID)

	status, env = s.do(t, fiber.MethodPost, "/requests/"+created.ID+"/cancel", memberToken, nil)
	require.Equal(t, fiber.StatusConflict, status)
	require.Equal(t, "INVALID_STATE", env.Error.Code)

	status, env = s.do(t, fiber.MethodGet, "/departments/HR/leaderboard", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var board []struct {
		Rank        int    `json:"rank"`
		Email       string `json:"email"`
		TotalPoints int    `json:"total_points"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board, 1)
	require.Equal(t, 200, board[0].TotalPoints)
	require.Equal(t, 1, board[0].Rank)

	status, env = s.do(t, fiber.MethodGet, "/requests/mine", memberToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var page struct {
		Items   []map[string]any `json:"items"`
		HasMore bool             `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	require.False(t, page.HasMore)
}

func TestSubmitValidationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	memberToken := s.tokenFor(t, "member@bestis.ro")

	status, env := s.do(t, fiber.MethodPost, "/requests", memberToken, map[string]any{"department": "HR"})
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	require.Contains(t, env.Error.Details, "task")

	status, env = s.do(t, fiber.MethodGet, "/requests/mine?cursor=%25%25", memberToken, nil)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestSecretaryCannotManageTasksOverHTTP(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.makeAdmin(t, "admin@bestis.ro", "IT")

	status, _ := s.do(t, fiber.MethodPost, "/admin/secretaries", adminToken, map[string]any{"email": "sec@bestis.ro", "department": "IT"})
	require.Equal(t, fiber.StatusCreated, status)

	secToken := s.tokenFor(t, "sec@bestis.ro")
	status, env := s.do(t, fiber.MethodPost, "/admin/tasks", secToken, map[string]any{
		"department": "IT", "description": "Fix laptop", "points": 10,
	})
	require.Equal(t, fiber.StatusForbidden, status)
	require.Equal(t, "FORBIDDEN", env.Error.Code)

	status, _ = s.do(t, fiber.MethodGet, "/admin/requests?department=IT", secToken, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, fiber.MethodDelete, "/admin/secretaries/sec@bestis.ro", adminToken, nil)
	require.Equal(t, fiber.StatusNoContent, status)
}

func TestTransferOverHTTP(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.makeAdmin(t, "a@bestis.ro", "HR", "PR")
	recipientToken := s.tokenFor(t, "b@bestis.ro")

	status, env := s.do(t, fiber.MethodPost, "/admin/transfers", adminToken, map[string]any{"to_email": "b@bestis.ro", "department": "HR"})
	require.Equal(t, fiber.StatusCreated, status)
	var inv struct {
		Transfer struct {
			ID string `json:"id"`
		} `json:"transfer"`
		AcceptURL string `json:"accept_url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &inv))
	token := inv.AcceptURL[len(inv.AcceptURL)-43:]

	status, env = s.do(t, fiber.MethodGet, "/transfers/incoming", recipientToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var incoming []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &incoming))
	require.Len(t, incoming, 1)

	status, env = s.do(t, fiber.MethodGet, "/transfers/"+inv.Transfer.ID+"?token=wrong", "", nil)
	require.Equal(t, fiber.StatusForbidden, status)
	require.Equal(t, "TOKEN_MISMATCH", env.Error.Code)

	status, _ = s.do(t, fiber.MethodGet, "/transfers/"+inv.Transfer.ID+"?token="+token, "", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, fiber.MethodPost, "/transfers/"+inv.Transfer.ID+"/accept", recipientToken, map[string]any{"token": token})
	require.Equal(t, fiber.StatusOK, status)

	status, env = s.do(t, fiber.MethodGet, "/me", recipientToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var me struct {
		Role        string   `json:"role"`
		Departments []string `json:"departments"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	require.Equal(t, "admin", me.Role)
	require.Equal(t, []string{"HR"}, me.Departments)

	status, env = s.do(t, fiber.MethodPost, "/transfers/"+inv.Transfer.ID+"/reject", recipientToken, map[string]any{"token": token})
	require.Equal(t, fiber.StatusConflict, status)
	require.Equal(t, "TRANSFER_RESOLVED", env.Error.Code)
}

func TestDisabledIntegrations(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, fiber.MethodGet, "/auth/google/login", "", nil)
	require.Equal(t, fiber.StatusServiceUnavailable, status)
	require.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)

	status, _ = s.do(t, fiber.MethodPost, "/uploads/proof", s.tokenFor(t, "m@bestis.ro"), nil)
	require.Equal(t, fiber.StatusServiceUnavailable, status)
}
