package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lcvote/voteledger/internal/config"
	"github.com/lcvote/voteledger/internal/identity"
	"github.com/lcvote/voteledger/internal/ledger"
	"github.com/lcvote/voteledger/internal/logging"
	"github.com/lcvote/voteledger/internal/middleware"
)

type testEnv struct {
	app     *fiber.App
	store   ledger.Store
	adminID string
	voterID string
}

func newTestEnv(t *testing.T, cache *redis.Client) testEnv {
	t.Helper()
	ctx := context.Background()
	logger := logging.Discard()

	store := ledger.NewInMemory()
	ids := identity.NewService(identity.NewMemoryRepository()).WithCost(bcrypt.MinCost)

	env := testEnv{store: store, adminID: ledger.NewID(), voterID: ledger.NewID()}
	ledger.SeedAccount(store, ledger.Account{ID: env.adminID, Role: ledger.RoleAdmin, Committee: "LC HQ", Balance: 10, CanVote: true})
	ledger.SeedAccount(store, ledger.Account{ID: env.voterID, Role: ledger.RoleUser, Committee: "LC Hacettepe", Balance: 1, CanVote: true})
	_, err := ids.Register(ctx, env.adminID, "Admin User", identity.Credentials{Email: "admin@example.com", Password: "AdminPass123"})
	require.NoError(t, err)
	_, err = ids.Register(ctx, env.voterID, "LC Hacettepe Voter", identity.Credentials{Email: "user1@demo.com", Password: "Password1"})
	require.NoError(t, err)

	cfg := config.Config{
		Env:             "test",
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Hour,
		IdempotencyTTL:  time.Minute,
		LoginRatePerMin: 100,
	}
	env.app = fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logger)})
	require.NoError(t, Setup(env.app, Deps{
		Cfg:      cfg,
		Cache:    cache,
		Logger:   logger,
		Store:    store,
		Identity: ids,
		Registry: prometheus.NewRegistry(),
	}))
	return env
}

type call struct {
	method string
	path   string
	body   string
	token  string
	key    string
}

func (e testEnv) do(t *testing.T, c call) (int, map[string]any) {
	t.Helper()
	var body io.Reader
	if c.body != "" {
		body = strings.NewReader(c.body)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if c.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if c.key != "" {
		req.Header.Set("Idempotency-Key", c.key)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (e testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := e.do(t, call{method: fiber.MethodPost, path: "/api/v1/auth/login",
		body: `{"email":"` + email + `","password":"` + password + `"}`})
	require.Equal(t, fiber.StatusOK, status, body)
	token, _ := body["accessToken"].(string)
	require.NotEmpty(t, token)
	return token
}

func (e testEnv) balance(t *testing.T, id string) int64 {
	t.Helper()
	account, err := e.store.Account(context.Background(), id)
	require.NoError(t, err)
	return account.Balance
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, call{method: fiber.MethodPost, path: "/api/v1/auth/login", body: `{"email":"user1@demo.com","password":"Password1"}`})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, env.voterID, body["accountId"])
	assert.InDelta(t, 3600, body["expiresIn"], 5)

	status, body = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/auth/login", body: `{"email":"user1@demo.com","password":"wrong"}`})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", body["kind"])

	status, _ = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/auth/login", body: `{"email":`})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestCastVoteContract(t *testing.T) {
	env := newTestEnv(t, nil)
	voter := env.login(t, "user1@demo.com", "Password1")

	status, body := env.do(t, call{method: fiber.MethodPost, path: "/api/v1/votes", body: `{"choices":["A","B"]}`})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", body["kind"])

	status, body = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/votes", body: `{"choices":["NONE","A"]}`, token: voter})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_payload", body["kind"])

	status, body = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/votes", body: `{"choices":["A","B"]}`, token: voter})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.EqualValues(t, 0, body["remaining"])
	assert.Equal(t, []any{"A", "B"}, body["choices"])

	status, body = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/votes", body: `{"choices":["C"]}`, token: voter})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "insufficient_balance", body["kind"])
}

func TestMeProfile(t *testing.T) {
	env := newTestEnv(t, nil)
	voter := env.login(t, "user1@demo.com", "Password1")

	status, body := env.do(t, call{method: fiber.MethodGet, path: "/api/v1/me", token: voter})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, env.voterID, body["accountId"])
	assert.Equal(t, "LC Hacettepe", body["committee"])
	assert.Equal(t, "user1@demo.com", body["email"])
	assert.EqualValues(t, 1, body["balance"])
	assert.Len(t, body["choices"], len(ledger.Choices))

	status, _ = env.do(t, call{method: fiber.MethodGet, path: "/api/v1/me"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	env := newTestEnv(t, nil)
	voter := env.login(t, "user1@demo.com", "Password1")

	endpoints := []call{
		{method: fiber.MethodPost, path: "/api/v1/admin/set-balance", body: `{"userId":"x","amount":5}`},
		{method: fiber.MethodPost, path: "/api/v1/admin/transfer", body: `{"fromUserId":"x","toUserId":"y","amount":1}`},
		{method: fiber.MethodPost, path: "/api/v1/admin/toggle-vote", body: `{"userId":"x","canVote":false}`},
		{method: fiber.MethodGet, path: "/api/v1/admin/accounts"},
		{method: fiber.MethodGet, path: "/api/v1/admin/votes"},
		{method: fiber.MethodGet, path: "/api/v1/admin/actions"},
	}
	for _, c := range endpoints {
		status, _ := env.do(t, c)
		assert.Equal(t, fiber.StatusUnauthorized, status, c.path)

		c.token = voter
		status, body := env.do(t, c)
		assert.Equal(t, fiber.StatusForbidden, status, c.path)
		assert.Equal(t, "forbidden", body["kind"], c.path)
	}
}

func TestAdminMutationsContract(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.login(t, "admin@example.com", "AdminPass123")

	status, body := env.do(t, call{method: fiber.MethodPost, path: "/api/v1/admin/transfer", token: admin,
		body: `{"fromUserId":"` + env.adminID + `","toUserId":"` + env.voterID + `","amount":4}`})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.EqualValues(t, 6, body["fromBalance"])
	assert.EqualValues(t, 5, body["toBalance"])

	status, body = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/admin/transfer", token: admin,
		body: `{"fromUserId":"` + env.voterID + `","toUserId":"` + env.voterID + `","amount":1}`})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "same_account", body["kind"])

	status, body = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/admin/set-balance", token: admin,
		body: `{"userId":"` + env.voterID + `","amount":-1}`})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_amount", body["kind"])

	status, body = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/admin/set-balance", token: admin,
		body: `{"userId":"` + env.voterID + `"}`})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_payload", body["kind"])

	status, body = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/admin/set-balance", token: admin,
		body: `{"userId":"` + env.voterID + `","amount":7}`})
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 7, body["balance"])

	status, body = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/admin/toggle-vote", token: admin,
		body: `{"userId":"` + env.voterID + `","canVote":false}`})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["canVote"])

	voter := env.login(t, "user1@demo.com", "Password1")
	status, body = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/votes", body: `{"choices":["A"]}`, token: voter})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "voting_disabled", body["kind"])

	status, body = env.do(t, call{method: fiber.MethodGet, path: "/api/v1/admin/actions?limit=10", token: admin})
	require.Equal(t, fiber.StatusOK, status)
	actions, _ := body["actions"].([]any)
	assert.Len(t, actions, 3)
	newest, _ := actions[0].(map[string]any)
	assert.Equal(t, "toggleVote", newest["actionType"])

	status, body = env.do(t, call{method: fiber.MethodGet, path: "/api/v1/admin/accounts", token: admin})
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["accounts"], 2)
}

func TestAdminVotesListing(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.login(t, "admin@example.com", "AdminPass123")
	voter := env.login(t, "user1@demo.com", "Password1")

	status, _ := env.do(t, call{method: fiber.MethodPost, path: "/api/v1/votes", body: `{"choices":["G"]}`, token: voter})
	require.Equal(t, fiber.StatusOK, status)
	status, _ = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/votes", body: `{"choices":["NONE"]}`, token: admin})
	require.Equal(t, fiber.StatusOK, status)

	status, body := env.do(t, call{method: fiber.MethodGet, path: "/api/v1/admin/votes?committee=LC%20Hacettepe", token: admin})
	require.Equal(t, fiber.StatusOK, status)
	votes, _ := body["votes"].([]any)
	require.Len(t, votes, 1)
	vote, _ := votes[0].(map[string]any)
	assert.Equal(t, env.voterID, vote["userId"])
	assert.Equal(t, "user1@demo.com", vote["email"])

	status, body = env.do(t, call{method: fiber.MethodGet, path: "/api/v1/admin/votes", token: admin})
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["votes"], 2)
}

func TestIdempotentCastDebitsOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	env := newTestEnv(t, cache)
	ledger.SeedAccount(env.store, ledger.Account{ID: env.voterID, Committee: "LC Hacettepe", Balance: 3, CanVote: true})
	voter := env.login(t, "user1@demo.com", "Password1")

	for i := 0; i < 3; i++ {
		status, body := env.do(t, call{method: fiber.MethodPost, path: "/api/v1/votes", body: `{"choices":["A"]}`, token: voter, key: "ballot-1"})
		require.Equal(t, fiber.StatusOK, status)
		assert.EqualValues(t, 2, body["remaining"])
	}
	assert.Equal(t, int64(2), env.balance(t, env.voterID))
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, call{method: fiber.MethodGet, path: "/healthz"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]any{"postgres": "in-memory", "redis": "disabled"}, body["status"])

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSetupRequiresInfrastructureOutsideDev(t *testing.T) {
	err := Setup(fiber.New(), Deps{
		Cfg:      config.Config{Env: "production", JWTSecret: "s"},
		Logger:   logging.Discard(),
		Store:    ledger.NewInMemory(),
		Identity: identity.NewService(identity.NewMemoryRepository()),
	})
	assert.Error(t, err)
}
