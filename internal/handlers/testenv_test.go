package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/db"
	"storefront/internal/hash"
	"storefront/internal/models"
)

type recordedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakePublisher) Publish(_ context.Context, topic, key string, event map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (f *fakePublisher) byType(typ string) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, e := range f.events {
		if e.Event["type"] == typ {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	T        *testing.T
	E        *echo.Echo
	DB       *gorm.DB
	Auth     *AuthHandler
	Products *ProductHandler
	Reviews  *ReviewHandler
	Cart     *CartHandler
	Tokens   *auth.TokenService
	Events   *fakePublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(gdb))

	tokens := &auth.TokenService{
		DB:            gdb,
		JWTSecret:     []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
	pub := &fakePublisher{}

	return &testEnv{
		T:        t,
		E:        echo.New(),
		DB:       gdb,
		Auth:     &AuthHandler{DB: gdb, Tokens: tokens, Events: pub},
		Products: &ProductHandler{DB: gdb, Events: pub},
		Reviews:  &ReviewHandler{DB: gdb, Events: pub},
		Cart:     &CartHandler{Svc: &cart.Service{DB: gdb}, Events: pub},
		Tokens:   tokens,
		Events:   pub,
	}
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) createUser(username, role string) uint {
	env.T.Helper()
	passwordHash, err := hash.HashPassword("password")
	require.NoError(env.T, err)
	user := models.User{Username: username, PasswordHash: passwordHash, Role: role}
	require.NoError(env.T, env.DB.Create(&user).Error)
	return user.ID
}

func (env *testEnv) createProduct(name string, price float64, stock uint) uint {
	env.T.Helper()
	p := models.Product{Name: name, Price: price, Stock: stock}
	require.NoError(env.T, env.DB.Create(&p).Error)
	return p.ID
}

// httpCode unwraps the status of an error returned by a handler called
// outside the router.
func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	return he.Code
}
