package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/section-scheduler/internal/config"
	"github.com/iliyamo/section-scheduler/internal/handler"
	"github.com/iliyamo/section-scheduler/internal/middleware"
	"github.com/iliyamo/section-scheduler/internal/repository"
	"github.com/iliyamo/section-scheduler/internal/schedule"
	"github.com/iliyamo/section-scheduler/internal/utils"
)

const secret = "router-secret"

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := repository.NewScheduleStore(db)
	guard := schedule.NewGuard(store, nil)
	mw := Middlewares{
		Limiter: middleware.NewTokenBucket(config.RateLimitConfig{}, nil, nil),
		Cache:   middleware.NewRedisCache(config.CacheConfig{}, nil),
		Purge:   middleware.PurgeOnWrite(config.CacheConfig{}, nil),
	}

	e := echo.New()
	RegisterRoutes(e, db)
	RegisterAuth(e, handler.NewAuthHandler(config.Config{JWTSecret: secret}, repository.NewUserRepo(db), repository.NewTokenRepo(db), nil), secret, mw.Limiter)
	sections := handler.NewSectionHandler(store.Sections, guard, nil, nil)
	RegisterAdmin(e, handler.NewAdminHandler(store.Courses, store.Rooms, repository.NewUserRepo(db), 4, nil), sections, secret, mw)
	RegisterFaculty(e, sections, secret, mw)
	RegisterStudent(e, handler.NewStudentHandler(store.Sections, store.Schedules, guard, nil, nil), secret, mw)
	return e
}

func TestRoutesRegistered(t *testing.T) {
	e := newServer(t)
	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"POST /v1/auth/login",
		"POST /v1/auth/refresh",
		"GET /v1/me",
		"POST /v1/admin/sections",
		"POST /v1/admin/sections/check",
		"DELETE /v1/admin/sections/:id",
		"GET /v1/admin/rooms",
		"GET /v1/faculty/sections",
		"GET /v1/student/sections",
		"POST /v1/student/schedules",
		"DELETE /v1/student/schedules/:id",
	} {
		assert.True(t, have[want], want)
	}
}

func TestRoleGroupsAreSeparated(t *testing.T) {
	e := newServer(t)
	student, err := utils.NewAccessToken(secret, "ST1", "STUDENT", 5)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/sections", nil)
	req.Header.Set("Authorization", "Bearer "+student.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/faculty/sections", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
