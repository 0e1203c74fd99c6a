package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/section-scheduler/internal/config"
	"github.com/iliyamo/section-scheduler/internal/model"
	q "github.com/iliyamo/section-scheduler/internal/queue"
	"github.com/iliyamo/section-scheduler/internal/repository"
	"github.com/iliyamo/section-scheduler/internal/utils"
)

var (
	courseColumns = []string{"id", "name", "code", "created_at", "updated_at"}
	roomColumns   = []string{"id", "no", "max_capacity", "created_at", "updated_at"}
	userColumns   = []string{"id", "name", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}
)

func newAdmin(t *testing.T) (*AdminHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewAdminHandler(repository.NewCourseRepo(db), repository.NewRoomRepo(db), repository.NewUserRepo(db), 4, nil), mock
}

func TestUpsertCourse(t *testing.T) {
	now := time.Now()

	t.Run("create", func(t *testing.T) {
		h, mock := newAdmin(t)
		mock.ExpectExec("INSERT INTO courses").
			WithArgs(sqlmock.AnyArg(), "Algorithms", "CS201").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id = ?")).
			WillReturnRows(sqlmock.NewRows(courseColumns).AddRow("C1", "Algorithms", "CS201", now, now))

		rec := call(h.UpsertCourse, http.MethodPost, `{"name":" Algorithms ","code":"CS201"}`, "admin")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var got model.Course
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "C1", got.ID)
		assert.Equal(t, "CS201", got.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update", func(t *testing.T) {
		h, mock := newAdmin(t)
		mock.ExpectExec("UPDATE courses").
			WithArgs("Algorithms II", "CS202", "C1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id = ?")).WithArgs("C1").
			WillReturnRows(sqlmock.NewRows(courseColumns).AddRow("C1", "Algorithms II", "CS202", now, now))

		rec := call(h.UpsertCourse, http.MethodPost, `{"course_id":"C1","name":"Algorithms II","code":"CS202"}`, "admin")
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown id", func(t *testing.T) {
		h, mock := newAdmin(t)
		mock.ExpectExec("UPDATE courses").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id = ?")).WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(courseColumns))

		rec := call(h.UpsertCourse, http.MethodPost, `{"course_id":"missing","name":"X","code":"X1"}`, "admin")
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing code", func(t *testing.T) {
		h, _ := newAdmin(t)
		rec := call(h.UpsertCourse, http.MethodPost, `{"name":"Algorithms"}`, "admin")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpsertRoom(t *testing.T) {
	now := time.Now()

	t.Run("create", func(t *testing.T) {
		h, mock := newAdmin(t)
		mock.ExpectExec("INSERT INTO rooms").
			WithArgs(sqlmock.AnyArg(), "B-101", uint32(40)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE id = ?")).
			WillReturnRows(sqlmock.NewRows(roomColumns).AddRow("R1", "B-101", 40, now, now))

		rec := call(h.UpsertRoom, http.MethodPost, `{"no":"B-101","max_capacity":40}`, "admin")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var got model.Room
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, uint32(40), got.MaxCapacity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown id", func(t *testing.T) {
		h, mock := newAdmin(t)
		mock.ExpectExec("UPDATE rooms").
			WithArgs("B-102", uint32(0), "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE id = ?")).WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(roomColumns))

		rec := call(h.UpsertRoom, http.MethodPost, `{"room_id":"missing","no":"B-102"}`, "admin")
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate number", func(t *testing.T) {
		h, mock := newAdmin(t)
		mock.ExpectExec("INSERT INTO rooms").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'B-101'"})

		rec := call(h.UpsertRoom, http.MethodPost, `{"no":"B-101"}`, "admin")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative capacity", func(t *testing.T) {
		h, _ := newAdmin(t)
		rec := call(h.UpsertRoom, http.MethodPost, `{"no":"B-101","max_capacity":-1}`, "admin")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListCatalogue(t *testing.T) {
	now := time.Now()
	h, mock := newAdmin(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses ORDER BY code")).
		WillReturnRows(sqlmock.NewRows(courseColumns).
			AddRow("C1", "Algorithms", "CS201", now, now).
			AddRow("C2", "Databases", "CS301", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms ORDER BY no")).
		WillReturnRows(sqlmock.NewRows(roomColumns))

	rec := call(h.ListCourses, http.MethodGet, "", "admin")
	require.Equal(t, http.StatusOK, rec.Code)
	var courses []model.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &courses))
	assert.Len(t, courses, 2)

	rec = call(h.ListRooms, http.MethodGet, "", "admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnexpectedErrorsReachTheLog(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	db, mock := newMockDB(t)
	mock.ExpectQuery("FROM courses").WillReturnError(sql.ErrConnDone)

	h := NewAdminHandler(repository.NewCourseRepo(db), repository.NewRoomRepo(db), repository.NewUserRepo(db), 4, zap.New(core))
	rec := call(h.ListCourses, http.MethodGet, "", "admin")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"list courses failed"}`, rec.Body.String())

	entries := logs.FilterMessage("list courses failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, http.MethodGet, entries[0].ContextMap()["method"])
	assert.Contains(t, entries[0].ContextMap()["error"], "connection is already closed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFaculty(t *testing.T) {
	t.Run("created with faculty role", func(t *testing.T) {
		h, mock := newAdmin(t)
		mock.ExpectExec("INSERT INTO users").
			WithArgs(sqlmock.AnyArg(), "Dr. Ada", "ada@uni.edu", sqlmock.AnyArg(), "FACULTY").
			WillReturnResult(sqlmock.NewResult(0, 1))

		rec := call(h.CreateFaculty, http.MethodPost, `{"name":"Dr. Ada","email":" Ada@Uni.edu ","password":"longenough"}`, "admin")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var got userPart
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, model.RoleFaculty, got.Role)
		assert.Equal(t, "ada@uni.edu", got.Email)
		assert.Len(t, got.ID, 36)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("email taken", func(t *testing.T) {
		h, mock := newAdmin(t)
		mock.ExpectExec("INSERT INTO users").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

		rec := call(h.CreateFaculty, http.MethodPost, `{"name":"Dr. Ada","email":"ada@uni.edu","password":"longenough"}`, "admin")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("short password", func(t *testing.T) {
		h, _ := newAdmin(t)
		rec := call(h.CreateFaculty, http.MethodPost, `{"name":"Dr. Ada","email":"ada@uni.edu","password":"short"}`, "admin")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListFaculty(t *testing.T) {
	now := time.Now()
	h, mock := newAdmin(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE role=?")).WithArgs("FACULTY").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("F1", "Dr. Ada", "ada@uni.edu", "hash", "FACULTY", true, now, now))

	rec := call(h.ListFaculty, http.MethodGet, "", "admin")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got []model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, model.RoleFaculty, got[0].Role)
	assert.NotContains(t, rec.Body.String(), "hash")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDropEnrollment(t *testing.T) {
	now := time.Now()
	scheduleColumns := []string{"id", "student_id", "section_id", "created_at"}

	t.Run("own enrollment", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM student_schedules WHERE id = ? AND student_id = ?")).
			WithArgs("SCH1", "ST1").
			WillReturnRows(sqlmock.NewRows(scheduleColumns).AddRow("SCH1", "ST1", "S1", now))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_schedules WHERE id = ? AND student_id = ?")).
			WithArgs("SCH1", "ST1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		pub := &fakePublisher{}
		h := NewStudentHandler(repository.NewSectionRepo(db), repository.NewStudentScheduleRepo(db), &fakeGuard{}, pub, nil)
		rec := call(h.Drop, http.MethodDelete, "", "ST1", "id", "SCH1")
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		assert.Eventually(t, func() bool { _, n := pub.count(); return n == 1 }, time.Second, 10*time.Millisecond)
		pub.mu.Lock()
		ev := pub.enrollments[0]
		pub.mu.Unlock()
		assert.Equal(t, q.ActionDropped, ev.Action)
		assert.Equal(t, "S1", ev.SectionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("another student's enrollment", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM student_schedules WHERE id = ? AND student_id = ?")).
			WithArgs("SCH1", "ST2").
			WillReturnRows(sqlmock.NewRows(scheduleColumns))

		pub := &fakePublisher{}
		h := NewStudentHandler(repository.NewSectionRepo(db), repository.NewStudentScheduleRepo(db), &fakeGuard{}, pub, nil)
		rec := call(h.Drop, http.MethodDelete, "", "ST2", "id", "SCH1")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		_, n := pub.count()
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListMineReturnsTaughtSections(t *testing.T) {
	now := time.Now()
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.faculty_id = ?")).WithArgs("F1").
		WillReturnRows(sqlmock.NewRows(detailColumns).
			AddRow("S1", "A1", "Algorithms A", "C1", "R1", "F1", "TUESDAY", "13:00:00", "14:30:00", now, now,
				"Algorithms", "CS201", "B-101", "Dr. Ada"))

	h := NewSectionHandler(repository.NewSectionRepo(db), &fakeGuard{}, nil, nil)
	rec := call(h.ListMine, http.MethodGet, "", "F1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got []sectionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "13:00", got[0].StartTime)
	assert.Equal(t, "14:30", got[0].EndTime)
	assert.Equal(t, "CS201", got[0].CourseCode)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, http.StatusUnauthorized, call(h.ListMine, http.MethodGet, "", "").Code)
}

func authConfig() config.Config {
	return config.Config{JWTSecret: "s", AccessTTLMin: 15, RefreshTTLDays: 7}
}

func TestRefreshRotatesToken(t *testing.T) {
	now := time.Now()
	db, mock := newMockDB(t)
	oldHash := utils.HashRefreshRaw("old-raw")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=? LIMIT 1 FOR UPDATE")).WithArgs(oldHash).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).AddRow("U1", now.Add(time.Hour), nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=?")).WithArgs(oldHash).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").WithArgs("U1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).WithArgs("U1").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("U1", "Sam", "sam@example.com", "hash", "STUDENT", true, now, now))

	h := NewAuthHandler(authConfig(), repository.NewUserRepo(db), repository.NewTokenRepo(db), nil)
	rec := call(h.Refresh, http.MethodPost, `{"refresh_token":"old-raw"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Refresh.Token, 96)
	assert.NotEqual(t, "old-raw", got.Refresh.Token)
	claims, err := utils.ParseAccessToken("s", got.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, "U1", claims.UserID)
	assert.Equal(t, "STUDENT", claims.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	now := time.Now()
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=?")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).AddRow("U1", now.Add(time.Hour), now))
	mock.ExpectRollback()

	h := NewAuthHandler(authConfig(), repository.NewUserRepo(db), repository.NewTokenRepo(db), nil)
	rec := call(h.Refresh, http.MethodPost, `{"refresh_token":"old-raw"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, http.StatusBadRequest, call(h.Refresh, http.MethodPost, `{}`, "").Code)
}

func TestRefreshAccessKeepsRefreshToken(t *testing.T) {
	now := time.Now()
	db, mock := newMockDB(t)
	tokenCols := []string{"user_id", "expires_at", "revoked_at"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=? LIMIT 1")).
		WithArgs(utils.HashRefreshRaw("live")).
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow("F1", now.Add(time.Hour), nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).WithArgs("F1").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("F1", "Dr. Ada", "ada@uni.edu", "hash", "FACULTY", true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=? LIMIT 1")).
		WithArgs(utils.HashRefreshRaw("stale")).
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow("F1", now.Add(-time.Hour), nil))

	h := NewAuthHandler(authConfig(), repository.NewUserRepo(db), repository.NewTokenRepo(db), nil)
	rec := call(h.RefreshAccess, http.MethodPost, `{"refresh_token":"live"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		Access  tokenPart  `json:"access"`
		Refresh *tokenPart `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Nil(t, got.Refresh)
	claims, err := utils.ParseAccessToken("s", got.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, "FACULTY", claims.Role)

	assert.Equal(t, http.StatusUnauthorized, call(h.RefreshAccess, http.MethodPost, `{"refresh_token":"stale"}`, "").Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
