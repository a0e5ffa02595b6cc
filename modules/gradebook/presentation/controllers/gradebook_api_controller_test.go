package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/assignment"
	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/book"
	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/grade"
	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/student"
	"github.com/overunder/overunder/modules/gradebook/services"
	"github.com/overunder/overunder/pkg/application"
	"github.com/overunder/overunder/pkg/eventbus"
)

type fakeRepo struct {
	book  *book.Book
	saves int
}

func (r *fakeRepo) Load(context.Context) (*book.Book, error) { return r.book, nil }

func (r *fakeRepo) Save(context.Context, *book.Book) error {
	r.saves++
	return nil
}

func (r *fakeRepo) Backup(context.Context, *book.Book) (string, error) {
	return "grades.csv.20260824120000.bak", nil
}

func buildBook(t *testing.T) *book.Book {
	t.Helper()
	course, err := assignment.New("CS101", "100%", false)
	require.NoError(t, err)
	homeworks, err := assignment.New("Homeworks", "100%", false)
	require.NoError(t, err)
	hw1, err := assignment.New("HW1", "10", false)
	require.NoError(t, err)
	hw2, err := assignment.New("HW2", "10", false)
	require.NoError(t, err)
	course.AddChild(homeworks)
	homeworks.AddChild(hw1)
	homeworks.AddChild(hw2)

	b := book.New(course)
	s, err := student.Parse("Lovelace, Ada <ada@example.edu>")
	require.NoError(t, err)
	var stack []*grade.Grade
	for _, a := range course.Traversal() {
		g, err := grade.New(a, "None")
		require.NoError(t, err)
		stack = stack[:a.Depth()]
		if len(stack) > 0 {
			stack[len(stack)-1].AddChild(g)
		}
		stack = append(stack, g)
	}
	require.NoError(t, b.Enroll(s, stack[0]))
	return b
}

func setupController(t *testing.T) (*mux.Router, *fakeRepo) {
	t.Helper()
	t.Setenv("LOG_PATH", filepath.Join(t.TempDir(), "app.log"))

	repo := &fakeRepo{book: buildBook(t)}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	bus := eventbus.NewEventPublisher(log)
	svc := services.NewGradebookService(repo, bus, log)
	require.NoError(t, svc.Load(context.Background()))

	app := application.New(&application.ApplicationOptions{EventBus: bus, Logger: log})
	app.RegisterServices(svc)

	router := mux.NewRouter()
	NewGradebookAPIController(app).Register(router)
	return router, repo
}

func postJSON(t *testing.T, router *mux.Router, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSaveScoreEndpoint(t *testing.T) {
	router, repo := setupController(t)

	before := testutil.ToFloat64(gradebookAPIRequests.WithLabelValues("save_score", "2xx"))
	rec := postJSON(t, router, "/save_score", map[string]string{
		"alias": "ada", "assignment": "CS101__Homeworks__HW1", "value": "9",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, repo.saves)

	var cascade [][2]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cascade))
	require.Equal(t, [][2]string{
		{"ada__CS101__Homeworks", "90.00%"},
		{"ada__CS101", "90.00%"},
	}, cascade)

	after := testutil.ToFloat64(gradebookAPIRequests.WithLabelValues("save_score", "2xx"))
	require.Equal(t, before+1, after)
}

func TestSaveScoreEndpointErrors(t *testing.T) {
	router, repo := setupController(t)

	rec := postJSON(t, router, "/save_score", map[string]string{
		"alias": "nobody", "assignment": "CS101__Homeworks__HW1", "value": "9",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = postJSON(t, router, "/save_score", map[string]string{
		"alias": "ada", "assignment": "CS101__Homeworks__HW1", "value": "garbage",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Zero(t, repo.saves)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	require.Equal(t, "GRADEBOOK_INVALID_SCORE", apiErr.Code)
	require.NotEmpty(t, apiErr.Meta["request_id"])
}

func TestUpdateScoreEndpoint(t *testing.T) {
	router, repo := setupController(t)

	rec := postJSON(t, router, "/update_score", map[string]string{
		"alias": "ada", "assignment": "CS101__Homeworks__HW1", "value": "9",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, repo.saves, "update_score must not write the file")

	var updates []services.ScoreUpdate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updates))
	require.Len(t, updates, 3)
	require.Equal(t, "ada__CS101__Homeworks__HW1", updates[0].TargetID)
	require.Equal(t, "9", updates[0].Display)
	require.NotEmpty(t, updates[0].Color)
}

func TestUpdateScoreEndpointUnchanged(t *testing.T) {
	router, _ := setupController(t)

	rec := postJSON(t, router, "/update_score", map[string]string{
		"alias": "ada", "assignment": "CS101__Homeworks__HW2", "value": "None",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestUpdateScoreEndpointRejectsLetters(t *testing.T) {
	router, _ := setupController(t)

	rec := postJSON(t, router, "/update_score", map[string]string{
		"alias": "ada", "assignment": "CS101__Homeworks__HW1", "value": "B+",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCreateChildEndpoint(t *testing.T) {
	router, _ := setupController(t)

	body, err := json.Marshal(map[string]string{
		"qualified_name": "CS101__Homeworks__HW3", "weight_str": "10",
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/create-child", strings.NewReader(string(body)))
	req.Header.Set("Referer", "/assignments-students/all/all/")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/assignments-students/all/all/", rec.Header().Get("Location"))
}

func TestCreateChildEndpointValidation(t *testing.T) {
	router, _ := setupController(t)

	rec := postJSON(t, router, "/create-child", map[string]string{
		"qualified_name": "   ", "weight_str": "10",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, router, "/create-child", map[string]string{
		"qualified_name": "Missing__Parent__HW9", "weight_str": "10",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTreeEndpointsRedirectBack(t *testing.T) {
	router, repo := setupController(t)

	for _, path := range []string{
		"/move-up/CS101__Homeworks__HW2",
		"/move-down/CS101__Homeworks__HW1",
		"/delete/CS101__Homeworks__HW2",
		"/save",
		"/reload",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Referer", "/assignments-students/all/all/")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusSeeOther, rec.Code, path)
	}
	require.Equal(t, 1, repo.saves, "only /save writes the file")
}

func TestTableEndpoint(t *testing.T) {
	router, _ := setupController(t)

	req := httptest.NewRequest(http.MethodGet, "/assignments-students/all/all/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var table struct {
		Headers []struct {
			QualifiedName string `json:"qualifiedName"`
		} `json:"headers"`
		Rows []struct {
			Alias string `json:"alias"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
	require.Len(t, table.Headers, 4)
	require.Len(t, table.Rows, 1)
	require.Equal(t, "ada", table.Rows[0].Alias)

	req = httptest.NewRequest(http.MethodGet, "/assignments-students/Underwater/all/", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndexRedirect(t *testing.T) {
	router, _ := setupController(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/assignments-students/all/all/", rec.Header().Get("Location"))
}
