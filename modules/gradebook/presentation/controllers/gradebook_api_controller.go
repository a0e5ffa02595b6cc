package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/assignment"
	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/book"
	"github.com/overunder/overunder/modules/gradebook/presentation/mappers"
	"github.com/overunder/overunder/modules/gradebook/services"
	"github.com/overunder/overunder/pkg/application"
	"github.com/overunder/overunder/pkg/composables"
	"github.com/overunder/overunder/pkg/editsync"
)

type GradebookAPIController struct {
	app       application.Application
	gradebook *services.GradebookService
}

func NewGradebookAPIController(app application.Application) application.Controller {
	return &GradebookAPIController{
		app:       app,
		gradebook: app.Service(services.GradebookService{}).(*services.GradebookService),
	}
}

func (c *GradebookAPIController) Key() string {
	return "/gradebook"
}

func (c *GradebookAPIController) Register(r *mux.Router) {
	r.HandleFunc("/", c.Index).Methods(http.MethodGet)
	r.HandleFunc("/assignments-students/{assignmentFilter}/{studentFilter}/",
		c.instrumentAPI("table", c.AssignmentsStudents)).Methods(http.MethodGet)
	r.HandleFunc("/students-assignments/{studentFilter}/{assignmentFilter}/",
		c.instrumentAPI("table", c.StudentsAssignments)).Methods(http.MethodGet)

	r.HandleFunc("/save_score", c.instrumentAPI("save_score", c.SaveScore)).Methods(http.MethodPost)
	r.HandleFunc("/update_score", c.instrumentAPI("update_score", c.UpdateScore)).Methods(http.MethodPost)
	r.HandleFunc("/create-child", c.instrumentAPI("create_child", c.CreateChild)).Methods(http.MethodPost)

	r.HandleFunc("/move-up/{qualifiedName}", c.instrumentAPI("move_up", c.MoveUp)).Methods(http.MethodGet)
	r.HandleFunc("/move-down/{qualifiedName}", c.instrumentAPI("move_down", c.MoveDown)).Methods(http.MethodGet)
	r.HandleFunc("/delete/{qualifiedName}", c.instrumentAPI("delete", c.Delete)).Methods(http.MethodGet)
	r.HandleFunc("/save", c.instrumentAPI("save", c.Save)).Methods(http.MethodGet)
	r.HandleFunc("/reload", c.instrumentAPI("reload", c.Reload)).Methods(http.MethodGet)
}

func (c *GradebookAPIController) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/assignments-students/all/all/", http.StatusSeeOther)
}

func (c *GradebookAPIController) AssignmentsStudents(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	c.writeTable(w, r, vars["assignmentFilter"], vars["studentFilter"])
}

func (c *GradebookAPIController) StudentsAssignments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	c.writeTable(w, r, vars["assignmentFilter"], vars["studentFilter"])
}

func (c *GradebookAPIController) writeTable(w http.ResponseWriter, r *http.Request, assignmentFilter, studentFilter string) {
	var table any
	err := c.gradebook.WithBook(func(b *book.Book) error {
		t, err := mappers.BookToTable(b, assignmentFilter, studentFilter)
		if err != nil {
			return err
		}
		table = t
		return nil
	})
	if err != nil {
		writeAPIError(w, r, http.StatusNotFound, "GRADEBOOK_NOT_FOUND", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, table)
}

type scoreRequest struct {
	Alias      string `json:"alias"`
	Assignment string `json:"assignment"`
	Value      string `json:"value"`
}

// SaveScore sets a cell and writes the file through. The response is the
// cascade of (element id, display) pairs for the cell's ancestors.
func (c *GradebookAPIController) SaveScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "GRADEBOOK_INVALID_JSON", "invalid json")
		return
	}

	updates, err := c.gradebook.SaveScore(r.Context(), req.Alias, req.Assignment, req.Value)
	if err != nil {
		c.writeScoreError(w, r, err)
		return
	}

	cascade := make(editsync.Cascade, 0, len(updates))
	for _, u := range updates {
		cascade = append(cascade, editsync.CascadeEntry{Target: u.TargetID, Value: u.Display})
	}
	writeJSON(w, http.StatusOK, cascade)
}

// UpdateScore sets a cell in memory only and returns the full rerender
// records, the edited cell first. An unchanged value yields an empty list.
func (c *GradebookAPIController) UpdateScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "GRADEBOOK_INVALID_JSON", "invalid json")
		return
	}

	updates, changed, err := c.gradebook.UpdateScore(r.Context(), req.Alias, req.Assignment, req.Value)
	if err != nil {
		c.writeScoreError(w, r, err)
		return
	}
	if !changed {
		writeJSON(w, http.StatusOK, []services.ScoreUpdate{})
		return
	}
	writeJSON(w, http.StatusOK, updates)
}

func (c *GradebookAPIController) writeScoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, book.ErrUnknownStudent), errors.Is(err, assignment.ErrNotFound):
		writeAPIError(w, r, http.StatusNotFound, "GRADEBOOK_NOT_FOUND", err.Error())
	case errors.Is(err, services.ErrInvalidScore):
		writeAPIError(w, r, http.StatusInternalServerError, "GRADEBOOK_INVALID_SCORE", err.Error())
	default:
		composables.UseLogger(r.Context()).WithError(err).Error("score edit failed")
		writeAPIError(w, r, http.StatusInternalServerError, "GRADEBOOK_INTERNAL", "internal error")
	}
}

type createChildRequest struct {
	QualifiedName string `json:"qualified_name"`
	WeightSpec    string `json:"weight_str"`
}

func (c *GradebookAPIController) CreateChild(w http.ResponseWriter, r *http.Request) {
	var req createChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "GRADEBOOK_INVALID_JSON", "invalid json")
		return
	}

	qualifiedName := strings.TrimSpace(req.QualifiedName)
	weightSpec := strings.TrimSpace(req.WeightSpec)
	if qualifiedName == "" || weightSpec == "" {
		writeAPIError(w, r, http.StatusBadRequest, "GRADEBOOK_VALIDATION_FAILED", "qualified_name and weight_str are required")
		return
	}

	if err := c.gradebook.AddAssignment(r.Context(), qualifiedName, weightSpec); err != nil {
		if errors.Is(err, assignment.ErrNotFound) {
			writeAPIError(w, r, http.StatusNotFound, "GRADEBOOK_NOT_FOUND", err.Error())
			return
		}
		writeAPIError(w, r, http.StatusInternalServerError, "GRADEBOOK_INTERNAL", "internal error")
		return
	}
	redirectBack(w, r)
}

func (c *GradebookAPIController) MoveUp(w http.ResponseWriter, r *http.Request) {
	c.treeOp(w, r, c.gradebook.MoveAssignmentUp)
}

func (c *GradebookAPIController) MoveDown(w http.ResponseWriter, r *http.Request) {
	c.treeOp(w, r, c.gradebook.MoveAssignmentDown)
}

func (c *GradebookAPIController) Delete(w http.ResponseWriter, r *http.Request) {
	c.treeOp(w, r, c.gradebook.RemoveAssignment)
}

func (c *GradebookAPIController) treeOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, qualifiedName string) error) {
	qualifiedName := mux.Vars(r)["qualifiedName"]
	if err := op(r.Context(), qualifiedName); err != nil {
		if errors.Is(err, assignment.ErrNotFound) {
			writeAPIError(w, r, http.StatusNotFound, "GRADEBOOK_NOT_FOUND", err.Error())
			return
		}
		writeAPIError(w, r, http.StatusInternalServerError, "GRADEBOOK_INTERNAL", "internal error")
		return
	}
	redirectBack(w, r)
}

func (c *GradebookAPIController) Save(w http.ResponseWriter, r *http.Request) {
	if err := c.gradebook.Save(r.Context()); err != nil {
		writeAPIError(w, r, http.StatusInternalServerError, "GRADEBOOK_INTERNAL", "internal error")
		return
	}
	redirectBack(w, r)
}

func (c *GradebookAPIController) Reload(w http.ResponseWriter, r *http.Request) {
	if err := c.gradebook.Reload(r.Context()); err != nil {
		writeAPIError(w, r, http.StatusInternalServerError, "GRADEBOOK_INTERNAL", "internal error")
		return
	}
	redirectBack(w, r)
}
