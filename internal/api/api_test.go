package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"flowtrack/internal/model"
	"flowtrack/internal/repository"
	"flowtrack/internal/service"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "api_test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	taskRepo := repository.NewTaskRepository(db)
	subtaskRepo := repository.NewSubtaskRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	timerRepo := repository.NewTimerRepository(db)

	progressSvc := service.NewProgressService(progressRepo)
	recurrenceSvc := service.NewRecurrenceService(taskRepo, subtaskRepo)
	taskSvc := service.NewTaskService(db, taskRepo, subtaskRepo, progressSvc, recurrenceSvc)
	timerSvc := service.NewTimerService(timerRepo, taskSvc)

	return SetupRouter(NewHandler(taskSvc, progressSvc, recurrenceSvc, timerSvc))
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/users/u1/tasks", gin.H{
		"title":        "ship release",
		"workspace_id": "ws1",
		"priority":     "high",
		"subtasks":     []string{"tag", "publish"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var task model.Task
	decode(t, w, &task)
	if task.ID == "" || len(task.Subtasks) != 2 {
		t.Fatalf("unexpected task: %+v", task)
	}

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tasks/%s/toggle", task.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("toggle status = %d, body %s", w.Code, w.Body.String())
	}
	var result service.ToggleResult
	decode(t, w, &result)
	if result.XPEarned != 20 {
		t.Errorf("xp = %d, want 20 (high priority, no completed subtasks)", result.XPEarned)
	}

	w = doJSON(t, router, http.MethodGet, "/api/users/u1/progress", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("progress status = %d", w.Code)
	}
	var bundle service.Bundle
	decode(t, w, &bundle)
	if bundle.Progress.TotalXP != 20 || bundle.Streak != 1 {
		t.Errorf("bundle = xp %d streak %d, want 20 / 1", bundle.Progress.TotalXP, bundle.Streak)
	}
}

func TestWorkspaceListingHidesTemplates(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/users/u1/tasks", gin.H{
		"title":        "standup notes",
		"workspace_id": "ws1",
		"is_recurring": true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/workspaces/ws1/tasks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var tasks []model.Task
	decode(t, w, &tasks)
	if len(tasks) != 1 {
		t.Fatalf("visible tasks = %d, want only the occurrence", len(tasks))
	}
	if tasks[0].OriginalTaskID == nil {
		t.Error("listed task should be the dated occurrence, not the template")
	}
}

func TestMissingTaskReturns404(t *testing.T) {
	router := setupRouter(t)
	w := doJSON(t, router, http.MethodGet, "/api/tasks/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestIllegalTransitionReturns400(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/users/u1/tasks", gin.H{
		"title":        "parked",
		"workspace_id": "ws1",
	})
	var task model.Task
	decode(t, w, &task)

	if w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tasks/%s/archive", task.ID), nil); w.Code != http.StatusNoContent {
		t.Fatalf("archive status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/tasks/%s/status", task.ID), gin.H{"status": "done"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for archived -> done", w.Code)
	}
}
