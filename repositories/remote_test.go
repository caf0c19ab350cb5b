package repositories

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dosada05/club-coordinator/backend"
	"github.com/Dosada05/club-coordinator/models"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := backend.New(backend.Config{BaseURL: srv.URL + "/"}, srv.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}
	return c
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestCaptainWritesSettleOnAny2xx(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"ok with json", http.StatusOK, `{"idCapitanActividad":77,"idEventoActividad":501,"idUsuario":3}`, false},
		{"created empty", http.StatusCreated, ``, false},
		{"no content", http.StatusNoContent, ``, false},
		{"ok with text", http.StatusOK, `Capitán creado`, false},
		{"bad request", http.StatusBadRequest, `{"message":"Datos inválidos"}`, true},
		{"server error", http.StatusInternalServerError, ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewRemoteCaptainRepository(newTestBackend(t, respond(tt.status, tt.body)))
			ctx := context.Background()
			c := models.Captaincy{ID: 77, EventActivityID: 501, UserID: 3}

			_, createErr := repo.Create(ctx, c)
			_, updateErr := repo.Update(ctx, c)
			deleteErr := repo.Delete(ctx, 77)

			for op, err := range map[string]error{"create": createErr, "update": updateErr, "delete": deleteErr} {
				if (err != nil) != tt.wantErr {
					t.Errorf("%s error = %v, wantErr %v", op, err, tt.wantErr)
				}
			}
		})
	}
}

func TestCaptainWriteNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(respond(http.StatusOK, ``))
	c, err := backend.New(backend.Config{BaseURL: srv.URL + "/"}, srv.Client(), nil)
	if err != nil {
		t.Fatal(err)
	}
	srv.Close()

	repo := NewRemoteCaptainRepository(c)
	_, err = repo.Create(context.Background(), models.Captaincy{EventActivityID: 501, UserID: 3})
	if err == nil {
		t.Fatal("Create() error = nil for an unreachable backend")
	}
	if backend.StatusOf(err) != 0 {
		t.Errorf("status = %d, want 0", backend.StatusOf(err))
	}
}

func TestCaptainCreateKeepsIDFromBody(t *testing.T) {
	repo := NewRemoteCaptainRepository(newTestBackend(t, respond(http.StatusOK, `{"idCapitanActividad":91,"idEventoActividad":501,"idUsuario":3}`)))

	created, err := repo.Create(context.Background(), models.Captaincy{EventActivityID: 501, UserID: 3})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID != 91 {
		t.Errorf("ID = %d, want 91", created.ID)
	}
}

func TestFindCaptainAbsent(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, ``},
		{"no content", http.StatusNoContent, ``},
		{"empty object", http.StatusOK, `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewRemoteCaptainRepository(newTestBackend(t, respond(tt.status, tt.body)))
			user, err := repo.FindByEventActivity(context.Background(), 501)
			if err != nil || user != nil {
				t.Errorf("FindByEventActivity() = %+v, %v", user, err)
			}
		})
	}
}

func TestFindCaptainError(t *testing.T) {
	repo := NewRemoteCaptainRepository(newTestBackend(t, respond(http.StatusInternalServerError, ``)))
	if _, err := repo.FindByUser(context.Background(), 3); backend.StatusOf(err) != http.StatusInternalServerError {
		t.Errorf("FindByUser() error = %v", err)
	}
}

func TestListTeamsEmptyOnAbsent(t *testing.T) {
	var gotPath string
	repo := NewRemoteTeamRepository(newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNotFound)
	}))

	teams, err := repo.ListByActivityEvent(context.Background(), 100, 5)
	if err != nil || teams == nil || len(teams) != 0 {
		t.Errorf("ListByActivityEvent() = %v, %v", teams, err)
	}
	if gotPath != "/api/Equipos/EquiposActividadEvento/100/5" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestAddMemberKeepsStatus(t *testing.T) {
	var gotPath string
	repo := NewRemoteTeamRepository(newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusConflict)
	}))

	err := repo.AddMember(context.Background(), models.MemberRoleStudent, models.TeamMember{TeamID: 7, UserID: 42})
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Errorf("AddMember() error = %v", err)
	}
	if gotPath != "/api/MiembroEquipos/create/ALUMNO" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestMatchResultDeleteNoContent(t *testing.T) {
	var gotMethod, gotPath string
	repo := NewRemoteMatchResultRepository(newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := repo.Delete(context.Background(), 9); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/PartidoResultado/9" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
}
