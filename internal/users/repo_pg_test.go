package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateStoresNonAdminProfile(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("user-1", "a@example.com", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), User{ID: "user-1", Email: StringPtr("a@example.com")}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateConflict(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("user-1", nil, false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Create(context.Background(), User{ID: "user-1"}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestPGRepoGetByIDHandlesNullEmail(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, email, is_admin, created_at").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "is_admin", "created_at"}).
			AddRow("user-1", nil, true, created))

	user, err := repo.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.Email != nil || !user.IsAdmin || !user.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT id, email, is_admin, created_at").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "is_admin", "created_at"}))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoList(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, email, is_admin, created_at FROM users ORDER BY created_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "is_admin", "created_at"}).
			AddRow("u1", "one@example.com", true, now).
			AddRow("u2", "two@example.com", false, now))

	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].EmailOrEmpty() != "one@example.com" || list[1].IsAdmin {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestPGRepoDeleteMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM users").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoLifecycle(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	if err := repo.Create(ctx, User{ID: "u1", Email: StringPtr("a@example.com")}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, User{ID: "u1"}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if err := repo.SetAdmin("u1", true); err != nil {
		t.Fatalf("SetAdmin: %v", err)
	}
	got, err := repo.GetByID(ctx, "u1")
	if err != nil || !got.IsAdmin {
		t.Fatalf("expected admin profile, got %+v err=%v", got, err)
	}
	if err := repo.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
