package user

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/fitcoach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fitcoach-backend/internal/domain"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	created, err := repo.Create(dbc, &types.User{
		Email:        "  UserRepo@Example.com ",
		PasswordHash: "pw",
		FirstName:    "A",
		LastName:     "B",
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Email != "userrepo@example.com" {
		t.Fatalf("Create: email not normalized: %q", created.Email)
	}

	got, err := repo.GetByID(dbc, created.ID)
	if err != nil || got == nil || got.ID != created.ID {
		t.Fatalf("GetByID: got=%+v err=%v", got, err)
	}

	byEmail, err := repo.GetByEmail(dbc, "USERREPO@example.com")
	if err != nil || byEmail == nil || byEmail.ID != created.ID {
		t.Fatalf("GetByEmail: got=%+v err=%v", byEmail, err)
	}

	exists, err := repo.EmailExists(dbc, "nobody@example.com")
	if err != nil {
		t.Fatalf("EmailExists: %v", err)
	}
	if exists {
		t.Fatalf("EmailExists: expected false")
	}

	if err := repo.UpdateName(dbc, created.ID, " C ", "D"); err != nil {
		t.Fatalf("UpdateName: %v", err)
	}
	got, _ = repo.GetByID(dbc, created.ID)
	if got.FirstName != "C" || got.LastName != "D" {
		t.Fatalf("UpdateName: got %q %q", got.FirstName, got.LastName)
	}

	n, err := repo.SoftDelete(dbc, created.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if n != 1 {
		t.Fatalf("SoftDelete: expected 1 row, got %d", n)
	}
	got, err = repo.GetByID(dbc, created.ID)
	if err != nil {
		t.Fatalf("GetByID after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("GetByID after delete: expected nil, got %+v", got)
	}

	n, err = repo.SoftDelete(dbc, created.ID, time.Now().UTC())
	if err != nil || n != 0 {
		t.Fatalf("SoftDelete twice: n=%d err=%v", n, err)
	}
}
