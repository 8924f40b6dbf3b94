package users

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripmarket-backend/pkg/db/dbtest"
)

func TestFindByID(t *testing.T) {
	db := dbtest.Open(t)
	seeded := dbtest.SeedUser(t, db)
	repo := NewRepository(db)

	user, err := repo.FindByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if user.Email != seeded.Email {
		t.Fatalf("unexpected email %q", user.Email)
	}
	if dto := FromModel(user); dto.Nickname != seeded.Nickname {
		t.Fatalf("dto mismatch %+v", dto)
	}

	_, err = repo.FindByID(context.Background(), uuid.New())
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestExists(t *testing.T) {
	db := dbtest.Open(t)
	seeded := dbtest.SeedUser(t, db)
	repo := NewRepository(db)

	ok, err := repo.Exists(context.Background(), seeded.ID)
	if err != nil || !ok {
		t.Fatalf("expected user to exist, ok=%v err=%v", ok, err)
	}
	ok, err = repo.Exists(context.Background(), uuid.New())
	if err != nil || ok {
		t.Fatalf("expected unknown user, ok=%v err=%v", ok, err)
	}
}
