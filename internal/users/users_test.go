package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/robalobadob/countryle/internal/database"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(context.Background(), database.MemoryDSN, zerolog.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		user, pass string
		ok         bool
	}{
		{"ana_99", "longenough", true},
		{"ab", "longenough", false},
		{"has space", "longenough", false},
		{"ana", "short", false},
	}
	for _, tc := range cases {
		err := Validate(tc.user, tc.pass)
		if (err == nil) != tc.ok {
			t.Errorf("Validate(%q, %q) = %v", tc.user, tc.pass, err)
		}
		var ve *ValidationError
		if err != nil && !errors.As(err, &ve) {
			t.Errorf("expected ValidationError, got %T", err)
		}
	}
}

func TestCreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	u, err := st.Create(ctx, "  Explorer ", "passport123")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Username != "Explorer" || u.ID == "" || u.PasswordHash == "passport123" {
		t.Fatalf("user = %+v", u)
	}

	if _, err := st.Create(ctx, "explorer", "another123"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	got, err := st.Authenticate(ctx, "EXPLORER", "passport123")
	if err != nil || got.ID != u.ID {
		t.Fatalf("Authenticate = %+v, %v", got, err)
	}
	if _, err := st.Authenticate(ctx, "explorer", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := st.Authenticate(ctx, "nobody", "passport123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}

	byID, err := st.ByID(ctx, u.ID)
	if err != nil || byID.Username != "Explorer" {
		t.Fatalf("ByID = %+v, %v", byID, err)
	}
	if _, err := st.ByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	u, err := st.Create(ctx, "cartographer", "passport123")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.DisplayName != "" {
		t.Fatalf("new user display name = %q", u.DisplayName)
	}

	got, err := st.UpdateProfile(ctx, u.ID, "  Mercator ")
	if err != nil || got.DisplayName != "Mercator" || got.Username != "cartographer" {
		t.Fatalf("UpdateProfile = %+v, %v", got, err)
	}
	if byName, _ := st.ByUsername(ctx, "cartographer"); byName.DisplayName != "Mercator" {
		t.Fatalf("stored display name = %q", byName.DisplayName)
	}

	for _, bad := range []string{strings.Repeat("é", MaxDisplayName+1), "tab\there"} {
		var ve *ValidationError
		if _, err := st.UpdateProfile(ctx, u.ID, bad); !errors.As(err, &ve) {
			t.Errorf("UpdateProfile(%q): expected ValidationError, got %v", bad, err)
		}
	}
	if _, err := st.UpdateProfile(ctx, u.ID, strings.Repeat("é", MaxDisplayName)); err != nil {
		t.Fatalf("longest name: %v", err)
	}

	cleared, err := st.UpdateProfile(ctx, u.ID, "   ")
	if err != nil || cleared.DisplayName != "" {
		t.Fatalf("clear = %+v, %v", cleared, err)
	}
	if _, err := st.UpdateProfile(ctx, "missing", "Nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
