package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/haidarlabs/qanuni-gateway/internal/language"
)

func TestGetOrCreateNewSession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery("INSERT INTO sessions").
		WithArgs(pgxmock.AnyArg(), "+971501234567", "ar", "Aisha").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "address", "state", "locale", "display_name", "context", "linked_account_id", "last_activity_at", "created_at", "created",
		}).AddRow(id, "+971501234567", "active", "ar", "Aisha", []byte(`{}`), nil, now, now, true))

	store := NewStore(mock)
	sess, isNew, err := store.GetOrCreate(context.Background(), "+971501234567", language.LocaleArabic, "Aisha")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !isNew {
		t.Fatal("expected a freshly created session")
	}
	if sess.ID != id || sess.Locale != language.LocaleArabic || sess.State != StateActive {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetOrCreateExistingSessionKeepsLocale(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	now := time.Now()
	account := "acct-7"
	// The row was created as Urdu; the English hint from this contact is
	// ignored because the stored locale is authoritative.
	mock.ExpectQuery("INSERT INTO sessions").
		WithArgs(pgxmock.AnyArg(), "+923001234567", "en", "").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "address", "state", "locale", "display_name", "context", "linked_account_id", "last_activity_at", "created_at", "created",
		}).AddRow(id, "+923001234567", "active", "ur", "Bilal", []byte(`{"topic":"lease"}`), &account, now, now, false))

	store := NewStore(mock)
	sess, isNew, err := store.GetOrCreate(context.Background(), "+923001234567", language.LocaleEnglish, "")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if isNew {
		t.Fatal("expected the existing session")
	}
	if sess.Locale != language.LocaleUrdu {
		t.Fatalf("locale = %q, want stored ur", sess.Locale)
	}
	if sess.Context["topic"] != "lease" {
		t.Fatalf("context not decoded: %v", sess.Context)
	}
	if sess.LinkedAccountID != "acct-7" {
		t.Fatalf("linked account = %q", sess.LinkedAccountID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetOrCreateLosingConcurrentFirstContact(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	// The insert conflicts with a row another request committed mid-flight.
	// The upsert must still hand back that row instead of surfacing no rows.
	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery("INSERT INTO sessions").
		WithArgs(pgxmock.AnyArg(), "+971505555555", "en", "").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "address", "state", "locale", "display_name", "context", "linked_account_id", "last_activity_at", "created_at", "created",
		}).AddRow(id, "+971505555555", "active", "en", "", []byte(`{}`), nil, now, now, false))

	store := NewStore(mock)
	sess, isNew, err := store.GetOrCreate(context.Background(), "+971505555555", language.LocaleEnglish, "")
	if err != nil {
		t.Fatalf("losing racer must still resolve the session: %v", err)
	}
	if isNew {
		t.Fatal("conflicted insert must not report a fresh session")
	}
	if sess.ID != id {
		t.Fatalf("session id = %v, want the committed row %v", sess.ID, id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestTouchWithoutContext(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE sessions SET last_activity_at").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := NewStore(mock)
	if err := store.Touch(context.Background(), id, nil); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestTouchMergesContext(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE sessions").
		WithArgs(id, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := NewStore(mock)
	if err := store.Touch(context.Background(), id, map[string]string{"topic": "visa"}); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT id, address, state, locale").
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "address", "state", "locale", "display_name", "context", "linked_account_id", "last_activity_at", "created_at",
		}).
			AddRow(uuid.New(), "+971501111111", "active", "en", "", []byte(`{}`), nil, now, now).
			AddRow(uuid.New(), "+971502222222", "active", "ar", "Omar", []byte(`{}`), nil, now, now))

	store := NewStore(mock)
	sessions, err := store.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[1].DisplayName != "Omar" {
		t.Fatalf("unexpected session: %+v", sessions[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
