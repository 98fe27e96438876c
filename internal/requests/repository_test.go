package requests_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/requests"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/pagination"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/storage"
)

var columns = []string{
	"id", "offer_number", "email_id", "sender", "subject", "company_name",
	"customer_number", "customer_name", "lines", "pricing_summary", "total_amount", "created_at",
}

func snapshot() requests.OfferRequest {
	return requests.OfferRequest{
		OfferNumber:    "OF-1001",
		EmailID:        "msg-1",
		Sender:         "buyer@acme.fi",
		CompanyName:    "Acme Oy",
		CustomerNumber: "1001",
		CustomerName:   "Acme Oy",
		Lines: []requests.Line{
			{Position: 1, Term: "copper pipe 15mm", ProductCode: "A-15", Quantity: decimal.NewFromInt(10)},
		},
		TotalAmount: decimal.RequireFromString("42.50"),
		CreatedAt:   time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}
}

func TestPersist(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	archive := storage.NewMemory()
	sys := requests.New(db, archive, slog.Default())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO offer_requests").
		WithArgs(sqlmock.AnyArg(), "OF-1001", "msg-1", "buyer@acme.fi", "", "Acme Oy",
			"1001", "Acme Oy", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	snap := snapshot()
	if err := sys.Persist(context.Background(), snap); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}

	key := requests.ArchiveKey(snap)
	if key != "offer-requests/OF-1001/20260304T050607Z.json" {
		t.Errorf("archive key = %s", key)
	}
	body, err := storage.ReadString(context.Background(), archive, key)
	if err != nil || body == "" {
		t.Errorf("archive copy missing: %q %v", body, err)
	}
}

func TestPersistErrors(t *testing.T) {
	t.Run("missing offer number", func(t *testing.T) {
		db, _, _ := sqlmock.New()
		defer db.Close()

		err := requests.New(db, nil, slog.Default()).Persist(context.Background(), requests.OfferRequest{})
		if !errors.Is(err, requests.ErrMissingOffer) {
			t.Errorf("err = %v, want ErrMissingOffer", err)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		db, mock, _ := sqlmock.New()
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO offer_requests").WillReturnError(&pgconn.PgError{Code: "23505"})
		mock.ExpectRollback()

		err := requests.New(db, nil, slog.Default()).Persist(context.Background(), snapshot())
		if !errors.Is(err, requests.ErrDuplicate) {
			t.Errorf("err = %v, want ErrDuplicate", err)
		}
	})
}

func TestLatestSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	created := since.Add(24 * time.Hour)

	rows := sqlmock.NewRows(columns).
		AddRow(uuid.New().String(), "OF-1", "m1", "a@x.fi", "quote", "Acme Oy", "1001", "Acme Oy",
			[]byte(`[{"position":1,"term":"pipe","product_code":"A","quantity":"2"}]`), []byte(`[]`), "10.00", created).
		AddRow(uuid.New().String(), "OF-2", "m2", "b@x.fi", "quote", "Beta Ab", "1002", "Beta Ab",
			[]byte(`[]`), nil, "0", created)

	mock.ExpectQuery("SELECT DISTINCT ON").WithArgs(since).WillReturnRows(rows)

	got, err := requests.New(db, nil, slog.Default()).LatestSince(context.Background(), since)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(got))
	}
	if got[0].OfferNumber != "OF-1" || len(got[0].Lines) != 1 || !got[0].Lines[0].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("first snapshot = %+v", got[0])
	}
	if !got[0].TotalAmount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("total = %s", got[0].TotalAmount)
	}
}

func TestHistoryNotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery("FROM public.offer_requests r WHERE r.offer_number = \\$1").
		WithArgs("OF-404").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := requests.New(db, nil, slog.Default()).History(context.Background(), "OF-404")
	if !errors.Is(err, requests.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").WithArgs("1001").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("LIMIT 20 OFFSET 0").WithArgs("1001").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			uuid.New().String(), "OF-1", "m1", "a@x.fi", "quote", "Acme Oy", "1001", "Acme Oy",
			[]byte(`[]`), []byte(`[]`), "0", time.Now()))

	page := pagination.Request{Page: 1, Size: 20}
	got, err := requests.New(db, nil, slog.Default()).List(context.Background(), page, "1001")
	if err != nil {
		t.Fatal(err)
	}
	if got.Total != 1 || len(got.Data) != 1 || got.TotalPages != 1 {
		t.Errorf("result = %+v", got)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{requests.ErrNotFound, 404},
		{requests.ErrDuplicate, 409},
		{requests.ErrMissingOffer, 400},
		{errors.New("x"), 500},
	}
	for _, tt := range tests {
		if got := requests.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
