package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeBadRequest, status: http.StatusBadRequest, publicMsg: "bad request", detailsOK: true},
		{code: CodeInvalidInput, status: http.StatusBadRequest, publicMsg: "invalid input", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeInvalidTransition, status: http.StatusConflict, publicMsg: "status transition not allowed", detailsOK: true},
		{code: CodeAlreadyClaimed, status: http.StatusBadRequest, publicMsg: "conversation already taken over", detailsOK: true},
		{code: CodeAlreadyBot, status: http.StatusBadRequest, publicMsg: "conversation already handled by the bot", detailsOK: true},
		{code: CodeUpstream, status: http.StatusInternalServerError, publicMsg: "upstream service failed", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeBadRequest, "missing foo")
	if base.Code() != CodeBadRequest {
		t.Fatalf("expected bad request code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeUpstream, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeUpstream {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeAlreadyClaimed, "taken"))
	if !IsCode(err, CodeAlreadyClaimed) {
		t.Fatalf("expected wrapped code to be detected")
	}
	if IsCode(err, CodeAlreadyBot) {
		t.Fatalf("unexpected code match")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("untyped errors carry no code")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeUpstream, stdErrors.New("connection refused"), "load order")
	dump := Dump(err)
	if dump.Code != CodeUpstream {
		t.Fatalf("expected upstream code, got %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", dump.Chain)
	}
}

func TestDumpExtractsPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "conversations_numero_cliente_key", TableName: "conversations"}
	dump := Dump(Wrap(CodeUpstream, fmt.Errorf("insert conversation: %w", pgErr), "ingest"))
	if dump.Driver != "pgx" || dump.DBCode != "23505" {
		t.Fatalf("unexpected driver details %+v", dump)
	}
	fields := dump.Fields()
	if fields["db_constraint"] != "conversations_numero_cliente_key" {
		t.Fatalf("expected constraint field, got %v", fields)
	}
	if _, ok := fields["db_column"]; ok {
		t.Fatalf("empty driver values should be skipped")
	}
}

func TestDumpExtractsSQLiteDetails(t *testing.T) {
	liteErr := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}
	dump := Dump(fmt.Errorf("insert order: %w", liteErr))
	if dump.Driver != "sqlite3" {
		t.Fatalf("expected sqlite3 driver, got %q", dump.Driver)
	}
	if dump.DBCode != "19/2067" {
		t.Fatalf("unexpected sqlite code %q", dump.DBCode)
	}
}
