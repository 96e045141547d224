package catalog

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestErrorConstructors(t *testing.T) {
	nf := NotFound("brand %s not found", "x")
	require.Equal(t, ErrCodeNotFound, nf.Code)
	require.Equal(t, "brand x not found", nf.Error())

	in := Internal("lookup failed", errors.New("boom"))
	require.Equal(t, ErrCodeInternal, in.Code)
	require.Equal(t, "lookup failed: boom", in.Error())
	require.EqualError(t, errors.Unwrap(in), "boom")
}

func TestErrorWithDetail(t *testing.T) {
	err := Conflict("identity collision").
		WithDetail("collisions", []string{"a", "b"}).
		WithDetail("field", "sku")

	require.Equal(t, []string{"a", "b"}, err.Details["collisions"])
	require.Equal(t, "sku", err.Details["field"])
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("gone"), http.StatusNotFound},
		{"conflict", Conflict("taken"), http.StatusConflict},
		{"bad request", BadRequest("nope"), http.StatusBadRequest},
		{"internal", Internal("broken", nil), http.StatusInternalServerError},
		{"untyped", errors.New("anything"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("tx: %w", NotFound("gone")), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestAsError_UntypedBecomesInternal(t *testing.T) {
	e := AsError(errors.New("boom"))
	require.Equal(t, ErrCodeInternal, e.Code)
	require.EqualError(t, errors.Unwrap(e), "boom")
}

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "uq_products_sku"}

	require.True(t, IsUniqueViolation(unique))
	require.True(t, IsUniqueViolation(fmt.Errorf("create: %w", unique)))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "40001"}))
	require.False(t, IsUniqueViolation(errors.New("duplicate key value")))
	require.False(t, IsUniqueViolation(nil))
}

func TestUniqueScope(t *testing.T) {
	require.Equal(t, "product SKU",
		UniqueScope(&pgconn.PgError{Code: "23505", ConstraintName: "uq_products_sku"}))
	require.Equal(t, "brand name within manufacturer",
		UniqueScope(&pgconn.PgError{Code: "23505", ConstraintName: "uq_brands_name"}))
	// constraints outside the catalog map pass through by name
	require.Equal(t, "some_other_index",
		UniqueScope(&pgconn.PgError{Code: "23505", ConstraintName: "some_other_index"}))
	require.Equal(t, "", UniqueScope(errors.New("not a pg error")))
}
