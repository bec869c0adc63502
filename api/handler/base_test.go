package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/repository"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED"},
		{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{domain.ErrInvalidPayload, http.StatusBadRequest, "INVALID"},
		{domain.ErrPostNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.WrapError(domain.ErrCodeConflict, "too soon", domain.ErrDonationTooSoon), http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("load user: %w", domain.ErrUserNotFound), http.StatusNotFound, "NOT_FOUND"},
		{errors.New("dial tcp: refused"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		status, code := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestRespondErrorMasksInternalErrors(t *testing.T) {
	h := newBaseHandler(nil, nil)
	ctx := &fasthttp.RequestCtx{}

	h.respondError(ctx, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, ctx.Response.StatusCode())
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	assert.Equal(t, "internal server error", body["error"])
	assert.Equal(t, "INTERNAL", body["code"])
}

func TestPageParams(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/api/v1/posts?limit=5000&offset=40")
	limit, offset := pageParams(ctx)
	assert.Equal(t, repository.MaxPageSize, limit)
	assert.Equal(t, 40, offset)

	ctx.Request.SetRequestURI("/api/v1/posts?limit=abc")
	limit, offset = pageParams(ctx)
	assert.Zero(t, limit)
	assert.Zero(t, offset)
}

func TestPrincipalWritesUnauthorized(t *testing.T) {
	h := newBaseHandler(nil, nil)
	ctx := &fasthttp.RequestCtx{}

	p, ok := h.principal(ctx)
	assert.Nil(t, p)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, ctx.Response.StatusCode())
}

func TestRespondPageMeta(t *testing.T) {
	h := newBaseHandler(nil, nil)
	ctx := &fasthttp.RequestCtx{}

	h.respondPage(ctx, []string{"a", "b"}, 2, 20, 40)

	var body struct {
		Data []string       `json:"data"`
		Meta map[string]int `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	assert.Equal(t, []string{"a", "b"}, body.Data)
	assert.Equal(t, map[string]int{"limit": 20, "offset": 40, "count": 2}, body.Meta)
}
