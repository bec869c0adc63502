package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/carelink/backend/api/transport"
	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/pkg/httpcontext"
	"github.com/carelink/backend/repository"
	accountUC "github.com/carelink/backend/usecase/account"
)

type AccountHandler struct {
	baseHandler
	uc *accountUC.UseCase
}

func NewAccountHandler(uc *accountUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Get own account
// @Tags account
// @Router /api/v1/account [get]
func (h *AccountHandler) Get(ctx *fasthttp.RequestCtx) {
	principal, ok := h.principal(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.Get(stdCtx, principal.ID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary Update own account
// @Tags account
// @Router /api/v1/account [put]
func (h *AccountHandler) Update(ctx *fasthttp.RequestCtx) {
	principal, ok := h.principal(ctx)
	if !ok {
		return
	}
	var req transport.AccountUpdateRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.Update(stdCtx, principal.ID, accountUC.UpdateInput{FullName: req.FullName, Phone: req.Phone})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary List accounts
// @Tags admin
// @Router /api/v1/admin/users [get]
func (h *AccountHandler) List(ctx *fasthttp.RequestCtx) {
	filter := repository.UserFilter{}
	args := ctx.QueryArgs()
	if raw := args.Peek("role"); len(raw) > 0 {
		role, err := domain.ParseRole(string(raw))
		if err != nil {
			h.respondError(ctx, err)
			return
		}
		filter.Role = role
	}
	if raw := args.Peek("status"); len(raw) > 0 {
		status, err := domain.ParseAccountStatus(string(raw))
		if err != nil {
			h.respondError(ctx, err)
			return
		}
		filter.Status = status
	}
	filter.Limit, filter.Offset = pageParams(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	users, err := h.uc.List(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondPage(ctx, users, len(users), filter.Limit, filter.Offset)
}

// @Summary Change an account status
// @Tags admin
// @Router /api/v1/admin/users/{id}/status [put]
func (h *AccountHandler) SetStatus(ctx *fasthttp.RequestCtx) {
	principal, ok := h.principal(ctx)
	if !ok {
		return
	}
	var req transport.StatusUpdateRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.SetStatus(stdCtx, principal, pathParam(ctx, "id"), req.Status)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}
