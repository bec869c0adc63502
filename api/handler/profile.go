package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/carelink/backend/api/transport"
	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/pkg/httpcontext"
	profileUC "github.com/carelink/backend/usecase/profile"
)

type ProfileHandler struct {
	baseHandler
	uc *profileUC.UseCase
}

func NewProfileHandler(uc *profileUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Get profile
// @Tags profile
// @Success 200 {object} transport.Envelope
// @Router /api/v1/profile [get]
func (h *ProfileHandler) GetProfile(ctx *fasthttp.RequestCtx) {
	principal, ok := h.principal(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	profile, err := h.uc.GetProfile(stdCtx, principal)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, profile)
}

// @Summary Update profile
// @Tags profile
// @Accept json
// @Produce json
// @Router /api/v1/profile [put]
func (h *ProfileHandler) UpdateProfile(ctx *fasthttp.RequestCtx) {
	principal, ok := h.principal(ctx)
	if !ok {
		return
	}
	var req transport.ProfileUpdateRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.UpdateProfile(stdCtx, principal, profileUC.UpdateInput{
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		Address:     req.Address,
		City:        req.City,
		Details:     req.Details,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Provider directory
// @Tags directory
// @Router /api/v1/directory/{role} [get]
func (h *ProfileHandler) Directory(ctx *fasthttp.RequestCtx) {
	role, err := domain.ParseRole(pathParam(ctx, "role"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	limit, offset := pageParams(ctx)
	city := string(ctx.QueryArgs().Peek("city"))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	profiles, err := h.uc.Directory(stdCtx, role, city, limit, offset)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondPage(ctx, profiles, len(profiles), limit, offset)
}
