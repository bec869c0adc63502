package handler

import (
	"net/http"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/carelink/backend/api/transport"
	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/pkg/httpcontext"
	donationUC "github.com/carelink/backend/usecase/donation"
)

type DonationHandler struct {
	baseHandler
	uc *donationUC.UseCase
}

func NewDonationHandler(uc *donationUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *DonationHandler {
	return &DonationHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Record a donation
// @Tags donations
// @Router /api/v1/donations [post]
func (h *DonationHandler) Record(ctx *fasthttp.RequestCtx) {
	principal, ok := h.principal(ctx)
	if !ok {
		return
	}
	var req transport.DonationRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	donation, err := h.uc.Record(stdCtx, principal, donationUC.RecordInput{
		DonorID:    req.DonorID,
		BloodGroup: req.BloodGroup,
		Units:      req.Units,
		DonatedAt:  req.DonatedAt,
		Notes:      req.Notes,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, donation)
}

// @Summary Own donation history
// @Tags donations
// @Router /api/v1/donations/me [get]
func (h *DonationHandler) Mine(ctx *fasthttp.RequestCtx) {
	principal, ok := h.principal(ctx)
	if !ok {
		return
	}
	limit, offset := pageParams(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	donations, err := h.uc.Mine(stdCtx, principal, limit, offset)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondPage(ctx, donations, len(donations), limit, offset)
}

// @Summary Recorded donation history
// @Tags donations
// @Router /api/v1/donations [get]
func (h *DonationHandler) List(ctx *fasthttp.RequestCtx) {
	principal, ok := h.principal(ctx)
	if !ok {
		return
	}
	args := ctx.QueryArgs()
	in := donationUC.ListInput{RecordedBy: string(args.Peek("recorded_by"))}
	if raw := args.Peek("blood_group"); len(raw) > 0 {
		// An unencoded "+" arrives as a space.
		group, err := domain.ParseBloodGroup(strings.ReplaceAll(string(raw), " ", "+"))
		if err != nil {
			h.respondError(ctx, err)
			return
		}
		in.BloodGroup = group
	}
	in.Limit, in.Offset = pageParams(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	donations, err := h.uc.List(stdCtx, principal, in)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondPage(ctx, donations, len(donations), in.Limit, in.Offset)
}
