package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/carelink/backend/api/transport"
	"github.com/carelink/backend/pkg/httpcontext"
	blogUC "github.com/carelink/backend/usecase/blog"
)

type PostHandler struct {
	baseHandler
	uc *blogUC.UseCase
}

func NewPostHandler(uc *blogUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *PostHandler {
	return &PostHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List posts
// @Tags posts
// @Router /api/v1/posts [get]
func (h *PostHandler) List(ctx *fasthttp.RequestCtx) {
	limit, offset := pageParams(ctx)
	args := ctx.QueryArgs()

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	posts, err := h.uc.List(stdCtx, blogUC.ListInput{
		AuthorID: string(args.Peek("author")),
		Tag:      string(args.Peek("tag")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondPage(ctx, posts, len(posts), limit, offset)
}

// @Summary Get a post
// @Tags posts
// @Router /api/v1/posts/{id} [get]
func (h *PostHandler) Get(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	post, err := h.uc.Get(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, post)
}

// @Summary Create a post
// @Tags posts
// @Router /api/v1/posts [post]
func (h *PostHandler) Create(ctx *fasthttp.RequestCtx) {
	principal, ok := h.principal(ctx)
	if !ok {
		return
	}
	var req transport.PostRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	post, err := h.uc.Create(stdCtx, principal, blogUC.PostInput{Title: req.Title, Body: req.Body, Tags: req.Tags})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, post)
}

// @Summary Update a post
// @Tags posts
// @Router /api/v1/posts/{id} [put]
func (h *PostHandler) Update(ctx *fasthttp.RequestCtx) {
	principal, ok := h.principal(ctx)
	if !ok {
		return
	}
	var req transport.PostRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	post, err := h.uc.Update(stdCtx, principal, pathParam(ctx, "id"), blogUC.PostInput{Title: req.Title, Body: req.Body, Tags: req.Tags})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, post)
}

// @Summary Delete a post
// @Tags posts
// @Router /api/v1/posts/{id} [delete]
func (h *PostHandler) Delete(ctx *fasthttp.RequestCtx) {
	principal, ok := h.principal(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Delete(stdCtx, principal, pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}
