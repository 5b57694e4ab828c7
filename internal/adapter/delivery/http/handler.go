package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/linkly/internal/entity"
	"github.com/vadimbarashkov/linkly/internal/usecase"
	"github.com/vadimbarashkov/linkly/pkg/shortcode"
)

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, healthResponse{OK: true, Version: apiVersion})
}

type linkUseCase interface {
	CreateLink(ctx context.Context, targetURL, code string) (*entity.Link, error)
	ResolveCode(ctx context.Context, code string) (*entity.Link, error)
	DeleteLink(ctx context.Context, code string) error
	GetLink(ctx context.Context, code string) (*entity.Link, error)
	ListLinks(ctx context.Context) ([]*entity.Link, error)
}

type linkHandler struct {
	useCase  linkUseCase
	validate *validator.Validate
}

func newLinkHandler(useCase linkUseCase, validate *validator.Validate) *linkHandler {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// The error is only returned for an empty tag or a nil func.
	_ = validate.RegisterValidation("shortcode", func(fl validator.FieldLevel) bool {
		return shortcode.Valid(fl.Field().String())
	})

	return &linkHandler{
		useCase:  useCase,
		validate: validate,
	}
}

func (h *linkHandler) listLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.useCase.ListLinks(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLinksResponse(links))
}

func (h *linkHandler) getLink(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	link, err := h.useCase.GetLink(r.Context(), code)
	if err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, linkNotFoundResponse)
			return
		}

		h.serverError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLinkResponse(link))
}

func (h *linkHandler) createLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return
	}

	link, err := h.useCase.CreateLink(r.Context(), req.TargetURL, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrInvalidURL):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, invalidURLResponse)
		case errors.Is(err, entity.ErrInvalidCode):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, invalidCodeResponse)
		case errors.Is(err, entity.ErrCodeTaken):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, codeTakenResponse)
		case errors.Is(err, usecase.ErrMaxRetriesExceeded):
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, codesExhaustedResponse)
		default:
			h.serverError(w, r, err)
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toLinkResponse(link))
}

func (h *linkHandler) deleteLink(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	err := h.useCase.DeleteLink(r.Context(), code)
	if err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, linkNotFoundResponse)
			return
		}

		h.serverError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// redirect sends visitors of an active link to its target and counts the visit.
// Segments owned by other routes are never looked up.
func (h *linkHandler) redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if shortcode.Reserved(code) {
		http.NotFound(w, r)
		return
	}

	link, err := h.useCase.ResolveCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			render.Status(r, http.StatusNotFound)
			render.PlainText(w, r, "Link not found")
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.PlainText(w, r, "Internal server error")
		return
	}

	http.Redirect(w, r, link.TargetURL, http.StatusFound)
}

func (h *linkHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, serverErrorResponse)
}
