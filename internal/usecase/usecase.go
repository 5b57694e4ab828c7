package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/vadimbarashkov/linkly/internal/entity"
	"github.com/vadimbarashkov/linkly/pkg/shortcode"
)

// ErrMaxRetriesExceeded is returned when no free code was found within the attempt budget.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating code")

const (
	maxAttempts = 20
	growEvery   = 5
)

type linkRepository interface {
	List(ctx context.Context) ([]*entity.Link, error)
	RetrieveByCode(ctx context.Context, code string) (*entity.Link, error)
	Save(ctx context.Context, code, targetURL string) (*entity.Link, error)
	SoftDelete(ctx context.Context, code string) error
	IncrementClicks(ctx context.Context, code string) (*entity.Link, error)
}

type codeGenerator interface {
	Generate(length int) (string, error)
}

type LinkUseCase struct {
	linkRepo  linkRepository
	generator codeGenerator
}

type Option func(*LinkUseCase)

// WithCodeGenerator replaces the random code generator.
func WithCodeGenerator(g codeGenerator) Option {
	return func(uc *LinkUseCase) {
		uc.generator = g
	}
}

func NewLinkUseCase(linkRepo linkRepository, opts ...Option) *LinkUseCase {
	uc := &LinkUseCase{
		linkRepo:  linkRepo,
		generator: shortcode.Generator{},
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// CreateLink shortens targetURL. A non-empty code is used as is, otherwise
// a free code is generated.
func (uc *LinkUseCase) CreateLink(ctx context.Context, targetURL, code string) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.CreateLink"

	if !validTargetURL(targetURL) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidURL)
	}

	if code == "" {
		link, err := uc.createWithGeneratedCode(ctx, targetURL)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return link, nil
	}

	if !shortcode.Valid(code) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidCode)
	}

	if shortcode.Reserved(code) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrCodeTaken)
	}

	taken, err := uc.codeExists(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrCodeTaken)
	}

	link, err := uc.linkRepo.Save(ctx, code, targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to save link: %w", op, err)
	}

	return link, nil
}

// createWithGeneratedCode starts at the minimum code length and grows it by
// one after every growEvery failed attempts. A candidate fails when any link,
// deleted or not, already uses it, or when it is shadowed by another route.
func (uc *LinkUseCase) createWithGeneratedCode(ctx context.Context, targetURL string) (*entity.Link, error) {
	length := shortcode.MinLength

	for failed := 0; failed < maxAttempts; {
		code, err := uc.generator.Generate(length)
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}

		taken := shortcode.Reserved(code)
		if !taken {
			taken, err = uc.codeExists(ctx, code)
			if err != nil {
				return nil, err
			}
		}

		if !taken {
			link, err := uc.linkRepo.Save(ctx, code, targetURL)
			if err == nil {
				return link, nil
			}
			if !errors.Is(err, entity.ErrCodeTaken) {
				return nil, fmt.Errorf("failed to save link: %w", err)
			}
		}

		failed++
		if failed%growEvery == 0 && length < shortcode.MaxLength {
			length++
		}
	}

	return nil, ErrMaxRetriesExceeded
}

func (uc *LinkUseCase) codeExists(ctx context.Context, code string) (bool, error) {
	_, err := uc.linkRepo.RetrieveByCode(ctx, code)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, entity.ErrLinkNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check code: %w", err)
	}
}

// ResolveCode counts a visit to the active link behind code and returns it.
func (uc *LinkUseCase) ResolveCode(ctx context.Context, code string) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.ResolveCode"

	link, err := uc.linkRepo.IncrementClicks(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve code: %w", op, err)
	}

	return link, nil
}

// DeleteLink soft-deletes the active link behind code. Deleting a missing or
// already deleted link returns entity.ErrLinkNotFound.
func (uc *LinkUseCase) DeleteLink(ctx context.Context, code string) error {
	const op = "usecase.LinkUseCase.DeleteLink"

	if err := uc.linkRepo.SoftDelete(ctx, code); err != nil {
		return fmt.Errorf("%s: failed to delete link: %w", op, err)
	}

	return nil
}

func (uc *LinkUseCase) GetLink(ctx context.Context, code string) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.GetLink"

	link, err := uc.linkRepo.RetrieveByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get link: %w", op, err)
	}

	if link.IsDeleted() {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
	}

	return link, nil
}

func (uc *LinkUseCase) ListLinks(ctx context.Context) ([]*entity.Link, error) {
	const op = "usecase.LinkUseCase.ListLinks"

	links, err := uc.linkRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list links: %w", op, err)
	}

	if links == nil {
		links = []*entity.Link{}
	}

	return links, nil
}

func validTargetURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
