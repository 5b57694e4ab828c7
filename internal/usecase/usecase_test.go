package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/linkly/internal/entity"
	"github.com/vadimbarashkov/linkly/mocks/usecase"
	"github.com/vadimbarashkov/linkly/pkg/shortcode"
)

type LinkUseCaseTestSuite struct {
	suite.Suite
	errUnknown   error
	linkRepoMock *usecase.MockLinkRepository
	generator    *usecase.MockCodeGenerator
	uc           *LinkUseCase
}

func (suite *LinkUseCaseTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
}

func (suite *LinkUseCaseTestSuite) SetupSubTest() {
	suite.linkRepoMock = usecase.NewMockLinkRepository(suite.T())
	suite.generator = usecase.NewMockCodeGenerator(suite.T())
	suite.uc = NewLinkUseCase(suite.linkRepoMock, WithCodeGenerator(suite.generator))
}

func (suite *LinkUseCaseTestSuite) TearDownSubTest() {
	suite.linkRepoMock.AssertExpectations(suite.T())
	suite.generator.AssertExpectations(suite.T())
}

func newLink(code, targetURL string) *entity.Link {
	return &entity.Link{
		ID:        "6f1c2a1e-7f0e-4c55-9a43-3f3f1d2f8b11",
		Code:      code,
		TargetURL: targetURL,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (suite *LinkUseCaseTestSuite) TestCreateLink() {
	ctx := context.Background()

	suite.Run("invalid target url", func() {
		for _, targetURL := range []string{"", "not a url", "example.com", "/relative/path", "https://"} {
			link, err := suite.uc.CreateLink(ctx, targetURL, "")

			suite.ErrorIs(err, entity.ErrInvalidURL, targetURL)
			suite.Nil(link)
		}
	})

	suite.Run("invalid custom code", func() {
		for _, code := range []string{"ab12", "abcdefghi", "abc-12", "abc 123"} {
			link, err := suite.uc.CreateLink(ctx, "https://example.com", code)

			suite.ErrorIs(err, entity.ErrInvalidCode, code)
			suite.Nil(link)
		}
	})

	suite.Run("custom code taken by active link", func() {
		suite.linkRepoMock.
			On("RetrieveByCode", ctx, "abc123").
			Once().
			Return(newLink("abc123", "https://example.org"), nil)

		link, err := suite.uc.CreateLink(ctx, "https://example.com", "abc123")

		suite.ErrorIs(err, entity.ErrCodeTaken)
		suite.Nil(link)
	})

	suite.Run("custom code taken by deleted link", func() {
		deleted := newLink("abc123", "https://example.org")
		deletedAt := time.Now()
		deleted.DeletedAt = &deletedAt

		suite.linkRepoMock.
			On("RetrieveByCode", ctx, "abc123").
			Once().
			Return(deleted, nil)

		link, err := suite.uc.CreateLink(ctx, "https://example.com", "abc123")

		suite.ErrorIs(err, entity.ErrCodeTaken)
		suite.Nil(link)
	})

	suite.Run("custom code shadowed by another route", func() {
		link, err := suite.uc.CreateLink(ctx, "https://example.com", "apiKey1")

		suite.ErrorIs(err, entity.ErrCodeTaken)
		suite.Nil(link)
	})

	suite.Run("generated code shadowed by another route is skipped", func() {
		suite.generator.On("Generate", 6).Once().Return("srcAbc", nil)
		suite.generator.On("Generate", 6).Once().Return("bbbbbb", nil)
		suite.linkRepoMock.
			On("RetrieveByCode", ctx, "bbbbbb").
			Once().
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Save", ctx, "bbbbbb", "https://example.com").
			Once().
			Return(newLink("bbbbbb", "https://example.com"), nil)

		link, err := suite.uc.CreateLink(ctx, "https://example.com", "")

		suite.NoError(err)
		suite.Equal("bbbbbb", link.Code)
	})

	suite.Run("custom code check error", func() {
		suite.linkRepoMock.
			On("RetrieveByCode", ctx, "abc123").
			Once().
			Return(nil, suite.errUnknown)

		link, err := suite.uc.CreateLink(ctx, "https://example.com", "abc123")

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(link)
	})

	suite.Run("custom code lost insert race", func() {
		suite.linkRepoMock.
			On("RetrieveByCode", ctx, "abc123").
			Once().
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Save", ctx, "abc123", "https://example.com").
			Once().
			Return(nil, entity.ErrCodeTaken)

		link, err := suite.uc.CreateLink(ctx, "https://example.com", "abc123")

		suite.ErrorIs(err, entity.ErrCodeTaken)
		suite.Nil(link)
	})

	suite.Run("custom code success", func() {
		suite.linkRepoMock.
			On("RetrieveByCode", ctx, "abc123").
			Once().
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Save", ctx, "abc123", "https://example.com").
			Once().
			Return(newLink("abc123", "https://example.com"), nil)

		link, err := suite.uc.CreateLink(ctx, "https://example.com", "abc123")

		suite.NoError(err)
		suite.Equal("abc123", link.Code)
		suite.Equal("https://example.com", link.TargetURL)
		suite.Zero(link.TotalClicks)
	})

	suite.Run("generated code success", func() {
		suite.generator.On("Generate", 6).Once().Return("Xy12Zq", nil)
		suite.linkRepoMock.
			On("RetrieveByCode", ctx, "Xy12Zq").
			Once().
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Save", ctx, "Xy12Zq", "https://example.com").
			Once().
			Return(newLink("Xy12Zq", "https://example.com"), nil)

		link, err := suite.uc.CreateLink(ctx, "https://example.com", "")

		suite.NoError(err)
		suite.Equal("Xy12Zq", link.Code)
	})

	suite.Run("generated code collides with deleted link", func() {
		deleted := newLink("aaaaaa", "https://example.org")
		deletedAt := time.Now()
		deleted.DeletedAt = &deletedAt

		suite.generator.On("Generate", 6).Once().Return("aaaaaa", nil)
		suite.generator.On("Generate", 6).Once().Return("bbbbbb", nil)
		suite.linkRepoMock.
			On("RetrieveByCode", ctx, "aaaaaa").
			Once().
			Return(deleted, nil)
		suite.linkRepoMock.
			On("RetrieveByCode", ctx, "bbbbbb").
			Once().
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Save", ctx, "bbbbbb", "https://example.com").
			Once().
			Return(newLink("bbbbbb", "https://example.com"), nil)

		link, err := suite.uc.CreateLink(ctx, "https://example.com", "")

		suite.NoError(err)
		suite.Equal("bbbbbb", link.Code)
	})

	suite.Run("generated code lost insert race", func() {
		suite.generator.On("Generate", 6).Once().Return("aaaaaa", nil)
		suite.generator.On("Generate", 6).Once().Return("bbbbbb", nil)
		suite.linkRepoMock.
			On("RetrieveByCode", ctx, mock.Anything).
			Twice().
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Save", ctx, "aaaaaa", "https://example.com").
			Once().
			Return(nil, entity.ErrCodeTaken)
		suite.linkRepoMock.
			On("Save", ctx, "bbbbbb", "https://example.com").
			Once().
			Return(newLink("bbbbbb", "https://example.com"), nil)

		link, err := suite.uc.CreateLink(ctx, "https://example.com", "")

		suite.NoError(err)
		suite.Equal("bbbbbb", link.Code)
	})

	suite.Run("maximum retries error grows code length", func() {
		suite.generator.On("Generate", 6).Times(5).Return("aaaaaa", nil)
		suite.generator.On("Generate", 7).Times(5).Return("aaaaaaa", nil)
		suite.generator.On("Generate", 8).Times(10).Return("aaaaaaaa", nil)
		suite.linkRepoMock.
			On("RetrieveByCode", ctx, mock.Anything).
			Times(20).
			Return(newLink("aaaaaa", "https://example.org"), nil)

		link, err := suite.uc.CreateLink(ctx, "https://example.com", "")

		suite.Error(err)
		suite.ErrorIs(err, ErrMaxRetriesExceeded)
		suite.Nil(link)
	})

	suite.Run("code generation error", func() {
		suite.generator.On("Generate", 6).Once().Return("", suite.errUnknown)

		link, err := suite.uc.CreateLink(ctx, "https://example.com", "")

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(link)
	})

	suite.Run("unknown save error", func() {
		suite.generator.On("Generate", 6).Once().Return("aaaaaa", nil)
		suite.linkRepoMock.
			On("RetrieveByCode", ctx, "aaaaaa").
			Once().
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Save", ctx, "aaaaaa", "https://example.com").
			Once().
			Return(nil, suite.errUnknown)

		link, err := suite.uc.CreateLink(ctx, "https://example.com", "")

		suite.ErrorIs(err, suite.errUnknown)
		suite.NotErrorIs(err, ErrMaxRetriesExceeded)
		suite.Nil(link)
	})
}

func (suite *LinkUseCaseTestSuite) TestCreateLink_DefaultGenerator() {
	suite.Run("generated code matches format", func() {
		ctx := context.Background()
		uc := NewLinkUseCase(suite.linkRepoMock)

		validCode := mock.MatchedBy(func(code string) bool {
			return shortcode.Valid(code) && len(code) == shortcode.MinLength
		})

		suite.linkRepoMock.
			On("RetrieveByCode", ctx, validCode).
			Once().
			Return(nil, entity.ErrLinkNotFound)
		suite.linkRepoMock.
			On("Save", ctx, validCode, "https://example.com").
			Once().
			Return(func(_ context.Context, code, targetURL string) (*entity.Link, error) {
				return newLink(code, targetURL), nil
			})

		link, err := uc.CreateLink(ctx, "https://example.com", "")

		suite.NoError(err)
		suite.True(shortcode.Valid(link.Code))
	})
}

func (suite *LinkUseCaseTestSuite) TestResolveCode() {
	ctx := context.Background()

	suite.Run("link not found", func() {
		suite.linkRepoMock.
			On("IncrementClicks", ctx, "abc123").
			Once().
			Return(nil, entity.ErrLinkNotFound)

		link, err := suite.uc.ResolveCode(ctx, "abc123")

		suite.ErrorIs(err, entity.ErrLinkNotFound)
		suite.Nil(link)
	})

	suite.Run("unknown error", func() {
		suite.linkRepoMock.
			On("IncrementClicks", ctx, "abc123").
			Once().
			Return(nil, suite.errUnknown)

		link, err := suite.uc.ResolveCode(ctx, "abc123")

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(link)
	})

	suite.Run("success", func() {
		clicked := newLink("abc123", "https://example.com")
		clicked.TotalClicks = 1
		now := time.Now()
		clicked.LastClicked = &now

		suite.linkRepoMock.
			On("IncrementClicks", ctx, "abc123").
			Once().
			Return(clicked, nil)

		link, err := suite.uc.ResolveCode(ctx, "abc123")

		suite.NoError(err)
		suite.Equal("https://example.com", link.TargetURL)
		suite.Equal(int64(1), link.TotalClicks)
	})
}

func (suite *LinkUseCaseTestSuite) TestDeleteLink() {
	ctx := context.Background()

	suite.Run("link not found", func() {
		suite.linkRepoMock.
			On("SoftDelete", ctx, "abc123").
			Once().
			Return(entity.ErrLinkNotFound)

		err := suite.uc.DeleteLink(ctx, "abc123")

		suite.ErrorIs(err, entity.ErrLinkNotFound)
	})

	suite.Run("unknown error", func() {
		suite.linkRepoMock.
			On("SoftDelete", ctx, "abc123").
			Once().
			Return(suite.errUnknown)

		err := suite.uc.DeleteLink(ctx, "abc123")

		suite.ErrorIs(err, suite.errUnknown)
	})

	suite.Run("success", func() {
		suite.linkRepoMock.
			On("SoftDelete", ctx, "abc123").
			Once().
			Return(nil)

		err := suite.uc.DeleteLink(ctx, "abc123")

		suite.NoError(err)
	})
}

func (suite *LinkUseCaseTestSuite) TestGetLink() {
	ctx := context.Background()

	suite.Run("link not found", func() {
		suite.linkRepoMock.
			On("RetrieveByCode", ctx, "abc123").
			Once().
			Return(nil, entity.ErrLinkNotFound)

		link, err := suite.uc.GetLink(ctx, "abc123")

		suite.ErrorIs(err, entity.ErrLinkNotFound)
		suite.Nil(link)
	})

	suite.Run("deleted link is hidden", func() {
		deleted := newLink("abc123", "https://example.com")
		deletedAt := time.Now()
		deleted.DeletedAt = &deletedAt

		suite.linkRepoMock.
			On("RetrieveByCode", ctx, "abc123").
			Once().
			Return(deleted, nil)

		link, err := suite.uc.GetLink(ctx, "abc123")

		suite.ErrorIs(err, entity.ErrLinkNotFound)
		suite.Nil(link)
	})

	suite.Run("success", func() {
		suite.linkRepoMock.
			On("RetrieveByCode", ctx, "abc123").
			Once().
			Return(newLink("abc123", "https://example.com"), nil)

		link, err := suite.uc.GetLink(ctx, "abc123")

		suite.NoError(err)
		suite.Equal("abc123", link.Code)
	})
}

func (suite *LinkUseCaseTestSuite) TestListLinks() {
	ctx := context.Background()

	suite.Run("unknown error", func() {
		suite.linkRepoMock.
			On("List", ctx).
			Once().
			Return(nil, suite.errUnknown)

		links, err := suite.uc.ListLinks(ctx)

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(links)
	})

	suite.Run("empty", func() {
		suite.linkRepoMock.
			On("List", ctx).
			Once().
			Return(nil, nil)

		links, err := suite.uc.ListLinks(ctx)

		suite.NoError(err)
		suite.NotNil(links)
		suite.Empty(links)
	})

	suite.Run("success", func() {
		suite.linkRepoMock.
			On("List", ctx).
			Once().
			Return([]*entity.Link{
				newLink("abc123", "https://example.com"),
				newLink("xyz789", "https://example.org"),
			}, nil)

		links, err := suite.uc.ListLinks(ctx)

		suite.NoError(err)
		suite.Len(links, 2)
	})
}

func TestLinkUseCase(t *testing.T) {
	suite.Run(t, new(LinkUseCaseTestSuite))
}
