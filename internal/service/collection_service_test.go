package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
	"github.com/yourusername/animemaster-api/internal/repository/memory"
)

// MockCollectionRepository implements repository.CollectionRepository.
type MockCollectionRepository struct {
	mock.Mock
}

func (m *MockCollectionRepository) List(ctx context.Context, userID uint, status entity.WatchStatus) ([]entity.UserAnimeStatus, error) {
	args := m.Called(ctx, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.UserAnimeStatus), args.Error(1)
}

func (m *MockCollectionRepository) Create(ctx context.Context, row *entity.UserAnimeStatus) error {
	return m.Called(ctx, row).Error(0)
}

func (m *MockCollectionRepository) Update(ctx context.Context, userID, animeID uint, fn func(row *entity.UserAnimeStatus) error) error {
	return m.Called(ctx, userID, animeID, fn).Error(0)
}

func (m *MockCollectionRepository) Delete(ctx context.Context, userID, animeID uint) error {
	return m.Called(ctx, userID, animeID).Error(0)
}

func intPtr(v int) *int { return &v }

func newCollectionFixture(t *testing.T) (*CollectionService, *memory.CollectionRepo) {
	t.Helper()
	repo := memory.NewCollectionRepo()
	svc, err := NewCollectionService(repo, zerolog.Nop())
	require.NoError(t, err)
	return svc, repo
}

func TestNewCollectionService_RequiresRepository(t *testing.T) {
	_, err := NewCollectionService(nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestCollectionService_AddDefaultsAndNormalizes(t *testing.T) {
	tests := []struct {
		name         string
		status       string
		episodes     *int
		progress     *int
		wantStatus   entity.WatchStatus
		wantProgress int
	}{
		{"default status", "", nil, intPtr(5), entity.StatusWantToWatch, 0},
		{"watching starts at one", "watching", intPtr(12), nil, entity.StatusWatching, 1},
		{"watching keeps progress", "watching", intPtr(12), intPtr(4), entity.StatusWatching, 4},
		{"watched takes episode count", "watched", intPtr(12), nil, entity.StatusWatched, 12},
		{"watched caps at episodes", "watched", intPtr(12), intPtr(30), entity.StatusWatched, 12},
		{"watched without episodes", "watched", nil, nil, entity.StatusWatched, 1},
		{"dropped resets", "dropped", intPtr(12), intPtr(3), entity.StatusDropped, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			svc, _ := newCollectionFixture(t)

			// Act
			row, err := svc.Add(context.Background(), 1, AddToCollectionInput{
				AnimeID: 100, Title: " Frieren ", Episodes: tt.episodes, Status: tt.status, Progress: tt.progress,
			})

			// Assert
			require.NoError(t, err)
			assert.Equal(t, "Frieren", row.Title)
			assert.Equal(t, tt.wantStatus, row.Status)
			assert.Equal(t, tt.wantProgress, row.Progress)
		})
	}
}

func TestCollectionService_AddValidation(t *testing.T) {
	svc, _ := newCollectionFixture(t)
	ctx := context.Background()
	badRating := 11.0

	cases := []AddToCollectionInput{
		{Title: "Frieren"},
		{AnimeID: 100, Title: "   "},
		{AnimeID: 100, Title: "Frieren", Status: "WATCHING"},
		{AnimeID: 100, Title: "Frieren", Episodes: intPtr(-1)},
		{AnimeID: 100, Title: "Frieren", Rating: &badRating},
	}
	for _, in := range cases {
		_, err := svc.Add(ctx, 1, in)
		assert.ErrorIs(t, err, apperrors.ErrValidation, "%+v", in)
	}
}

func TestCollectionService_AddTwice(t *testing.T) {
	svc, _ := newCollectionFixture(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, 1, AddToCollectionInput{AnimeID: 100, Title: "Frieren"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, 1, AddToCollectionInput{AnimeID: 100, Title: "Frieren"})
	assert.ErrorIs(t, err, ErrAlreadyInCollection)

	// Another user may collect the same anime.
	_, err = svc.Add(ctx, 2, AddToCollectionInput{AnimeID: 100, Title: "Frieren"})
	assert.NoError(t, err)
}

func TestCollectionService_CollectionsGroupsEveryStatus(t *testing.T) {
	svc, _ := newCollectionFixture(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, 1, AddToCollectionInput{AnimeID: 100, Title: "Frieren", Status: "watching"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, 1, AddToCollectionInput{AnimeID: 200, Title: "Dungeon Meshi", Status: "watching"})
	require.NoError(t, err)

	grouped, err := svc.Collections(ctx, 1)

	require.NoError(t, err)
	require.Len(t, grouped, 4)
	assert.Len(t, grouped[entity.StatusWatching], 2)
	assert.NotNil(t, grouped[entity.StatusDropped])
	assert.Empty(t, grouped[entity.StatusDropped])
}

func TestCollectionService_Update(t *testing.T) {
	ctx := context.Background()
	svc, repo := newCollectionFixture(t)
	_, err := svc.Add(ctx, 1, AddToCollectionInput{AnimeID: 100, Title: "Frieren", Episodes: intPtr(28), Status: "watching", Progress: intPtr(10)})
	require.NoError(t, err)

	// Same status without progress keeps the count.
	require.NoError(t, svc.Update(ctx, 1, 100, "watching", nil))
	rows, _ := repo.List(ctx, 1, "")
	assert.Equal(t, 10, rows[0].Progress)

	// A status change without progress takes that status' default.
	require.NoError(t, svc.Update(ctx, 1, 100, "watched", nil))
	rows, _ = repo.List(ctx, 1, "")
	assert.Equal(t, entity.StatusWatched, rows[0].Status)
	assert.Equal(t, 28, rows[0].Progress)

	require.NoError(t, svc.Update(ctx, 1, 100, "watching", intPtr(3)))
	rows, _ = repo.List(ctx, 1, "")
	assert.Equal(t, 3, rows[0].Progress)

	assert.ErrorIs(t, svc.Update(ctx, 1, 404, "watching", nil), ErrNotInCollection)
	assert.ErrorIs(t, svc.Update(ctx, 1, 100, "paused", nil), apperrors.ErrValidation)
	assert.ErrorIs(t, svc.Update(ctx, 1, 100, "watching", intPtr(-2)), apperrors.ErrValidation)
}

func TestCollectionService_SetStatusCreatesMissingRow(t *testing.T) {
	ctx := context.Background()
	svc, repo := newCollectionFixture(t)

	require.NoError(t, svc.SetStatus(ctx, 1, 100, "watching"))
	rows, _ := repo.List(ctx, 1, "")
	require.Len(t, rows, 1)
	assert.Equal(t, entity.StatusWatching, rows[0].Status)
	assert.Equal(t, 1, rows[0].Progress)

	require.NoError(t, svc.SetStatus(ctx, 1, 100, "dropped"))
	rows, _ = repo.List(ctx, 1, "")
	require.Len(t, rows, 1)
	assert.Equal(t, entity.StatusDropped, rows[0].Status)
	assert.Zero(t, rows[0].Progress)

	assert.ErrorIs(t, svc.SetStatus(ctx, 1, 100, "finished"), apperrors.ErrValidation)
	assert.ErrorIs(t, svc.SetStatus(ctx, 1, 0, "watching"), apperrors.ErrValidation)
}

func TestCollectionService_SetStatusRetriesAfterConcurrentInsert(t *testing.T) {
	// Arrange: the row appears between the first Update and the Create.
	ctx := context.Background()
	repo := new(MockCollectionRepository)
	repo.On("Update", ctx, uint(1), uint(100), mock.Anything).Return(apperrors.ErrNotFound).Once()
	repo.On("Create", ctx, mock.Anything).Return(apperrors.ErrConflict).Once()
	repo.On("Update", ctx, uint(1), uint(100), mock.Anything).Return(nil).Once()
	svc, err := NewCollectionService(repo, zerolog.Nop())
	require.NoError(t, err)

	// Act
	err = svc.SetStatus(ctx, 1, 100, "watching")

	// Assert
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCollectionService_SetProgress(t *testing.T) {
	ctx := context.Background()
	svc, repo := newCollectionFixture(t)
	_, err := svc.Add(ctx, 1, AddToCollectionInput{AnimeID: 100, Title: "Frieren", Episodes: intPtr(28), Status: "watching"})
	require.NoError(t, err)

	require.NoError(t, svc.SetProgress(ctx, 1, 100, 12))
	rows, _ := repo.List(ctx, 1, "")
	assert.Equal(t, 12, rows[0].Progress)
	assert.Equal(t, entity.StatusWatching, rows[0].Status)

	assert.ErrorIs(t, svc.SetProgress(ctx, 1, 100, 29), apperrors.ErrValidation)
	assert.ErrorIs(t, svc.SetProgress(ctx, 1, 100, -1), apperrors.ErrValidation)
	assert.ErrorIs(t, svc.SetProgress(ctx, 1, 404, 1), ErrNotInCollection)

	rows, _ = repo.List(ctx, 1, "")
	assert.Equal(t, 12, rows[0].Progress)
}

func TestCollectionService_ListAndRemove(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCollectionFixture(t)
	_, err := svc.Add(ctx, 1, AddToCollectionInput{AnimeID: 100, Title: "Frieren", Status: "watching"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, 1, AddToCollectionInput{AnimeID: 200, Title: "Dungeon Meshi"})
	require.NoError(t, err)

	watching, err := svc.List(ctx, 1, "watching")
	require.NoError(t, err)
	require.Len(t, watching, 1)

	_, err = svc.List(ctx, 1, "paused")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	require.NoError(t, svc.Remove(ctx, 1, 100))
	assert.ErrorIs(t, svc.Remove(ctx, 1, 100), ErrNotInCollection)

	all, err := svc.List(ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, uint(200), all[0].AnimeID)

	none, err := svc.List(ctx, 9, "")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCollectionService_RepositoryError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCollectionRepository)
	repo.On("List", ctx, uint(1), entity.WatchStatus("")).Return(nil, errors.New("db down"))
	repo.On("Delete", ctx, uint(1), uint(100)).Return(errors.New("db down"))
	svc, err := NewCollectionService(repo, zerolog.Nop())
	require.NoError(t, err)

	_, err = svc.Collections(ctx, 1)
	require.Error(t, err)
	err = svc.Remove(ctx, 1, 100)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotInCollection)
}
