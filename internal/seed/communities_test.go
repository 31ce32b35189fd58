package seed

import (
	"context"
	"errors"
	"testing"

	"forum/internal/models"
	"forum/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCreator struct {
	mock.Mock
}

func (m *mockCreator) Create(ctx context.Context, in service.CreateCommunityInput) (*models.Community, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Community), args.Error(1)
}

func TestBuiltInCommunities(t *testing.T) {
	presets := BuiltInCommunities()
	require.NotEmpty(t, presets)
	assert.Equal(t, "general", presets[0].Name)
	for _, p := range presets {
		assert.NotEmpty(t, p.Description, p.Name)
	}
}

func TestParsePreset(t *testing.T) {
	presets, err := ParsePreset([]byte("communities:\n  - name: golang\n    description: Gophers\n"))
	require.NoError(t, err)
	assert.Equal(t, []CommunityPreset{{Name: "golang", Description: "Gophers"}}, presets)

	_, err = ParsePreset([]byte("communities: [name"))
	assert.Error(t, err)
}

func TestCommunities_Idempotent(t *testing.T) {
	db := openDB(t)
	svc := NewServices(db, nil).Communities

	created, err := Communities(t.Context(), svc, BuiltInCommunities())
	require.NoError(t, err)
	assert.Equal(t, len(BuiltInCommunities()), created)

	created, err = Communities(t.Context(), svc, BuiltInCommunities())
	require.NoError(t, err)
	assert.Zero(t, created)

	all, err := svc.All(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, len(BuiltInCommunities()))
}

func TestCommunities_StopsOnFailure(t *testing.T) {
	creator := new(mockCreator)
	creator.On("Create", mock.Anything, service.CreateCommunityInput{Name: "a1"}).
		Return(&models.Community{ID: 1, Name: "a1"}, nil)
	creator.On("Create", mock.Anything, service.CreateCommunityInput{Name: "b2"}).
		Return(nil, models.NewConflictError("Community exists"))
	creator.On("Create", mock.Anything, service.CreateCommunityInput{Name: "c3"}).
		Return(nil, errors.New("disk full"))

	presets := []CommunityPreset{{Name: "a1"}, {Name: "b2"}, {Name: "c3"}, {Name: "d4"}}
	created, err := Communities(t.Context(), creator, presets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c3")
	assert.Equal(t, 1, created)
	creator.AssertNotCalled(t, "Create", mock.Anything, service.CreateCommunityInput{Name: "d4"})
}
