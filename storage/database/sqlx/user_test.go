package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
	testutil "github.com/trezcool/shule/tests"
)

func userIDs(users []user.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func TestUserRepository_CRUD(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "Anita", "anita@school.test", "Gr8!Marigold", []string{user.RoleAdmin}, true)
	require.NotEmpty(t, usr.ID)

	got, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.Equal(t, usr.Email, got.Email)
	assert.Equal(t, []string{user.RoleAdmin}, got.Roles)
	assert.NoError(t, got.CheckPassword("Gr8!Marigold"))
	assert.True(t, got.LastLogin.IsZero())

	got, err = repo.GetUser(ctx, user.GetFilter{Email: "anita@school.test"})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	for name, filter := range map[string]user.GetFilter{
		"unknown id":    {ID: "6f1f1f0e-5d0c-4c59-8a39-6a1f6f3e9e11"},
		"malformed id":  {ID: "lol"},
		"unknown email": {Email: "nobody@school.test"},
		"empty filter":  {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := repo.GetUser(ctx, filter)
			assert.Equal(t, user.ErrNotFound, err)
		})
	}

	// update
	got.Name = "Anita Desai"
	got.Roles = []string{user.RoleAdmin, user.RoleAdminOwner}
	got.LastLogin = time.Now().UTC()
	_, err = repo.UpdateUser(ctx, got)
	require.NoError(t, err)
	got, err = repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.Equal(t, "Anita Desai", got.Name)
	assert.True(t, got.IsOwner())
	assert.False(t, got.LastLogin.IsZero())

	_, err = repo.UpdateUser(ctx, user.User{ID: "6f1f1f0e-5d0c-4c59-8a39-6a1f6f3e9e11", Email: "x@school.test"})
	assert.Equal(t, user.ErrNotFound, err)

	// delete
	n, err := repo.DeleteUsersByID(ctx, []string{usr.ID, "6f1f1f0e-5d0c-4c59-8a39-6a1f6f3e9e11"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = repo.DeleteUsersByID(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUserRepository_CheckEmailUniqueness(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "Anita", "anita@school.test", "", nil, true)

	assert.Equal(t, user.ErrEmailExists, repo.CheckEmailUniqueness(ctx, "anita@school.test", nil))
	assert.NoError(t, repo.CheckEmailUniqueness(ctx, "anita@school.test", []user.User{usr}))
	assert.NoError(t, repo.CheckEmailUniqueness(ctx, "ravi@school.test", nil))
}

func TestUserRepository_QueryUsers(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	anita := testutil.CreateUser(t, repo, "Anita", "anita@school.test", "", []string{user.RoleAdminOwner}, true, now.Add(-3*time.Hour))
	ravi := testutil.CreateUser(t, repo, "Ravi", "ravi@school.test", "", []string{user.RoleAdmin}, true, now.Add(-2*time.Hour))
	meera := testutil.CreateUser(t, repo, "Meera", "meera@school.test", "", nil, false, now.Add(-1*time.Hour))
	bPtr := func(b bool) *bool { return &b }

	tests := []struct {
		name     string
		filter   *user.QueryFilter
		ordering []core.DBOrdering
		want     []user.User
	}{
		{name: "all, newest first", want: []user.User{meera, ravi, anita}},
		{name: "search name", filter: &user.QueryFilter{Search: "AV"}, want: []user.User{ravi}},
		{name: "search email", filter: &user.QueryFilter{Search: "meera@"}, want: []user.User{meera}},
		{name: "role prefix", filter: &user.QueryFilter{Roles: []string{user.RoleAdmin}}, want: []user.User{ravi, anita}},
		{name: "exact role", filter: &user.QueryFilter{Roles: []string{user.RoleAdminOwner}}, want: []user.User{anita}},
		{name: "inactive", filter: &user.QueryFilter{IsActive: bPtr(false)}, want: []user.User{meera}},
		{name: "order by name", ordering: []core.DBOrdering{{Field: "name", Ascending: true}}, want: []user.User{anita, meera, ravi}},
		{
			name:     "unknown ordering ignored",
			ordering: []core.DBOrdering{{Field: "password_hash; DROP TABLE users"}},
			want:     []user.User{meera, ravi, anita},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.QueryUsers(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, userIDs(tt.want), userIDs(got))
		})
	}
}
