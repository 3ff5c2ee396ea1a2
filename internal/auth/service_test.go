package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/Kyz7/blogaccount/internal/apperror"
	"github.com/Kyz7/blogaccount/internal/auth"
	"github.com/Kyz7/blogaccount/internal/models"
	"github.com/Kyz7/blogaccount/internal/testutils"
	"github.com/Kyz7/blogaccount/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestSignupThenAuthorize(t *testing.T) {
	db := testutils.TestDB(t)
	svc := auth.NewService(db)
	ctx := context.Background()

	pairs := []struct{ email, password string }{
		{"a@x.com", "Password123"},
		{"b@x.com", "correct horse battery staple"},
	}

	for _, p := range pairs {
		u, err := svc.Signup(ctx, "User", p.email, p.password)
		require.NoError(t, err)
		assert.Equal(t, models.ProviderCredentials, u.Provider)

		cost, err := bcrypt.Cost([]byte(u.Password))
		require.NoError(t, err)
		assert.Equal(t, utils.PasswordCost, cost)

		got, err := svc.Authorize(ctx, p.email, p.password)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		_, err = svc.Authorize(ctx, p.email, p.password+"x")
		assert.True(t, apperror.Is(err, apperror.KindUnauthenticated))
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	db := testutils.TestDB(t)
	svc := auth.NewService(db)

	_, err := svc.Signup(context.Background(), "A", "a@x.com", "Password123")
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), "A", "A@X.com", "Password123")
	assert.True(t, apperror.Is(err, apperror.KindInvalidRequest))
}

func TestAuthorize_Rejections(t *testing.T) {
	db := testutils.TestDB(t)
	svc := auth.NewService(db)
	testutils.CreateTestUser(t, db, "a@x.com", "Password123")
	testutils.CreateTestUser(t, db, "google@x.com", "")

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@x.com", "Password123"},
		{"email match is exact", "A@x.com", "Password123"},
		{"federated only account", "google@x.com", ""},
		{"wrong password", "a@x.com", "Password124"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authorize(context.Background(), tt.email, tt.password)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.KindUnauthenticated))
			assert.Equal(t, "invalid email or password", apperror.MessageOf(err))
		})
	}
}

func TestChangePassword(t *testing.T) {
	db := testutils.TestDB(t)
	svc := auth.NewService(db)
	ctx := context.Background()

	u := testutils.CreateTestUser(t, db, "a@x.com", "Password123")
	federated := testutils.CreateTestUser(t, db, "g@x.com", "")

	t.Run("unknown user", func(t *testing.T) {
		err := svc.ChangePassword(ctx, 9999, "Password123", "NewPass123")
		assert.True(t, apperror.Is(err, apperror.KindInvalidRequest))
	})

	t.Run("account without password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, federated.ID, "", "NewPass123")
		assert.True(t, apperror.Is(err, apperror.KindInvalidRequest))
	})

	t.Run("wrong current password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, u.ID, "nope", "NewPass123")
		assert.True(t, apperror.Is(err, apperror.KindInvalidRequest))
	})

	t.Run("new equals current", func(t *testing.T) {
		err := svc.ChangePassword(ctx, u.ID, "Password123", "Password123")
		assert.True(t, apperror.Is(err, apperror.KindInvalidRequest))

		_, err = svc.Authorize(ctx, "a@x.com", "Password123")
		assert.NoError(t, err)
	})

	t.Run("success", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(ctx, u.ID, "Password123", "NewPass123"))

		_, err := svc.Authorize(ctx, "a@x.com", "NewPass123")
		assert.NoError(t, err)
		_, err = svc.Authorize(ctx, "a@x.com", "Password123")
		assert.Error(t, err)
	})
}

func TestLoginWithIdentity(t *testing.T) {
	db := testutils.TestDB(t)
	svc := auth.NewService(db)
	ctx := context.Background()

	created, err := svc.LoginWithIdentity(ctx, auth.Identity{
		Email:    "g@x.com",
		Verified: true,
		Name:     "Gopher",
		Picture:  "https://lh3.googleusercontent.com/a/photo",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProviderGoogle, created.Provider)
	assert.Equal(t, "https://lh3.googleusercontent.com/a/photo", created.Image)
	assert.False(t, created.HasPassword())

	again, err := svc.LoginWithIdentity(ctx, auth.Identity{Email: "G@x.com", Verified: true, Name: "Other"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Gopher", again.Name)

	noName, err := svc.LoginWithIdentity(ctx, auth.Identity{Email: "anon@x.com", Verified: true})
	require.NoError(t, err)
	assert.Equal(t, "anon", noName.Name)

	_, err = svc.LoginWithIdentity(ctx, auth.Identity{Verified: true})
	assert.True(t, apperror.Is(err, apperror.KindInvalidRequest))
}

func TestLoginWithIdentity_Rejections(t *testing.T) {
	db := testutils.TestDB(t)
	svc := auth.NewService(db)
	ctx := context.Background()
	owner := testutils.CreateTestUser(t, db, "owner@x.com", "Password123")

	tests := []struct {
		name string
		id   auth.Identity
	}{
		{"unverified new address", auth.Identity{Email: "new@x.com", Verified: false}},
		{"unverified existing address", auth.Identity{Email: "owner@x.com", Verified: false}},
		{"verified address of a password account", auth.Identity{Email: "owner@x.com", Verified: true}},
		{"case variant of a password account", auth.Identity{Email: "OWNER@x.com", Verified: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := svc.LoginWithIdentity(ctx, tt.id)
			assert.Nil(t, u)
			assert.True(t, apperror.Is(err, apperror.KindInvalidRequest), err)
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var stored models.User
	require.NoError(t, db.First(&stored, owner.ID).Error)
	assert.Equal(t, models.ProviderCredentials, stored.Provider)
}

func TestSignup_EmailTakenDuringInsert(t *testing.T) {
	db := testutils.TestDB(t)
	// Without the implicit transaction the competing row commits on its own.
	svc := auth.NewService(db.Session(&gorm.Session{SkipDefaultTransaction: true}))

	// Another request registers the case-variant address between the
	// duplicate check and the insert.
	fired := false
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:competing_signup", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "users" {
			return
		}
		fired = true
		now := time.Now().UTC()
		require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO users (name, email, password, provider, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			"Other", "A@X.com", "", models.ProviderCredentials, now, now,
		).Error)
	}))

	u, err := svc.Signup(context.Background(), "User", "a@x.com", "Password123")
	require.True(t, fired)
	assert.Nil(t, u)
	assert.True(t, apperror.Is(err, apperror.KindInvalidRequest), err)
	assert.Equal(t, "email already registered", apperror.MessageOf(err))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
