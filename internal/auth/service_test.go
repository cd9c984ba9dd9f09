package auth

import (
	"testing"

	"github.com/boostmx/wheel-strat-tracker-sub000/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupAuthTest(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.User{
		Fullname:     "Test User",
		Email:        "test@example.com",
		PasswordHash: string(hash),
	}).Error)
	return db
}

func TestLoginUser(t *testing.T) {
	db := setupAuthTest(t)

	u, err := LoginUser(db, LoginInput{Email: "test@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "Test User", u.Fullname)

	_, err = LoginUser(db, LoginInput{Email: "test@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrIncorrectPassword)

	_, err = LoginUser(db, LoginInput{Email: "nobody@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = LoginUser(db, LoginInput{Email: "", Password: ""})
	assert.ErrorIs(t, err, ErrEmailPasswordRequired)
}

func TestVerifyUser(t *testing.T) {
	_, err := VerifyUser(nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = VerifyUser("not a map")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = VerifyUser(map[string]interface{}{"fullname": "X"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	shape, err := VerifyUser(map[string]interface{}{
		"user_id":  "abc-123",
		"fullname": "Test User",
		"email":    "test@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc-123", shape.UserID)
	assert.Equal(t, "Test User", shape.Fullname)
	assert.Equal(t, "test@example.com", shape.Email)
}
