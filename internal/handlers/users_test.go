package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"relay-service/internal/mocks"
	"relay-service/internal/repositories"
)

func TestPublicKey(t *testing.T) {
	users := new(mocks.UserDirectoryMock)
	r := newTestEngine()
	r.GET("/api/users/:user_id/key", NewUserHandler(users).PublicKey)
	users.On("PublicKey", mock.Anything, "bob").Return("pk-bob", nil).Once()
	users.On("PublicKey", mock.Anything, "ghost").Return("", repositories.ErrUserNotFound).Once()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/bob/key", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"bob","public_key":"pk-bob"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/ghost/key", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
