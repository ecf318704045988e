package middleware

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkir/internal/cache"
	"parkir/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func hashOf(password string) string {
	h := sha256.Sum256([]byte(password))
	return fmt.Sprintf("%x", h)
}

type fakeOperatorStore struct {
	operators map[string]*models.Operator
	lookups   int
}

func (f *fakeOperatorStore) GetByUsername(ctx context.Context, username string) (*models.Operator, error) {
	f.lookups++
	return f.operators[username], nil
}

type fakeAuthCache struct {
	entries map[string]*cache.OperatorAuth
	deleted []string
}

func newFakeAuthCache() *fakeAuthCache {
	return &fakeAuthCache{entries: make(map[string]*cache.OperatorAuth)}
}

func (f *fakeAuthCache) GetOperatorAuth(ctx context.Context, username string) (*cache.OperatorAuth, error) {
	entry, ok := f.entries[username]
	if !ok {
		return nil, errors.New("cache miss")
	}
	c := *entry
	return &c, nil
}

func (f *fakeAuthCache) SetOperatorAuth(ctx context.Context, username string, entry cache.OperatorAuth) error {
	c := entry
	f.entries[username] = &c
	return nil
}

func (f *fakeAuthCache) DeleteOperatorAuth(ctx context.Context, username string) error {
	delete(f.entries, username)
	f.deleted = append(f.deleted, username)
	return nil
}

func authRouter(store OperatorStore, authCache AuthCache) *gin.Engine {
	router := gin.New()
	router.GET("/api/ping", BasicAuth(store, authCache), func(c *gin.Context) {
		operator, _ := c.Get("operator")
		c.JSON(http.StatusOK, gin.H{"operator": operator})
	})
	return router
}

func doAuthRequest(router *gin.Engine, username, password string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	if username != "" {
		req.SetBasicAuth(username, password)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestBasicAuth_MissingCredentials(t *testing.T) {
	store := &fakeOperatorStore{operators: map[string]*models.Operator{}}
	router := authRouter(store, nil)

	w := doAuthRequest(router, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, store.lookups)
}

func TestBasicAuth_ValidCredentials(t *testing.T) {
	store := &fakeOperatorStore{operators: map[string]*models.Operator{
		"gate1": {ID: 1, Username: "gate1", PasswordHash: hashOf("secret"), IsActive: true},
	}}
	authCache := newFakeAuthCache()
	router := authRouter(store, authCache)

	w := doAuthRequest(router, "gate1", "secret")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gate1")

	entry, ok := authCache.entries["gate1"]
	require.True(t, ok, "successful login is cached")
	assert.True(t, entry.IsActive)
	assert.Equal(t, hashOf("secret"), entry.PasswordHash)
}

func TestBasicAuth_WrongPassword(t *testing.T) {
	store := &fakeOperatorStore{operators: map[string]*models.Operator{
		"gate1": {ID: 1, Username: "gate1", PasswordHash: hashOf("secret"), IsActive: true},
	}}
	router := authRouter(store, nil)

	w := doAuthRequest(router, "gate1", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBasicAuth_InactiveOperatorRejectedAndPurged(t *testing.T) {
	store := &fakeOperatorStore{operators: map[string]*models.Operator{
		"gate1": {ID: 1, Username: "gate1", PasswordHash: hashOf("secret"), IsActive: false},
	}}
	authCache := newFakeAuthCache()
	router := authRouter(store, authCache)

	w := doAuthRequest(router, "gate1", "secret")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, authCache.deleted, "gate1", "denied username is dropped from the cache")
}

func TestBasicAuth_CacheHitSkipsDatabase(t *testing.T) {
	store := &fakeOperatorStore{operators: map[string]*models.Operator{}}
	authCache := newFakeAuthCache()
	authCache.entries["gate1"] = &cache.OperatorAuth{
		PasswordHash: hashOf("secret"), OperatorID: 1, IsActive: true,
	}
	router := authRouter(store, authCache)

	w := doAuthRequest(router, "gate1", "secret")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, store.lookups)
}

func TestBasicAuth_InactiveCacheEntryFallsThroughToDatabase(t *testing.T) {
	store := &fakeOperatorStore{operators: map[string]*models.Operator{
		"gate1": {ID: 1, Username: "gate1", PasswordHash: hashOf("secret"), IsActive: false},
	}}
	authCache := newFakeAuthCache()
	authCache.entries["gate1"] = &cache.OperatorAuth{
		PasswordHash: hashOf("secret"), OperatorID: 1, IsActive: false,
	}
	router := authRouter(store, authCache)

	// An inactive cached entry never grants access; the database confirms
	// the denial and the entry is purged.
	w := doAuthRequest(router, "gate1", "secret")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1, store.lookups)
	assert.Contains(t, authCache.deleted, "gate1")
}

func TestBasicAuth_StaleCachedHashFallsThroughToDatabase(t *testing.T) {
	store := &fakeOperatorStore{operators: map[string]*models.Operator{
		"gate1": {ID: 1, Username: "gate1", PasswordHash: hashOf("rotated"), IsActive: true},
	}}
	authCache := newFakeAuthCache()
	authCache.entries["gate1"] = &cache.OperatorAuth{
		PasswordHash: hashOf("old"), OperatorID: 1, IsActive: true,
	}
	router := authRouter(store, authCache)

	w := doAuthRequest(router, "gate1", "rotated")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.lookups)
	assert.Equal(t, hashOf("rotated"), authCache.entries["gate1"].PasswordHash, "cache refreshed after rotation")
}
