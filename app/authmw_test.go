package app_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"library-lending/app"
	"library-lending/models"
	"library-lending/permissions"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func gatedRouter(u *models.User, mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if u != nil {
			app.SetCurrentUser(c, u)
		}
		c.Next()
	})
	r.GET("/guarded", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, app.H{"ok": true})
	})
	return r
}

func getGuarded(t *testing.T, r *gin.Engine) int {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequirePermissionWithoutUser(t *testing.T) {
	r := gatedRouter(nil, app.RequirePermission(permissions.BooksCreate))
	assert.Equal(t, http.StatusUnauthorized, getGuarded(t, r))
}

func TestRequirePermissionMemberDeniedBooksCreate(t *testing.T) {
	u := &models.User{ID: "u1", Role: permissions.RoleMember, IsActive: true}
	r := gatedRouter(u, app.RequirePermission(permissions.BooksCreate))
	assert.Equal(t, http.StatusForbidden, getGuarded(t, r))
}

func TestRequirePermissionAllowOverrideGrants(t *testing.T) {
	u := &models.User{
		ID: "u1", Role: permissions.RoleMember, IsActive: true,
		Overrides: []models.PermissionOverride{
			{Permission: "books:create", Effect: permissions.EffectAllow},
		},
	}
	r := gatedRouter(u, app.RequirePermission(permissions.BooksCreate))
	assert.Equal(t, http.StatusOK, getGuarded(t, r))
}

func TestRequirePermissionDenyOverrideRevokesAllow(t *testing.T) {
	// allow then deny for the same token: deny wins, back to forbidden
	u := &models.User{
		ID: "u1", Role: permissions.RoleMember, IsActive: true,
		Overrides: []models.PermissionOverride{
			{Permission: "books:create", Effect: permissions.EffectAllow},
			{Permission: "books:create", Effect: permissions.EffectDeny},
		},
	}
	r := gatedRouter(u, app.RequirePermission(permissions.BooksCreate))
	assert.Equal(t, http.StatusForbidden, getGuarded(t, r))
}

func TestRequirePermissionSuperuserBypassesOverrides(t *testing.T) {
	u := &models.User{
		ID: "u1", Role: permissions.RoleMember, IsSuperuser: true, IsActive: true,
		Overrides: []models.PermissionOverride{
			{Permission: "books:create", Effect: permissions.EffectDeny},
		},
	}
	r := gatedRouter(u, app.RequirePermission(permissions.BooksCreate))
	assert.Equal(t, http.StatusOK, getGuarded(t, r))
}

func TestRequireAnyPermission(t *testing.T) {
	member := &models.User{ID: "u1", Role: permissions.RoleMember, IsActive: true}
	r := gatedRouter(member, app.RequireAnyPermission(
		permissions.BorrowsRead, permissions.BorrowsReadAll,
	))
	assert.Equal(t, http.StatusOK, getGuarded(t, r))

	denied := &models.User{
		ID: "u2", Role: permissions.RoleMember, IsActive: true,
		Overrides: []models.PermissionOverride{
			{Permission: "borrows:read", Effect: permissions.EffectDeny},
		},
	}
	r = gatedRouter(denied, app.RequireAnyPermission(
		permissions.BorrowsRead, permissions.BorrowsReadAll,
	))
	assert.Equal(t, http.StatusForbidden, getGuarded(t, r))
}

func TestSuperuserOnly(t *testing.T) {
	librarian := &models.User{ID: "u1", Role: permissions.RoleLibrarian, IsActive: true}
	r := gatedRouter(librarian, app.SuperuserOnly())
	assert.Equal(t, http.StatusForbidden, getGuarded(t, r))

	super := &models.User{ID: "u2", Role: permissions.RoleMember, IsSuperuser: true, IsActive: true}
	r = gatedRouter(super, app.SuperuserOnly())
	assert.Equal(t, http.StatusOK, getGuarded(t, r))

	r = gatedRouter(nil, app.SuperuserOnly())
	assert.Equal(t, http.StatusUnauthorized, getGuarded(t, r))
}

func TestEffectivePermissions(t *testing.T) {
	member := &models.User{ID: "u1", Role: permissions.RoleMember}
	set := app.EffectivePermissions(member)
	assert.True(t, set.Has(permissions.BorrowsCreate))
	assert.False(t, set.Has(permissions.UsersManage))

	super := &models.User{ID: "u2", Role: permissions.RoleMember, IsSuperuser: true}
	assert.True(t, app.EffectivePermissions(super).Has(permissions.UsersManage))
}
