package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"library-lending/app"
	"library-lending/auth"
	"library-lending/db"
	"library-lending/models"
	"library-lending/permissions"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserController struct{ *Srv }

func GetUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// Signup 开放注册，新用户一律 member.
func (uc *UserController) Signup(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required,email,max=255"`
		Password string `json:"password" binding:"required,min=8,max=40"`
		FullName string `json:"fullName" binding:"max=255"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	u := &models.User{
		ID:             uuid.NewString(),
		Email:          in.Email,
		FullName:       in.FullName,
		HashedPassword: hash,
		Role:           permissions.RoleMember,
		IsActive:       true,
	}
	if err := uc.Repo.CreateUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			c.JSON(http.StatusConflict, app.H{"error": "the user with this email already exists in the system"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, u)
}

// CreateUser 管理端建用户，可指定角色与超管标记.
func (uc *UserController) CreateUser(c *gin.Context) {
	var in struct {
		Email       string `json:"email" binding:"required,email,max=255"`
		Password    string `json:"password" binding:"required,min=8,max=40"`
		FullName    string `json:"fullName" binding:"max=255"`
		Role        string `json:"role"`
		IsSuperuser bool   `json:"isSuperuser"`
		IsActive    *bool  `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	role := permissions.RoleMember
	if in.Role != "" {
		role = permissions.Role(in.Role)
		if !permissions.KnownRole(role) {
			c.JSON(http.StatusBadRequest, app.H{"error": "invalid role: " + in.Role})
			return
		}
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	u := &models.User{
		ID:             uuid.NewString(),
		Email:          in.Email,
		FullName:       in.FullName,
		HashedPassword: hash,
		Role:           role,
		IsSuperuser:    in.IsSuperuser,
		IsActive:       active,
	}
	if err := uc.Repo.CreateUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			c.JSON(http.StatusConflict, app.H{"error": "the user with this email already exists in the system"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (uc *UserController) ListUsers(c *gin.Context) {
	q := db.UserQuery{
		Q:    c.Query("q"),
		Role: c.Query("role"),
	}
	if v := c.Query("isActive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			q.IsActive = &b
		}
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Size, _ = strconv.Atoi(c.DefaultQuery("size", "100"))

	res, err := uc.Repo.ListUsers(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"data": res.Users, "count": res.Total})
}

func (uc *UserController) GetMe(c *gin.Context) {
	c.JSON(http.StatusOK, app.CurrentUser(c))
}

func (uc *UserController) UpdateMe(c *gin.Context) {
	var in struct {
		Email    *string `json:"email" binding:"omitempty,email,max=255"`
		FullName *string `json:"fullName" binding:"omitempty,max=255"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	u := app.CurrentUser(c)
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.FullName != nil {
		u.FullName = *in.FullName
	}
	if err := uc.Repo.SaveUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			c.JSON(http.StatusConflict, app.H{"error": "user with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, u)
}

func (uc *UserController) UpdatePasswordMe(c *gin.Context) {
	var in struct {
		CurrentPassword string `json:"currentPassword" binding:"required,min=8,max=40"`
		NewPassword     string `json:"newPassword" binding:"required,min=8,max=40"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	u := app.CurrentUser(c)
	if !auth.CheckPassword(in.CurrentPassword, u.HashedPassword) {
		c.JSON(http.StatusBadRequest, app.H{"error": "incorrect password"})
		return
	}
	if in.CurrentPassword == in.NewPassword {
		c.JSON(http.StatusBadRequest, app.H{"error": "new password cannot be the same as the current one"})
		return
	}
	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	u.HashedPassword = hash
	if err := uc.Repo.SaveUser(c.Request.Context(), u); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "password updated successfully"})
}

func (uc *UserController) DeleteMe(c *gin.Context) {
	u := app.CurrentUser(c)
	if u.IsSuperuser {
		c.JSON(http.StatusForbidden, app.H{"error": "super users are not allowed to delete themselves"})
		return
	}
	if err := uc.Repo.DeleteUserByID(c.Request.Context(), u.ID); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "user deleted successfully"})
}

// GetUser 查看他人档案需要 users:read；本人随时可查.
func (uc *UserController) GetUser(c *gin.Context) {
	me := app.CurrentUser(c)
	id := c.Param("id")
	if id != me.ID && !app.EffectivePermissions(me).Has(permissions.UsersRead) {
		c.JSON(http.StatusForbidden, app.H{"error": "the user doesn't have enough privileges"})
		return
	}

	u, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, u)
}

func (uc *UserController) UpdateUser(c *gin.Context) {
	var in struct {
		Email       *string `json:"email" binding:"omitempty,email,max=255"`
		FullName    *string `json:"fullName" binding:"omitempty,max=255"`
		Password    *string `json:"password" binding:"omitempty,min=8,max=40"`
		Role        *string `json:"role"`
		IsSuperuser *bool   `json:"isSuperuser"`
		IsActive    *bool   `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	u, err := uc.Repo.FindUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "the user with this id does not exist in the system"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.FullName != nil {
		u.FullName = *in.FullName
	}
	if in.Role != nil {
		role := permissions.Role(*in.Role)
		if !permissions.KnownRole(role) {
			c.JSON(http.StatusBadRequest, app.H{"error": "invalid role: " + *in.Role})
			return
		}
		u.Role = role
	}
	if in.IsSuperuser != nil {
		u.IsSuperuser = *in.IsSuperuser
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
			return
		}
		u.HashedPassword = hash
	}

	if err := uc.Repo.SaveUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			c.JSON(http.StatusConflict, app.H{"error": "user with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, u)
}

func (uc *UserController) DeleteUser(c *gin.Context) {
	me := app.CurrentUser(c)
	id := c.Param("id")
	if id == me.ID {
		c.JSON(http.StatusForbidden, app.H{"error": "super users are not allowed to delete themselves"})
		return
	}
	if err := uc.Repo.DeleteUserByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "user deleted successfully"})
}

// GetEffectivePermissions 权限三段报告：角色默认 / overrides / 生效集合.
// 本人或超管可查；该检查不依赖目标是否存在，先于 404.
func (uc *UserController) GetEffectivePermissions(c *gin.Context) {
	me := app.CurrentUser(c)
	id := c.Param("id")
	if id != me.ID && !me.IsSuperuser {
		c.JSON(http.StatusForbidden, app.H{"error": "you can only view your own permissions"})
		return
	}

	u, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	rep := permissions.ResolveReport(u.Role, u.ResolverOverrides())
	if u.IsSuperuser {
		rep.Effective = permissions.All().Sorted()
	}
	c.JSON(http.StatusOK, app.H{
		"userId":               u.ID,
		"role":                 rep.Role,
		"rolePermissions":      rep.RolePermissions,
		"overrides":            rep.Overrides,
		"effectivePermissions": rep.Effective,
	})
}

func (uc *UserController) ListOverrides(c *gin.Context) {
	id := c.Param("id")
	if _, err := uc.Repo.FindUserByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	ovs, err := uc.Repo.ListOverrides(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"data": ovs, "count": len(ovs)})
}

func (uc *UserController) AddOverride(c *gin.Context) {
	var in struct {
		Permission string `json:"permission" binding:"required,max=100"`
		Effect     string `json:"effect"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	effect := permissions.EffectAllow
	if in.Effect != "" {
		effect = permissions.Effect(in.Effect)
		if !permissions.KnownEffect(effect) {
			c.JSON(http.StatusBadRequest, app.H{"error": "invalid effect: " + in.Effect})
			return
		}
	}
	if !permissions.Known(permissions.Permission(in.Permission)) {
		c.JSON(http.StatusBadRequest, app.H{
			"error":            "invalid permission: " + in.Permission,
			"validPermissions": permissions.KnownTokens(),
		})
		return
	}

	id := c.Param("id")
	if _, err := uc.Repo.FindUserByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	ov, err := uc.Repo.AddOverride(c.Request.Context(), id, in.Permission, effect)
	if err != nil {
		if errors.Is(err, db.ErrOverrideExists) {
			c.JSON(http.StatusConflict, app.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, ov)
}

func (uc *UserController) DeleteOverride(c *gin.Context) {
	err := uc.Repo.DeleteOverride(c.Request.Context(), c.Param("id"), c.Param("overrideId"))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, app.H{"error": "permission override not found"})
		case errors.Is(err, db.ErrOverrideMismatch):
			c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "permission override deleted successfully"})
}
