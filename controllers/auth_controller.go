package controllers

import (
	"net/http"

	"library-lending/app"
	"library-lending/auth"

	"github.com/gin-gonic/gin"
)

type AuthController struct{ *Srv }

func GetAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

// LoginAccessToken 邮箱+密码换取 JWT.
func (ac *AuthController) LoginAccessToken(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	u, err := ac.Repo.FindUserByEmail(c.Request.Context(), in.Email)
	if err != nil || !auth.CheckPassword(in.Password, u.HashedPassword) {
		c.JSON(http.StatusBadRequest, app.H{"error": "incorrect email or password"})
		return
	}
	if !u.IsActive {
		c.JSON(http.StatusBadRequest, app.H{"error": "inactive user"})
		return
	}

	tok, err := auth.GenerateAccessToken(ac.Cfg.JWTSecret, ac.Cfg.AccessTokenTTL, u.ID, u.Email, string(u.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"accessToken": tok, "tokenType": "bearer"})
}

// TestToken 验证 token 是否有效，返回当前用户.
func (ac *AuthController) TestToken(c *gin.Context) {
	c.JSON(http.StatusOK, app.CurrentUser(c))
}
