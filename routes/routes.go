package routes

import (
	"time"

	"library-lending/app"
	"library-lending/controllers"
	"library-lending/permissions"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	ac := controllers.GetAuthController(s)
	uc := controllers.GetUserController(s)
	bookCtl := controllers.GetBookController(s)
	borrowCtl := controllers.GetBorrowController(s)

	// 复用的中间件
	authMW := app.AuthRequired(s.Repo, a.Config)
	superMW := app.SuperuserOnly()
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)
	loginRateMW := app.RateLimit(a.RDB, a.Config, 10, time.Minute)

	api := r.Group("/api/v1")

	// ------------------------------
	// 登录 / 注册（公开，限流）
	// ------------------------------
	api.POST("/login/access-token", loginRateMW, ac.LoginAccessToken)
	api.POST("/users/signup", loginRateMW, uc.Signup)

	authed := api.Group("", authMW, seenMW)

	authed.POST("/login/test-token", ac.TestToken)

	// ------------------------------
	// 用户
	// ------------------------------
	users := authed.Group("/users")
	{
		users.GET("/me", uc.GetMe)
		users.PATCH("/me", uc.UpdateMe)
		users.PATCH("/me/password", uc.UpdatePasswordMe)
		users.DELETE("/me", uc.DeleteMe)

		users.GET("", app.RequirePermission(permissions.UsersRead), uc.ListUsers)
		users.POST("", app.RequirePermission(permissions.UsersManage), uc.CreateUser)
		users.PATCH("/:id", app.RequirePermission(permissions.UsersManage), uc.UpdateUser)
		users.DELETE("/:id", app.RequirePermission(permissions.UsersManage), uc.DeleteUser)

		// 本人、超管或持 users:read 者（handler 内判定）
		users.GET("/:id", uc.GetUser)
		// 本人或超管
		users.GET("/:id/permissions", uc.GetEffectivePermissions)
	}

	// 权限 override 管理只留给超管
	overrides := authed.Group("/users/:id/permissions/overrides", superMW)
	{
		overrides.GET("", uc.ListOverrides)
		overrides.POST("", uc.AddOverride)
		overrides.DELETE("/:overrideId", uc.DeleteOverride)
	}

	// ------------------------------
	// 图书
	// ------------------------------
	books := authed.Group("/books")
	{
		books.POST("", app.RequirePermission(permissions.BooksCreate), bookCtl.CreateBook)
		books.GET("", app.RequirePermission(permissions.BooksRead), bookCtl.ListBooks)
		books.GET("/:id", app.RequirePermission(permissions.BooksRead), bookCtl.GetBook)
		books.PATCH("/:id", app.RequirePermission(permissions.BooksUpdate), bookCtl.UpdateBook)
		books.DELETE("/:id", app.RequirePermission(permissions.BooksDelete), bookCtl.DeleteBook)
	}

	// ------------------------------
	// 借还
	// ------------------------------
	borrows := authed.Group("/borrows")
	{
		borrows.POST("", app.RequirePermission(permissions.BorrowsCreate), borrowCtl.Borrow)
		borrows.POST("/:borrowId/return", app.RequirePermission(permissions.BorrowsReturn), borrowCtl.Return)
		borrows.GET("/me", app.RequirePermission(permissions.BorrowsRead), borrowCtl.ListMyBorrows)
		borrows.GET("", app.RequirePermission(permissions.BorrowsReadAll), borrowCtl.ListAllBorrows)
		borrows.GET("/:borrowId", app.RequireAnyPermission(
			permissions.BorrowsRead,
			permissions.BorrowsReadAll,
		), borrowCtl.GetBorrow)
	}
}
