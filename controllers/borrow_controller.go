package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"library-lending/app"
	"library-lending/db"
	"library-lending/permissions"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type BorrowController struct{ *Srv }

func GetBorrowController(s *Srv) *BorrowController { return &BorrowController{Srv: s} }

// Borrow 当前用户借书.
func (bc *BorrowController) Borrow(c *gin.Context) {
	var in struct {
		BookID string `json:"bookId" binding:"required,uuid"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	me := app.CurrentUser(c)
	rec, err := bc.Repo.BorrowBook(c.Request.Context(), in.BookID, me.ID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, app.H{"error": "book not found"})
		case errors.Is(err, db.ErrBookNotAvailable):
			c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		case errors.Is(err, db.ErrTransient):
			c.JSON(http.StatusServiceUnavailable, app.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// Return 归还。只有借书人本人可还.
func (bc *BorrowController) Return(c *gin.Context) {
	me := app.CurrentUser(c)
	rec, err := bc.Repo.ReturnBorrow(c.Request.Context(), c.Param("borrowId"), me.ID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, app.H{"error": "borrow record not found"})
		case errors.Is(err, db.ErrNotBorrower):
			c.JSON(http.StatusForbidden, app.H{"error": err.Error()})
		case errors.Is(err, db.ErrAlreadyReturned):
			c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		case errors.Is(err, db.ErrTransient):
			c.JSON(http.StatusServiceUnavailable, app.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (bc *BorrowController) borrowQueryFromRequest(c *gin.Context) db.BorrowQuery {
	q := db.BorrowQuery{
		BookID: c.Query("bookId"),
		Sort:   c.DefaultQuery("sort", "-borrowed_at"),
	}
	q.ActiveOnly, _ = strconv.ParseBool(c.DefaultQuery("activeOnly", "false"))
	q.Skip, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	q.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	return q
}

// ListMyBorrows 当前用户的借阅记录.
func (bc *BorrowController) ListMyBorrows(c *gin.Context) {
	q := bc.borrowQueryFromRequest(c)
	q.BorrowerID = app.CurrentUser(c).ID

	recs, total, err := bc.Repo.ListBorrows(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"data": recs, "count": total})
}

// ListAllBorrows 全馆借阅记录（borrows:read_all）.
func (bc *BorrowController) ListAllBorrows(c *gin.Context) {
	q := bc.borrowQueryFromRequest(c)
	q.BorrowerID = c.Query("borrowerId")

	recs, total, err := bc.Repo.ListBorrows(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"data": recs, "count": total})
}

// GetBorrow 单条记录：先判存在（404），再判本人或 read_all（403）.
func (bc *BorrowController) GetBorrow(c *gin.Context) {
	rec, err := bc.Repo.FindBorrowByID(c.Request.Context(), c.Param("borrowId"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "borrow record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	me := app.CurrentUser(c)
	canReadAll := app.EffectivePermissions(me).Has(permissions.BorrowsReadAll)
	if !canReadAll && rec.BorrowerID != me.ID {
		c.JSON(http.StatusForbidden, app.H{"error": "you can only view your own borrow records"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
