package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"library-lending/app"
	"library-lending/db"
	"library-lending/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookController struct{ *Srv }

func GetBookController(s *Srv) *BookController { return &BookController{Srv: s} }

// CreateBook 登记新书（副本）。同 ISBN 必须与已存副本的书名/作者一致.
func (bc *BookController) CreateBook(c *gin.Context) {
	var in struct {
		ISBN   string `json:"isbn" binding:"required,max=32"`
		Title  string `json:"title" binding:"required,max=500"`
		Author string `json:"author" binding:"required,max=255"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	isbn, err := models.NormalizeISBN(in.ISBN)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	title := strings.TrimSpace(in.Title)
	author := strings.TrimSpace(in.Author)
	if title == "" || author == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "title and author cannot be empty or whitespace only"})
		return
	}

	b := &models.Book{
		ID:          uuid.NewString(),
		ISBN:        isbn,
		Title:       title,
		Author:      author,
		IsAvailable: true,
	}
	if err := bc.Repo.CreateBook(c.Request.Context(), b); err != nil {
		var conflict *db.ISBNConflictError
		switch {
		case errors.As(err, &conflict):
			c.JSON(http.StatusConflict, app.H{"error": conflict.Error()})
		case errors.Is(err, db.ErrTransient):
			c.JSON(http.StatusServiceUnavailable, app.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (bc *BookController) ListBooks(c *gin.Context) {
	q := db.BookQuery{
		Search: c.Query("search"),
		Sort:   c.DefaultQuery("sort", "title"),
	}
	if raw := c.Query("isbn"); raw != "" {
		isbn, err := models.NormalizeISBN(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
			return
		}
		q.ISBN = isbn
	}
	q.AvailableOnly, _ = strconv.ParseBool(c.DefaultQuery("availableOnly", "false"))
	q.Skip, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	q.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))

	books, total, err := bc.Repo.ListBooks(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"data": books, "count": total})
}

func (bc *BookController) GetBook(c *gin.Context) {
	b, err := bc.Repo.FindBookByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}

func (bc *BookController) UpdateBook(c *gin.Context) {
	var in struct {
		ISBN   *string `json:"isbn" binding:"omitempty,max=32"`
		Title  *string `json:"title" binding:"omitempty,max=500"`
		Author *string `json:"author" binding:"omitempty,max=255"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	b, err := bc.Repo.FindBookByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	if in.ISBN != nil {
		isbn, err := models.NormalizeISBN(*in.ISBN)
		if err != nil {
			c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
			return
		}
		b.ISBN = isbn
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, app.H{"error": "title cannot be empty or whitespace only"})
			return
		}
		b.Title = title
	}
	if in.Author != nil {
		author := strings.TrimSpace(*in.Author)
		if author == "" {
			c.JSON(http.StatusBadRequest, app.H{"error": "author cannot be empty or whitespace only"})
			return
		}
		b.Author = author
	}

	if err := bc.Repo.SaveBook(c.Request.Context(), b); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}

func (bc *BookController) DeleteBook(c *gin.Context) {
	err := bc.Repo.DeleteBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, app.H{"error": "book not found"})
		case errors.Is(err, db.ErrBookBorrowed):
			c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "book deleted successfully"})
}
