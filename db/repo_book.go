package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"library-lending/models"

	"gorm.io/gorm"
)

var ErrBookBorrowed = errors.New("cannot delete a book that is currently borrowed")

// ISBNConflictError reports a registration whose title or author differs
// from the already-persisted copies of the same ISBN.
type ISBNConflictError struct {
	ISBN     string
	Field    string // "title" or "author"
	Existing string
	Given    string
}

func (e *ISBNConflictError) Error() string {
	return fmt.Sprintf("isbn %s already exists with %s %q, cannot register with different %s %q",
		e.ISBN, e.Field, e.Existing, e.Field, e.Given)
}

// CreateBook registers a new copy. Registrations of the same ISBN are
// serialized with an advisory transaction lock keyed on the ISBN, so two
// concurrent first registrations cannot both observe an empty existing set:
// the loser of the lock re-reads and must match the winner's title/author.
func (r *Repo) CreateBook(ctx context.Context, b *models.Book) error {
	return r.withRetry(func() error {
		return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", b.ISBN).Error; err != nil {
				return err
			}

			var existing models.Book
			err := tx.Where("isbn = ?", b.ISBN).Order("created_at ASC").First(&existing).Error
			switch {
			case err == nil:
				if existing.Title != b.Title {
					return &ISBNConflictError{ISBN: b.ISBN, Field: "title", Existing: existing.Title, Given: b.Title}
				}
				if existing.Author != b.Author {
					return &ISBNConflictError{ISBN: b.ISBN, Field: "author", Existing: existing.Author, Given: b.Author}
				}
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}

			return tx.Create(b).Error
		})
	})
}

func (r *Repo) FindBookByID(ctx context.Context, id string) (*models.Book, error) {
	var b models.Book
	if err := r.DB.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

type BookQuery struct {
	Search        string // matches title or author, case-insensitive
	ISBN          string // exact normalized ISBN
	AvailableOnly bool
	Sort          string // title, author, created_at; '-' prefix for descending
	Skip          int
	Limit         int
}

var bookSortColumns = map[string]string{
	"title":      "title",
	"author":     "author",
	"created_at": "created_at",
}

func (r *Repo) ListBooks(ctx context.Context, q BookQuery) ([]models.Book, int64, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Book{})
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + s + "%"
		tx = tx.Where("title ILIKE ? OR author ILIKE ?", like, like)
	}
	if q.ISBN != "" {
		tx = tx.Where("isbn = ?", q.ISBN)
	}
	if q.AvailableOnly {
		tx = tx.Where("is_available = TRUE")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	field := strings.TrimLeft(q.Sort, "+-")
	col, ok := bookSortColumns[field]
	if !ok {
		col = "title"
	}
	dir := "ASC"
	if strings.HasPrefix(q.Sort, "-") {
		dir = "DESC"
	}

	if q.Limit <= 0 || q.Limit > 1000 {
		q.Limit = 100
	}
	if q.Skip < 0 {
		q.Skip = 0
	}

	var books []models.Book
	if err := tx.
		Order(col + " " + dir).
		Offset(q.Skip).
		Limit(q.Limit).
		Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *Repo) SaveBook(ctx context.Context, b *models.Book) error {
	return r.DB.WithContext(ctx).Save(b).Error
}

// DeleteBook refuses to delete a copy that is currently lent out.
func (r *Repo) DeleteBook(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Book
		if err := tx.First(&b, "id = ?", id).Error; err != nil {
			return err
		}
		if !b.IsAvailable {
			return ErrBookBorrowed
		}
		return tx.Delete(&b).Error
	})
}
