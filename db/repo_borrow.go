package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"library-lending/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrBookNotAvailable = errors.New("book is not available for borrowing")
	ErrAlreadyReturned  = errors.New("this book has already been returned")
	ErrNotBorrower      = errors.New("only the borrower can return this book")
)

// BorrowBook 借出：原子操作 = 锁住 book → 占用 is_available → 新建 record.
// Availability flag and borrow record change in the same transaction; the
// conditional UPDATE plus the partial unique index make sure two concurrent
// borrows cannot both win.
func (r *Repo) BorrowBook(ctx context.Context, bookID, borrowerID string) (*models.BorrowRecord, error) {
	var rec *models.BorrowRecord
	err := r.withRetry(func() error {
		rec = nil
		return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// 1) 锁住该书
			var b models.Book
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&b, "id = ?", bookID).Error; err != nil {
				return err
			}
			// 2) 防并发：已借出或存在未归还记录则拒绝
			if !b.IsAvailable {
				return ErrBookNotAvailable
			}
			var n int64
			if err := tx.Model(&models.BorrowRecord{}).
				Where("book_id = ? AND returned_at IS NULL", bookID).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrBookNotAvailable
			}
			// 3) 条件占位
			res := tx.Model(&models.Book{}).
				Where("id = ? AND is_available = TRUE", bookID).
				Update("is_available", false)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrBookNotAvailable
			}
			// 4) 新建 record
			rec = &models.BorrowRecord{
				ID:         uuid.NewString(),
				BookID:     bookID,
				BorrowerID: borrowerID,
				BorrowedAt: time.Now().UTC(),
			}
			if err := tx.Create(rec).Error; err != nil {
				// partial unique index backs the availability flag
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrBookNotAvailable
				}
				return err
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ReturnBorrow 归还：原子操作 = 完成 record → 释放 is_available.
// Only the borrower may return; a duplicate return observes ErrAlreadyReturned.
func (r *Repo) ReturnBorrow(ctx context.Context, borrowID, requesterID string) (*models.BorrowRecord, error) {
	var rec models.BorrowRecord
	err := r.withRetry(func() error {
		return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&rec, "id = ?", borrowID).Error; err != nil {
				return err
			}
			if rec.BorrowerID != requesterID {
				return ErrNotBorrower
			}
			if rec.ReturnedAt != nil {
				return ErrAlreadyReturned
			}
			now := time.Now().UTC()
			rec.ReturnedAt = &now
			if err := tx.Save(&rec).Error; err != nil {
				return err
			}
			// 释放占用
			return tx.Model(&models.Book{}).
				Where("id = ?", rec.BookID).
				Update("is_available", true).Error
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) FindBorrowByID(ctx context.Context, id string) (*models.BorrowRecord, error) {
	var rec models.BorrowRecord
	if err := r.DB.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

type BorrowQuery struct {
	BorrowerID string
	BookID     string
	ActiveOnly bool
	Sort       string // borrowed_at, returned_at; '-' prefix for descending
	Skip       int
	Limit      int
}

var borrowSortColumns = map[string]string{
	"borrowed_at": "borrowed_at",
	"returned_at": "returned_at",
}

func (r *Repo) ListBorrows(ctx context.Context, q BorrowQuery) ([]models.BorrowRecord, int64, error) {
	tx := r.DB.WithContext(ctx).Model(&models.BorrowRecord{})
	if q.BorrowerID != "" {
		tx = tx.Where("borrower_id = ?", q.BorrowerID)
	}
	if q.BookID != "" {
		tx = tx.Where("book_id = ?", q.BookID)
	}
	if q.ActiveOnly {
		tx = tx.Where("returned_at IS NULL")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	field := strings.TrimLeft(q.Sort, "+-")
	col, ok := borrowSortColumns[field]
	if !ok {
		col = "borrowed_at"
	}
	dir := "ASC"
	if q.Sort == "" || strings.HasPrefix(q.Sort, "-") {
		dir = "DESC" // most recent first by default
	}

	if q.Limit <= 0 || q.Limit > 1000 {
		q.Limit = 100
	}
	if q.Skip < 0 {
		q.Skip = 0
	}

	var recs []models.BorrowRecord
	if err := tx.
		Order(col + " " + dir).
		Offset(q.Skip).
		Limit(q.Limit).
		Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}
