package models

import "time"

const BookTable = "lib_books"
const BorrowTable = "lib_borrow_records"

// Book is one physical copy. Several rows may share an ISBN (multiple
// copies); all of them must carry identical title and author.
type Book struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	ISBN        string `gorm:"size:20;index;not null" json:"isbn"` // normalized, not unique
	Title       string `gorm:"size:500;not null" json:"title"`
	Author      string `gorm:"size:255;not null" json:"author"`
	IsAvailable bool   `gorm:"not null;default:true" json:"isAvailable"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Book) TableName() string { return BookTable }

// BorrowRecord tracks one lending of one copy. ReturnedAt nil means the
// loan is still active; at most one active record may exist per book,
// enforced by a partial unique index.
type BorrowRecord struct {
	ID         string `gorm:"type:uuid;primaryKey" json:"id"`
	BookID     string `gorm:"type:uuid;index;not null" json:"bookId"`
	BorrowerID string `gorm:"type:uuid;index;not null" json:"borrowerId"`

	BorrowedAt time.Time  `gorm:"index;not null" json:"borrowedAt"`
	ReturnedAt *time.Time `gorm:"index" json:"returnedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (BorrowRecord) TableName() string { return BorrowTable }
