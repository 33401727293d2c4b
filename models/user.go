package models

import (
	"time"

	"library-lending/permissions"
)

const UserTable = "lib_users"
const OverrideTable = "lib_permission_overrides"

type User struct {
	ID             string           `gorm:"type:uuid;primaryKey" json:"id"`
	Email          string           `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FullName       string           `gorm:"size:255" json:"fullName,omitempty"`
	HashedPassword string           `gorm:"size:255;not null" json:"-"`
	Role           permissions.Role `gorm:"size:20;not null;default:'member'" json:"role"`
	IsSuperuser    bool             `gorm:"not null;default:false" json:"isSuperuser"`
	IsActive       bool             `gorm:"not null;default:true" json:"isActive"`

	LastSeenAt *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Overrides []PermissionOverride `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string { return UserTable }

// ResolverOverrides converts the loaded override rows into the pure
// resolver's input shape.
func (u *User) ResolverOverrides() []permissions.Override {
	out := make([]permissions.Override, len(u.Overrides))
	for i, o := range u.Overrides {
		out[i] = permissions.Override{
			Permission: permissions.Permission(o.Permission),
			Effect:     o.Effect,
		}
	}
	return out
}

// PermissionOverride grants or revokes one permission token for one user,
// beyond the role defaults. Superuser-managed.
type PermissionOverride struct {
	ID         string             `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string             `gorm:"type:uuid;index;not null" json:"userId"`
	Permission string             `gorm:"size:100;not null" json:"permission"`
	Effect     permissions.Effect `gorm:"size:10;not null;default:'allow'" json:"effect"`
	CreatedAt  time.Time          `json:"createdAt"`
}

func (PermissionOverride) TableName() string { return OverrideTable }
