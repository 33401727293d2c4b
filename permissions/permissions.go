// Package permissions implements role-based access control with per-user
// allow/deny overrides. Naming convention for tokens: resource:action.
package permissions

import "sort"

type Permission string

const (
	BooksCreate Permission = "books:create"
	BooksRead   Permission = "books:read"
	BooksUpdate Permission = "books:update"
	BooksDelete Permission = "books:delete"

	BorrowsCreate  Permission = "borrows:create"
	BorrowsReturn  Permission = "borrows:return"
	BorrowsRead    Permission = "borrows:read"     // own borrow records
	BorrowsReadAll Permission = "borrows:read_all" // everyone's borrow records

	UsersRead   Permission = "users:read"
	UsersManage Permission = "users:manage"
)

type Role string

const (
	RoleLibrarian Role = "librarian"
	RoleMember    Role = "member"
)

type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

var allPermissions = []Permission{
	BooksCreate, BooksRead, BooksUpdate, BooksDelete,
	BorrowsCreate, BorrowsReturn, BorrowsRead, BorrowsReadAll,
	UsersRead, UsersManage,
}

// rolePermissions is fixed at build time and never mutated after init,
// safe to read from concurrent handlers.
var rolePermissions = map[Role][]Permission{
	RoleLibrarian: {
		BooksCreate, BooksRead, BooksUpdate, BooksDelete,
		BorrowsRead, BorrowsReadAll, UsersRead,
	},
	RoleMember: {
		BooksRead, BorrowsCreate, BorrowsReturn, BorrowsRead,
	},
}

// Override is a single per-user grant or revocation of one permission token.
type Override struct {
	Permission Permission `json:"permission"`
	Effect     Effect     `json:"effect"`
}

type Set map[Permission]struct{}

func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the tokens in the set as sorted strings.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// All returns the full permission set, granted to superusers.
func All() Set {
	s := make(Set, len(allPermissions))
	for _, p := range allPermissions {
		s[p] = struct{}{}
	}
	return s
}

// Known reports whether p is a recognized permission token.
func Known(p Permission) bool {
	for _, k := range allPermissions {
		if k == p {
			return true
		}
	}
	return false
}

// KnownTokens lists every recognized token, for error messages.
func KnownTokens() []string {
	out := make([]string, len(allPermissions))
	for i, p := range allPermissions {
		out[i] = string(p)
	}
	return out
}

func KnownRole(r Role) bool {
	_, ok := rolePermissions[r]
	return ok
}

func KnownEffect(e Effect) bool {
	return e == EffectAllow || e == EffectDeny
}

// RoleDefaults returns the static default permissions of a role.
func RoleDefaults(role Role) []Permission {
	defaults := rolePermissions[role]
	out := make([]Permission, len(defaults))
	copy(out, defaults)
	return out
}

// Resolve merges the role's default permission set with per-user overrides.
// Allows add tokens, denies remove them; denies are applied last, so a deny
// wins over the role default and over any allow for the same token no matter
// the order of the overrides. Unknown tokens are skipped.
func Resolve(role Role, overrides []Override) Set {
	set := make(Set)
	for _, p := range rolePermissions[role] {
		set[p] = struct{}{}
	}

	var denies []Permission
	for _, o := range overrides {
		if !Known(o.Permission) {
			continue
		}
		switch o.Effect {
		case EffectAllow:
			set[o.Permission] = struct{}{}
		case EffectDeny:
			denies = append(denies, o.Permission)
		}
	}
	for _, p := range denies {
		delete(set, p)
	}
	return set
}

// Report breaks a resolution down into its inputs and outcome, for the
// permission introspection endpoint.
type Report struct {
	Role            Role       `json:"role"`
	RolePermissions []string   `json:"rolePermissions"`
	Overrides       []Override `json:"overrides"`
	Effective       []string   `json:"effectivePermissions"`
}

// ResolveReport is Resolve plus the intermediate inputs.
func ResolveReport(role Role, overrides []Override) Report {
	defaults := make(Set)
	for _, p := range rolePermissions[role] {
		defaults[p] = struct{}{}
	}
	if overrides == nil {
		overrides = []Override{}
	}
	return Report{
		Role:            role,
		RolePermissions: defaults.Sorted(),
		Overrides:       overrides,
		Effective:       Resolve(role, overrides).Sorted(),
	}
}
