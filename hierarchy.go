package arbiter

// Ordering is the result of comparing two values in a hierarchy.
type Ordering int

const (
	// OrderLess means the first value ranks below the second.
	OrderLess Ordering = -1

	// OrderEqual means both values rank the same.
	OrderEqual Ordering = 0

	// OrderGreater means the first value ranks above the second.
	OrderGreater Ordering = 1
)

// GlobalRole is a system-wide authority level, independent of any tenant.
type GlobalRole string

const (
	// GlobalSuperAdmin has unrestricted authority across all tenants.
	GlobalSuperAdmin GlobalRole = "SUPER_ADMIN"

	// GlobalAdmin administers the system but not tenant ownership.
	GlobalAdmin GlobalRole = "ADMIN"

	// GlobalManager manages day-to-day operations system-wide.
	GlobalManager GlobalRole = "MANAGER"

	// GlobalUser is a standard authenticated account.
	GlobalUser GlobalRole = "USER"

	// GlobalGuest has minimal, mostly read-only access.
	GlobalGuest GlobalRole = "GUEST"
)

// Weight returns the numeric rank of the global role. Unknown roles
// rank below every known one.
func (r GlobalRole) Weight() int {
	switch r {
	case GlobalSuperAdmin:
		return 50
	case GlobalAdmin:
		return 40
	case GlobalManager:
		return 30
	case GlobalUser:
		return 20
	case GlobalGuest:
		return 10
	default:
		return 0
	}
}

// Valid reports whether the role is one of the known global roles.
func (r GlobalRole) Valid() bool { return r.Weight() > 0 }

// Compare orders two global roles by authority.
func (r GlobalRole) Compare(other GlobalRole) Ordering {
	return compareWeights(r.Weight(), other.Weight())
}

// AtLeast reports whether the role meets or exceeds the target role.
func (r GlobalRole) AtLeast(target GlobalRole) bool {
	return r.Weight() >= target.Weight()
}

// TenantRole is an authority level scoped to one tenant, assigned per
// principal.
type TenantRole string

const (
	// TenantOwner has full control of the tenant.
	TenantOwner TenantRole = "OWNER"

	// TenantAdmin administers the tenant short of ownership transfer.
	TenantAdmin TenantRole = "ADMIN"

	// TenantManager runs operational workflows (orders, inventory, staff).
	TenantManager TenantRole = "MANAGER"

	// TenantCommercial handles sales-side records.
	TenantCommercial TenantRole = "COMMERCIAL"

	// TenantAccountant handles financial records.
	TenantAccountant TenantRole = "ACCOUNTANT"

	// TenantTechnician performs field and maintenance work.
	TenantTechnician TenantRole = "TECHNICIAN"

	// TenantOperator executes routine tasks on assigned resources.
	TenantOperator TenantRole = "OPERATOR"

	// TenantUser is a standard tenant member.
	TenantUser TenantRole = "USER"

	// TenantGuest has limited, mostly read-only tenant access.
	TenantGuest TenantRole = "GUEST"

	// TenantViewer can only view what is explicitly shared.
	TenantViewer TenantRole = "VIEWER"
)

// Weight returns the numeric rank of the tenant role. Unknown roles
// rank below every known one.
func (r TenantRole) Weight() int {
	switch r {
	case TenantOwner:
		return 100
	case TenantAdmin:
		return 90
	case TenantManager:
		return 80
	case TenantCommercial:
		return 70
	case TenantAccountant:
		return 60
	case TenantTechnician:
		return 50
	case TenantOperator:
		return 40
	case TenantUser:
		return 30
	case TenantGuest:
		return 20
	case TenantViewer:
		return 10
	default:
		return 0
	}
}

// Valid reports whether the role is one of the known tenant roles.
func (r TenantRole) Valid() bool { return r.Weight() > 0 }

// Compare orders two tenant roles by authority.
func (r TenantRole) Compare(other TenantRole) Ordering {
	return compareWeights(r.Weight(), other.Weight())
}

// AtLeast reports whether the role meets or exceeds the target role.
func (r TenantRole) AtLeast(target TenantRole) bool {
	return r.Weight() >= target.Weight()
}

// HigherTenantRole returns the greater of two tenant roles.
func HigherTenantRole(a, b TenantRole) TenantRole {
	if a.Compare(b) == OrderLess {
		return b
	}
	return a
}

// FloorTenantRole maps a global role to the tenant role it implies as a
// floor: a principal's effective tenant authority never drops below the
// floor of their global role.
func FloorTenantRole(r GlobalRole) TenantRole {
	switch r {
	case GlobalSuperAdmin:
		return TenantOwner
	case GlobalAdmin:
		return TenantAdmin
	case GlobalManager:
		return TenantManager
	case GlobalUser:
		return TenantUser
	case GlobalGuest:
		return TenantViewer
	default:
		return TenantViewer
	}
}

// AccessLevel is the granularity of allowed operation on a resource.
type AccessLevel string

const (
	// AccessBlocked denies the operation entirely.
	AccessBlocked AccessLevel = "BLOCKED"

	// AccessRead allows reading.
	AccessRead AccessLevel = "READ"

	// AccessWrite allows reading and writing.
	AccessWrite AccessLevel = "WRITE"

	// AccessDelete allows reading, writing, and deletion.
	AccessDelete AccessLevel = "DELETE"

	// AccessAdmin allows every operation, including administration.
	AccessAdmin AccessLevel = "ADMIN"
)

// Weight returns the numeric rank of the access level. Unknown levels
// rank as BLOCKED.
func (l AccessLevel) Weight() int {
	switch l {
	case AccessBlocked:
		return 0
	case AccessRead:
		return 10
	case AccessWrite:
		return 20
	case AccessDelete:
		return 30
	case AccessAdmin:
		return 40
	default:
		return 0
	}
}

// Valid reports whether the level is one of the known access levels.
func (l AccessLevel) Valid() bool {
	switch l {
	case AccessBlocked, AccessRead, AccessWrite, AccessDelete, AccessAdmin:
		return true
	default:
		return false
	}
}

// Compare orders two access levels.
func (l AccessLevel) Compare(other AccessLevel) Ordering {
	return compareWeights(l.Weight(), other.Weight())
}

// AtLeast reports whether the level meets or exceeds the required level.
func (l AccessLevel) AtLeast(required AccessLevel) bool {
	return l.Weight() >= required.Weight()
}

// HigherAccessLevel returns the greater of two access levels.
func HigherAccessLevel(a, b AccessLevel) AccessLevel {
	if a.Compare(b) == OrderLess {
		return b
	}
	return a
}

func compareWeights(a, b int) Ordering {
	switch {
	case a < b:
		return OrderLess
	case a > b:
		return OrderGreater
	default:
		return OrderEqual
	}
}
