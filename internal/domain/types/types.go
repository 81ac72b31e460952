package types

type ServiceMode string

// AuthService - login, token refresh and profile of every user
// AdminService - user management, trip review, exports, payments and analytics
// DriverService - trip logs and payments of the signed in driver
// AllServices - every route in one process, used by the web client behind a single base path
const (
	AuthService   ServiceMode = "auth-service"
	AdminService  ServiceMode = "admin-service"
	DriverService ServiceMode = "driver-service"
	AllServices   ServiceMode = "all"
)

func (m ServiceMode) Valid() bool {
	switch m {
	case AuthService, AdminService, DriverService, AllServices:
		return true
	}
	return false
}

// Has reports whether routes of the given mode are served by m.
func (m ServiceMode) Has(mode ServiceMode) bool {
	return m == mode || m == AllServices
}

// UserRole enum
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	RoleAdmin  UserRole = "admin"
	RoleDriver UserRole = "driver"
)

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleDriver
}

// ExportFormat enum
type ExportFormat string

const (
	ExportPDF  ExportFormat = "pdf"
	ExportXLSX ExportFormat = "xlsx"
)

func (f ExportFormat) ContentType() string {
	switch f {
	case ExportPDF:
		return "application/pdf"
	case ExportXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

func (f ExportFormat) Valid() bool {
	return f == ExportPDF || f == ExportXLSX
}
