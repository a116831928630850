package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Role is an authenticated principal's role
type Role string

const (
	RoleAdmin Role = "admin"
	RoleHOD   Role = "hod"
)

// Principal is the already-authenticated caller. Authentication itself lives
// outside this core; the server only consumes the resolved identity.
type Principal struct {
	Subject      string
	Role         Role
	DepartmentID string // set for hod principals
}

// Authenticator resolves the principal for a request
type Authenticator interface {
	Authenticate(c *gin.Context) (*Principal, error)
}

var errUnauthenticated = errors.New("unauthenticated request")

// HeaderAuthenticator trusts identity headers set by an upstream auth proxy
// (X-User, X-Role, X-Department). It stands in for the external auth
// collaborator and must sit behind one in production.
type HeaderAuthenticator struct{}

// Authenticate reads the identity headers
func (HeaderAuthenticator) Authenticate(c *gin.Context) (*Principal, error) {
	role := Role(c.GetHeader("X-Role"))
	if role != RoleAdmin && role != RoleHOD {
		return nil, errUnauthenticated
	}

	principal := &Principal{
		Subject:      c.GetHeader("X-User"),
		Role:         role,
		DepartmentID: c.GetHeader("X-Department"),
	}
	if principal.Role == RoleHOD && principal.DepartmentID == "" {
		return nil, errUnauthenticated
	}

	return principal, nil
}

const principalKey = "principal"

// authMiddleware resolves and stores the principal, rejecting anonymous calls
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := s.auth.Authenticate(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "authentication required",
			})
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// requireRole restricts a route to one role
func requireRole(role Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if principalFrom(c).Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, Response{
				Success: false,
				Error:   "insufficient role",
			})
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) *Principal {
	return c.MustGet(principalKey).(*Principal)
}

// canAccessDepartment reports whether the principal may read the department.
// Admins see everything; hods only their own department.
func canAccessDepartment(p *Principal, departmentID string) bool {
	if p.Role == RoleAdmin {
		return true
	}
	return p.DepartmentID == departmentID
}
