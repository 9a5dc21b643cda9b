package auth

import (
	"strconv"

	"ferremas-fulfillment/internal/apperrors"
	"ferremas-fulfillment/internal/models"

	"github.com/dgrijalva/jwt-go"
)

// Identity is the authenticated caller resolved from a request token.
type Identity struct {
	UserID int64
	Role   models.Role
}

// Claims is the token payload issued by the identity provider: the standard
// subject carries the user ID, Role carries the role claim.
type Claims struct {
	jwt.StandardClaims
	Role string `json:"role"`
}

// Verifier validates identity-provider tokens and yields (userID, role).
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier with the shared HS256 signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a bearer token. Any parse, signature, or
// expiry failure is an authentication error; the caller gets no detail about
// which check failed.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, apperrors.Authentication("missing credentials")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.Authentication("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, apperrors.Authentication("invalid credentials")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Identity{}, apperrors.Authentication("invalid subject claim")
	}

	role := models.Role(claims.Role)
	if !knownRoles[role] {
		return Identity{}, apperrors.Authentication("unknown role claim")
	}

	return Identity{UserID: userID, Role: role}, nil
}

var knownRoles = map[models.Role]bool{
	models.RoleAdmin:     true,
	models.RoleSales:     true,
	models.RoleDelivery:  true,
	models.RoleWarehouse: true,
	models.RoleCustomer:  true,
}
