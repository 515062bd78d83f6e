package domain

import "time"

// PrincipalKind differentiates consumer, business and admin tokens.
// The values match the userType claim carried on the wire.
type PrincipalKind string

const (
	KindConsumer PrincipalKind = "user"
	KindBusiness PrincipalKind = "business"
	KindAdmin    PrincipalKind = "admin"
)

// Valid reports whether the kind is one of the three recognized variants.
func (k PrincipalKind) Valid() bool {
	switch k {
	case KindConsumer, KindBusiness, KindAdmin:
		return true
	}
	return false
}

// Principal represents the authenticated entity a token is issued for.
// Kind selects which signing secrets and expiry profile apply.
type Principal struct {
	Kind        PrincipalKind
	ID          string
	Email       string
	Name        string
	CompanyName string
	Role        string
}

// ConsumerPrincipal builds a consumer principal.
func ConsumerPrincipal(id, email, name string) Principal {
	return Principal{Kind: KindConsumer, ID: id, Email: email, Name: name}
}

// BusinessPrincipal builds a business principal.
func BusinessPrincipal(id, email, companyName string) Principal {
	return Principal{Kind: KindBusiness, ID: id, Email: email, CompanyName: companyName}
}

// AdminPrincipal builds an admin principal with its role.
func AdminPrincipal(id, email, role string) Principal {
	return Principal{Kind: KindAdmin, ID: id, Email: email, Role: role}
}

// TokenPair bundles the access/refresh tokens minted for a principal.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
