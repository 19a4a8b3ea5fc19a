package jwttoken

import (
	"attest/pkg/platform/middleware/auth"
)

// Validator exposes JWTService to the auth middleware.
type Validator struct {
	service *JWTService
}

func NewValidator(service *JWTService) *Validator {
	return &Validator{service: service}
}

func (v *Validator) ValidateToken(token string) (*auth.Claims, error) {
	claims, err := v.service.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &auth.Claims{UserID: claims.UserID, JTI: claims.ID, Scopes: claims.Scope}, nil
}
