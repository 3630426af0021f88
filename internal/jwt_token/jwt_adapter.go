package jwttoken

import (
	authmw "aip/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *Claims) *authmw.JWTClaims {
	return &authmw.JWTClaims{
		UserID: claims.UserID,
		OrgID:  claims.OrgID,
		Role:   claims.Role,
	}
}

// ValidatorAdapter satisfies authmw.JWTValidator.
type ValidatorAdapter struct {
	validator *Validator
}

func NewValidatorAdapter(v *Validator) *ValidatorAdapter {
	return &ValidatorAdapter{validator: v}
}

func (a *ValidatorAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.validator.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
