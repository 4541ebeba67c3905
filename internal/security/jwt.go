package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateAccess creates a signed HS256 JWT access token for the given user.
func GenerateAccess(secret, userID, issuer, audience string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": issuer,
		"aud": audience,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// VerifyAccess validates an access token and returns the subject user id.
func VerifyAccess(secret, issuer, audience, tokenString string) (string, error) {
	claims, err := verify(secret, tokenString)
	if err != nil {
		return "", err
	}

	if issuer != "" {
		if iss, ok := claims["iss"].(string); !ok || iss != issuer {
			return "", fmt.Errorf("invalid token issuer")
		}
	}

	if audience != "" {
		if aud, ok := claims["aud"].(string); !ok || aud != audience {
			return "", fmt.Errorf("invalid token audience")
		}
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("invalid token claims")
	}

	return sub, nil
}

// GenerateOTPToken signs a short-lived token carrying the email and OTP so the
// server does not have to store pending verifications.
func GenerateOTPToken(secret, email, otp string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"email": email,
		"otp":   otp,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// VerifyOTPToken validates an OTP token and returns the email and OTP it carries.
func VerifyOTPToken(secret, tokenString string) (string, string, error) {
	claims, err := verify(secret, tokenString)
	if err != nil {
		return "", "", err
	}

	email, ok := claims["email"].(string)
	if !ok {
		return "", "", fmt.Errorf("invalid token claims")
	}
	otp, ok := claims["otp"].(string)
	if !ok {
		return "", "", fmt.Errorf("invalid token claims")
	}

	return email, otp, nil
}

func verify(secret, tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
