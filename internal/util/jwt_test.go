package util

import (
	"testing"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestInstanceURLFromJWT(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  "https://myorg.example.com",
		Subject: "https://login.example.com/id/00D000000000001EAA/005000000000001",
	})
	signed, err := token.SignedString([]byte("test"))
	assert.NoError(t, err)
	iss, err := InstanceURLFromJWT(signed)
	assert.NoError(t, err)
	assert.Equal(t, "https://myorg.example.com", iss)

	_, err = InstanceURLFromJWT("not-a-jwt")
	assert.Error(t, err)
}

func TestOrgIDFromIdentityURL(t *testing.T) {
	assert.Equal(t, "00D000000000001EAA", OrgIDFromIdentityURL("https://login.example.com/id/00D000000000001EAA/005000000000001"))
	assert.Equal(t, "00D000000000001EAA", OrgIDFromIdentityURL("https://login.example.com/id/00D000000000001EAA/005000000000001/"))
	assert.Equal(t, "", OrgIDFromIdentityURL(""))
}
