// Package authtest issues bearer tokens for route tests.
package authtest

import (
	"net/http"
	"testing"
	"time"

	"github.com/ziadkadry99/canteen/internal/auth"
)

const secret = "authtest-secret-authtest-secret-authtest"

// Tokens returns a token issuer with a fixed test secret.
func Tokens() *auth.Tokens {
	return auth.NewTokens(secret, time.Hour)
}

// Authorize sets a bearer token for p on req.
func Authorize(t testing.TB, tokens *auth.Tokens, req *http.Request, p auth.Principal) *http.Request {
	t.Helper()
	raw, err := tokens.Issue(p)
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+raw)
	return req
}

var (
	Admin      = auth.Principal{EmployeeID: "ADMIN1", Admin: true}
	SuperAdmin = auth.Principal{EmployeeID: "ROOT", SuperAdmin: true}
)

// Employee returns a non-admin principal.
func Employee(id string) auth.Principal {
	return auth.Principal{EmployeeID: id}
}
