package jwtutil

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken("secret", time.Minute, 42, "gopher")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID != 42 || claims.Username != "gopher" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongSecretAndExpired(t *testing.T) {
	token, err := GenerateToken("secret", time.Minute, 1, "a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken("other", token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret error = %v, want ErrInvalidToken", err)
	}

	expired, err := GenerateToken("secret", -time.Minute, 1, "a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken("secret", expired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired error = %v, want ErrInvalidToken", err)
	}
}
