// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}
	if strings.Contains(hash, "changeme") {
		t.Fatal("hash contains the plaintext password")
	}

	other, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == other {
		t.Error("two hashes of the same password should differ by salt")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"correct", "correct horse", true},
		{"wrong", "battery staple", false},
		{"empty", "", false},
		{"case differs", "Correct horse", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckPassword(tt.password, hash)
			if err != nil {
				t.Fatalf("CheckPassword error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CheckPassword(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestCheckPassword_OtherParams(t *testing.T) {
	hash, err := hashWith("changeme", Params{Time: 1, Memory: 8 * 1024, Threads: 2, KeyLen: 24, SaltLen: 8})
	if err != nil {
		t.Fatalf("hashWith error: %v", err)
	}

	ok, err := CheckPassword("changeme", hash)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if !ok {
		t.Fatal("hash with non-default params rejected correct password")
	}
	if !NeedsRehash(hash) {
		t.Error("NeedsRehash() = false for non-default params")
	}
}

func TestCheckPassword_InvalidHash(t *testing.T) {
	for _, h := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$!!!$a2V5",
	} {
		if _, err := CheckPassword("x", h); !errors.Is(err, ErrInvalidHash) {
			t.Errorf("CheckPassword(%q) error = %v, want ErrInvalidHash", h, err)
		}
	}
}

func TestNeedsRehash_Default(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if NeedsRehash(hash) {
		t.Error("NeedsRehash() = true for default params")
	}
	if !NeedsRehash("garbage") {
		t.Error("NeedsRehash() = false for garbage")
	}
}
