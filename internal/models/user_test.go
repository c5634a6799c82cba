package models

import (
	"testing"
	"time"
)

func TestChangedPasswordAfter(t *testing.T) {
	user := User{}
	if user.ChangedPasswordAfter(time.Now().Unix()) {
		t.Fatal("user without a password change must never invalidate tokens")
	}

	changed := time.Now()
	user.PasswordChangedAt = &changed

	before := changed.Add(-time.Minute).Unix()
	if !user.ChangedPasswordAfter(before) {
		t.Fatal("token issued before the change must be invalidated")
	}

	after := changed.Add(time.Minute).Unix()
	if user.ChangedPasswordAfter(after) {
		t.Fatal("token issued after the change must stay valid")
	}
}
