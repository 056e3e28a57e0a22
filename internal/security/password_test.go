package security

import "testing"

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("sprout-garden-42")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	again, err := HashPassword("sprout-garden-42")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == again {
		t.Error("hashes of the same password should be salted apart")
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{name: "match", password: "sprout-garden-42", hash: hash, want: true},
		{name: "second hash matches too", password: "sprout-garden-42", hash: again, want: true},
		{name: "wrong password", password: "sprout-garden-43", hash: hash, want: false},
		{name: "empty password", password: "", hash: hash, want: false},
		{name: "google account has no hash", password: "sprout-garden-42", hash: "", want: false},
		{name: "corrupt hash", password: "sprout-garden-42", hash: "not-bcrypt", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("CheckPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}
