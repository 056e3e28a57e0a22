package credentials

import (
	"regexp"
	"strings"
	"testing"
)

func TestGenerateJoinCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z]+-[a-z]+-[0-9]{2}$`)
	for i := 0; i < 50; i++ {
		code, err := GenerateJoinCode()
		if err != nil {
			t.Fatalf("GenerateJoinCode() error = %v", err)
		}
		if !pattern.MatchString(code) {
			t.Errorf("join code %q does not match %s", code, pattern)
		}
		if NormalizeCode("  "+code+" ") != code {
			t.Errorf("NormalizeCode should round trip %q", code)
		}
	}
}

func TestGenerateInviteCode(t *testing.T) {
	tests := []struct {
		name       string
		iterations int
		unique     bool
	}{
		{name: "generates code of correct length", iterations: 100},
		{name: "generates unique codes", iterations: 20, unique: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make(map[string]bool)
			for i := 0; i < tt.iterations; i++ {
				code, err := GenerateInviteCode()
				if err != nil {
					t.Fatalf("GenerateInviteCode() error = %v", err)
				}
				if len(code) != 8 {
					t.Errorf("code length %d, want 8", len(code))
				}
				if regexp.MustCompile(`[01IO]`).MatchString(code) {
					t.Errorf("code %q contains ambiguous characters", code)
				}
				if NormalizeInviteCode(" "+strings.ToLower(code)) != code {
					t.Errorf("NormalizeInviteCode should round trip %q", code)
				}
				if tt.unique {
					if seen[code] {
						t.Errorf("duplicate code generated: %s", code)
					}
					seen[code] = true
				}
			}
		})
	}
}
