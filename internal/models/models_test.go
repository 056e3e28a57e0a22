package models

import (
	"testing"
	"time"
)

func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "future expiration",
			expiresAt: time.Now().Add(1 * time.Hour),
			want:      false,
		},
		{
			name:      "just expired",
			expiresAt: time.Now().Add(-1 * time.Second),
			want:      true,
		},
		{
			name:      "expired yesterday",
			expiresAt: time.Now().Add(-24 * time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := Session{
				ID:        "test-session",
				UserID:    1,
				ExpiresAt: tt.expiresAt,
				CreatedAt: time.Now().Add(-1 * time.Hour),
			}
			result := session.IsExpired()
			if result != tt.want {
				t.Errorf("Session.IsExpired() = %v, want %v", result, tt.want)
			}
		})
	}
}

func TestAgeGroupFor(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		birthDate time.Time
		want      string
	}{
		{"newborn", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), "0-1"},
		{"day before first birthday", time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), "0-1"},
		{"first birthday", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), "1-2"},
		{"three and a half", time.Date(2022, 12, 1, 0, 0, 0, 0, time.UTC), "3-4"},
		{"five", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), "5-6"},
		{"seven", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), "6+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AgeGroupFor(tt.birthDate, now); got != tt.want {
				t.Errorf("AgeGroupFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		birthDate time.Time
		want      string
	}{
		{time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC), "1 month"},
		{time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC), "9 months"},
		{time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), "2 years"},
		{time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC), "3 years, 3 months"},
		{time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), "1 year"},
	}

	for _, tt := range tests {
		if got := FormatAge(tt.birthDate, now); got != tt.want {
			t.Errorf("FormatAge(%s) = %q, want %q", tt.birthDate.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"monday stays", time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC), "2026-10-19"},
		{"wednesday", time.Date(2026, 10, 21, 23, 0, 0, 0, time.UTC), "2026-10-19"},
		{"sunday belongs to previous monday", time.Date(2026, 10, 25, 12, 0, 0, 0, time.UTC), "2026-10-19"},
		{"crosses month", time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), "2026-10-26"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StartOfWeek(tt.in)
			if got.Format(WeekLayout) != tt.want {
				t.Errorf("StartOfWeek() = %s, want %s", got.Format(WeekLayout), tt.want)
			}
			if WeekdayOf(got) != Monday {
				t.Errorf("WeekdayOf(StartOfWeek()) = %s, want monday", WeekdayOf(got))
			}
		})
	}
}

func TestSkillStatusRegresses(t *testing.T) {
	tests := []struct {
		from, to SkillStatus
		want     bool
	}{
		{StatusNotStarted, StatusEmerging, false},
		{StatusEmerging, StatusEmerging, false},
		{StatusDeveloping, StatusMastered, false},
		{StatusMastered, StatusDeveloping, true},
		{StatusDeveloping, StatusNotStarted, true},
	}

	for _, tt := range tests {
		if got := tt.from.Regresses(tt.to); got != tt.want {
			t.Errorf("%s.Regresses(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestPreferencesDayCounts(t *testing.T) {
	t.Run("defaults to monday wednesday friday", func(t *testing.T) {
		counts := Preferences{}.DayCounts()
		if len(counts) != 3 || counts[Monday] != 2 || counts[Wednesday] != 2 || counts[Friday] != 2 {
			t.Errorf("unexpected default counts %v", counts)
		}
	})

	t.Run("drops zero and unknown days", func(t *testing.T) {
		prefs := Preferences{ActivitiesPerDay: map[Weekday]int{Tuesday: 3, Thursday: 0, "funday": 4}}
		counts := prefs.DayCounts()
		if len(counts) != 1 || counts[Tuesday] != 3 {
			t.Errorf("unexpected counts %v", counts)
		}
	})
}

func TestNormalizeMaterialName(t *testing.T) {
	tests := map[string]string{
		"Pouring Pitcher (small)": "pouring pitcher small",
		"  Pink Tower ":           "pink tower",
		"sandpaper-letters":       "sandpaper letters",
	}
	for in, want := range tests {
		if got := NormalizeMaterialName(in); got != want {
			t.Errorf("NormalizeMaterialName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRoleLandingPath(t *testing.T) {
	tests := []struct {
		claim string
		want  string
	}{
		{"admin", "/admin/dashboard"},
		{"educator", "/educator/dashboard"},
		{"parent", "/dashboard"},
		{"", "/dashboard"},
		{"superuser", "/dashboard"},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.claim).LandingPath(); got != tt.want {
			t.Errorf("ParseRole(%q).LandingPath() = %q, want %q", tt.claim, got, tt.want)
		}
	}
}

func TestInvitationIsValid(t *testing.T) {
	used := time.Now()
	tests := []struct {
		name string
		inv  Invitation
		want bool
	}{
		{"fresh", Invitation{ExpiresAt: time.Now().Add(time.Hour)}, true},
		{"expired", Invitation{ExpiresAt: time.Now().Add(-time.Hour)}, false},
		{"used", Invitation{ExpiresAt: time.Now().Add(time.Hour), UsedAt: &used}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inv.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgressRecordDefaults(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	record := ProgressRecord{ChildID: 1}
	record.ApplyDefaults(now)

	if record.CompletionStatus != CompletionCompleted || record.Engagement != LevelMedium ||
		record.Interest != LevelMedium || record.Difficulty != "appropriate" {
		t.Errorf("unexpected defaults: %+v", record)
	}
	if !record.ObservedAt.Equal(now) {
		t.Errorf("ObservedAt = %v, want %v", record.ObservedAt, now)
	}
	if err := record.Validate(); err != nil {
		t.Errorf("Validate() after defaults = %v", err)
	}
}
