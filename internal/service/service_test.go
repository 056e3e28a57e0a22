package service

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnsprout/internal/database"
	"learnsprout/internal/identity"
	"learnsprout/internal/logger"
	"learnsprout/internal/mailer"
	"learnsprout/internal/models"
	"learnsprout/internal/recommend"
	"learnsprout/internal/repository"
	"learnsprout/internal/validation"
)

type testEnv struct {
	db       *database.DB
	users    *repository.UserRepository
	skills   *repository.SkillRepository
	sender   *mailer.NoopSender
	auth     *AuthService
	children *ChildService
	assess   *AssessmentService
	plans    *PlanService
	progress *ProgressService
	material *MaterialService
	family   *FamilyService
	digest   *DigestService
	admin    *models.User
	now      time.Time
}

// newTestEnv wires every service against a fresh SQLite file seeded with the
// default catalog. The clock sits on Tuesday 10:00 of the current week.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewNop()
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	childRepo := repository.NewChildRepository(db)
	skillRepo := repository.NewSkillRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	planRepo := repository.NewPlanRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	institutionRepo := repository.NewInstitutionRepository(db)

	seeded, err := NewCatalogService(skillRepo, activityRepo, materialRepo, log).SeedIfEmpty()
	require.NoError(t, err)
	require.True(t, seeded)

	now := models.StartOfWeek(time.Now()).Add(34 * time.Hour)
	clock := func() time.Time { return now }

	sender := mailer.NewNoopSender(log)
	emails := NewEmailService(sender, "https://sprout.test", false, log)
	children := NewChildService(childRepo, institutionRepo, log)

	env := &testEnv{
		db:       db,
		users:    userRepo,
		skills:   skillRepo,
		sender:   sender,
		auth:     NewAuthService(userRepo, familyRepo, invitationRepo, time.Hour, log),
		children: children,
		assess:   NewAssessmentService(db, skillRepo, childRepo, children, log),
		plans:    NewPlanService(planRepo, skillRepo, activityRepo, progressRepo, childRepo, userRepo, children, nil, log),
		progress: NewProgressService(db, progressRepo, skillRepo, planRepo, children, nil, log),
		material: NewMaterialService(materialRepo, activityRepo, planRepo, children, 0, log),
		family:   NewFamilyService(familyRepo, userRepo, invitationRepo, emails, log),
		digest:   NewDigestService(userRepo, childRepo, planRepo, activityRepo, emails, log),
		now:      now,
	}
	env.plans.now = clock
	env.assess.now = clock
	env.material.now = clock
	env.digest.now = clock
	env.progress.now = func() time.Time { return now.Add(time.Hour) }

	// the first account always becomes admin
	env.admin, err = userRepo.CreateUser("root@example.com", "", "Root", models.RoleAdmin)
	require.NoError(t, err)
	return env
}

func (e *testEnv) parent(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := e.auth.Register(email, "password123", "Pat Parent", "")
	require.NoError(t, err)
	return user
}

func (e *testEnv) child(t *testing.T, owner *models.User) *models.Child {
	t.Helper()
	child, err := e.children.CreateChild(owner, ChildInput{
		Name:      "Ada",
		BirthDate: time.Now().AddDate(-2, -6, 0),
	})
	require.NoError(t, err)
	return child
}

// assessEmpathy gives the matcher something to plan around
func (e *testEnv) assessEmpathy(t *testing.T, user *models.User, child *models.Child) {
	t.Helper()
	require.NoError(t, e.assess.SaveAssessment(user, child.ID, []AssessmentEntry{
		{SkillID: "soc-empathy", Status: models.StatusEmerging},
		{SkillID: "soc-boundaries", Status: models.StatusMastered},
	}, false))
}

func TestNextSkillStatus(t *testing.T) {
	tests := []struct {
		name    string
		current models.SkillStatus
		count   int
		want    models.SkillStatus
	}{
		{"absent becomes emerging", "", 1, models.StatusEmerging},
		{"not started becomes emerging", models.StatusNotStarted, 1, models.StatusEmerging},
		{"emerging waits", models.StatusEmerging, 2, models.StatusEmerging},
		{"emerging to developing", models.StatusEmerging, 3, models.StatusDeveloping},
		{"developing waits", models.StatusDeveloping, 4, models.StatusDeveloping},
		{"developing to mastered", models.StatusDeveloping, 5, models.StatusMastered},
		{"mastered stays", models.StatusMastered, 10, models.StatusMastered},
		{"no demonstrations", models.StatusNotStarted, 0, models.StatusNotStarted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextSkillStatus(tt.current, tt.count))
		})
	}
}

func TestSaveAssessmentRejectsRegression(t *testing.T) {
	env := newTestEnv(t)
	parent := env.parent(t, "parent@example.com")
	child := env.child(t, parent)

	require.NoError(t, env.assess.SaveAssessment(parent, child.ID, []AssessmentEntry{
		{SkillID: "soc-empathy", Status: models.StatusDeveloping},
	}, false))

	err := env.assess.SaveAssessment(parent, child.ID, []AssessmentEntry{
		{SkillID: "soc-empathy", Status: models.StatusEmerging},
	}, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStatusRegression))
	var regression *RegressionError
	require.True(t, errors.As(err, &regression))
	assert.Equal(t, []string{"soc-empathy"}, regression.SkillIDs)

	err = env.assess.SaveAssessment(parent, child.ID, []AssessmentEntry{
		{SkillID: "no-such-skill", Status: models.StatusEmerging},
	}, false)
	assert.True(t, errors.Is(err, ErrUnknownSkill))

	err = env.assess.SaveAssessment(parent, child.ID, []AssessmentEntry{
		{SkillID: "soc-empathy", Status: "great"},
	}, false)
	assert.True(t, errors.Is(err, ErrInvalidStatus))

	require.NoError(t, env.assess.SaveAssessment(env.admin, child.ID, []AssessmentEntry{
		{SkillID: "soc-empathy", Status: models.StatusEmerging},
	}, true))

	statuses, err := env.skills.GetChildSkillStatuses(child.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEmerging, statuses["soc-empathy"])

	views, err := env.assess.ChildSkills(parent, child.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Empathy", views[0].SkillName)
}

func TestChildAccess(t *testing.T) {
	env := newTestEnv(t)
	owner := env.parent(t, "owner@example.com")
	stranger := env.parent(t, "stranger@example.com")
	child := env.child(t, owner)

	_, err := env.children.GetChild(stranger, child.ID)
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = env.children.GetChild(owner, child.ID+100)
	assert.True(t, errors.Is(err, ErrChildNotFound))

	got, err := env.children.GetChild(env.admin, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	assert.True(t, errors.Is(env.children.DeleteChild(stranger, child.ID), ErrForbidden))
	require.NoError(t, env.children.DeleteChild(owner, child.ID))
}

func TestGeneratePlanPrefersConcernAndKeepsPreviousPlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	parent := env.parent(t, "parent@example.com")
	child := env.child(t, parent)

	require.NoError(t, env.assess.SaveAssessment(parent, child.ID, []AssessmentEntry{
		{SkillID: "soc-empathy", Status: models.StatusEmerging},
		{SkillID: "soc-boundaries", Status: models.StatusMastered},
	}, false))

	recs, err := env.plans.Recommendations(parent, child.ID, []string{"empathy"}, nil)
	require.NoError(t, err)
	require.Len(t, recs.GrowthAreas, 1)
	require.Len(t, recs.Maintenance, 1)
	assert.Equal(t, "soc-empathy", recs.GrowthAreas[0].Skill.ID)
	assert.Equal(t, "soc-boundaries", recs.Maintenance[0].Skill.ID)

	first, err := env.plans.GeneratePlan(ctx, parent, child.ID, GenerateOptions{Concerns: []string{"empathy"}})
	require.NoError(t, err)

	monday := first.Days[models.Monday]
	require.Len(t, monday, 2)
	assert.Equal(t, "act-feelings-faces", monday[0].ActivityID)
	assert.Equal(t, "act-caring-for-doll", monday[1].ActivityID)
	assert.Equal(t, models.SlotMorning, monday[0].TimeSlot)
	assert.Equal(t, models.SlotAfternoon, monday[1].TimeSlot)
	require.Len(t, first.Days[models.Wednesday], 1)
	assert.Equal(t, "act-hula-hoop-space", first.Days[models.Wednesday][0].ActivityID)
	assert.Equal(t, "user:"+strconv.FormatInt(parent.ID, 10), first.CreatedBy)

	second, err := env.plans.GeneratePlan(ctx, parent, child.ID, GenerateOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	current, err := env.plans.CurrentPlan(parent, child.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.Plan.ID)
	assert.Contains(t, current.Activities, "act-feelings-faces")

	previous, err := env.plans.GetPlan(parent, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Count(), previous.Plan.Count())

	history, err := env.plans.PlanHistory(parent, child.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestUpdateEntryStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	parent := env.parent(t, "parent@example.com")
	child := env.child(t, parent)
	env.assessEmpathy(t, parent, child)

	plan, err := env.plans.GeneratePlan(ctx, parent, child.ID, GenerateOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, plan.Days[models.Monday])

	require.NoError(t, env.plans.UpdateEntryStatus(ctx, parent, plan.ID, "Monday", 0, models.PlanConfirmed))
	assert.True(t, errors.Is(env.plans.UpdateEntryStatus(ctx, parent, plan.ID, models.Monday, 0, "done"), ErrInvalidStatus))
	assert.True(t, errors.Is(env.plans.UpdateEntryStatus(ctx, parent, plan.ID, models.Monday, 9, models.PlanCompleted), ErrPlanEntryNotFound))
	assert.True(t, errors.Is(env.plans.UpdateEntryStatus(ctx, parent, plan.ID+50, models.Monday, 0, models.PlanCompleted), ErrPlanNotFound))

	got, err := env.plans.GetPlan(parent, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanConfirmed, got.Plan.Days[models.Monday][0].Status)
}

func TestRecordObservation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	parent := env.parent(t, "parent@example.com")
	child := env.child(t, parent)
	env.assessEmpathy(t, parent, child)

	plan, err := env.plans.GeneratePlan(ctx, parent, child.ID, GenerateOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, plan.Days[models.Monday])
	target := plan.Days[models.Monday][0].ActivityID

	rec := &models.ProgressRecord{
		ID:                 "obs-1",
		ChildID:            child.ID,
		ActivityID:         target,
		SkillsDemonstrated: []string{"soc-empathy", "soc-empathy", "not-a-skill"},
	}
	created, err := env.progress.RecordObservation(ctx, parent, rec)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.CompletionCompleted, rec.CompletionStatus)
	assert.Equal(t, models.LevelMedium, rec.Engagement)

	replay := &models.ProgressRecord{ID: "obs-1", ChildID: child.ID, Notes: "resent", SkillsDemonstrated: []string{"soc-empathy"}}
	created, err = env.progress.RecordObservation(ctx, parent, replay)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, target, replay.ActivityID, "a replay reports the stored record")
	assert.Empty(t, replay.Notes)
	assert.Contains(t, replay.SkillsDemonstrated, "soc-empathy")

	sibling := env.child(t, parent)
	_, err = env.progress.RecordObservation(ctx, parent, &models.ProgressRecord{ID: "obs-1", ChildID: sibling.ID})
	assert.ErrorIs(t, err, ErrRecordIDConflict)

	statuses, err := env.skills.GetChildSkillStatuses(child.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEmerging, statuses["soc-empathy"])
	assert.NotContains(t, statuses, "not-a-skill")

	for _, id := range []string{"obs-2", "obs-3"} {
		_, err := env.progress.RecordObservation(ctx, parent, &models.ProgressRecord{
			ID: id, ChildID: child.ID, SkillsDemonstrated: []string{"soc-empathy"},
		})
		require.NoError(t, err)
	}
	statuses, err = env.skills.GetChildSkillStatuses(child.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeveloping, statuses["soc-empathy"])

	records, err := env.progress.ChildProgress(parent, child.ID, time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 3)

	current, err := env.plans.CurrentPlan(parent, child.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanCompleted, current.Plan.Days[models.Monday][0].Status)

	// the evolved plan is created after every observation
	env.plans.now = func() time.Time { return env.now.Add(2 * time.Hour) }
	evolved, err := env.plans.EvolveIfNeeded(ctx, child.ID)
	require.NoError(t, err)
	assert.True(t, evolved)

	history, err := env.plans.PlanHistory(parent, child.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	evolved, err = env.plans.EvolveIfNeeded(ctx, child.ID)
	require.NoError(t, err)
	assert.False(t, evolved)
}

func TestMaterialForecastSkipsOwnedAndHousehold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	parent := env.parent(t, "parent@example.com")
	child := env.child(t, parent)

	require.NoError(t, env.assess.SaveAssessment(parent, child.ID, []AssessmentEntry{
		{SkillID: "soc-empathy", Status: models.StatusEmerging},
		{SkillID: "soc-boundaries", Status: models.StatusMastered},
		{SkillID: "prl-pouring", Status: models.StatusEmerging},
	}, false))
	_, err := env.plans.GeneratePlan(ctx, parent, child.ID, GenerateOptions{})
	require.NoError(t, err)

	require.NoError(t, env.material.SetOwned(parent, "mat-feelings-cards", true))
	assert.True(t, errors.Is(env.material.SetOwned(parent, "mat-missing", true), ErrMaterialNotFound))

	owned, err := env.material.OwnedIDs(parent)
	require.NoError(t, err)
	assert.Equal(t, []string{"mat-feelings-cards"}, owned)

	items, err := env.material.Forecast(parent, 0)
	require.NoError(t, err)
	require.NotEmpty(t, items)
	for _, item := range items {
		assert.NotEqual(t, "mat-feelings-cards", item.MaterialID)
		assert.False(t, recommend.IsHouseholdItem(item.Name), item.Name)
	}
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].Count, items[i].Count)
	}

	stranger := env.parent(t, "stranger@example.com")
	items, err = env.material.Forecast(stranger, 30)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFamilyInvitationFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.parent(t, "owner@example.com")
	require.NotNil(t, owner.FamilyID)
	child := env.child(t, owner)

	inv, err := env.family.InviteMember(ctx, owner, "partner@example.com")
	require.NoError(t, err)

	sent := env.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"partner@example.com"}, sent[0].To)
	assert.Contains(t, sent[0].HTML, inv.Code)

	_, err = env.auth.Register("someone@example.com", "password123", "Someone", inv.Code)
	assert.True(t, errors.Is(err, ErrInvitationMismatch))

	partner, err := env.auth.Register("partner@example.com", "password123", "Sam Partner", strings.ToLower(inv.Code))
	require.NoError(t, err)
	require.NotNil(t, partner.FamilyID)
	assert.Equal(t, *owner.FamilyID, *partner.FamilyID)

	got, err := env.children.GetChild(partner, child.ID)
	require.NoError(t, err)
	assert.Equal(t, child.ID, got.ID)

	_, err = env.family.AcceptInvitation(partner, inv.Code)
	assert.True(t, errors.Is(err, ErrInvitationInvalid))

	family, err := env.family.GetFamily(owner)
	require.NoError(t, err)
	assert.Len(t, family.Members, 2)
}

func TestAuthLoginAndSessions(t *testing.T) {
	env := newTestEnv(t)
	env.parent(t, "parent@example.com")

	_, err := env.auth.Register("parent@example.com", "password123", "Again", "")
	assert.True(t, errors.Is(err, ErrEmailTaken))

	_, _, err = env.auth.Login("parent@example.com", "wrong-password")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	session, user, err := env.auth.Login("parent@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleParent, user.Role)

	got, err := env.auth.ValidateSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	require.NoError(t, env.auth.Logout(session.ID))
	_, err = env.auth.ValidateSession(session.ID)
	assert.Error(t, err)

	updated, err := env.auth.SetRole("parent@example.com", "educator")
	require.NoError(t, err)
	assert.Equal(t, models.RoleEducator, updated.Role)
	_, err = env.auth.SetRole("parent@example.com", "wizard")
	assert.True(t, errors.Is(err, ErrInvalidRole))
}

func TestPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	env.parent(t, "parent@example.com")
	emails := NewEmailService(env.sender, "https://sprout.test", false, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, env.auth.RequestPasswordReset(ctx, emails, "nobody@example.com"))
	assert.Empty(t, env.sender.Sent())

	require.NoError(t, env.auth.RequestPasswordReset(ctx, emails, "parent@example.com"))
	sent := env.sender.Sent()
	require.Len(t, sent, 1)
	_, rest, found := strings.Cut(sent[0].Text, "token=")
	require.True(t, found)
	token, _, _ := strings.Cut(rest, "\n")

	stored, err := env.users.GetPasswordResetToken(token)
	require.NoError(t, err)
	assert.Nil(t, stored, "the raw token must not be stored")

	ok, err := env.auth.ValidatePasswordResetToken(token)
	require.NoError(t, err)
	assert.True(t, ok)

	session, _, err := env.auth.Login("parent@example.com", "password123")
	require.NoError(t, err)

	var verr validation.ValidationError
	require.ErrorAs(t, env.auth.ResetPassword(token, "short"), &verr)
	assert.Equal(t, "password", verr.Field)

	require.NoError(t, env.auth.ResetPassword(token, "new-password-1"))
	_, err = env.auth.ValidateSession(session.ID)
	assert.Error(t, err, "reset signs the user out")
	_, _, err = env.auth.Login("parent@example.com", "new-password-1")
	require.NoError(t, err)

	require.ErrorAs(t, env.auth.ResetPassword(token, "another-password"), &verr)
	assert.Equal(t, "token", verr.Field)
	ok, err = env.auth.ValidatePasswordResetToken(token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolvePrincipal(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.auth.ResolvePrincipal(&identity.Principal{
		Subject: "sub-1", Email: "educator@example.com", Name: "Tess", Role: models.RoleEducator, RoleClaimed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleEducator, user.Role)
	assert.NotNil(t, user.FamilyID)

	again, err := env.auth.ResolvePrincipal(&identity.Principal{
		Subject: "sub-1", Email: "educator@example.com", Role: models.RoleAdmin, RoleClaimed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, models.RoleAdmin, again.Role)

	noClaim, err := env.auth.ResolvePrincipal(&identity.Principal{
		Subject: "sub-1", Email: "educator@example.com", Role: models.ParseRole(""),
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, noClaim.Role, "a token without a role claim keeps the stored role")

	local := env.parent(t, "local@example.com")
	linked, err := env.auth.ResolvePrincipal(&identity.Principal{
		Subject: "sub-2", Email: "local@example.com", EmailVerified: true, Role: models.RoleParent, RoleClaimed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, local.ID, linked.ID)

	_, err = env.auth.ResolvePrincipal(&identity.Principal{})
	assert.Error(t, err)
}

func TestResolvePrincipalDoesNotTakeOverAccounts(t *testing.T) {
	env := newTestEnv(t)

	victim := env.parent(t, "victim@example.com")
	child := env.child(t, victim)
	admin := env.admin

	t.Run("unverified email is not linked", func(t *testing.T) {
		_, err := env.auth.ResolvePrincipal(&identity.Principal{
			Subject: "other-sub", Email: "victim@example.com", Role: models.ParseRole(""),
		})
		assert.ErrorIs(t, err, ErrEmailTaken)

		stored, err := env.users.GetUserByEmail("victim@example.com")
		require.NoError(t, err)
		assert.Empty(t, stored.OAuthProvider)
	})

	t.Run("unverified email cannot demote the admin", func(t *testing.T) {
		_, err := env.auth.ResolvePrincipal(&identity.Principal{
			Subject: "x", Email: "root@example.com", Role: models.ParseRole(""),
		})
		assert.ErrorIs(t, err, ErrEmailTaken)

		stored, err := env.users.GetUserByID(admin.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, stored.Role)
	})

	t.Run("account linked to another provider is not relinked", func(t *testing.T) {
		_, _, err := env.auth.OAuthLogin("google", "g-1", "linked@example.com", "Lin", "")
		require.NoError(t, err)

		_, err = env.auth.ResolvePrincipal(&identity.Principal{
			Subject: "idp-1", Email: "linked@example.com", EmailVerified: true, Role: models.RoleParent, RoleClaimed: true,
		})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("verified email links and keeps access scoped", func(t *testing.T) {
		stranger, err := env.auth.ResolvePrincipal(&identity.Principal{
			Subject: "stranger", Email: "stranger@example.com", EmailVerified: true, Role: models.RoleParent, RoleClaimed: true,
		})
		require.NoError(t, err)
		assert.NotEqual(t, victim.ID, stranger.ID)

		ok, err := env.children.CanAccess(stranger, child)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestDigestRun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	parent := env.parent(t, "parent@example.com")
	require.NoError(t, env.auth.UpdatePreferences(parent, models.Preferences{WeeklyDigest: true}))
	child := env.child(t, parent)
	env.assessEmpathy(t, parent, child)

	_, err := env.plans.GeneratePlan(ctx, parent, child.ID, GenerateOptions{WeekStart: env.digest.NextWeek()})
	require.NoError(t, err)

	report, err := env.digest.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, DigestReport{Recipients: 1, Sent: 1}, report)

	sent := env.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"parent@example.com"}, sent[0].To)
	assert.Contains(t, sent[0].HTML, "Ada")
	assert.Contains(t, sent[0].HTML, "Feelings faces")

	results, err := env.digest.SendTest(ctx, "parent@example.com", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)

	_, err = env.digest.SendTest(ctx, "nobody@example.com", 0)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestOAuthLogin(t *testing.T) {
	env := newTestEnv(t)

	session, user, err := env.auth.OAuthLogin("google", "g-1", "olive@example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, "olive", user.Name)
	assert.Equal(t, models.RoleParent, user.Role)
	assert.NotNil(t, user.FamilyID)
	assert.NotEmpty(t, session.ID)

	_, again, err := env.auth.OAuthLogin("google", "g-1", "olive@example.com", "Olive", "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, _, err = env.auth.OAuthLogin("github", "gh-9", "olive@example.com", "", "")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, _, err = env.auth.OAuthLogin("google", "g-2", "new@example.com", "", "NOPE-NOPE")
	assert.ErrorIs(t, err, ErrInvitationInvalid)

	_, _, err = env.auth.OAuthLogin("google", "", "x@example.com", "", "")
	assert.Error(t, err)
}

func TestAutoGenerateFillsThisAndNextWeekOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	parent := env.parent(t, "parent@example.com")
	child := env.child(t, parent)

	created, err := env.plans.AutoGenerate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	thisWeek := models.StartOfWeek(env.now)
	history, err := env.plans.PlanHistory(parent, child.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	weeks := map[string]string{}
	for _, plan := range history {
		weeks[plan.WeekStart.Format("2006-01-02")] = plan.CreatedBy
	}
	assert.Equal(t, map[string]string{
		thisWeek.Format("2006-01-02"):                  "auto",
		thisWeek.AddDate(0, 0, 7).Format("2006-01-02"): "auto",
	}, weeks)

	created, err = env.plans.AutoGenerate(ctx)
	require.NoError(t, err)
	assert.Zero(t, created, "weeks that already have a plan are left alone")
}
