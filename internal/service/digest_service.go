package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"learnsprout/internal/logger"
	"learnsprout/internal/mailer"
	"learnsprout/internal/models"
	"learnsprout/internal/repository"
)

var ErrNoActiveChildren = errors.New("no active children found for this user")

const digestRenderLimit = 4

// DigestReport summarises one digest run
type DigestReport struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

// ChildDigestResult reports one child's test digest
type ChildDigestResult struct {
	ChildID   int64  `json:"childId"`
	ChildName string `json:"childName"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// DigestService sends the weekly plan digest
type DigestService struct {
	userRepo     *repository.UserRepository
	childRepo    *repository.ChildRepository
	planRepo     *repository.PlanRepository
	activityRepo *repository.ActivityRepository
	email        *EmailService
	log          *logger.Logger
	now          func() time.Time
}

// NewDigestService creates a new digest service
func NewDigestService(userRepo *repository.UserRepository, childRepo *repository.ChildRepository,
	planRepo *repository.PlanRepository, activityRepo *repository.ActivityRepository,
	email *EmailService, log *logger.Logger) *DigestService {
	return &DigestService{
		userRepo:     userRepo,
		childRepo:    childRepo,
		planRepo:     planRepo,
		activityRepo: activityRepo,
		email:        email,
		log:          log.With("service", "DigestService"),
		now:          time.Now,
	}
}

// NextWeek is the Monday the digest covers
func (s *DigestService) NextWeek() time.Time {
	return models.StartOfWeek(s.now()).AddDate(0, 0, 7)
}

// Run emails every opted-in user a digest of next week's plans for their active
// children. A failed recipient is counted and does not stop the run.
func (s *DigestService) Run(ctx context.Context) (DigestReport, error) {
	var report DigestReport
	users, err := s.userRepo.GetDigestRecipients()
	if err != nil {
		return report, fmt.Errorf("failed to list digest recipients: %w", err)
	}
	week := s.NextWeek()

	for i := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		user := &users[i]
		children, err := s.activeChildren(user)
		if err != nil {
			return report, err
		}
		if len(children) == 0 {
			continue
		}
		report.Recipients++

		digests, err := s.buildDigests(ctx, children, week)
		if err == nil {
			err = s.email.SendWeeklyDigest(ctx, user.Email, user.Name, week, digests)
		}
		if err != nil {
			report.Failed++
			s.log.Warn("weekly digest failed", "user_id", user.ID, "error", err)
			continue
		}
		report.Sent++
	}

	s.log.Info("weekly digest finished", "recipients", report.Recipients, "sent", report.Sent, "failed", report.Failed)
	return report, nil
}

func (s *DigestService) activeChildren(user *models.User) ([]models.Child, error) {
	all, err := s.childRepo.GetAccessibleChildren(user.ID, user.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	var active []models.Child
	for _, c := range all {
		if c.Active {
			active = append(active, c)
		}
	}
	return active, nil
}

// buildDigests renders each child's section concurrently, keeping input order
func (s *DigestService) buildDigests(ctx context.Context, children []models.Child, week time.Time) ([]DigestChild, error) {
	out := make([]DigestChild, len(children))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(digestRenderLimit)
	for i := range children {
		child := children[i]
		g.Go(func() error {
			d, err := s.childDigest(&child, week)
			if err != nil {
				return fmt.Errorf("child %d: %w", child.ID, err)
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DigestService) childDigest(child *models.Child, week time.Time) (DigestChild, error) {
	digest := DigestChild{Name: child.Name}
	plan, err := s.planRepo.GetLatestPlan(child.ID, week)
	if err != nil {
		return digest, err
	}
	if plan == nil {
		return digest, nil
	}
	activities, err := s.activityRepo.GetActivitiesByIDs(plan.ActivityIDs())
	if err != nil {
		return digest, err
	}

	for _, day := range models.Weekdays {
		entries := plan.Days[day]
		if len(entries) == 0 {
			continue
		}
		dd := DigestDay{Day: strings.ToUpper(string(day[:1])) + string(day[1:])}
		for _, entry := range entries {
			a, ok := activities[entry.ActivityID]
			if !ok {
				continue
			}
			instructions, err := mailer.RenderMarkdown(a.Instructions)
			if err != nil {
				return digest, err
			}
			dd.Activities = append(dd.Activities, DigestActivity{
				Title:        a.Title,
				TimeSlot:     string(entry.TimeSlot),
				Duration:     a.DurationMinutes,
				Instructions: instructions,
			})
		}
		if len(dd.Activities) > 0 {
			digest.Days = append(digest.Days, dd)
		}
	}
	return digest, nil
}

// SendTest sends next week's digest for each of a user's active children to the
// user, one email per child, and reports every child's outcome. childID limits
// the run to one child when non-zero.
func (s *DigestService) SendTest(ctx context.Context, email string, childID int64) ([]ChildDigestResult, error) {
	user, err := s.userRepo.GetUserByEmail(strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	all, err := s.childRepo.GetAccessibleChildren(user.ID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	var children []models.Child
	for _, c := range all {
		if c.Active && (childID == 0 || c.ID == childID) {
			children = append(children, c)
		}
	}
	if len(children) == 0 {
		return nil, ErrNoActiveChildren
	}

	week := s.NextWeek()
	results := make([]ChildDigestResult, 0, len(children))
	for i := range children {
		child := &children[i]
		res := ChildDigestResult{ChildID: child.ID, ChildName: child.Name}
		digest, err := s.childDigest(child, week)
		if err == nil {
			err = s.email.SendWeeklyDigest(ctx, user.Email, user.Name, week, []DigestChild{digest})
		}
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Success = true
		}
		results = append(results, res)
	}
	return results, nil
}
