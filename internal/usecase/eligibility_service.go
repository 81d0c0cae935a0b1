package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Durga812/new-web-app-sub001/internal/config"
	"github.com/Durga812/new-web-app-sub001/internal/domain"
	"github.com/Durga812/new-web-app-sub001/internal/infrastructure/learnapi"
)

// ProgressClient is the learning-platform surface the refund flow consumes.
type ProgressClient interface {
	GetCourseProgress(ctx context.Context, email, courseEnrollID string) (float64, error)
	CheckCourseSectionLimit(ctx context.Context, p learnapi.SectionLimitParams) (learnapi.SectionLimitResult, error)
	FetchUserCourseSectionProgressMap(ctx context.Context, email string, courseEnrollIDs []string) (map[string][]learnapi.Section, error)
	Enroll(ctx context.Context, email, name, productID, productType string) (string, error)
	Unenroll(ctx context.Context, email, enrollID, productType string) error
}

// EligibilityService decides whether an enrollment qualifies for a refund.
// Local checks (already refunded, window) are strict; externally-sourced
// progress checks fail open, because blocking a legitimate refund on a
// transient progress-service outage is the worse failure mode.
type EligibilityService struct {
	Enrollments EnrollmentRepo
	Orders      OrderRepo
	Products    ProductRepo
	Progress    ProgressClient
	Policy      config.RefundPolicy
	Now         func() time.Time
}

func (s *EligibilityService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// CheckEligibility evaluates the refund policy for one enrollment, scoped to
// the requesting user. Policy rejections come back as a negative verdict,
// not an error; errors are reserved for missing records.
func (s *EligibilityService) CheckEligibility(ctx context.Context, userID, enrollmentID string) (domain.EligibilityVerdict, error) {
	if strings.TrimSpace(enrollmentID) == "" {
		return domain.EligibilityVerdict{}, ErrBadRequest("enrollmentId required")
	}
	e, ok := s.Enrollments.GetEnrollment(ctx, enrollmentID)
	if !ok || e.UserID != userID {
		return domain.EligibilityVerdict{}, ErrNotFound("enrollment")
	}

	if e.Status == domain.EnrollmentRefunded {
		return domain.Ineligible("This enrollment has already been refunded."), nil
	}
	if !e.Refundable() {
		return domain.Ineligible("Only active enrollments are eligible for a refund."), nil
	}

	o, ok := s.Orders.GetOrder(ctx, e.OrderID)
	if !ok {
		return domain.EligibilityVerdict{}, ErrNotFound("order")
	}

	now := s.now()
	daysElapsed := int(now.Sub(o.PaidAt).Hours() / 24)
	isCourse := e.ProductType == domain.ProductCourse
	limit := s.Policy.EligibleDays(isCourse)
	label := "bundle"
	if isCourse {
		label = "course"
	}
	if daysElapsed > limit {
		return domain.Ineligible(fmt.Sprintf(
			"The refund window for this %s is %d days; it was purchased %d days ago.",
			label, limit, daysElapsed)), nil
	}

	// Aggregate progress is display-only. A lookup failure never blocks.
	progress := 0.0
	if isCourse {
		p, err := s.Progress.GetCourseProgress(ctx, o.CustomerEmail, e.EnrollID)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"enrollment_id": e.ID,
				"enroll_id":     e.EnrollID,
			}).Warn("course progress lookup failed; defaulting to 0")
		} else {
			progress = p
		}
	}

	switch e.ProductType {
	case domain.ProductCourse:
		if v, blocked := s.checkCourseSections(ctx, o.CustomerEmail, e); blocked {
			return v, nil
		}
	case domain.ProductBundle:
		v, blocked, err := s.checkBundleSections(ctx, o.CustomerEmail, e)
		if err != nil {
			return domain.EligibilityVerdict{}, err
		}
		if blocked {
			return v, nil
		}
	default:
		return domain.EligibilityVerdict{}, ErrBadRequest("unknown product type")
	}

	item, ok := o.ItemByProductID(e.ProductID)
	if !ok {
		return domain.EligibilityVerdict{}, ErrNotFound("purchased item")
	}

	return domain.EligibilityVerdict{
		Eligible: true,
		Details: &domain.EligibilityDetails{
			EnrollmentID:    e.ID,
			ProductTitle:    e.ProductTitle,
			PurchaseDate:    o.PaidAt,
			DaysElapsed:     daysElapsed,
			ProgressPercent: progress,
			RefundAmount:    item.Price,
		},
	}, nil
}

func (s *EligibilityService) checkCourseSections(ctx context.Context, email string, e *domain.Enrollment) (domain.EligibilityVerdict, bool) {
	res, err := s.Progress.CheckCourseSectionLimit(ctx, learnapi.SectionLimitParams{
		Email:                 email,
		CourseEnrollID:        e.EnrollID,
		SectionLimit:          s.Policy.CourseSectionLimit,
		UnitProgressRateLimit: s.Policy.UnitProgressRateLimit,
	})
	if err != nil {
		// Fail open: the gate is skipped for this check only.
		log.WithError(err).WithFields(log.Fields{
			"enrollment_id": e.ID,
			"enroll_id":     e.EnrollID,
		}).Warn("section limit check failed; allowing refund request")
		return domain.EligibilityVerdict{}, false
	}
	if !res.ExceededLimit {
		return domain.EligibilityVerdict{}, false
	}
	return domain.Ineligible(s.sectionReason("", res)), true
}

// checkBundleSections fans out over the bundle's child courses. The per-child
// checks are independent reads, so they run concurrently; any exceeded child
// blocks the refund, while a failed child check fails open without stopping
// the others.
func (s *EligibilityService) checkBundleSections(ctx context.Context, email string, e *domain.Enrollment) (domain.EligibilityVerdict, bool, error) {
	bundle, ok := s.Products.GetProduct(ctx, e.ProductID)
	if !ok {
		return domain.EligibilityVerdict{}, false, ErrNotFound("bundle")
	}
	if len(bundle.Children) == 0 {
		return domain.EligibilityVerdict{}, false, nil
	}

	courseIDs := make([]string, 0, len(bundle.Children))
	for id := range bundle.Children {
		courseIDs = append(courseIDs, id)
	}
	sort.Strings(courseIDs)

	enrollIDs := make([]string, len(courseIDs))
	for i, id := range courseIDs {
		enrollIDs[i] = bundle.Children[id]
	}

	sectionsByEnrollID, err := s.Progress.FetchUserCourseSectionProgressMap(ctx, email, enrollIDs)
	if err != nil {
		log.WithError(err).WithField("enrollment_id", e.ID).
			Warn("bulk section prefetch failed; falling back to per-course fetches")
		sectionsByEnrollID = nil
	}

	results := make([]learnapi.SectionLimitResult, len(courseIDs))
	failed := make([]bool, len(courseIDs))
	var wg sync.WaitGroup
	for i := range courseIDs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.Progress.CheckCourseSectionLimit(ctx, learnapi.SectionLimitParams{
				Email:                 email,
				CourseEnrollID:        enrollIDs[i],
				SectionLimit:          s.Policy.CourseSectionLimit,
				UnitProgressRateLimit: s.Policy.UnitProgressRateLimit,
				Sections:              sectionsByEnrollID[enrollIDs[i]],
			})
			if err != nil {
				failed[i] = true
				log.WithError(err).WithFields(log.Fields{
					"enrollment_id": e.ID,
					"course_id":     courseIDs[i],
				}).Warn("child section limit check failed; treating as not exceeded")
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		if failed[i] || !res.ExceededLimit {
			continue
		}
		childName := courseIDs[i]
		if child, ok := s.Products.GetProduct(ctx, courseIDs[i]); ok {
			childName = child.Title
		}
		return domain.Ineligible(s.sectionReason(childName, res)), true, nil
	}
	return domain.EligibilityVerdict{}, false, nil
}

func (s *EligibilityService) sectionReason(childName string, res learnapi.SectionLimitResult) string {
	where := "your progress"
	if childName != "" {
		where = fmt.Sprintf("your progress in %q", childName)
	}
	if res.ViolatingSection != nil {
		return fmt.Sprintf("Refunds are limited to the first %d sections; %s has reached section %d (%s).",
			s.Policy.CourseSectionLimit, where, res.ViolatingSection.Index, res.ViolatingSection.Name)
	}
	return fmt.Sprintf("Refunds are limited to the first %d sections; %s has reached section %d or later.",
		s.Policy.CourseSectionLimit, where, s.Policy.CourseSectionLimit+1)
}
