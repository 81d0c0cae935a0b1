package learnapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the learning platform's REST API: per-course progress,
// section-level activity, and enroll/unenroll.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

type Unit struct {
	Name         string  `json:"name"`
	ProgressRate float64 `json:"progress_rate"`
}

type Section struct {
	Name         string  `json:"name"`
	ProgressRate float64 `json:"progress_rate"`
	Units        []Unit  `json:"units,omitempty"`
}

// SectionRef identifies the section that tripped a limit check. Index is
// 1-based, matching the course outline order.
type SectionRef struct {
	Index int    `json:"sectionIndex"`
	Name  string `json:"sectionName"`
}

type SectionLimitParams struct {
	Email                 string
	CourseEnrollID        string
	SectionLimit          int
	UnitProgressRateLimit float64
	// Sections, when non-nil, is used instead of fetching from the API.
	// Bundle eligibility prefetches all children in one pass and feeds
	// each child's sections through here.
	Sections []Section
}

type SectionLimitResult struct {
	ExceededLimit    bool
	ViolatingSection *SectionRef
}

type progressResp struct {
	Success      bool      `json:"success"`
	ProgressRate float64   `json:"progress_rate"`
	Sections     []Section `json:"sections"`
	Error        string    `json:"error,omitempty"`
}

type bulkProgressResp struct {
	Success bool                 `json:"success"`
	Courses map[string][]Section `json:"courses"`
	Error   string               `json:"error,omitempty"`
}

type enrollResp struct {
	Success  bool   `json:"success"`
	EnrollID string `json:"enroll_id"`
	Error    string `json:"error,omitempty"`
}

type okResp struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// GetCourseProgress returns the learner's aggregate completion percentage
// (0-100) for one course. Callers treat an error as "progress unknown".
func (c *Client) GetCourseProgress(ctx context.Context, email, courseEnrollID string) (float64, error) {
	var out progressResp
	path := fmt.Sprintf("/v2/users/%s/courses/%s/progress", url.PathEscape(email), url.PathEscape(courseEnrollID))
	if err := c.get(ctx, path, &out); err != nil {
		return 0, err
	}
	if !out.Success {
		return 0, errors.New(out.Error)
	}
	return out.ProgressRate * 100, nil
}

// CheckCourseSectionLimit reports whether the learner's furthest section with
// meaningful progress sits beyond the given limit. A section counts as
// reached once its progress rate is at or above UnitProgressRateLimit.
func (c *Client) CheckCourseSectionLimit(ctx context.Context, p SectionLimitParams) (SectionLimitResult, error) {
	sections := p.Sections
	if sections == nil {
		var out progressResp
		path := fmt.Sprintf("/v2/users/%s/courses/%s/progress", url.PathEscape(p.Email), url.PathEscape(p.CourseEnrollID))
		if err := c.get(ctx, path, &out); err != nil {
			return SectionLimitResult{}, err
		}
		if !out.Success {
			return SectionLimitResult{}, errors.New(out.Error)
		}
		sections = out.Sections
	}
	furthest := 0
	var ref *SectionRef
	for i, s := range sections {
		if s.ProgressRate >= p.UnitProgressRateLimit && i+1 > furthest {
			furthest = i + 1
			ref = &SectionRef{Index: i + 1, Name: s.Name}
		}
	}
	if furthest > p.SectionLimit {
		return SectionLimitResult{ExceededLimit: true, ViolatingSection: ref}, nil
	}
	return SectionLimitResult{}, nil
}

// FetchUserCourseSectionProgressMap prefetches section data for many courses
// in one request, keyed by course enroll id. Missing keys mean the platform
// had no data for that course; callers fall back per course.
func (c *Client) FetchUserCourseSectionProgressMap(ctx context.Context, email string, courseEnrollIDs []string) (map[string][]Section, error) {
	body := map[string]any{"email": email, "course_ids": courseEnrollIDs}
	var out bulkProgressResp
	if err := c.post(ctx, "/v2/progress/bulk", body, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, errors.New(out.Error)
	}
	if out.Courses == nil {
		out.Courses = map[string][]Section{}
	}
	return out.Courses, nil
}

// Enroll grants the user access to a product and returns the platform's
// access identifier for the grant.
func (c *Client) Enroll(ctx context.Context, email, name, productID, productType string) (string, error) {
	body := map[string]any{
		"email":        email,
		"name":         name,
		"product_id":   productID,
		"product_type": productType,
	}
	var out enrollResp
	if err := c.post(ctx, "/v2/enrollments", body, &out); err != nil {
		return "", err
	}
	if !out.Success {
		return "", errors.New(out.Error)
	}
	if strings.TrimSpace(out.EnrollID) == "" {
		return "", errors.New("missing enroll_id")
	}
	return out.EnrollID, nil
}

// Unenroll revokes the user's access grant.
func (c *Client) Unenroll(ctx context.Context, email, enrollID, productType string) error {
	body := map[string]any{
		"email":        email,
		"enroll_id":    enrollID,
		"product_type": productType,
	}
	var out okResp
	if err := c.post(ctx, "/v2/enrollments/revoke", body, &out); err != nil {
		return err
	}
	if !out.Success {
		return errors.New(out.Error)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, raw, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return errors.New("learnapi base url not configured")
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("learnapi %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
