// Package scanner probes the permit site's conflict-check API and reports
// which courts are free at which hours. It authenticates over plain HTTP with
// a cookie jar; it never drives a browser.
package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/courtsched/internal/catalog"
	"github.com/example/courtsched/internal/config"
)

// loginMarker is the link label only an authenticated page carries.
const loginMarker = "New Permit Request"

type Client struct {
	hc  *http.Client
	cfg *config.Config
	log *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Client{
		hc:  &http.Client{Jar: jar, Timeout: 15 * time.Second},
		cfg: cfg,
		log: log,
	}, nil
}

// Login posts the credential form and keeps the session cookie in the jar.
// Success requires a 200 and the authenticated page marker in the response.
func (c *Client) Login(ctx context.Context, email, password string) error {
	form := url.Values{
		"Email":      {email},
		"Password":   {password},
		"RememberMe": {"false"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.LoginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status code %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("parse login response: %w", err)
	}
	found := false
	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) == loginMarker {
			found = true
			return false
		}
		return true
	})
	if !found && !strings.Contains(doc.Text(), loginMarker) {
		return fmt.Errorf("login rejected for %s", email)
	}
	c.log.Info("scanner login successful", zap.String("account", email))
	return nil
}

type probeBody struct {
	FacilityNames []string     `json:"facilityNames"`
	FacilityIDs   []string     `json:"facilityIds"`
	Dates         []probeDates `json:"dates"`
}

type probeDates struct {
	Start string `json:"start"`
	Stop  string `json:"stop"`
}

// available issues one conflict probe for (court, date, hour). An empty JSON
// array means no conflicts. Any request failure or non-200 status reads as
// unavailable; a broken probe must never sink the scan.
func (c *Client) available(ctx context.Context, court catalog.Court, date string, hour int) bool {
	body, err := json.Marshal(probeBody{
		FacilityNames: []string{"Tennis Courts"},
		FacilityIDs:   []string{court.SiteID},
		Dates: []probeDates{{
			Start: fmt.Sprintf("%sT%02d:00:00", date, hour),
			Stop:  fmt.Sprintf("%sT%02d:00:00", date, hour+1),
		}},
	})
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ConflictCheckURL, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Warn("availability probe failed",
			zap.String("court", court.Name), zap.Int("hour", hour), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("availability probe rejected",
			zap.String("court", court.Name), zap.Int("hour", hour), zap.Int("status", resp.StatusCode))
		return false
	}

	var conflicts []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&conflicts); err != nil {
		c.log.Warn("availability probe returned malformed body",
			zap.String("court", court.Name), zap.Int("hour", hour), zap.Error(err))
		return false
	}
	return len(conflicts) == 0
}

// DayReport aggregates one date's probes: for each start hour with any free
// court, the free courts in catalog order, plus a per-day total.
type DayReport struct {
	Date  string
	Hours map[int][]catalog.Court
	Total int
}

// HoursSorted returns the report's hours in ascending order.
func (r DayReport) HoursSorted() []int {
	out := make([]int, 0, len(r.Hours))
	for h := range r.Hours {
		out = append(out, h)
	}
	sort.Ints(out)
	return out
}

// ScanDay probes every (hour, court) pair for date concurrently and
// aggregates once all probes finish. Probes are independent; failures are
// absorbed as "unavailable".
func (c *Client) ScanDay(ctx context.Context, date string) DayReport {
	courts := catalog.All()
	hours := c.cfg.BookingEndHour - c.cfg.BookingStartHour

	free := make([]bool, hours*len(courts))
	g, gctx := errgroup.WithContext(ctx)
	for hi := 0; hi < hours; hi++ {
		for ci := range courts {
			idx := hi*len(courts) + ci
			hour := c.cfg.BookingStartHour + hi
			court := courts[ci]
			g.Go(func() error {
				free[idx] = c.available(gctx, court, date, hour)
				return nil
			})
		}
	}
	_ = g.Wait() // probes never return errors

	report := DayReport{Date: date, Hours: make(map[int][]catalog.Court)}
	for hi := 0; hi < hours; hi++ {
		hour := c.cfg.BookingStartHour + hi
		for ci, court := range courts {
			if free[hi*len(courts)+ci] {
				report.Hours[hour] = append(report.Hours[hour], court)
				report.Total++
			}
		}
	}
	return report
}

// ScanWindow scans today through today+days inclusive.
func (c *Client) ScanWindow(ctx context.Context, days int, dateFor func(int) string) []DayReport {
	reports := make([]DayReport, 0, days+1)
	for d := 0; d <= days; d++ {
		date := dateFor(d)
		c.log.Info("checking availability", zap.String("date", date))
		reports = append(reports, c.ScanDay(ctx, date))
	}
	return reports
}
