package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/courtsched/internal/catalog"
	"github.com/example/courtsched/internal/config"
)

func scannerConfig(srv *httptest.Server, startHour, endHour int) *config.Config {
	return &config.Config{
		LoginURL:         srv.URL + "/Account/Login",
		ConflictCheckURL: srv.URL + "/Permits/ConflictCheck",
		UserAgent:        "test-agent",
		BookingStartHour: startHour,
		BookingEndHour:   endHour,
	}
}

// availabilityServer answers login with the authenticated-page marker and
// conflict probes from the free map, keyed "hour/siteID".
func availabilityServer(t *testing.T, free map[string]bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/Account/Login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("Password") != "secret" || r.PostForm.Get("RememberMe") != "false" {
			io.WriteString(w, `<html><body>Invalid credentials</body></html>`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "permits", Value: "session"})
		io.WriteString(w, `<html><body><a href="/Permits/New">New Permit Request</a></body></html>`)
	})
	mux.HandleFunc("/Permits/ConflictCheck", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FacilityIDs []string `json:"facilityIds"`
			Dates       []struct {
				Start string `json:"start"`
			} `json:"dates"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.FacilityIDs, 1)
		require.Len(t, body.Dates, 1)

		var hour int
		_, err := fmt.Sscanf(body.Dates[0].Start[len("2026-01-02"):], "T%02d:00:00", &hour)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		if free[fmt.Sprintf("%d/%s", hour, body.FacilityIDs[0])] {
			io.WriteString(w, `[]`)
			return
		}
		io.WriteString(w, `[{"permit":"P-1204"}]`)
	})
	return httptest.NewServer(mux)
}

func siteID(t *testing.T, name string) string {
	t.Helper()
	c, err := catalog.Resolve(name)
	require.NoError(t, err)
	return c.SiteID
}

func TestLoginSuccessAndRejection(t *testing.T) {
	srv := availabilityServer(t, nil)
	defer srv.Close()

	c, err := New(scannerConfig(srv, 8, 10), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, c.Login(context.Background(), "player@example.com", "secret"))
	require.Error(t, c.Login(context.Background(), "player@example.com", "wrong"))
}

func TestLoginNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(scannerConfig(srv, 8, 10), zap.NewNop())
	require.NoError(t, err)
	require.ErrorContains(t, c.Login(context.Background(), "a@b.c", "pw"), "502")
}

func TestScanDayAggregation(t *testing.T) {
	// Hour 9: courts 1 and 3 free. Hour 10: only court 1.
	free := map[string]bool{
		"9/" + siteID(t, "Octagon Tennis 1"):  true,
		"9/" + siteID(t, "Octagon Tennis 3"):  true,
		"10/" + siteID(t, "Octagon Tennis 1"): true,
	}
	srv := availabilityServer(t, free)
	defer srv.Close()

	c, err := New(scannerConfig(srv, 9, 11), zap.NewNop())
	require.NoError(t, err)

	report := c.ScanDay(context.Background(), "2026-01-02")

	require.Equal(t, 3, report.Total)
	require.Equal(t, []int{9, 10}, report.HoursSorted())

	names := func(hour int) []string {
		var out []string
		for _, court := range report.Hours[hour] {
			out = append(out, court.Name)
		}
		return out
	}
	require.Equal(t, []string{"Octagon Tennis 1", "Octagon Tennis 3"}, names(9))
	require.Equal(t, []string{"Octagon Tennis 1"}, names(10))
}

func TestScanDayAbsorbsProbeFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(scannerConfig(srv, 8, 10), zap.NewNop())
	require.NoError(t, err)

	report := c.ScanDay(context.Background(), "2026-01-02")
	require.Zero(t, report.Total, "failed probes count as unavailable")
	require.Equal(t, 12, calls, "every probe still issued")
}

func TestScanWindowDates(t *testing.T) {
	srv := availabilityServer(t, nil)
	defer srv.Close()

	c, err := New(scannerConfig(srv, 9, 10), zap.NewNop())
	require.NoError(t, err)

	base := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	reports := c.ScanWindow(context.Background(), 2, func(d int) string {
		return base.AddDate(0, 0, d).Format("2006-01-02")
	})
	require.Len(t, reports, 3)
	require.Equal(t, "2026-01-02", reports[0].Date)
	require.Equal(t, "2026-01-04", reports[2].Date)
}

func TestRenderReport(t *testing.T) {
	court1, err := catalog.Resolve("Octagon Tennis 1")
	require.NoError(t, err)
	court3, err := catalog.Resolve("Octagon Tennis 3")
	require.NoError(t, err)

	reports := []DayReport{
		{
			Date:  "2026-01-02",
			Hours: map[int][]catalog.Court{9: {court1, court3}, 10: {court1}},
			Total: 3,
		},
		{Date: "2026-01-03", Hours: map[int][]catalog.Court{}, Total: 0},
	}

	var b strings.Builder
	Render(&b, reports, 8, 22)
	out := b.String()

	require.Contains(t, out, "Available Courts [2026-01-02 (Fri) → 2026-01-03 (Sat)] (08:00–21:00)")
	require.Contains(t, out, "09:00  —  Octagon Tennis 1, Octagon Tennis 3")
	require.Contains(t, out, "10:00  —  Octagon Tennis 1")
	require.Contains(t, out, "Total available slots: 3")
	require.NotContains(t, out, "2026-01-03 (Sat,", "empty days are omitted")
}

func TestRenderEmpty(t *testing.T) {
	var b strings.Builder
	Render(&b, []DayReport{{Date: "2026-01-02"}, {Date: "2026-01-03"}}, 8, 22)
	require.Equal(t, "No available courts over the next 2 day(s).\n", b.String())
}
