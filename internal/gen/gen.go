// Package gen produces synthetic web-event CSV files used to load the
// engines under test with comparable data.
package gen

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Options controls event generation.
type Options struct {
	// Events is the number of page views; each page view emits one
	// page_view event plus a handful of page_ping engagement events.
	Events int
	// Day anchors the event timestamps; zero means today.
	Day time.Time
	// MobilePercent is the share of events with a mobile user agent.
	MobilePercent int
	// Seed makes generation reproducible; 0 derives one from the clock.
	Seed int64
}

var (
	countries = []string{"US", "CA", "GB", "DE", "FR", "JP", "AU", "BR", "IN", "MX"}
	cities    = []string{"New York", "London", "Berlin", "Paris", "Tokyo", "Sydney", "Mumbai", "Mexico City"}

	desktopAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	}
	mobileAgents = []string{
		"Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Linux; Android 11; SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.120 Mobile Safari/537.36",
		"Mozilla/5.0 (Linux; Android 12; Pixel 6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/94.0.4606.71 Mobile Safari/537.36",
	}
	pages = []string{
		"https://example.com/home",
		"https://example.com/products",
		"https://example.com/about",
		"https://example.com/contact",
		"https://example.com/blog",
	}
)

// Header is the CSV column layout.
var Header = []string{
	"event_id", "event_name", "collector_tstamp", "dvce_created_tstamp",
	"user_id", "domain_userid", "domain_sessionid", "page_view_id",
	"page_url", "useragent", "geo_country", "geo_city", "ping_index",
}

// Write streams generated events as CSV to w and returns the number of
// rows written (excluding the header).
func Write(w io.Writer, opts Options) (int, error) {
	if opts.Events <= 0 {
		opts.Events = 1000
	}
	if opts.MobilePercent <= 0 {
		opts.MobilePercent = 50
	}
	day := opts.Day
	if day.IsZero() {
		day = time.Now().UTC()
	}
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("gen: write header: %w", err)
	}

	rows := 0
	for i := 0; i < opts.Events; i++ {
		base := day.Add(time.Duration(rng.Intn(24*60*60)) * time.Second).
			Add(time.Duration(rng.Intn(1000)) * time.Millisecond)

		agent := desktopAgents[rng.Intn(len(desktopAgents))]
		if rng.Intn(100) < opts.MobilePercent {
			agent = mobileAgents[rng.Intn(len(mobileAgents))]
		}

		view := eventRow{
			userID:     uuid.NewString(),
			domainUser: uuid.NewString(),
			sessionID:  uuid.NewString(),
			pageViewID: uuid.NewString(),
			pageURL:    pages[rng.Intn(len(pages))],
			agent:      agent,
			country:    countries[rng.Intn(len(countries))],
			city:       cities[rng.Intn(len(cities))],
		}

		if err := writeEvent(cw, view, "page_view", base, 0); err != nil {
			return rows, err
		}
		rows++

		// Engagement pings trail the page view every ~10 seconds.
		pings := rng.Intn(6)
		for p := 1; p <= pings; p++ {
			at := base.Add(time.Duration(p*10) * time.Second)
			if err := writeEvent(cw, view, "page_ping", at, p); err != nil {
				return rows, err
			}
			rows++
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("gen: flush csv: %w", err)
	}
	return rows, nil
}

type eventRow struct {
	userID     string
	domainUser string
	sessionID  string
	pageViewID string
	pageURL    string
	agent      string
	country    string
	city       string
}

func writeEvent(cw *csv.Writer, row eventRow, name string, at time.Time, pingIndex int) error {
	record := []string{
		uuid.NewString(),
		name,
		at.Format("2006-01-02 15:04:05.000"),
		at.Add(-2 * time.Second).Format("2006-01-02 15:04:05.000"),
		row.userID,
		row.domainUser,
		row.sessionID,
		row.pageViewID,
		row.pageURL,
		row.agent,
		row.country,
		row.city,
		strconv.Itoa(pingIndex),
	}
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("gen: write event: %w", err)
	}
	return nil
}
