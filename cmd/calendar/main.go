// Command calendar prints the availability grid of a running service and
// lets the operator page through it from the terminal.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/navigator"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/grid"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/http/client"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/obs"
)

func main() {
	var (
		apiURL      = flag.String("api", getenv("AVAILABILITY_API", "http://localhost:8080"), "availability service base URL")
		company     = flag.String("company", os.Getenv("COMPANY_ID"), "company id sent as X-Company-ID")
		days        = flag.Int("days", navigator.DefaultDayCount, "visible days")
		start       = flag.String("start", "", "first visible day, YYYY-MM-DD")
		status      = flag.String("status", "all", "status filter: all, occupied, pending, available, blocked")
		city        = flag.String("city", "", "only properties in this city")
		search      = flag.String("search", "", "property name search")
		interactive = flag.Bool("i", false, "read navigation commands from stdin")
		logLevel    = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	logger := obs.NewLogger("dev", *logLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := &client.AvailabilityClient{BaseURL: *apiURL, CompanyID: *company, Logger: logger}
	nav, err := navigator.New(navigator.Options{Fetcher: fetcher, Logger: logger, DayCount: *days})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer nav.Close()

	filter, err := grid.ParseStatusFilter(*status)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	nav.SetStatusFilter(filter)
	nav.SetPropertyFilter(domainavailability.PropertyFilter{City: *city, Search: *search})
	if *start != "" {
		day, err := daterange.ParseDate(*start)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		if err := nav.SetCustomRange(day, daterange.AddDays(day, *days-1)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	nav.Wait()
	render(os.Stdout, nav.View())
	if !*interactive {
		if nav.View().Err != nil {
			os.Exit(1)
		}
		return
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	fmt.Fprintln(os.Stdout, help)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			quit, err := apply(nav, line)
			if err != nil {
				fmt.Fprintln(os.Stdout, "error:", err)
				continue
			}
			if quit {
				return
			}
			nav.Wait()
			render(os.Stdout, nav.View())
		}
	}
}

const help = "commands: n next week, p previous week, t today, d <days>, r <start> <end>, s <status>, c <city>, f <search>, g refresh, q quit"

// apply runs one navigation command and reports whether to quit.
func apply(nav *navigator.Navigator, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
	current := nav.View().Filter
	switch fields[0] {
	case "q", "quit":
		return true, nil
	case "n":
		return false, nav.Shift(1)
	case "p":
		return false, nav.Shift(-1)
	case "t":
		nav.JumpToday()
	case "g":
		nav.Refresh()
	case "d":
		days, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("days must be a number: %w", err)
		}
		return false, nav.SetFixedPeriod(days)
	case "r":
		if len(fields) != 3 {
			return false, fmt.Errorf("usage: r <start> <end>")
		}
		from, err := daterange.ParseDate(fields[1])
		if err != nil {
			return false, err
		}
		to, err := daterange.ParseDate(fields[2])
		if err != nil {
			return false, err
		}
		return false, nav.SetCustomRange(from, to)
	case "s":
		f, err := grid.ParseStatusFilter(arg)
		if err != nil {
			return false, err
		}
		nav.SetStatusFilter(f)
	case "c":
		current.City = arg
		nav.SetPropertyFilter(current)
	case "f":
		current.Search = arg
		nav.SetPropertyFilter(current)
	default:
		return false, fmt.Errorf("unknown command %q; %s", fields[0], help)
	}
	return false, nil
}

const nameWidth = 24

func render(w io.Writer, v navigator.View) {
	fmt.Fprintf(w, "\n%s  filter=%s", v.Window, v.Status)
	if v.Filter.City != "" {
		fmt.Fprintf(w, " city=%q", v.Filter.City)
	}
	if v.Filter.Search != "" {
		fmt.Fprintf(w, " search=%q", v.Filter.Search)
	}
	fmt.Fprintln(w)
	if v.Err != nil {
		fmt.Fprintln(w, "load failed:", v.Err)
		return
	}
	if v.Grid == nil {
		fmt.Fprintln(w, "no data")
		return
	}
	g := v.Grid

	months := []byte(strings.Repeat(" ", len(g.Dates)*3))
	for _, m := range g.Months {
		label := fmt.Sprintf("%s %d", m.Month.String()[:3], m.Year)
		copy(months[m.ColStart*3:min(len(months), (m.ColStart+m.ColSpan)*3)], label)
	}
	fmt.Fprintf(w, "%-*s %s\n", nameWidth, "", strings.TrimRight(string(months), " "))

	var days strings.Builder
	for i, d := range g.Dates {
		mark := ' '
		if i == g.TodayColumn {
			mark = '*'
		}
		fmt.Fprintf(&days, "%2d%c", d.Day(), mark)
	}
	fmt.Fprintf(w, "%-*s %s\n", nameWidth, "", days.String())

	for _, row := range g.Rows {
		cells := []byte(strings.Repeat(" . ", len(g.Dates)))
		for _, bar := range row.Bars {
			symbol := barSymbol(bar)
			for col := bar.ColStart; col < bar.ColStart+bar.ColSpan && col < len(g.Dates); col++ {
				cells[col*3+1] = symbol
			}
		}
		fmt.Fprintf(w, "%-*s %s\n", nameWidth, truncate(row.Property.Name, nameWidth), string(cells))
	}

	fmt.Fprintln(w)
	for _, row := range g.Rows {
		for _, bar := range row.Bars {
			fmt.Fprintf(w, "  %c %-*s %s → %s  %2d nights  %s\n",
				barSymbol(bar), nameWidth, truncate(row.Property.Name, nameWidth),
				daterange.Format(bar.Start), daterange.Format(bar.End), bar.Nights, bar.Label)
		}
	}
	fmt.Fprintf(w, "%d properties, %d bars, cities: %s (loaded %s)\n",
		len(g.Rows), g.BarCount(), strings.Join(v.Cities, ", "), time.Now().Format(time.Kitchen))
}

func barSymbol(b grid.Bar) byte {
	if b.Kind == domainavailability.KindBlock {
		return 'B'
	}
	switch b.Status {
	case domainavailability.StatusPending:
		return 'P'
	case domainavailability.StatusInProcess:
		return 'I'
	case domainavailability.StatusCompleted:
		return 'C'
	default:
		return 'R'
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
