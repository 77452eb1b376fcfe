// Command report renders an HTML occupancy report from the counter
// database: occupancy over time reconstructed from the movement log, and
// entries/exits bucketed per hour.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/doorway-data/headcount/internal/db"
)

var (
	dbFile = flag.String("db", "headcount.db", "SQLite database path")
	out    = flag.String("out", "report.html", "Output HTML file")
	days   = flag.Int("days", 7, "How many days back to report on")
)

func main() {
	flag.Parse()

	if *days < 1 {
		log.Fatal("days must be at least 1")
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	since := time.Now().UTC().AddDate(0, 0, -*days)
	movements, err := database.MovementsSince(since)
	if err != nil {
		log.Fatalf("Failed to load movements: %v", err)
	}
	if len(movements) == 0 {
		log.Fatalf("No movements recorded since %s", since.Format(time.RFC3339))
	}

	page := components.NewPage()
	page.SetPageTitle("headcount report")
	page.AddCharts(
		occupancyChart(movements),
		hourlyChart(movements),
		classChart(movements),
	)

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
	log.Printf("wrote %s covering %d movements over %d days", *out, len(movements), *days)
}

// occupancyChart replays the movement log to reconstruct people-inside
// over time. The replay floors at zero the same way the live counter
// does.
func occupancyChart(movements []db.Movement) *charts.Line {
	times := make([]string, 0, len(movements))
	occupancy := make([]opts.LineData, 0, len(movements))

	var inside int64
	for _, m := range movements {
		switch m.Kind {
		case "entrance":
			inside++
		case "exit":
			if inside > 0 {
				inside--
			}
		}
		times = append(times, m.RecordedAt.Local().Format("2006-01-02 15:04:05"))
		occupancy = append(occupancy, opts.LineData{Value: inside})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "headcount report", Width: "1200px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "People inside",
			Subtitle: fmt.Sprintf("replayed from %d movements", len(movements)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(times).AddSeries("inside", occupancy)
	return line
}

func hourlyChart(movements []db.Movement) *charts.Bar {
	type bucket struct {
		entries int
		exits   int
	}
	byHour := map[string]*bucket{}
	for _, m := range movements {
		hour := m.RecordedAt.Local().Format("2006-01-02 15:00")
		b := byHour[hour]
		if b == nil {
			b = &bucket{}
			byHour[hour] = b
		}
		switch m.Kind {
		case "entrance":
			b.entries++
		case "exit":
			b.exits++
		}
	}

	hours := make([]string, 0, len(byHour))
	for h := range byHour {
		hours = append(hours, h)
	}
	sort.Strings(hours)

	entries := make([]opts.BarData, 0, len(hours))
	exits := make([]opts.BarData, 0, len(hours))
	for _, h := range hours {
		entries = append(entries, opts.BarData{Value: byHour[h].entries})
		exits = append(exits, opts.BarData{Value: byHour[h].exits})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px"}),
		charts.WithTitleOpts(opts.Title{Title: "Movements per hour"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(hours).
		AddSeries("entries", entries).
		AddSeries("exits", exits)
	return bar
}

func classChart(movements []db.Movement) *charts.Pie {
	counts := map[string]int{}
	for _, m := range movements {
		class := m.Classification
		if class == "" {
			class = "unknown"
		}
		counts[class]++
	}

	classes := make([]string, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	data := make([]opts.PieData, 0, len(classes))
	for _, c := range classes {
		data = append(data, opts.PieData{Name: c, Value: counts[c]})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Classification mix"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("class", data)
	return pie
}
