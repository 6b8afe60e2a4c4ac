// Command opportunities feeds a batch of ticks from a CSV file into an
// Engine and prints whatever arbitrage cycles it surfaces. Useful for
// replaying a recorded feed against the detector without standing up
// the HTTP surface.
//
// CSV columns: venue,symbol,bid,ask,volume (e.g. "X,USD/EUR,0.85,0.86,100").
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"arbitrage-core/internal/config"
	"arbitrage-core/internal/engine"
	"arbitrage-core/internal/models"
	"arbitrage-core/pkg/utils"
)

func main() {
	path := flag.String("file", "", "path to a CSV file of venue,symbol,bid,ask,volume rows")
	limit := flag.Int("limit", 20, "max opportunities to print (0 = all held in the ring)")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: opportunities -file ticks.csv")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	log := utils.InitGlobalLogger(utils.LogConfig{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	defer log.Sync() //nolint:errcheck

	eng := engine.New(cfg.Engine, log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := eng.Start(ctx, 2); err != nil {
		fmt.Fprintln(os.Stderr, "start engine:", err)
		os.Exit(1)
	}
	defer eng.Stop()

	n, err := replay(*path, eng)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	log.Info("replay complete", utils.Int("rows", n))

	// give the periodic scan a moment to pick up the last batch of ticks
	time.Sleep(cfg.Engine.DetectionPeriod * 3)

	printOpportunities(eng.GetRecentOpportunities(*limit))
}

func replay(path string, eng *engine.Engine) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 5
	r.TrimLeadingSpace = true

	n := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, err
		}

		bid, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return n, fmt.Errorf("row %d: bad bid: %w", n+1, err)
		}
		ask, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return n, fmt.Errorf("row %d: bad ask: %w", n+1, err)
		}
		volume, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return n, fmt.Errorf("row %d: bad volume: %w", n+1, err)
		}

		if err := eng.UpdatePrice(row[0], row[1], bid, ask, volume, time.Now()); err != nil {
			return n, fmt.Errorf("row %d: %w", n+1, err)
		}
		n++
	}
	return n, nil
}

func printOpportunities(opps []*models.Opportunity) {
	if len(opps) == 0 {
		fmt.Println("no opportunities found")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "Path", "Profit %", "Confidence", "Venues", "Max Volume")

	for i, opp := range opps {
		table.Append(
			fmt.Sprintf("%d", i+1),
			pathString(opp.Path),
			fmt.Sprintf("%.3f", opp.ProfitPercentage),
			fmt.Sprintf("%d", opp.Confidence),
			fmt.Sprintf("%v", opp.Venues),
			fmt.Sprintf("%.2f", opp.MaxVolume),
		)
	}
	table.Render()
}

func pathString(path []string) string {
	s := ""
	for i, p := range path {
		if i > 0 {
			s += " -> "
		}
		s += p
	}
	return s
}
