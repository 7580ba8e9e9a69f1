package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"go-easyapply-automation/internal/config"
	"go-easyapply-automation/internal/reporter"
	"go-easyapply-automation/internal/store"
)

func main() {
	dsn := flag.String("dsn", "", "ledger DSN (defaults to the configured one)")
	limit := flag.Int("n", 20, "number of outcomes to show")
	runID := flag.String("run", "", "show stored totals for this run instead of recent outcomes")
	flag.Parse()

	_ = godotenv.Load()
	if *dsn == "" {
		*dsn = os.Getenv("JOBPILOT_DSN")
	}
	if *dsn == "" {
		*dsn = config.Default().Storage.DSN
	}

	ctx := context.Background()
	st, err := store.Open(ctx, *dsn)
	if err != nil {
		log.Fatalf("❌ Failed to open ledger: %v", err)
	}
	defer st.Close()

	if *runID != "" {
		counts, err := st.CountByState(ctx, *runID)
		if err != nil {
			log.Fatalf("❌ Failed to count outcomes: %v", err)
		}
		fmt.Println(reporter.RenderCounts("RUN "+*runID, counts))
		return
	}

	outcomes, err := st.RecentOutcomes(ctx, *limit)
	if err != nil {
		log.Fatalf("❌ Failed to read outcomes: %v", err)
	}
	fmt.Println(reporter.RenderOutcomes(fmt.Sprintf("Last %d attempts", len(outcomes)), outcomes))
}
