package main

// Quick manual test bed for the flattening engine. The real entrypoint
// lives in cmd/funnel.

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/minhpq/funnel/internal/flatten"
	"github.com/minhpq/funnel/internal/policy"
	"github.com/minhpq/funnel/internal/sink"
	"github.com/minhpq/funnel/internal/source"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	paths := os.Args[1:]
	if len(paths) == 0 {
		log.Fatalf("usage: go run . <file> [file...]")
	}

	ctx := context.Background()

	// 1. Outer stream: the files named on the command line
	outer := source.Paths(paths...)

	// 2. Flatten them as line streams, trading unreadable files for a marker
	fl := flatten.New(
		outer,
		source.FileLines(),
		policy.AbandonWith("<unreadable>"),
		flatten.WithTimeout(30*time.Second),
		flatten.WithObserver(flatten.NewLogObserver(nil)),
	)

	// 3. Drain the flat sequence to stdout
	start := time.Now()
	err = sink.Drain(ctx, fl,
		func(s string) []byte { return append([]byte(s), '\n') },
		sink.NewWriterSink(os.Stdout))
	if err != nil {
		log.Fatalf("drain failed: %v", err)
	}

	fmt.Printf("drained %d file(s) in %s\n", len(paths), time.Since(start).Round(time.Millisecond))
}
