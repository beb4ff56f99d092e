package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minhpq/funnel/internal/core/stream"
	"github.com/minhpq/funnel/internal/source"
)

var sumCmd = &cobra.Command{
	Use:   "sum [file]",
	Short: "Sum a file of integers, one per line",
	Args:  cobra.ExactArgs(1),
	Run:   runSum,
}

func init() {
	rootCmd.AddCommand(sumCmd)
}

func runSum(cmd *cobra.Command, args []string) {
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Printf("Cannot open %s: %v\n", args[0], err)
		os.Exit(1)
	}

	nums := source.Numbers(f)
	defer func() {
		_ = nums.Close()
	}()

	total, err := stream.Reduce(context.Background(), nums, func(a, b int64) int64 {
		return a + b
	})
	if err != nil {
		if errors.Is(err, stream.ErrEmptyStream) {
			fmt.Println("No numbers found")
		} else {
			fmt.Printf("Sum failed: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Println(total)
}
