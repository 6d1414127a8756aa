// Command partitiontree derives saved partitions from a tree file: either
// a Spread-Separation-optimized search across granularities or a
// horizontal sweep across every natural distance level, filtered and
// optionally joined by the maximum-granularity (meta-leaf) partition, then
// written back into the tree file alongside the source tree.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hdistill/hclust/pkg/cliutil"
	"github.com/hdistill/hclust/pkg/elog"
	"github.com/hdistill/hclust/pkg/partition"
	"github.com/hdistill/hclust/pkg/tree"
)

var (
	release = "0.0.0"
	commit  = ""
	date    = "Thu, 01 Jan 1970 00:00:00 +0000"
)

var log elog.View

var (
	flagTreePath     string
	flagOutputDir    string
	flagDepth        int
	flagFilterRadius int
	flagHorizontal   bool
	flagMaxGran      bool
	flagThreads      int

	flagVerbose bool
	flagVista   bool
)

var rootCmd = &cobra.Command{
	Use:     "partitiontree",
	Short:   "derive saved partitions from a tree file",
	Version: release,
	RunE:    run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&flagTreePath, "tree", "t", "", "input tree file (required)")
	f.StringVarP(&flagOutputDir, "output", "O", "", "output directory (required)")
	f.IntVarP(&flagDepth, "depth", "d", 0, "branching search depth, in [1,5] (0: adaptive)")
	f.IntVarP(&flagFilterRadius, "filter-radius", "r", 1, "granularity-filter window radius")
	f.BoolVar(&flagHorizontal, "hoz", false, "sweep every natural distance level instead of the SS-optimized search")
	f.BoolVarP(&flagMaxGran, "maxgran", "m", false, "also record the maximum-granularity (meta-leaf) partition")
	f.IntVarP(&flagThreads, "threads", "p", 0, "worker threads (0: all cores)")

	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&flagVista, "vista", false, "accepted for uniformity with the other tools; has no effect here (trees keep the coordinate frame they were read in)")

	_ = rootCmd.MarkFlagRequired("tree")
	_ = rootCmd.MarkFlagRequired("output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	start := time.Now()

	logger := &elog.CLI{IsVerbose: flagVerbose}
	logrus.SetFormatter(logger)
	logrus.SetLevel(logrus.TraceLevel)
	log = logger

	if flagDepth < 0 || flagDepth > 5 {
		return fmt.Errorf("depth must be in [0,5] (0 selects the adaptive schedule)")
	}
	if flagThreads <= 0 {
		flagThreads = runtime.NumCPU()
	}
	runtime.GOMAXPROCS(flagThreads)

	if err := os.MkdirAll(flagOutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	manifest := cliutil.NewManifest("partitiontree", start, map[string]string{
		"tree":          flagTreePath,
		"output":        flagOutputDir,
		"depth":         fmt.Sprintf("%d", flagDepth),
		"filter_radius": fmt.Sprintf("%d", flagFilterRadius),
		"horizontal":    fmt.Sprintf("%t", flagHorizontal),
		"maxgran":       fmt.Sprintf("%t", flagMaxGran),
	})

	manifest.BeginStage("load tree")
	f, err := os.Open(flagTreePath)
	if err != nil {
		return fmt.Errorf("opening tree file: %w", err)
	}
	t, err := tree.Parse(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("parsing tree: %w", err)
	}

	manifest.BeginStage("partition search")
	ctx := context.Background()
	var scored []partition.Scored
	if flagHorizontal {
		scored, err = partition.HorizontalSweep(t, t.RootID(), false)
	} else {
		scored, err = partition.ScanOptimalPartitions(ctx, t, t.RootID(), flagDepth, false)
	}
	if err != nil {
		return fmt.Errorf("searching partitions: %w", err)
	}

	filtered := partition.FilterByGranularity(scored, flagFilterRadius)
	log.Infof("kept %d of %d candidate granularities", len(filtered), len(scored))

	for _, s := range filtered {
		clusters := make([]int, len(s.Partition))
		for i, id := range s.Partition {
			clusters[i] = id.Index
		}
		if err := t.AddPartition(tree.SavedPartition{Value: s.SS, Clusters: clusters}); err != nil {
			return fmt.Errorf("recording partition: %w", err)
		}
	}

	if flagMaxGran {
		mg, err := partition.MaxGranularityPartition(t)
		if err != nil {
			return fmt.Errorf("computing maximum-granularity partition: %w", err)
		}
		clusters := make([]int, len(mg))
		for i, id := range mg {
			clusters[i] = id.Index
		}
		if err := t.AddPartition(tree.SavedPartition{Value: 0, Clusters: clusters}); err != nil {
			return fmt.Errorf("recording maximum-granularity partition: %w", err)
		}
	}

	manifest.BeginStage("write tree")
	outPath := filepath.Join(flagOutputDir, filepath.Base(flagTreePath))
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output tree file: %w", err)
	}
	if err := t.WriteTo(out); err != nil {
		out.Close()
		return fmt.Errorf("writing tree: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing output tree file: %w", err)
	}

	if err := cliutil.WriteSuccessMarker(flagOutputDir); err != nil {
		return fmt.Errorf("writing success marker: %w", err)
	}
	if err := manifest.WriteLog(flagOutputDir); err != nil {
		return fmt.Errorf("writing log: %w", err)
	}
	return nil
}
