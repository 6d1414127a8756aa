// Command distmatrix computes the tiled, checkpointed pairwise
// dissimilarity matrix for a seed set, reading compact tractograms from
// an input directory and writing upper-triangular blocks plus a
// companion seed index to an output directory.
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
	"github.com/hdistill/hclust/pkg/config"
	"github.com/hdistill/hclust/pkg/distengine"
	"github.com/hdistill/hclust/pkg/elog"
	"github.com/hdistill/hclust/pkg/seedindex"
	"github.com/hdistill/hclust/pkg/tractstore"
)

var (
	release = "0.0.0"
	commit  = ""
	date    = "Thu, 01 Jan 1970 00:00:00 +0000"
)

var log elog.View

var (
	flagROI       string
	flagInputDir  string
	flagOutputDir string
	flagThreshold float64
	flagBlockSize int
	flagStart     cliutil.BlockCoord
	flagFinish    cliutil.BlockCoord
	flagMemoryGiB float64
	flagZip       bool
	flagNoLog     bool
	flagThreads   int
	flagConfig    string

	flagVerbose bool
	flagVista   bool
)

var rootCmd = &cobra.Command{
	Use:     "distmatrix",
	Short:   "compute a tiled, checkpointed pairwise dissimilarity matrix",
	Version: release,
	RunE:    run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&flagROI, "roi", "r", "", "seed ROI file (required)")
	f.StringVarP(&flagInputDir, "input", "I", "", "tractogram input directory (required)")
	f.StringVarP(&flagOutputDir, "output", "O", "", "output directory (required)")
	f.Float64VarP(&flagThreshold, "threshold", "t", 0, "zero tracts below this probability, in [0,1)")
	f.IntVarP(&flagBlockSize, "blocksize", "b", 0, "outer block size B (0: 5000); capped by the seed count and the memory budget")
	f.Var(&flagStart, "start", "first block (inclusive), \"R C\"")
	f.Var(&flagFinish, "finish", "last block (inclusive), \"R C\"")
	f.Float64VarP(&flagMemoryGiB, "memory", "m", 2, "memory budget in GiB, in [0.1,50]")
	f.BoolVarP(&flagZip, "zip", "z", false, "gzip-compress block files")
	f.BoolVar(&flagNoLog, "nolog", false, "skip writing <tool>_log.txt")
	f.IntVarP(&flagThreads, "threads", "p", 0, "worker threads (0: all cores)")
	f.StringVar(&flagConfig, "config", "", "config file (default: ~/.hclust.toml)")

	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&flagVista, "vista", false, "read/write vista-oriented coordinates (default nifti)")

	_ = rootCmd.MarkFlagRequired("roi")
	_ = rootCmd.MarkFlagRequired("input")
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

	defaults := config.Load(flagConfig, log)
	if flagBlockSize == 0 && defaults.BlockSize != 0 {
		flagBlockSize = defaults.BlockSize
	}
	if !cmd.Flags().Changed("memory") && defaults.MemoryGiB != 0 {
		flagMemoryGiB = defaults.MemoryGiB
	}
	if !cmd.Flags().Changed("zip") && defaults.Zip {
		flagZip = defaults.Zip
	}
	if flagThreads == 0 {
		flagThreads = defaults.Threads
	}
	if flagThreads <= 0 {
		flagThreads = runtime.NumCPU()
	}

	if err := os.MkdirAll(flagOutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	manifest := cliutil.NewManifest("distmatrix", start, map[string]string{
		"roi":       flagROI,
		"input":     flagInputDir,
		"output":    flagOutputDir,
		"threshold": fmt.Sprintf("%g", flagThreshold),
		"blocksize": fmt.Sprintf("%d", flagBlockSize),
		"memory":    fmt.Sprintf("%g GiB", flagMemoryGiB),
		"zip":       fmt.Sprintf("%t", flagZip),
		"threads":   fmt.Sprintf("%d", flagThreads),
	})

	manifest.BeginStage("load ROI")
	f, err := os.Open(flagROI)
	if err != nil {
		return fmt.Errorf("opening ROI file: %w", err)
	}
	idx, err := seedindex.Load(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("loading ROI: %w", err)
	}
	if flagVista {
		idx = idx.ToVista()
	} else {
		idx = idx.ToNifti()
	}

	format := tractstore.FormatNifti
	if flagVista {
		format = tractstore.FormatVista
	}
	tractBytes, err := probeTractBytes(flagInputDir, format, idx)
	if err != nil {
		return fmt.Errorf("probing tractogram length: %w", err)
	}

	cfg, err := distengine.Configure(len(idx.Coords), tractBytes, flagMemoryGiB, flagBlockSize, flagThreads)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store := tractstore.New(flagInputDir, format, tractBytes, idx.Streams)
	writer := tractstore.NewBlockWriter(flagOutputDir, flagZip)

	manifest.BeginStage("norm pre-pass")
	ctx := context.Background()
	norms, err := distengine.PrecomputeNorms(ctx, store, idx.Coords, idx.TrackIDs, flagThreshold, flagThreads)
	if err != nil {
		return fmt.Errorf("computing norms: %w", err)
	}

	eng := &distengine.Engine{
		Store:    store,
		Writer:   writer,
		Coords:   idx.Coords,
		TrackIDs: idx.TrackIDs,
		Norms:    norms,
		Cfg:      cfg,
		Tau:      flagThreshold,
		View:     log,
	}

	rng := distengine.BlockRange{}
	if flagStart.IsSet() {
		rng.HasStart = true
		rng.StartRow, rng.StartCol = flagStart.Row, flagStart.Col
	}
	if flagFinish.IsSet() {
		rng.HasFinish = true
		rng.FinishRow, rng.FinishCol = flagFinish.Row, flagFinish.Col
	}

	manifest.BeginStage("block computation")
	indexPath := filepath.Join(flagOutputDir, "roi_index.txt")
	if err := eng.Run(ctx, rng, indexPath); err != nil {
		return fmt.Errorf("computing blocks: %w", err)
	}

	if err := cliutil.WriteSuccessMarker(flagOutputDir); err != nil {
		return fmt.Errorf("writing success marker: %w", err)
	}
	if !flagNoLog {
		if err := manifest.WriteLog(flagOutputDir); err != nil {
			return fmt.Errorf("writing log: %w", err)
		}
	}
	return nil
}

// probeTractBytes derives L, the fixed tractogram length, by reading the
// first seed's tract file once; every subsequent read takes exactly that
// many bytes and fails on a shorter file.
func probeTractBytes(dir string, format tractstore.Format, idx *seedindex.Index) (int, error) {
	if len(idx.Coords) == 0 {
		return 0, fmt.Errorf("seed index has no coordinates")
	}
	var path string
	if format == tractstore.FormatVista {
		path = filepath.Join(dir, idx.Coords[0].String()+".tract")
	} else {
		path = filepath.Join(dir, fmt.Sprintf("tract_%d.dat", idx.TrackIDs[0]))
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return int(info.Size()), nil
}
