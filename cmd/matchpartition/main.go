// Command matchpartition corresponds a reference tree's saved partitions
// onto a target tree's: either by signature correlation search, overlap
// search, or direct color transfer over already-aligned partitions, given
// a base-node correspondence table between the two trees' meta-leaves.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hdistill/hclust/pkg/cliutil"
	"github.com/hdistill/hclust/pkg/elog"
	"github.com/hdistill/hclust/pkg/match"
	"github.com/hdistill/hclust/pkg/tree"
)

var (
	release = "0.0.0"
	commit  = ""
	date    = "Thu, 01 Jan 1970 00:00:00 +0000"
)

var log elog.View

var (
	flagRefPath    string
	flagTargetPath string
	flagTablePath  string
	flagOutputDir  string
	flagLambda     float64
	flagSignature  bool
	flagOverlap    bool
	flagColorOnly  bool
	flagDepth      int
	flagExclusive  bool

	flagVerbose bool
	flagVista   bool
)

var rootCmd = &cobra.Command{
	Use:     "matchpartition",
	Short:   "match a reference tree's partitions onto a target tree and transfer colors",
	Version: release,
	RunE:    run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&flagRefPath, "ref", "r", "", "reference tree A (required)")
	f.StringVarP(&flagTargetPath, "target", "t", "", "target tree B (required)")
	f.StringVarP(&flagTablePath, "match-table", "m", "", "base-node correspondence table (required)")
	f.StringVarP(&flagOutputDir, "output", "O", "", "output directory (required)")
	f.Float64VarP(&flagLambda, "signature", "s", 0, "signature-correlation search with this granularity-weight lambda")
	f.BoolVarP(&flagOverlap, "overlap", "o", false, "overlap search instead of signature search")
	f.BoolVarP(&flagColorOnly, "color-only", "c", false, "skip matching; transfer colors over already-aligned partitions")
	f.IntVarP(&flagDepth, "depth", "d", 0, "branching search depth (0: adaptive)")
	f.BoolVarP(&flagExclusive, "exclusive", "x", false, "unmatched target clusters get white instead of a random color")

	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&flagVista, "vista", false, "accepted for uniformity with the other tools; has no effect here (trees keep the coordinate frame they were read in)")

	_ = rootCmd.MarkFlagRequired("ref")
	_ = rootCmd.MarkFlagRequired("target")
	_ = rootCmd.MarkFlagRequired("match-table")
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

	modes := 0
	if cmd.Flags().Changed("signature") {
		modes++
	}
	if flagOverlap {
		modes++
	}
	if flagColorOnly {
		modes++
	}
	if modes != 1 {
		return fmt.Errorf("exactly one of --signature, --overlap, --color-only must be given")
	}

	if err := os.MkdirAll(flagOutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	manifest := cliutil.NewManifest("matchpartition", start, map[string]string{
		"ref":    flagRefPath,
		"target": flagTargetPath,
		"table":  flagTablePath,
		"output": flagOutputDir,
		"depth":  fmt.Sprintf("%d", flagDepth),
	})

	manifest.BeginStage("load trees")
	a, err := loadTree(flagRefPath)
	if err != nil {
		return fmt.Errorf("loading reference tree: %w", err)
	}
	b, err := loadTree(flagTargetPath)
	if err != nil {
		return fmt.Errorf("loading target tree: %w", err)
	}
	table, err := loadTable(flagTablePath)
	if err != nil {
		return fmt.Errorf("loading correspondence table: %w", err)
	}

	manifest.BeginStage("prepare")
	prep, err := match.Prepare(a, b, table)
	if err != nil {
		return fmt.Errorf("preparing match: %w", err)
	}

	manifest.BeginStage("match and transfer colors")
	ctx := context.Background()
	aPartitions := append([]tree.SavedPartition(nil), a.Partitions()...)
	var bPartitions []tree.SavedPartition

	for k, pa := range aPartitions {
		paIDs := clustersToFullIDs(pa.Clusters)

		var pbIDs []tree.FullID
		var score float64
		switch {
		case flagSignatureMode(cmd):
			pbIDs, score, err = match.SignatureMatch(ctx, b, prep, paIDs, flagDepth, false, flagLambda)
		case flagOverlap:
			pbIDs, score, err = match.OverlapSearch(ctx, b, prep, paIDs, flagDepth, false)
		default: // color-only: reuse B's partition k, aligned by index
			if k >= len(b.Partitions()) {
				return fmt.Errorf("color-only mode requires target partition %d to already exist", k)
			}
			pbIDs = clustersToFullIDs(b.Partitions()[k].Clusters)
			score = 0
		}
		if err != nil {
			return fmt.Errorf("matching partition %d: %w", k, err)
		}

		overlapResult, err := match.OverlapMatch(prep, paIDs, pbIDs)
		if err != nil {
			return fmt.Errorf("computing cluster correspondence for partition %d: %w", k, err)
		}

		colorsB, colorsA, aAltered := match.TransferColors(overlapResult, pa.Colors, flagExclusive)
		if aAltered {
			aPartitions[k].Colors = colorsA
			if err := a.SetPartitionColors(k, colorsA); err != nil {
				return fmt.Errorf("updating reference colors for partition %d: %w", k, err)
			}
		}

		clusters := make([]int, len(pbIDs))
		for i, id := range pbIDs {
			clusters[i] = id.Index
		}
		bPartitions = append(bPartitions, tree.SavedPartition{Value: score, Clusters: clusters, Colors: colorsB})

		log.Infof("partition %d: matched %d A clusters to %d B clusters, score %.4f", k, len(paIDs), len(pbIDs), score)
	}

	b.SetPartitions(bPartitions)

	manifest.BeginStage("write trees")
	if err := writeTree(a, filepath.Join(flagOutputDir, "matched_"+filepath.Base(flagRefPath))); err != nil {
		return fmt.Errorf("writing reference tree: %w", err)
	}
	if err := writeTree(b, filepath.Join(flagOutputDir, "matched_"+filepath.Base(flagTargetPath))); err != nil {
		return fmt.Errorf("writing target tree: %w", err)
	}

	if err := cliutil.WriteSuccessMarker(flagOutputDir); err != nil {
		return fmt.Errorf("writing success marker: %w", err)
	}
	if err := manifest.WriteLog(flagOutputDir); err != nil {
		return fmt.Errorf("writing log: %w", err)
	}
	return nil
}

func flagSignatureMode(cmd *cobra.Command) bool {
	return cmd.Flags().Changed("signature")
}

func loadTree(path string) (*tree.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tree.Parse(f)
}

func writeTree(t *tree.Tree, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// loadTable reads one integer per line: the target meta-leaf index matched
// to each reference meta-leaf in order, or -1 for no match.
func loadTable(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var table []int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("invalid table entry %q: %w", line, err)
		}
		table = append(table, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

func clustersToFullIDs(clusters []int) []tree.FullID {
	out := make([]tree.FullID, len(clusters))
	for i, idx := range clusters {
		out[i] = tree.FullID{Kind: tree.Inner, Index: idx}
	}
	return out
}

