// Command image2tree relabels an existing tree's meta-leaves from an
// external label volume and rebuilds it into a 3-level tree.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hdistill/hclust/pkg/cliutil"
	"github.com/hdistill/hclust/pkg/coordinate"
	"github.com/hdistill/hclust/pkg/elog"
	"github.com/hdistill/hclust/pkg/hcerr"
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
	flagTreePath  string
	flagBasesPath string
	flagImagePath string
	flagOutputDir string

	flagVerbose bool
	flagVista   bool
)

var rootCmd = &cobra.Command{
	Use:     "image2tree",
	Short:   "relabel a tree's meta-leaves from an external label volume",
	Version: release,
	RunE:    run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&flagTreePath, "tree", "t", "", "output tree name; the result is written under its base name in the output directory (required)")
	f.StringVarP(&flagBasesPath, "bases", "b", "", "meta-leaf base-node reference tree (required)")
	f.StringVarP(&flagImagePath, "image", "i", "", "label volume (required)")
	f.StringVarP(&flagOutputDir, "output", "O", "", "output directory (required)")

	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&flagVista, "vista", false, "accepted for uniformity with the other tools; has no effect here")

	_ = rootCmd.MarkFlagRequired("tree")
	_ = rootCmd.MarkFlagRequired("bases")
	_ = rootCmd.MarkFlagRequired("image")
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

	if err := os.MkdirAll(flagOutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	manifest := cliutil.NewManifest("image2tree", start, map[string]string{
		"tree":   flagTreePath,
		"bases":  flagBasesPath,
		"image":  flagImagePath,
		"output": flagOutputDir,
	})

	manifest.BeginStage("load tree")
	basesFile, err := os.Open(flagBasesPath)
	if err != nil {
		return fmt.Errorf("opening bases tree: %w", err)
	}
	src, err := tree.Parse(basesFile)
	basesFile.Close()
	if err != nil {
		return fmt.Errorf("parsing bases tree: %w", err)
	}

	manifest.BeginStage("load label volume")
	vol, err := loadLabelVolume(flagImagePath)
	if err != nil {
		return fmt.Errorf("loading label volume: %w", err)
	}
	log.Infof("loaded label volume %dx%dx%d", vol.Extent.SX, vol.Extent.SY, vol.Extent.SZ)

	manifest.BeginStage("rebuild tree")
	dst, err := match.ImageToTree(src, vol)
	if err != nil {
		return fmt.Errorf("rebuilding tree from image: %w", err)
	}

	manifest.BeginStage("write tree")
	outPath := filepath.Join(flagOutputDir, filepath.Base(flagTreePath))
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output tree file: %w", err)
	}
	if err := dst.WriteTo(out); err != nil {
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

// loadLabelVolume reads a plain-text label volume: a header line "SX SY SZ",
// followed by SX*SY*SZ whitespace-separated integer labels in x-major
// order, matching match.LabelVolume's layout.
func loadLabelVolume(path string) (match.LabelVolume, error) {
	f, err := os.Open(path)
	if err != nil {
		return match.LabelVolume{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)

	if !scanner.Scan() {
		return match.LabelVolume{}, hcerr.Format("label volume is empty", nil)
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) != 3 {
		return match.LabelVolume{}, hcerr.Format("label volume header must be \"sx sy sz\"", nil)
	}
	sx, err1 := strconv.Atoi(fields[0])
	sy, err2 := strconv.Atoi(fields[1])
	sz, err3 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return match.LabelVolume{}, hcerr.Format("label volume extent must be integers", nil)
	}
	ext := coordinate.Extent{SX: sx, SY: sy, SZ: sz}

	labels := make([]int, 0, sx*sy*sz)
	for scanner.Scan() {
		for _, tok := range strings.Fields(scanner.Text()) {
			v, err := strconv.Atoi(tok)
			if err != nil {
				return match.LabelVolume{}, hcerr.Format("label volume entry must be an integer", err)
			}
			labels = append(labels, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return match.LabelVolume{}, err
	}
	if len(labels) != sx*sy*sz {
		return match.LabelVolume{}, hcerr.DimensionMismatch("label volume entry count does not match header extent")
	}

	return match.LabelVolume{Extent: ext, Labels: labels}, nil
}
