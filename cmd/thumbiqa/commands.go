package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/menta2k/thumbnail-iqa/internal/utils"
	"github.com/menta2k/thumbnail-iqa/pkg/audit"
)

// errIQAFailed makes the process exit non-zero when a verdict fails
var errIQAFailed = errors.New("image failed IQA")

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func planCmd() *cobra.Command {
	var video bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the render plan for thumbnails or video frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			if video {
				plan, err := studio.VideoPlan()
				if err != nil {
					return err
				}
				return printJSON(cmd, plan)
			}
			return printJSON(cmd, studio.ThumbnailPlan())
		},
	}
	cmd.Flags().BoolVar(&video, "video", false, "plan a video frame instead of a thumbnail")
	return cmd
}

func validateCmd() *cobra.Command {
	var title string
	var paletteIndex int
	cmd := &cobra.Command{
		Use:   "validate <image>",
		Short: "Run IQA on a rendered image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			palettes := studio.Config().Thumbnail.Palettes
			if paletteIndex < 0 || paletteIndex >= len(palettes) {
				return fmt.Errorf("palette index %d out of range (have %d)", paletteIndex, len(palettes))
			}
			result, err := studio.Validate(cmd.Context(), args[0], palettes[paletteIndex], title)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, result); err != nil {
				return err
			}
			if !result.Passed {
				return errIQAFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "title drawn on the image; enables text layout analysis")
	cmd.Flags().IntVarP(&paletteIndex, "palette", "p", 0, "index of the configured palette the image was drawn with")
	return cmd
}

func auditCmd() *cobra.Command {
	var runID, out string
	var top int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Validate every produced thumbnail and write a JSON report",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := studio.Audit(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if out == "" {
				out = studio.Config().Audit.ReportPath
			}
			if err := audit.WriteReport(out, report); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Audit %s: %d images, %d passed, %d failed (%s)\n",
				report.AuditID, report.TotalImages, report.Passed, report.Failed, report.PassRate)
			for _, e := range report.Top(top) {
				fmt.Fprintf(w, "  top    %.3f  %s\n", e.Score, e.ImagePath)
			}
			for _, e := range report.Failures() {
				fmt.Fprintf(w, "  FAIL   [%s] %s: %s\n", e.RunID, e.ImagePath, e.Reason)
			}
			if c := report.DesignTokenCheck; c != nil {
				fmt.Fprintf(w, "Design tokens %s/%s: %.2f:1, %s\n", c.BaseColor, c.AccentColor, c.ContrastRatio, c.Recommendation)
			}
			fmt.Fprintf(w, "Report written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "audit a single run")
	cmd.Flags().StringVarP(&out, "out", "o", "", "report path (defaults to audit.report_path)")
	cmd.Flags().IntVar(&top, "top", 3, "number of best images to list")
	return cmd
}

func palettesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "palettes",
		Short: "Rate the configured palettes",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := studio.AuditPalettes()
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, entries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tRATING\tBACKGROUND\tTITLE\tCONTRAST\tWCAG\tRISK\tMOBILE EDGE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f:1\t%s\t%s\t%s\n",
					e.Index, e.Rating, e.Palette.BackgroundColor, e.Palette.TitleColor,
					e.ContrastRatio, e.WCAG, e.BackgroundRisk, e.MobileForecast)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func renderCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "render <title>",
		Short: "Render a thumbnail, trying palettes until one passes IQA",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = filepath.Join(studio.Config().Output.OutputDir, audit.DefaultFileName)
			}
			res, err := studio.RenderThumbnail(cmd.Context(), args[0], out)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, res); err != nil {
				return err
			}
			if !res.Result.Passed {
				return errIQAFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output image path")
	return cmd
}

func debugLayoutCmd() *cobra.Command {
	var video bool
	var out string
	cmd := &cobra.Command{
		Use:   "debug-layout",
		Short: "Draw the render plan's rectangles to an image",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				target := "thumbnail"
				if video {
					target = "video"
				}
				out = utils.GenerateOutputFilename(target, studio.Config().Output.OutputDir, "", "_layout", "png")
			}
			if err := studio.DebugLayout(video, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Layout written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&video, "video", false, "draw the video frame plan")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output image path")
	return cmd
}

func subtitlesCmd() *cobra.Command {
	var out string
	var duration float64
	cmd := &cobra.Command{
		Use:   "subtitles <lines.txt>",
		Short: "Build an ASS subtitle script inside the video plan's safe band",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := readLines(args[0])
			if err != nil {
				return err
			}
			durations := make([]float64, len(lines))
			for i := range durations {
				durations[i] = duration
			}
			script, err := studio.Subtitles(lines, durations)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), script)
				return err
			}
			if err := utils.EnsureDir(filepath.Dir(out)); err != nil {
				return err
			}
			return os.WriteFile(out, []byte(script), 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the script here instead of stdout")
	cmd.Flags().Float64Var(&duration, "duration", 3.0, "seconds each line stays on screen")
	return cmd
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
