package cli

import (
	"fmt"

	"github.com/RMahshie/rfscope/pkg/planning"
	"github.com/spf13/cobra"
)

func addPlanFlags(cmd *cobra.Command, req *planning.Request) {
	f := cmd.Flags()
	f.Float64Var(&req.RBWHz, "rbw-hz", 1000, "target resolution bandwidth in Hz")
	f.Float64Var(&req.FsHz, "fs-hz", 2e6, "sample rate in Hz")
	f.Float64Var(&req.BWHz, "bw-hz", 0, "total bandwidth to cover in Hz (default fs-hz)")
	f.StringVar(&req.Window, "window", "hann", "window: rect, hann, hamming or blackman")
	f.Float64Var(&req.Overlap, "overlap", 0.5, "fractional segment overlap in [0, 1)")
	f.IntVar(&req.Segments, "k", 8, "Welch segments averaged per chunk")
	f.StringVar(&req.SizePlanner, "size-planner", planning.DefaultSizePlanner, "FFT size strategy: next_pow2 or next_5smooth")
}

func withDefaultBandwidth(req planning.Request) planning.Request {
	if req.BWHz == 0 {
		req.BWHz = req.FsHz
	}
	return req
}

func newPlanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Turn a target RBW into capture or Welch parameters",
	}
	cmd.AddCommand(newPlanCaptureCmd(a), newPlanWelchCmd(a))
	return cmd
}

func newPlanCaptureCmd(a *app) *cobra.Command {
	var req planning.Request
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Compute the sample and time budget for a capture",
		Long: `Compute the samples and acquisition time needed to reach --rbw-hz over
--bw-hz, retuning once per --fs-hz of instantaneous bandwidth. With
--verbose the full plan (nfft, overlap, chunk accounting) is shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := withDefaultBandwidth(req)
			if a.verbose {
				p, err := planning.PlanCaptureDetailed(r)
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), p)
			}
			p, err := planning.PlanCapture(r)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), p)
		},
	}
	addPlanFlags(cmd, &req)
	return cmd
}

func newPlanWelchCmd(a *app) *cobra.Command {
	var req planning.Request
	cmd := &cobra.Command{
		Use:   "welch",
		Short: "Compute Welch estimator parameters for a target RBW",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := planning.PlanWelch(withDefaultBandwidth(req))
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), p)
		},
	}
	addPlanFlags(cmd, &req)
	return cmd
}

type fftSizeResult struct {
	Planner string  `json:"planner" yaml:"planner"`
	NMin    float64 `json:"n_min" yaml:"n_min"`
	N       int     `json:"n" yaml:"n"`
}

func newFFTSizeCmd(a *app) *cobra.Command {
	var planner string
	cmd := &cobra.Command{
		Use:   "fftsize N_MIN",
		Short: "Pick the smallest FFT length at least N_MIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var nMin float64
			if _, err := fmt.Sscan(args[0], &nMin); err != nil {
				return fmt.Errorf("invalid N_MIN %q: %w", args[0], err)
			}
			fn, err := planning.SizePlanner(planner)
			if err != nil {
				return err
			}
			n, err := fn(nMin)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), fftSizeResult{Planner: planner, NMin: nMin, N: n})
		},
	}
	cmd.Flags().StringVar(&planner, "planner", planning.DefaultSizePlanner, "next_pow2 or next_5smooth")
	return cmd
}
