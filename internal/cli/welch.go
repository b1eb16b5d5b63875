package cli

import (
	"fmt"

	"github.com/RMahshie/rfscope/internal/welch"
	"github.com/RMahshie/rfscope/pkg/codec"
	"github.com/RMahshie/rfscope/pkg/iqfile"
	"github.com/RMahshie/rfscope/pkg/models"
	"github.com/RMahshie/rfscope/pkg/planning"
	"github.com/RMahshie/rfscope/pkg/rfunits"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWelchCmd(a *app) *cobra.Command {
	var (
		req          planning.Request
		enc          encodeFlags
		centerHz     float64
		impedanceOhm float64
		gainDB       float64
		antGainDBi   float64
		blocks       int
		scaling      string
	)

	cmd := &cobra.Command{
		Use:   "welch IQ_FILE",
		Short: "Estimate the PSD of a cf32le IQ recording and encode it",
		Long: `Plan Welch parameters for --rbw-hz, estimate the PSD of IQ_FILE (raw
interleaved little-endian float32 I/Q, optionally --blocks equal blocks
captured back to back) and write the zlib+npy envelope. When --out is set a
summary of the spectrum is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			r := req
			r.BWHz = r.FsHz
			params, err := planning.PlanWelch(r)
			if err != nil {
				return err
			}
			params.Scaling = scaling

			opts := []models.IQOption{models.WithImpedance(impedanceOhm)}
			if cmd.Flags().Changed("gain-db") {
				opts = append(opts, models.WithGain(gainDB))
			}
			iq, err := iqfile.NewFrame(data, blocks, req.FsHz, centerHz, opts...)
			if err != nil {
				return err
			}

			log.Debug().
				Int("samples", iq.NSamples()).
				Int("blocks", iq.NChannels()).
				Int("nfft", params.NFFT).
				Msg("Estimating PSD")

			sf, err := welch.Estimate(iq, params)
			if err != nil {
				return err
			}
			if antGainDBi != 0 {
				if sf, err = referToIsotropic(sf, antGainDBi); err != nil {
					return err
				}
			}

			codecOpts, err := enc.codecOptions()
			if err != nil {
				return err
			}
			env, err := codec.Encode(sf, codecOpts...)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), enc.out, []byte(env+"\n")); err != nil {
				return err
			}
			if enc.out != "" && enc.out != "-" {
				return a.render(cmd.OutOrStdout(), summarize(sf))
			}
			return nil
		},
	}

	addPlanFlags(cmd, &req)
	addCodecFlags(cmd, &enc)
	f := cmd.Flags()
	f.Float64Var(&centerHz, "center-freq-hz", 0, "tuned centre frequency in Hz")
	f.Float64Var(&impedanceOhm, "impedance-ohm", 50, "reference impedance in ohm")
	f.Float64Var(&gainDB, "gain-db", 0, "front-end gain reported by the device")
	f.Float64Var(&antGainDBi, "ant-gain-dbi", 0, "antenna gain; the PSD is referred to an isotropic antenna")
	f.IntVar(&blocks, "blocks", 1, "number of equal-length blocks in IQ_FILE")
	f.StringVar(&scaling, "scaling", welch.ScalingDensity, "density (V^2/Hz) or spectrum (V^2)")
	_ = cmd.MarkFlagRequired("center-freq-hz")
	return cmd
}

// referToIsotropic subtracts the antenna gain from every bin.
func referToIsotropic(sf *models.SpectrumFrame, antGainDBi float64) (*models.SpectrumFrame, error) {
	psd := sf.PSDdBmPerHz()
	for i := range psd {
		psd[i] = rfunits.ReferPSDToIsotropic(psd[i], antGainDBi)
	}

	md := sf.Metadata()
	if md == nil {
		md = map[string]any{}
	}
	md["ant_gain_dbi"] = antGainDBi

	opts := []models.SpectrumOption{models.WithAverages(sf.Averages()), models.WithMetadata(md)}
	if w, ok := sf.Window(); ok {
		opts = append(opts, models.WithWindow(w))
	}
	if v, ok := sf.VBWHz(); ok {
		opts = append(opts, models.WithVBW(v))
	}
	if nf, ok := sf.NoiseFloorDBmPerHz(); ok {
		opts = append(opts, models.WithNoiseFloor(rfunits.ReferPSDToIsotropic(nf, antGainDBi)))
	}
	out, err := models.NewSpectrumFrame(psd, sf.RBWHz(), sf.FStartHz(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to refer spectrum to isotropic: %w", err)
	}
	return out, nil
}
