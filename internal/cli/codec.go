package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/RMahshie/rfscope/pkg/codec"
	"github.com/RMahshie/rfscope/pkg/models"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type encodeFlags struct {
	rbwHz      float64
	fStartHz   float64
	vbwHz      float64
	window     string
	averages   int
	noiseFloor float64
	metadata   map[string]string
	level      int
	dtype      string
	out        string
}

func (f *encodeFlags) codecOptions() ([]codec.Option, error) {
	dtype, err := codec.ParseDType(f.dtype)
	if err != nil {
		return nil, err
	}
	return []codec.Option{codec.WithLevel(f.level), codec.WithDType(dtype)}, nil
}

func addCodecFlags(cmd *cobra.Command, f *encodeFlags) {
	cmd.Flags().IntVar(&f.level, "level", codec.DefaultLevel, "zlib compression level (0-9)")
	cmd.Flags().StringVar(&f.dtype, "dtype", string(codec.Float32), "PSD storage width: float32 or float64")
	cmd.Flags().StringVar(&f.out, "out", "", "write the envelope to this file instead of stdout")
}

func newEncodeCmd(a *app) *cobra.Command {
	var f encodeFlags
	cmd := &cobra.Command{
		Use:   "encode [PSD_JSON]",
		Short: "Encode a JSON list of PSD values (dBm/Hz) into an envelope",
		Long: `Read a JSON array of PSD values in dBm/Hz from PSD_JSON (or stdin) and
write the zlib+npy envelope. Bin i sits at --f-start-hz + i*--rbw-hz.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), firstArg(args))
			if err != nil {
				return err
			}
			var psd []float64
			if err := json.Unmarshal(data, &psd); err != nil {
				return fmt.Errorf("PSD input must be a JSON array of numbers: %w", err)
			}

			opts := []models.SpectrumOption{models.WithAverages(f.averages)}
			if f.window != "" {
				opts = append(opts, models.WithWindow(f.window))
			}
			if cmd.Flags().Changed("vbw-hz") {
				opts = append(opts, models.WithVBW(f.vbwHz))
			}
			if cmd.Flags().Changed("noise-floor") {
				opts = append(opts, models.WithNoiseFloor(f.noiseFloor))
			}
			if len(f.metadata) > 0 {
				md := make(map[string]any, len(f.metadata))
				for k, v := range f.metadata {
					md[k] = v
				}
				opts = append(opts, models.WithMetadata(md))
			}

			sf, err := models.NewSpectrumFrame(psd, f.rbwHz, f.fStartHz, opts...)
			if err != nil {
				return err
			}
			codecOpts, err := f.codecOptions()
			if err != nil {
				return err
			}
			env, err := codec.Encode(sf, codecOpts...)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), f.out, []byte(env+"\n"))
		},
	}

	fl := cmd.Flags()
	fl.Float64Var(&f.rbwHz, "rbw-hz", 0, "bin spacing in Hz")
	fl.Float64Var(&f.fStartHz, "f-start-hz", 0, "frequency of the first bin in Hz")
	fl.Float64Var(&f.vbwHz, "vbw-hz", 0, "video bandwidth in Hz")
	fl.StringVar(&f.window, "window", "", "window used to produce the spectrum")
	fl.IntVar(&f.averages, "averages", 1, "number of averaged segments")
	fl.Float64Var(&f.noiseFloor, "noise-floor", 0, "noise floor estimate in dBm/Hz")
	fl.StringToStringVar(&f.metadata, "metadata", nil, "metadata entries as key=value")
	addCodecFlags(cmd, &f)
	_ = cmd.MarkFlagRequired("rbw-hz")
	return cmd
}

// spectrumSummary describes a decoded spectrum.
type spectrumSummary struct {
	NBins      int                    `json:"n_bins" yaml:"n_bins"`
	RBWHz      float64                `json:"rbw_hz" yaml:"rbw_hz"`
	FStartHz   float64                `json:"f_start_hz" yaml:"f_start_hz"`
	FStopHz    float64                `json:"f_stop_hz" yaml:"f_stop_hz"`
	FCenterHz  float64                `json:"f_center_hz" yaml:"f_center_hz"`
	Averages   int                    `json:"averages" yaml:"averages"`
	Window     *string                `json:"window" yaml:"window"`
	VBWHz      *float64               `json:"vbw_hz" yaml:"vbw_hz"`
	NoiseFloor *float64               `json:"noise_floor_dbm_per_hz" yaml:"noise_floor_dbm_per_hz"`
	PSDMin     float64                `json:"psd_min_dbm_per_hz" yaml:"psd_min_dbm_per_hz"`
	PSDMax     float64                `json:"psd_max_dbm_per_hz" yaml:"psd_max_dbm_per_hz"`
	PSDMean    float64                `json:"psd_mean_dbm_per_hz" yaml:"psd_mean_dbm_per_hz"`
	PSDStdDev  float64                `json:"psd_stddev_db" yaml:"psd_stddev_db"`
	PeakHz     float64                `json:"peak_hz" yaml:"peak_hz"`
	Metadata   map[string]any         `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Points     []models.SpectrumPoint `json:"points,omitempty" yaml:"points,omitempty"`
}

func summarize(sf *models.SpectrumFrame) spectrumSummary {
	psd := sf.PSDdBmPerHz()
	s := spectrumSummary{
		NBins:     sf.NBins(),
		RBWHz:     sf.RBWHz(),
		FStartHz:  sf.FStartHz(),
		FStopHz:   sf.FStopHz(),
		FCenterHz: sf.FCenterHz(),
		Averages:  sf.Averages(),
		PSDMin:    floats.Min(psd),
		PSDMax:    floats.Max(psd),
		PSDMean:   stat.Mean(psd, nil),
		PeakHz:    sf.FrequenciesHz()[floats.MaxIdx(psd)],
		Metadata:  sf.Metadata(),
	}
	if len(psd) > 1 {
		s.PSDStdDev = stat.StdDev(psd, nil)
	}
	if w, ok := sf.Window(); ok {
		s.Window = &w
	}
	if v, ok := sf.VBWHz(); ok {
		s.VBWHz = &v
	}
	if nf, ok := sf.NoiseFloorDBmPerHz(); ok {
		s.NoiseFloor = &nf
	}
	return s
}

func newDecodeCmd(a *app) *cobra.Command {
	var (
		points          bool
		fLowHz, fHighHz float64
	)
	cmd := &cobra.Command{
		Use:   "decode [ENVELOPE]",
		Short: "Decode an envelope and summarise the spectrum",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), firstArg(args))
			if err != nil {
				return err
			}
			sf, err := codec.Decode(strings.TrimSpace(string(data)))
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("f-low-hz") || cmd.Flags().Changed("f-high-hz") {
				low, high := sf.FStartHz(), sf.FStopHz()
				if cmd.Flags().Changed("f-low-hz") {
					low = fLowHz
				}
				if cmd.Flags().Changed("f-high-hz") {
					high = fHighHz
				}
				if sf, err = sf.SliceBand(low, high); err != nil {
					return err
				}
			}

			s := summarize(sf)
			if points {
				s.Points = models.SpectrumPoints(sf)
			}
			return a.render(cmd.OutOrStdout(), s)
		},
	}
	cmd.Flags().BoolVar(&points, "points", false, "include every bin in the output")
	cmd.Flags().Float64Var(&fLowHz, "f-low-hz", 0, "keep bins at or above this frequency")
	cmd.Flags().Float64Var(&fHighHz, "f-high-hz", 0, "keep bins at or below this frequency")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [ENVELOPE]",
		Short: "Validate an envelope and print its header without decoding the PSD",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), firstArg(args))
			if err != nil {
				return err
			}
			h, err := codec.DecodeHeader(strings.TrimSpace(string(data)))
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), h)
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
