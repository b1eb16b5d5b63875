package planning

import (
	"fmt"
	"math"
	"strconv"

	"github.com/RMahshie/rfscope/pkg/models"
)

// Request describes what a spectral measurement needs.
type Request struct {
	RBWHz       float64 `json:"rbw_hz" yaml:"rbw_hz"`             // target resolution bandwidth
	FsHz        float64 `json:"fs_hz" yaml:"fs_hz"`               // sample rate
	BWHz        float64 `json:"bw_hz" yaml:"bw_hz"`               // total bandwidth to cover
	Window      string  `json:"window" yaml:"window"`             // rect, hann, hamming or blackman
	Overlap     float64 `json:"overlap" yaml:"overlap"`           // fraction in [0, 1)
	Segments    int     `json:"k" yaml:"k"`                       // averaged Welch segments per chunk
	SizePlanner string  `json:"size_planner" yaml:"size_planner"` // empty selects DefaultSizePlanner
}

// CapturePlan is the acquisition budget handed to a capture controller.
type CapturePlan struct {
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate"`
	Samples    int     `json:"samples" yaml:"samples"`
	RBWEff     float64 `json:"rbw_eff" yaml:"rbw_eff"`
	Time       float64 `json:"time" yaml:"time"`
}

// WelchParams is a ready-to-use Welch estimator configuration.
type WelchParams struct {
	Window   string `json:"window" yaml:"window"`
	NPerSeg  int    `json:"nperseg" yaml:"nperseg"`
	NOverlap int    `json:"noverlap" yaml:"noverlap"`
	NFFT     int    `json:"nfft" yaml:"nfft"`
	Scaling  string `json:"scaling" yaml:"scaling"`
	Average  string `json:"average" yaml:"average"`
}

// Plan carries every intermediate value of the shared planning routine.
type Plan struct {
	Window          string  `json:"window" yaml:"window"`
	ENBW            float64 `json:"enbw" yaml:"enbw"`
	NFFTMin         float64 `json:"nfft_min" yaml:"nfft_min"`
	NFFT            int     `json:"nfft" yaml:"nfft"`
	NPerSeg         int     `json:"nperseg" yaml:"nperseg"`
	NOverlap        int     `json:"noverlap" yaml:"noverlap"`
	Step            int     `json:"step" yaml:"step"`
	RBWEff          float64 `json:"rbw_eff" yaml:"rbw_eff"`
	SamplesPerChunk int     `json:"samples_per_chunk" yaml:"samples_per_chunk"`
	Chunks          int     `json:"chunks" yaml:"chunks"`
	TotalSamples    int     `json:"total_samples" yaml:"total_samples"`
	TotalTime       float64 `json:"total_time" yaml:"total_time"`
	SampleRate      float64 `json:"sample_rate" yaml:"sample_rate"`
}

// PlanCapture turns a target RBW into the total sample and time budget needed
// to cover BWHz, retuning once per FsHz of instantaneous bandwidth.
func PlanCapture(req Request) (CapturePlan, error) {
	p, err := PlanCaptureDetailed(req)
	if err != nil {
		return CapturePlan{}, err
	}
	return CapturePlan{
		SampleRate: p.SampleRate,
		Samples:    p.TotalSamples,
		RBWEff:     p.RBWEff,
		Time:       p.TotalTime,
	}, nil
}

// PlanWelch turns a target RBW into Welch estimator parameters.
func PlanWelch(req Request) (WelchParams, error) {
	p, err := plan(req)
	if err != nil {
		return WelchParams{}, err
	}
	return WelchParams{
		Window:   p.Window,
		NPerSeg:  p.NPerSeg,
		NOverlap: p.NOverlap,
		NFFT:     p.NFFT,
		Scaling:  "density",
		Average:  "mean",
	}, nil
}

// PlanCaptureDetailed returns the full plan including the chunk accounting.
func PlanCaptureDetailed(req Request) (Plan, error) {
	p, err := plan(req)
	if err != nil {
		return Plan{}, err
	}

	// Welch sample requirement per chunk: K segments with overlap.
	if req.Segments-1 > (math.MaxInt-p.NPerSeg)/p.Step {
		return Plan{}, fmt.Errorf("%w: samples per chunk overflows int (K=%d, step=%d)", models.ErrInvalidArgument, req.Segments, p.Step)
	}
	p.SamplesPerChunk = p.NPerSeg + (req.Segments-1)*p.Step
	timePerChunk := float64(p.SamplesPerChunk) / req.FsHz

	// One chunk per retune; a single chunk when fs already covers bw.
	chunks := math.Ceil(req.BWHz / req.FsHz)
	if chunks >= maxIntFloat {
		return Plan{}, fmt.Errorf("%w: chunk count ceil(bw_hz/fs_hz)=%v overflows int", models.ErrInvalidArgument, chunks)
	}
	p.Chunks = max(1, int(chunks))
	if p.Chunks > math.MaxInt/p.SamplesPerChunk {
		return Plan{}, fmt.Errorf("%w: total samples overflow int (chunks=%d, samples_per_chunk=%d)",
			models.ErrInvalidArgument, p.Chunks, p.SamplesPerChunk)
	}
	p.TotalSamples = p.Chunks * p.SamplesPerChunk
	p.TotalTime = float64(p.Chunks) * timePerChunk
	return p, nil
}

// maxIntFloat is 2^63 (or 2^31), the first float64 past math.MaxInt.
const maxIntFloat = float64(1 << (strconv.IntSize - 1))

// plan validates req and computes the segment sizing shared by both planners.
func plan(req Request) (Plan, error) {
	factor, ok := ENBW(req.Window)
	if !ok {
		return Plan{}, fmt.Errorf("%w: unknown window %q; options: %v", models.ErrInvalidArgument, req.Window, Windows())
	}
	if !(req.Overlap >= 0 && req.Overlap < 1) {
		return Plan{}, fmt.Errorf("%w: overlap must be in [0.0, 1.0), got %v", models.ErrInvalidArgument, req.Overlap)
	}
	if req.Segments < 1 {
		return Plan{}, fmt.Errorf("%w: K must be an integer >= 1, got %d", models.ErrInvalidArgument, req.Segments)
	}
	for _, v := range []struct {
		name string
		val  float64
	}{{"rbw_hz", req.RBWHz}, {"fs_hz", req.FsHz}, {"bw_hz", req.BWHz}} {
		if !(v.val > 0) || math.IsInf(v.val, 1) {
			return Plan{}, fmt.Errorf("%w: rbw_hz, fs_hz, and bw_hz must be > 0 and finite (%s=%v)", models.ErrInvalidArgument, v.name, v.val)
		}
	}

	name := req.SizePlanner
	if name == "" {
		name = DefaultSizePlanner
	}
	sizeFn, err := SizePlanner(name)
	if err != nil {
		return Plan{}, err
	}

	// Segment sizing from the target RBW, respecting the window ENBW.
	nfftMin := factor * req.FsHz / req.RBWHz
	nfft, err := sizeFn(nfftMin)
	if err != nil {
		return Plan{}, err
	}

	nperseg := nfft
	noverlap := int(req.Overlap * float64(nperseg))
	step := nperseg - noverlap
	if step <= 0 {
		return Plan{}, fmt.Errorf("%w: nperseg - noverlap must be > 0 (nperseg=%d, noverlap=%d); reduce overlap",
			models.ErrInvalidArgument, nperseg, noverlap)
	}

	return Plan{
		Window:     req.Window,
		ENBW:       factor,
		NFFTMin:    nfftMin,
		NFFT:       nfft,
		NPerSeg:    nperseg,
		NOverlap:   noverlap,
		Step:       step,
		RBWEff:     factor * req.FsHz / float64(nfft),
		SampleRate: req.FsHz,
	}, nil
}
