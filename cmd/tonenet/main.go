// Command tonenet builds a forward network from a JSON config, generates
// synthetic tone sequences and scores each one with a forward pass.
//
//	tonenet -samples 20 -style jazz -blueprint
//	tonenet -config net.json -gpu -v
//	tonenet -probe
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/openfluke/tonenet/gpu"
	"github.com/openfluke/tonenet/music"
	"github.com/openfluke/tonenet/nn"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

type options struct {
	configPath string
	seed       int64
	samples    int
	style      string
	useGPU     bool
	blueprint  bool
	probe      bool
	trace      bool
	verbose    bool
}

// defaultConfig is a 10-note input layer, a recurrent hidden layer and a
// single preference output.
func defaultConfig() nn.NetworkConfig {
	return nn.NetworkConfig{
		ID: "tonenet-default",
		Layers: []nn.LayerDefinition{
			{Kind: "feedforward", Size: music.SequenceLength},
			{Kind: "recurrent", Size: 8},
			{Kind: "feedforward", Size: 1},
		},
	}
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("tonenet", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "network config JSON (default: built-in 10-8-1 network)")
	fs.Int64Var(&o.seed, "seed", 0, "seed for weights and data (0 = time based, overrides config)")
	fs.IntVar(&o.samples, "samples", 10, "number of sequences to score")
	fs.StringVar(&o.style, "style", "mixed", "sequence style: classical, jazz or mixed")
	fs.BoolVar(&o.useGPU, "gpu", false, "offload feed-forward layers to the GPU when available")
	fs.BoolVar(&o.blueprint, "blueprint", false, "print the network blueprint as JSON")
	fs.BoolVar(&o.probe, "probe", false, "print the GPU adapter report and exit")
	fs.BoolVar(&o.trace, "trace", false, "log every layer of every forward pass")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.samples < 0 {
		return o, errors.Errorf("-samples must not be negative, got %d", o.samples)
	}
	return o, nil
}

func newLogger(verbose bool, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}
	logger := newLogger(o.verbose, os.Stderr)
	if err := run(o, logger, os.Stdout); err != nil {
		logger.WithError(err).Fatal("tonenet failed")
	}
}

func run(o options, logger *logrus.Logger, stdout io.Writer) error {
	gpu.Logger = logger

	if o.probe {
		report, err := gpu.ProbeJSON()
		if err != nil {
			return errors.Wrap(err, "probe GPU")
		}
		fmt.Fprintln(stdout, report)
		return nil
	}

	cfg := defaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = nn.LoadConfig(o.configPath); err != nil {
			return err
		}
	}
	if o.seed != 0 {
		cfg.Seed = o.seed
	}

	style, err := music.ParseStyle(o.style)
	if err != nil {
		return err
	}

	opts := []nn.Option{nn.WithLogger(logger)}
	if o.trace {
		opts = append(opts, nn.WithObserver(&nn.LogObserver{Logger: logger, Verbose: o.verbose}))
	}
	if o.useGPU {
		ff, err := gpu.NewFeedForward()
		switch {
		case errors.Is(err, gpu.ErrNoGPU):
			logger.WithError(err).Warn("GPU unavailable, computing on CPU")
		case err != nil:
			return err
		default:
			defer ff.Release()
			opts = append(opts, nn.WithAccelerator(ff))
		}
	}

	net, err := nn.BuildNetwork(cfg, opts...)
	if err != nil {
		return errors.Wrap(err, "build network")
	}
	logger.WithFields(logrus.Fields{
		"network": net.ID(),
		"seed":    net.Seed(),
		"layers":  net.NumLayers(),
	}).Info("network built")

	gen := music.NewGenerator(net.Seed())
	data := gen.Dataset(o.samples, style)
	scores := make([]float64, 0, len(data))
	for i, seq := range data {
		out, err := net.Forward(music.Normalize(seq.Frequencies))
		if err != nil {
			return errors.Wrapf(err, "sample %d", i)
		}
		scores = append(scores, out[0])
		logger.WithFields(logrus.Fields{
			"sample":     i,
			"style":      seq.Style.String(),
			"preference": seq.Preference,
			"output":     out[0],
		}).Info("scored")
	}

	summary := music.Summarize(data)
	fields := logrus.Fields{
		"samples":         summary.Count,
		"mean_preference": summary.MeanPreference,
		"std_preference":  summary.StdPreference,
	}
	if len(scores) > 1 {
		fields["correlation"] = stat.Correlation(scores, music.Preferences(data), nil)
	}
	logger.WithFields(fields).Info("dataset scored")

	if o.blueprint {
		b, err := json.MarshalIndent(nn.ExtractBlueprint(net), "", "  ")
		if err != nil {
			return errors.Wrap(err, "encode blueprint")
		}
		fmt.Fprintln(stdout, string(b))
	}
	return nil
}
