package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/unixpickle/bgan"
)

func main() {
	cfg := bgan.DefaultConfig()
	configPath := flag.String("config", "", "YAML config file (flags override it)")
	bindFlags(flag.CommandLine, cfg)
	flag.Parse()

	if *configPath != "" {
		fileCfg, err := bgan.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		overrides := flag.NewFlagSet("overrides", flag.ContinueOnError)
		bindFlags(overrides, fileCfg)
		flag.Visit(func(f *flag.Flag) {
			if f.Name != "config" {
				overrides.Set(f.Name, f.Value.String())
			}
		})
		cfg = fileCfg
	}

	session, err := bgan.NewSession(cfg)
	if err != nil {
		log.Fatalf("setup failed: %v", err)
	}
	log.Printf("results=%s", session.Dirs.Root)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := session.Train(ctx); err != nil {
		if errors.Cause(err) == context.Canceled {
			log.Printf("interrupted at epoch=%d step=%d", session.State.Epoch,
				session.State.Step)
			return
		}
		log.Fatalf("training failed: %v", err)
	}
	log.Printf("done: epoch=%d step=%d", session.State.Epoch, session.State.Step)
}

func bindFlags(fs *flag.FlagSet, c *bgan.Config) {
	fs.StringVar(&c.DatasetName, "dataset_name", c.DatasetName, "disc_mnist or disc_celeba")
	fs.StringVar(&c.RunName, "run-name", c.RunName, "result directory name (default: dataset name)")
	fs.StringVar(&c.DataPath, "data-path", c.DataPath, "dataset root directory")
	fs.StringVar(&c.ResultsDir, "results-dir", c.ResultsDir, "parent of the result directory")
	fs.IntVar(&c.BatchSize, "batch-size", c.BatchSize, "batch size")
	fs.IntVar(&c.LatentDim, "latent-dim", c.LatentDim, "latent vector size")
	fs.Float64Var(&c.GenLR, "g-lr", c.GenLR, "generator learning rate")
	fs.Float64Var(&c.DiscLR, "d-lr", c.DiscLR, "discriminator learning rate")
	fs.StringVar(&c.Activation, "activation", c.Activation, "relu, leaky_relu, or elu")
	fs.BoolVar(&c.SpectralNorm, "use-spectral-norm", c.SpectralNorm, "normalize weights once")
	fs.IntVar(&c.LogEvery, "log-every", c.LogEvery, "log every N steps")
	fs.IntVar(&c.SampleEvery, "sample-every", c.SampleEvery, "save samples every N steps")
	fs.IntVar(&c.CheckpointEvery, "checkpoint-every", c.CheckpointEvery,
		"save a checkpoint every N epochs")
	fs.IntVar(&c.NumSample, "n-sample", c.NumSample, "images per sample grid")
	fs.IntVar(&c.MCSamples, "n-mc-samples", c.MCSamples, "Monte-Carlo samples per latent")
	fs.IntVar(&c.Epochs, "epochs", c.Epochs, "number of epochs")
	fs.IntVar(&c.NumWorkers, "num-workers", c.NumWorkers, "data loader workers")
	fs.StringVar(&c.Device, "device", c.Device, "compute device (cpu)")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "PRNG seed")
	fs.StringVar(&c.OnNaN, "on-nan", c.OnNaN, "abort or skip steps with NaN losses")
	fs.StringVar(&c.Resume, "resume", c.Resume, "checkpoint to resume from")
}
