package main

import (
	"context"
	"fmt"
	"image/png"
	"log"
	"os"

	"github.com/unixpickle/bgan"
)

const (
	Epochs    = 5
	BatchSize = 128
	GridSize  = 5
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: mnist_gen <output.png>")
		os.Exit(1)
	}

	cfg := bgan.DefaultConfig()
	cfg.RunName = "mnist_gen"
	cfg.Epochs = Epochs
	cfg.BatchSize = BatchSize
	cfg.NumSample = 0
	session, err := bgan.NewSession(cfg)
	if err != nil {
		log.Fatalf("setup failed: %v", err)
	}
	if err := session.Train(context.Background()); err != nil {
		log.Fatalf("training failed: %v", err)
	}

	log.Println("Creating generation grid...")

	model := session.Model
	width, height := session.Dataset.ImageSize()
	grid, err := bgan.SampleGrid(model.Generator, model.Space,
		model.Latents(GridSize*GridSize), width, height, GridSize)
	if err != nil {
		log.Fatalf("render grid: %v", err)
	}
	outFile, err := os.Create(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer outFile.Close()
	if err := png.Encode(outFile, grid); err != nil {
		log.Fatalf("encode grid: %v", err)
	}
}
