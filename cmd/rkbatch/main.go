// Command rkbatch runs HCL raster pipelines and inspects raster files.
//
// Run a pipeline:
//
//	rkbatch -run pipeline.hcl
//
// Print raster metadata:
//
//	rkbatch -info dem.nc
//
// Render a band to PNG:
//
//	rkbatch -render out.png -band 1 -cmap viridis dem.nc
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rasterkit/rasterkit"
	"github.com/rasterkit/rasterkit/batch"
)

func main() {
	var (
		runPath    = flag.String("run", "", "run the pipeline file and exit")
		infoPath   = flag.String("info", "", "print metadata for the raster file and exit")
		renderPath = flag.String("render", "", "render the input raster to this PNG file")
		band       = flag.Int("band", 1, "band to render (1-based)")
		cmap       = flag.String("cmap", "viridis", "colormap for -render")
		workers    = flag.Int("workers", 0, "concurrent pipeline steps (0 = GOMAXPROCS)")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	rasterkit.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch {
	case *runPath != "":
		err = runPipeline(ctx, *runPath, *workers)
	case *infoPath != "":
		err = printInfo(*infoPath)
	case *renderPath != "":
		err = renderRaster(ctx, flag.Arg(0), *renderPath, *band, *cmap)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "rkbatch:", err)
		os.Exit(1)
	}
}

func runPipeline(ctx context.Context, path string, workers int) error {
	var opts []batch.RunOption
	if workers > 0 {
		opts = append(opts, batch.WithWorkers(workers))
	}
	res, err := batch.Run(ctx, path, opts...)
	if err != nil {
		return err
	}
	defer res.Close()
	for _, name := range res.Names() {
		r, _ := res.Raster(name)
		fmt.Printf("%s: %s %s\n", name, r.Shape(), r.DType())
	}
	return nil
}

func printInfo(path string) error {
	r, err := rasterkit.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Printf("shape:  %s\n", r.Shape())
	fmt.Printf("dtype:  %s\n", r.DType())
	rows, cols := r.ChunkShape()
	fmt.Printf("chunks: %dx%d\n", rows, cols)
	if null, ok := r.NullValue(); ok {
		fmt.Printf("null:   %g\n", null)
	}
	if r.Georeferenced() {
		minx, miny, maxx, maxy := r.Bounds()
		xres, yres := r.Resolution()
		fmt.Printf("bounds: [%g, %g, %g, %g]\n", minx, miny, maxx, maxy)
		fmt.Printf("res:    %g, %g\n", xres, yres)
		if crs := r.CRS(); crs != "" {
			fmt.Printf("crs:    %s\n", crs)
		}
	}
	return nil
}

func renderRaster(ctx context.Context, in, out string, band int, cmap string) error {
	if in == "" {
		return fmt.Errorf("-render needs an input raster argument")
	}
	r, err := rasterkit.Open(in)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.SavePNG(ctx, out, band, rasterkit.RenderColormap(cmap))
}
