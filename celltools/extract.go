package celltools

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Extract reads every layer and returns the combined cells sorted by
// latitude then longitude. All inputs are checked before any raster is
// opened, so a missing file aborts the run with nothing extracted.
func Extract(ctx context.Context, layers []Layer, opts ConfigOpts) ([]GridCell, error) {
	for _, layer := range layers {
		if err := RequireFile(layer.Path); err != nil {
			return nil, err
		}
	}
	registerDrivers()

	results := make([][]GridCell, len(layers))
	g, gctx := errgroup.WithContext(ctx)
	for i, layer := range layers {
		g.Go(func() error {
			cells, err := RasterToCells(gctx, layer, opts)
			if err != nil {
				return err
			}
			results[i] = cells
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, layerCells := range results {
		total += len(layerCells)
	}
	cells := make([]GridCell, 0, total)
	for _, layerCells := range results {
		cells = append(cells, layerCells...)
	}
	SortCells(cells)
	return cells, nil
}
