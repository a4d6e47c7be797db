package celltools

import (
	"context"
	"errors"
	"math"
	"os"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrInputMissing is returned, wrapped with the path, when a required input
// file does not exist.
var ErrInputMissing = eris.New("input file not found")

type ConfigOpts struct {
	NumWorkers int
}

type BandContainer struct {
	Band         godal.Band
	GeoTransform [6]float64
	NoData       float64
	HasNoData    bool
	// Float32 bands store no-data at single precision.
	Float32      bool
	mu           *sync.Mutex
}

func (b *BandContainer) masked(value float64) bool {
	if math.IsNaN(value) {
		return true
	}
	if !b.HasNoData {
		return false
	}
	if b.Float32 {
		return float32(value) == float32(b.NoData)
	}
	return value == b.NoData
}

var registerOnce sync.Once

func registerDrivers() {
	registerOnce.Do(godal.RegisterAll)
}

// RequireFile fails with ErrInputMissing when path does not exist.
func RequireFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return eris.Wrapf(ErrInputMissing, "file not found: %s", path)
		}
		return eris.Wrapf(err, "celltools: stat %s", path)
	}
	return nil
}

// RasterToCells reads band 1 of the raster at layer.Path and returns one
// GridCell per pixel that is not no-data, located at the pixel centre in
// WGS84.
func RasterToCells(ctx context.Context, layer Layer, opts ConfigOpts) (cells []GridCell, err error) {
	if err := RequireFile(layer.Path); err != nil {
		return nil, err
	}
	registerDrivers()

	ds, err := godal.Open(layer.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "celltools: open raster %s", layer.Path)
	}
	defer func() {
		err = errors.Join(err, ds.Close())
	}()

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, eris.Wrapf(err, "celltools: geotransform of %s", layer.Path)
	}

	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, eris.Errorf("celltools: %s has no bands", layer.Path)
	}
	noData, ok := bands[0].NoData()
	if !ok {
		logrus.Warnf("NoData not set on %s, masking NaN cells only", layer.Path)
	}

	band := &BandContainer{
		Band:         bands[0],
		GeoTransform: gt,
		NoData:       noData,
		HasNoData:    ok,
		Float32:      bands[0].Structure().DataType == godal.Float32,
		mu:           &sync.Mutex{},
	}

	cells, err = indexBand(ctx, band, layer.WellType, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "celltools: index %s", layer.Path)
	}

	if err := cellsToWGS84(ds, cells); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"path":      layer.Path,
		"well_type": layer.WellType,
		"cells":     len(cells),
	}).Info("Extracted valid grid cells")
	return cells, nil
}

func indexBand(ctx context.Context, band *BandContainer, wellType WellType, opts ConfigOpts) ([]GridCell, error) {
	workers := opts.NumWorkers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	blocks := genBlocks(gctx, g, band)

	resCh := make(chan []GridCell, workers)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return indexBlocks(gctx, band, blocks, wellType, resCh)
		})
	}
	go func() {
		_ = g.Wait()
		close(resCh)
	}()

	var cells []GridCell
	for blockCells := range resCh {
		cells = append(cells, blockCells...)
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cells, nil
}

// Produce blocks from a raster band, putting them in a channel to be consumed
// downstream. The production here is happening serially, but there would be
// very little speedup from parallelising at this step.
func genBlocks(ctx context.Context, g *errgroup.Group, band *BandContainer) <-chan godal.Block {
	logrus.Debug("Entered genBlocks")

	blocks := make(chan godal.Block)
	firstBlock := band.Band.Structure().FirstBlock()
	g.Go(func() error {
		defer close(blocks)
		for block, ok := firstBlock, true; ok; block, ok = block.Next() {
			select {
			case blocks <- block:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	return blocks
}

func indexBlocks(ctx context.Context, band *BandContainer, blocks <-chan godal.Block, wellType WellType, resCh chan<- []GridCell) error {
	for block := range blocks {
		logrus.Debugf("Processing block at [%v, %v]", block.X0, block.Y0)
		cells, err := rasterBlockToCells(band, block, wellType)
		if err != nil {
			return err
		}
		select {
		case resCh <- cells:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func rasterBlockToCells(band *BandContainer, block godal.Block, wellType WellType) ([]GridCell, error) {
	blockBuf := make([]float64, block.W*block.H)
	if err := lockedRead(band, block, blockBuf); err != nil {
		return nil, eris.Wrapf(err, "celltools: read block at [%d, %d]", block.X0, block.Y0)
	}

	cells := make([]GridCell, 0, len(blockBuf))
	for pix, value := range blockBuf {
		if band.masked(value) {
			continue
		}
		// GDAL is row-major
		row := block.Y0 + pix/block.W
		col := block.X0 + pix%block.W

		x, y := pixelCentre(band.GeoTransform, col, row)
		cells = append(cells, GridCell{
			Longitude:       x,
			Latitude:        y,
			WellType:        wellType,
			LithiumCategory: int(value),
		})
	}
	return cells, nil
}

// Locking is required to read from compressed rasters.
func lockedRead(band *BandContainer, block godal.Block, blockBuf []float64) error {
	band.mu.Lock()
	defer band.mu.Unlock()
	return band.Band.Read(block.X0, block.Y0, blockBuf, block.W, block.H)
}

// pixelCentre applies the full affine geotransform to the centre of pixel
// (col, row).
func pixelCentre(gt [6]float64, col, row int) (float64, float64) {
	c := float64(col) + 0.5
	r := float64(row) + 0.5
	return gt[0] + c*gt[1] + r*gt[2], gt[3] + c*gt[4] + r*gt[5]
}
