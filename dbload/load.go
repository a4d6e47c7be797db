package dbload

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// ScanDir lists the regular files in dir whose extension is one of exts,
// skipping the names in exclude. The result is sorted by name.
func ScanDir(dir string, exts, exclude []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "dbload: read directory %s", dir)
	}

	want := make(map[string]bool, len(exts))
	for _, ext := range exts {
		want[strings.ToLower(ext)] = true
	}
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || skip[e.Name()] {
			continue
		}
		if want[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// FileResult is the outcome of loading one file.
type FileResult struct {
	File     string
	Table    string
	Rows     int64
	Columns  int
	Filtered int
	Dropped  []string
	Err      error
}

// Run loads every file into target. A file that fails is logged and
// skipped; the rest of the batch continues. Cancelling ctx stops the batch
// between files.
func Run(ctx context.Context, target Target, files []string) []FileResult {
	results := make([]FileResult, 0, len(files))
	for _, file := range files {
		if ctx.Err() != nil {
			logrus.Warnf("Load cancelled before %s", file)
			break
		}
		logrus.Infof("Processing: %s", filepath.Base(file))
		res := LoadFile(ctx, target, file)
		if res.Err != nil {
			logrus.Errorf("Error processing %s: %s", filepath.Base(file), eris.ToString(res.Err, true))
		} else {
			logrus.WithFields(logrus.Fields{
				"table":   res.Table,
				"rows":    res.Rows,
				"columns": res.Columns,
			}).Info("Imported file")
		}
		results = append(results, res)
	}
	return results
}

// LoadFile reads, cleans and loads one file, replacing its table.
func LoadFile(ctx context.Context, target Target, path string) FileResult {
	res := FileResult{File: path, Table: TableName(path)}

	frame, err := ReadFile(path)
	if err != nil {
		res.Err = err
		return res
	}

	if strings.EqualFold(filepath.Ext(path), ".xls") {
		before := frame.NumRows()
		res.Filtered = FilterCountyCodes(frame)
		if res.Filtered > 0 {
			logrus.Infof("Filtered from %d to %d rows (removed rows without county codes)", before, frame.NumRows())
		}
	}
	if res.Dropped = DropNotes(frame); len(res.Dropped) > 0 {
		logrus.Infof("Dropped notes column(s): %v", res.Dropped)
	}

	columns := SanitizeColumns(frame.Columns)
	types := InferTypes(frame)
	values, err := Values(frame, types)
	if err != nil {
		res.Err = eris.Wrapf(err, "dbload: convert %s", path)
		return res
	}

	n, err := target.ReplaceTable(ctx, res.Table, columns, types, values)
	if err != nil {
		res.Err = err
		return res
	}
	res.Rows, res.Columns = n, len(columns)
	return res
}
