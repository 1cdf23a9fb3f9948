package commands

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robert-malhotra/h5pipe/pipeio"
)

type importFlags struct {
	out     string
	group   string
	codec   string
	level   int
	shuffle bool
}

func newImportCmd(a *app) *cobra.Command {
	var fl importFlags
	cmd := &cobra.Command{
		Use:   "import [dir] [pattern]",
		Short: "Write CSV columns as datasets",
		Long: `Find CSV files below dir and write each column as a dataset at
<group>/<path>/<column> in the output container, where <path> is the file's
path below dir without its extension. The container is
created if missing and appended to otherwise; datasets of the same name are
replaced.

Columns whose cells all parse as numbers are stored as float64, others as
strings. Each dataset records its source file in a "source" attribute.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			dir, pattern := cfg.Data.Dir, cfg.Data.Pattern
			if len(args) > 0 {
				dir = args[0]
			}
			if len(args) > 1 {
				pattern = args[1]
			}
			if !cmd.Flags().Changed("out") {
				fl.out = cfg.Output.Path
			}
			if !cmd.Flags().Changed("group") {
				fl.group = cfg.Output.Group
			}
			comp := cfg.Compression.Options()
			if cmd.Flags().Changed("codec") {
				comp.Codec = pipeio.Codec(fl.codec)
			}
			if cmd.Flags().Changed("level") {
				comp.Level = fl.level
			}
			if cmd.Flags().Changed("shuffle") {
				comp.Shuffle = fl.shuffle
			}
			if err := comp.Validate(); err != nil {
				return err
			}

			files, err := pipeio.FindFiles(pattern, dir)
			if err != nil {
				return err
			}
			n, err := importFiles(dir, files, fl.out, fl.group, comp)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d columns from %d files into %s\n", n, len(files), fl.out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&fl.out, "out", "o", "", "output container (default output.path)")
	cmd.Flags().StringVarP(&fl.group, "group", "g", "", "group to write below (default output.group)")
	cmd.Flags().StringVar(&fl.codec, "codec", "", "compression codec: gzip or none")
	cmd.Flags().IntVar(&fl.level, "level", pipeio.DefaultGzipLevel, "gzip level 0-9")
	cmd.Flags().BoolVar(&fl.shuffle, "shuffle", false, "shuffle bytes before compressing")
	return cmd
}

// importFiles writes the columns of every file found below dir and returns
// how many datasets were written.
func importFiles(dir string, files []string, out, group string, comp pipeio.Compression) (_ int, err error) {
	if err := pipeio.EnsureDir(filepath.Dir(out)); err != nil {
		return 0, err
	}
	f, err := pipeio.OpenContainer(out)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	g := f.Root()
	if group != "" && group != "/" {
		if g, err = pipeio.RequireGroup(f, group); err != nil {
			return 0, err
		}
	}

	written := 0
	for _, file := range files {
		cols, err := readCSV(file)
		if err != nil {
			return written, err
		}
		sub, err := g.RequireGroup(sourceGroup(dir, file))
		if err != nil {
			return written, err
		}
		for _, col := range cols {
			if _, err := pipeio.Write(sub, col.name, col.values,
				pipeio.WithCompression(comp),
				pipeio.WithAttribute("source", file),
			); err != nil {
				return written, err
			}
			written++
		}
		zap.L().Info("imported", zap.String("file", file), zap.Int("columns", len(cols)))
	}
	return written, nil
}

type column struct {
	name   string
	values any // []float64 or []string
}

// readCSV reads a CSV file with a header row into columns.
func readCSV(file string) ([]column, error) {
	fh, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	records, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: no header row", file)
	}
	header, rows := records[0], records[1:]

	cols := make([]column, len(header))
	seen := map[string]bool{}
	for i, h := range header {
		name := datasetName(h, i)
		for seen[name] {
			name += "_"
		}
		seen[name] = true

		cells := make([]string, len(rows))
		for r, row := range rows {
			cells[r] = strings.TrimSpace(row[i])
		}
		cols[i] = column{name: name, values: parseColumn(cells)}
	}
	return cols, nil
}

// parseColumn returns []float64 if every cell is a number and the cells
// otherwise.
func parseColumn(cells []string) any {
	nums := make([]float64, len(cells))
	for i, c := range cells {
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return cells
		}
		nums[i] = v
	}
	return nums
}

// sourceGroup names the group for file after its path below dir, so files
// with the same stem in different directories stay apart.
func sourceGroup(dir, file string) string {
	rel, err := filepath.Rel(dir, file)
	if err != nil {
		rel = filepath.Base(file)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i, p := range parts {
		parts[i] = datasetName(p, i)
	}
	return strings.Join(parts, "/")
}

// datasetName turns a header cell into a usable link name.
func datasetName(s string, i int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "/", "_")
	if s == "" || s == "." || s == ".." {
		return fmt.Sprintf("column_%d", i)
	}
	return s
}
