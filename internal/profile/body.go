package profile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"

	"github.com/KaramelBytes/insitu-cli/internal/utils"
	"github.com/KaramelBytes/insitu-cli/internal/variables"
)

const (
	forceColumn       = "force"
	depthColumn       = "depth"
	bottomDepthColumn = "bottom_depth"
	flagsColumn       = "flags"
)

// Body is the tabular part of a file below its column line.
type Body struct {
	Frame dataframe.DataFrame
	// IsSMP is set for snow micro penetrometer data, recognized by a force
	// column.
	IsSMP bool
	// Comments records provenance of SMP files.
	Comments string
}

// ReadBody loads the data rows of a file into a typed frame. Columns are
// positional; short rows are padded with missing values and extra fields
// are dropped. A column is numeric when its description asks for float or
// int, or when it has no hint and every present value parses as a number.
//
// Depths are standardized: SMP depths (mm below the surface) become
// surface_datum centimeters, everything else snow_height. A bottom_depth
// column is shifted by the same amount as depth.
func ReadBody(source string, lines, columns []string, mapping map[string]*variables.MeasurementDescription, log *zap.Logger) (*Body, error) {
	if log == nil {
		log = zap.NewNop()
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c)
		}
		seen[c] = true
	}

	records, err := readRecords(lines, len(columns))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Body{}, nil
	}

	cols := make([]series.Series, len(columns))
	for i, name := range columns {
		raw := make([]string, len(records))
		for r, rec := range records {
			raw[r] = strings.TrimSpace(rec[i])
		}
		if name == flagsColumn {
			for r := range raw {
				raw[r] = strings.ReplaceAll(raw[r], " ", "")
			}
		}
		cols[i] = buildSeries(name, raw, mapping[name])
	}
	body := &Body{Frame: dataframe.New(cols...)}
	if body.Frame.Err != nil {
		return nil, fmt.Errorf("build frame: %w", body.Frame.Err)
	}

	format := SnowHeight
	if seen[forceColumn] {
		body.IsSMP = true
		format = SurfaceDatum
		name := filepath.Base(source)
		serial := smpSerial(name)
		body.Comments = fmt.Sprintf("fname = %s, serial no. = %s", name, serial)
		if seen[depthColumn] {
			mm := body.Frame.Col(depthColumn).Float()
			for i := range mm {
				mm[i] /= 10
			}
			body.Frame = body.Frame.Mutate(series.New(mm, series.Float, depthColumn))
		}
	}
	if !seen[depthColumn] {
		return body, nil
	}

	depth := body.Frame.Col(depthColumn).Float()
	standardized, err := StandardizeDepth(depth, format, body.IsSMP)
	if err != nil {
		return nil, err
	}
	if seen[bottomDepthColumn] {
		bottom := body.Frame.Col(bottomDepthColumn).Float()
		for i := range bottom {
			bottom[i] -= depth[i] - standardized[i]
		}
		body.Frame = body.Frame.Mutate(series.New(bottom, series.Float, bottomDepthColumn))
	}
	body.Frame = body.Frame.Mutate(series.New(standardized, series.Float, depthColumn))
	if body.Frame.Err != nil {
		return nil, fmt.Errorf("standardize depth: %w", body.Frame.Err)
	}
	log.Debug("loaded profile body",
		zap.Int("rows", body.Frame.Nrow()),
		zap.Float64("span_cm", nanMax(standardized)-nanMin(standardized)),
		zap.String("depth_format", format),
	)
	return body, nil
}

// smpSerial reads the instrument serial from an SMP file name such as
// SNEX20_SMP_S19M1174_2N13_20200206.CSV, where it is "19".
func smpSerial(name string) string {
	parts := strings.Split(name, "SMP_")
	tail := parts[len(parts)-1]
	if len(tail) < 3 {
		return ""
	}
	return tail[1:3]
}

func readRecords(lines []string, ncol int) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	var out [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(out)+1, err)
		}
		row := make([]string, ncol)
		copy(row, rec)
		out = append(out, row)
	}
	return out, nil
}

func buildSeries(name string, raw []string, md *variables.MeasurementDescription) series.Series {
	numeric := isNumericColumn(raw)
	if md != nil {
		switch md.CastType {
		case "float", "int":
			numeric = true
		case "str":
			numeric = false
		}
	}
	if !numeric {
		return series.New(raw, series.String, name)
	}
	vals := make([]float64, len(raw))
	for i, s := range raw {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || utils.IsNone(s) {
			f = math.NaN()
		}
		vals[i] = f
	}
	return series.New(vals, series.Float, name)
}

// isNumericColumn reports whether a column has at least one value and every
// present value is a number.
func isNumericColumn(raw []string) bool {
	var n int
	for _, s := range raw {
		if utils.IsNone(s) {
			continue
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return false
		}
		n++
	}
	return n > 0
}
