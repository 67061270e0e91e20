package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadASCII imports an ESRI ASCII grid (.asc). A sidecar .prj, when present,
// is kept as the grid CRS.
func ReadASCII(fp string) (*Grid, error) {
	f, err := os.Open(fp)
	if err != nil {
		return nil, fmt.Errorf("failed to open grid: %w", err)
	}
	defer f.Close()

	g, err := DecodeASCII(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fp, err)
	}

	prj := strings.TrimSuffix(fp, filepath.Ext(fp)) + ".prj"
	if b, err := os.ReadFile(prj); err == nil {
		if wkt := strings.TrimSpace(string(b)); wkt != "" {
			g.CRS = wkt
		}
	}
	return g, nil
}

// DecodeASCII parses the ESRI ASCII grid format
func DecodeASCII(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	sc.Split(bufio.ScanWords)

	hdr := make(map[string]float64)
	var first string
	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			first = key // header is over
			break
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("missing value for header %q", key)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("failed to read header %q: %w", key, err)
		}
		hdr[key] = v
	}

	var stErr []string
	need := func(keys ...string) float64 {
		for _, k := range keys {
			if v, ok := hdr[k]; ok {
				return v
			}
		}
		stErr = append(stErr, keys[0])
		return 0
	}
	nc, nr, cs := int(need("ncols")), int(need("nrows")), need("cellsize")
	if len(stErr) > 0 {
		return nil, fmt.Errorf("missing header(s): %s", strings.Join(stErr, ", "))
	}

	var xll, yll float64
	if v, ok := hdr["xllcenter"]; ok {
		xll = v - cs/2
	} else {
		xll = need("xllcorner")
	}
	if v, ok := hdr["yllcenter"]; ok {
		yll = v - cs/2
	} else {
		yll = need("yllcorner")
	}
	if len(stErr) > 0 {
		return nil, fmt.Errorf("missing header(s): %s", strings.Join(stErr, ", "))
	}

	g := NewGrid(nr, nc, Transform{X0: xll, DX: cs, Y0: yll + float64(nr)*cs, DY: -cs})
	if v, ok := hdr["nodata_value"]; ok {
		g.NoData, g.HasNoData = v, true
	}

	n := 0
	parse := func(s string) error {
		if n >= len(g.Data) {
			return fmt.Errorf("more than %d values", len(g.Data))
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("value %d: %w", n, err)
		}
		g.Data[n] = v
		n++
		return nil
	}
	if first != "" {
		if err := parse(first); err != nil {
			return nil, err
		}
	}
	for sc.Scan() {
		if err := parse(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if n != len(g.Data) {
		return nil, fmt.Errorf("expected %d values, read %d", len(g.Data), n)
	}
	return g, nil
}

// WriteASCII exports a north-up grid as an ESRI ASCII grid
func WriteASCII(fp string, g *Grid) error {
	t := g.Transform
	if t.RX != 0 || t.RY != 0 || t.DX != -t.DY {
		return fmt.Errorf("raster: %s: only north-up square cells can be written as ASCII", fp)
	}
	f, err := os.Create(fp)
	if err != nil {
		return fmt.Errorf("failed to create grid: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "ncols %d\nnrows %d\n", g.Cols, g.Rows)
	fmt.Fprintf(w, "xllcorner %s\nyllcorner %s\n", ftoa(t.X0), ftoa(t.Y0+float64(g.Rows)*t.DY))
	fmt.Fprintf(w, "cellsize %s\n", ftoa(t.DX))
	if g.HasNoData {
		fmt.Fprintf(w, "NODATA_value %s\n", ftoa(g.NoData))
	}
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if c > 0 {
				w.WriteByte(' ')
			}
			w.WriteString(ftoa(g.At(r, c)))
		}
		w.WriteByte('\n')
	}
	return w.Flush()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
