package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// PSCType is the format of a psc file body.
type PSCType int

const (
	// PSCAscii ascii format for psc.
	PSCAscii PSCType = 0
	// PSCBinary binary format for psc.
	PSCBinary PSCType = 1
)

// NewFromFile returns a projected point cloud read in from the given file.
func NewFromFile(fn string, logger golog.Logger) (*ProjectedCloud, error) {
	switch filepath.Ext(fn) {
	case ".psc":
		//nolint:gosec
		f, err := os.Open(fn)
		if err != nil {
			return nil, errors.Wrapf(err, "error opening scan file %q", fn)
		}
		defer utils.UncheckedErrorFunc(f.Close)
		cloud, err := ReadPSC(f)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading scan file %q", fn)
		}
		if cloud.Size() == 0 {
			logger.Warnf("scan file %q contains no points", fn)
		}
		return cloud, nil
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}

const pscFieldCount = 6 // x y z reflectance row col

type pscHeader struct {
	size   []uint64
	type_  []string
	count  []uint64
	width  uint64
	height uint64
	points uint64
	data   PSCType
}

const pscCommentChar = "#"

var pscHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "POINTS", "DATA"}

func parsePSCHeaderLine(line string, index int, header *pscHeader) error {
	var err error
	name := pscHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	tokens := strings.Split(value, " ")
	if field != name {
		return fmt.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" {
			return fmt.Errorf("unsupported psc version %s", value)
		}
	case "FIELDS":
		if value != "x y z reflectance row col" {
			return fmt.Errorf("unsupported psc fields %s", value)
		}
	case "SIZE":
		if len(tokens) != pscFieldCount {
			return fmt.Errorf("unexpected number of fields in SIZE line")
		}
		header.size = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.size[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid SIZE field %s", token)
			}
			if header.size[i] != 4 && header.size[i] != 8 {
				return fmt.Errorf("unsupported SIZE field %s", token)
			}
		}
	case "TYPE":
		if len(tokens) != pscFieldCount {
			return fmt.Errorf("unexpected number of fields in TYPE line")
		}
		header.type_ = make([]string, len(tokens))
		for i, token := range tokens {
			if token != "F" {
				return fmt.Errorf("unsupported TYPE field %s", token)
			}
			header.type_[i] = token
		}
	case "COUNT":
		if len(tokens) != pscFieldCount {
			return fmt.Errorf("unexpected number of fields in COUNT line")
		}
		header.count = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.count[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid COUNT field %s: %s", token, err)
			}
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid WIDTH field %s: %s", value, err)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid HEIGHT field %s: %s", value, err)
		}
	case "POINTS":
		var points uint64
		points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid POINTS field %s: %s", value, err)
		}
		if points != header.width*header.height {
			return fmt.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", points, header.width*header.height)
		}
		header.points = points
	case "DATA":
		switch value {
		case "ascii":
			header.data = PSCAscii
		case "binary":
			header.data = PSCBinary
		default:
			return fmt.Errorf("unsupported psc data type %s", value)
		}
	}

	return nil
}

// ReadPSC reads a projected point cloud in the psc format: a PCD-style
// header over the fields "x y z reflectance row col" followed by an ascii
// or binary (little-endian) body.
func ReadPSC(inRaw io.Reader) (*ProjectedCloud, error) {
	header := pscHeader{}
	in := bufio.NewReader(inRaw)
	var line string
	var err error
	headerLineCount := 0
	for headerLineCount < len(pscHeaderFields) {
		line, err = in.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("error reading header line %d: %s", headerLineCount, err)
		}
		line, _, _ = strings.Cut(line, pscCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePSCHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, err
		}
		headerLineCount++
	}
	switch header.data {
	case PSCAscii:
		return readPSCAscii(in, header)
	case PSCBinary:
		return readPSCBinary(in, header)
	default:
		return nil, fmt.Errorf("unsupported psc data type %v", header.data)
	}
}

func sliceToPoint(fields []float64) (Point, Projection) {
	return Point{Pos: NewVector(fields[0], fields[1], fields[2]), Reflectance: fields[3]},
		Projection{Row: fields[4], Col: fields[5]}
}

func readPSCAscii(in *bufio.Reader, header pscHeader) (*ProjectedCloud, error) {
	points := make([]Point, 0, header.points)
	projections := make([]Projection, 0, header.points)
	for i := 0; i < int(header.points); i++ {
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		line = strings.TrimSpace(line)
		tokens := strings.Split(line, " ")
		if len(tokens) != pscFieldCount {
			return nil, fmt.Errorf("unexpected number of fields in point %d", i)
		}
		fields := make([]float64, len(tokens))
		for j, token := range tokens {
			fields[j], err = strconv.ParseFloat(token, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid point %d field %s: %s", i, token, err)
			}
		}
		p, proj := sliceToPoint(fields)
		points = append(points, p)
		projections = append(projections, proj)
	}
	return NewProjectedCloud(points, projections)
}

func readPSCBinary(in *bufio.Reader, header pscHeader) (*ProjectedCloud, error) {
	points := make([]Point, 0, header.points)
	projections := make([]Projection, 0, header.points)
	for i := 0; i < int(header.points); i++ {
		fields := make([]float64, pscFieldCount)
		for j := 0; j < pscFieldCount; j++ {
			buf := make([]byte, header.size[j])
			if _, err := io.ReadFull(in, buf); err != nil {
				return nil, fmt.Errorf("error reading point %d field %d: %s", i, j, err)
			}
			switch header.size[j] {
			case 4:
				fields[j] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
			case 8:
				fields[j] = math.Float64frombits(binary.LittleEndian.Uint64(buf))
			}
		}
		p, proj := sliceToPoint(fields)
		points = append(points, p)
		projections = append(projections, proj)
	}
	return NewProjectedCloud(points, projections)
}

// ToPSC writes the cloud to the given writer in the psc format.
func ToPSC(cloud *ProjectedCloud, out io.Writer, outputType PSCType) error {
	var err error
	_, err = fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z reflectance row col\n"+
		"SIZE 4 4 4 4 4 4\n"+
		"TYPE F F F F F F\n"+
		"COUNT 1 1 1 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT %d\n"+
		"POINTS %d\n", cloud.Size(), 1, cloud.Size())
	if err != nil {
		return err
	}
	switch outputType {
	case PSCAscii:
		_, err = fmt.Fprintf(out, "DATA ascii\n")
	case PSCBinary:
		_, err = fmt.Fprintf(out, "DATA binary\n")
	default:
		return fmt.Errorf("unsupported psc data type %v", outputType)
	}
	if err != nil {
		return err
	}
	return writePSCData(cloud, out, outputType)
}

func writePSCData(cloud *ProjectedCloud, out io.Writer, outputType PSCType) error {
	var err error
	cloud.Iterate(func(_ int, p Point, proj Projection) bool {
		fields := []float64{p.Pos.X, p.Pos.Y, p.Pos.Z, p.Reflectance, proj.Row, proj.Col}
		switch outputType {
		case PSCAscii:
			for j, f := range fields {
				sep := " "
				if j == len(fields)-1 {
					sep = "\n"
				}
				if _, err = fmt.Fprintf(out, "%f%s", f, sep); err != nil {
					return false
				}
			}
		case PSCBinary:
			buf := make([]byte, 4)
			for _, f := range fields {
				binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(f)))
				if _, err = out.Write(buf); err != nil {
					return false
				}
			}
		}
		return true
	})
	return err
}
