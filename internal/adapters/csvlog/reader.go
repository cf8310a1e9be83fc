package csvlog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/okian/kartscore/internal/domain/model"
	"github.com/okian/kartscore/pkg/logger"
	"github.com/okian/kartscore/pkg/metrics"
)

// Policy decides what happens to malformed rows.
type Policy int

const (
	// Reject aborts the read on the first malformed row.
	Reject Policy = iota
	// Skip drops malformed rows and counts them.
	Skip
)

// String returns the policy name accepted by ParsePolicy.
func (p Policy) String() string {
	if p == Skip {
		return "skip"
	}
	return "reject"
}

// ParsePolicy maps "reject" or "skip" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return Reject, nil
	case "skip":
		return Skip, nil
	default:
		return Reject, fmt.Errorf("unknown malformed policy %q", s)
	}
}

// ctxCheckEvery bounds how many rows are parsed between cancellation checks.
const ctxCheckEvery = 4096

// ReadResult holds the records of one telemetry table.
type ReadResult struct {
	// Records in original row order.
	Records []model.TelemetryRecord
	// Skipped holds the rows dropped under the Skip policy.
	Skipped []*MalformedRecordError
}

// Option applies a configuration option to the Reader.
type Option func(*Reader)

// WithPolicy sets the malformed row policy.
func WithPolicy(p Policy) Option {
	return func(r *Reader) {
		r.policy = p
	}
}

// WithLogger sets a custom logger for the reader.
func WithLogger(l logger.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// Reader parses telemetry tables into records.
type Reader struct {
	policy Policy
	logger logger.Logger
}

// NewReader creates a Reader. The default policy is Reject.
func NewReader(opts ...Option) *Reader {
	r := &Reader{policy: Reject}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Named("csvlog")
	}
	return r
}

// ReadFile opens path and reads it with Read.
func (r *Reader) ReadFile(ctx context.Context, path string) (ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReadResult{}, fmt.Errorf("open telemetry: %w", err)
	}
	defer f.Close()
	return r.Read(ctx, f)
}

// Read parses a telemetry table. The header must match TelemetryHeader. Under
// Reject the first malformed row aborts the read with a *MalformedRecordError;
// under Skip such rows are logged, counted and left out.
func (r *Reader) Read(ctx context.Context, src io.Reader) (ReadResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStageDuration("read", float64(time.Since(start).Microseconds())/1000)
	}()

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	if err := readHeader(cr); err != nil {
		metrics.RecordMalformedRecord()
		return ReadResult{}, err
	}

	var res ReadResult
	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return ReadResult{}, err
			}
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var rec model.TelemetryRecord
		var bad *MalformedRecordError
		if err != nil {
			bad = csvError(err)
			if bad == nil {
				return ReadResult{}, fmt.Errorf("read telemetry: %w", err)
			}
		} else {
			line, _ := cr.FieldPos(0)
			rec, bad = parseRow(row, line)
		}

		if bad != nil {
			metrics.RecordMalformedRecord()
			if r.policy == Reject {
				return ReadResult{}, bad
			}
			r.logger.Warn(ctx, "skipping malformed row", logger.Int("line", bad.Line), logger.Error(bad))
			res.Skipped = append(res.Skipped, bad)
			continue
		}
		res.Records = append(res.Records, rec)
	}

	metrics.RecordRecordsRead(len(res.Records))
	return res, nil
}

// readHeader consumes and validates the header row.
func readHeader(cr *csv.Reader) error {
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &MalformedRecordError{Line: 1, Err: fmt.Errorf("%w: empty input", ErrHeader)}
	}
	if err != nil {
		if bad := csvError(err); bad != nil {
			return bad
		}
		return fmt.Errorf("read telemetry header: %w", err)
	}

	got := make([]string, len(header))
	for i, h := range header {
		got[i] = strings.TrimSpace(h)
	}
	if len(got) > 0 {
		got[0] = strings.TrimPrefix(got[0], "\ufeff")
	}

	if strings.Join(got, ",") != strings.Join(TelemetryHeader, ",") {
		return &MalformedRecordError{
			Line:  1,
			Value: strings.Join(got, ","),
			Err:   fmt.Errorf("%w: want %s", ErrHeader, strings.Join(TelemetryHeader, ",")),
		}
	}
	return nil
}

// csvError converts an encoding/csv parse error into a row-level
// MalformedRecordError. Other errors (I/O) return nil.
func csvError(err error) *MalformedRecordError {
	var pe *csv.ParseError
	if !errors.As(err, &pe) {
		return nil
	}
	return &MalformedRecordError{Line: pe.StartLine, Err: fmt.Errorf("%w: %w", ErrSyntax, pe.Err)}
}

// parseRow converts one data row. row is reused by the csv reader, so every
// string kept in the record is copied out by strings.Clone.
func parseRow(row []string, line int) (model.TelemetryRecord, *MalformedRecordError) {
	if len(row) != telemetryColumns {
		return model.TelemetryRecord{}, &MalformedRecordError{
			Line: line,
			Err:  fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(row), telemetryColumns),
		}
	}

	p := rowParser{row: row, line: line}
	rec := model.TelemetryRecord{
		SessionID:   p.integer(colGameID),
		TimestampMS: p.timestamp(colTime),
		Track:       strings.Clone(strings.TrimSpace(row[colTrack])),
		Difficulty:  p.difficulty(colDifficulty),
		KartType:    strings.Clone(strings.TrimSpace(row[colKartType])),
		Steer:       p.float(colSteer),
		Accel:       p.float(colAccel),
		Speed:       p.float(colSpeed),
		Brake:       p.boolean(colBrake),
		OnGround:    p.boolean(colOnGround),
		Position:    [3]float64{p.float(colX), p.float(colY), p.float(colZ)},
		Energy:      p.float(colEnergy),
		Line:        line,
	}
	if p.err == nil && rec.Speed < 0 {
		p.fail(colSpeed, ErrNegativeSpeed)
	}
	if p.err != nil {
		return model.TelemetryRecord{}, p.err
	}
	return rec, nil
}

// rowParser keeps the first conversion error of a row.
type rowParser struct {
	row  []string
	line int
	err  *MalformedRecordError
}

func (p *rowParser) fail(col int, err error) {
	if p.err != nil {
		return
	}
	p.err = &MalformedRecordError{
		Line:   p.line,
		Column: TelemetryHeader[col],
		Value:  strings.Clone(p.row[col]),
		Err:    err,
	}
}

func (p *rowParser) cell(col int) string {
	return strings.TrimSpace(p.row[col])
}

func (p *rowParser) integer(col int) int64 {
	v, err := strconv.ParseInt(p.cell(col), 10, 64)
	if err != nil {
		p.fail(col, fmt.Errorf("%w: %w", ErrNumber, err))
	}
	return v
}

// timestamp accepts an integer, or a float spelling of an integer that fits
// in int64. float64(math.MaxInt64) rounds up to 2^63, so the bounds are
// spelled as powers of two.
func (p *rowParser) timestamp(col int) int64 {
	s := p.cell(col)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f >= 0x1p63 || f < -0x1p63 {
		p.fail(col, fmt.Errorf("%w: not an integer millisecond value", ErrNumber))
		return 0
	}
	return int64(f)
}

func (p *rowParser) float(col int) float64 {
	v, err := strconv.ParseFloat(p.cell(col), 64)
	if err != nil {
		p.fail(col, fmt.Errorf("%w: %w", ErrNumber, err))
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		p.fail(col, fmt.Errorf("%w: not finite", ErrNumber))
		return 0
	}
	return v
}

func (p *rowParser) boolean(col int) bool {
	v, err := strconv.ParseBool(p.cell(col))
	if err != nil {
		p.fail(col, ErrBool)
	}
	return v
}

func (p *rowParser) difficulty(col int) model.Difficulty {
	d, err := model.ParseDifficulty(p.cell(col))
	if err != nil {
		p.fail(col, fmt.Errorf("%w: %w", ErrDifficulty, err))
	}
	return d
}
