package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"txmatching/pkg/domain"
)

// Matrix is a dense donor x recipient score grid. It is read-only once built.
type Matrix struct {
	rows, cols int
	data       []float64
}

// NewMatrix allocates a rows x cols matrix filled with InfeasibleScore.
func NewMatrix(rows, cols int) *Matrix {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = domain.InfeasibleScore
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

// MatrixFromRows builds a matrix from nested slices; all rows must have equal length.
func MatrixFromRows(rows [][]float64) (*Matrix, error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	m := NewMatrix(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
		}
		copy(m.data[i*cols:], row)
	}
	return m, nil
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

// At returns the score of donor i for recipient j.
func (m *Matrix) At(i, j int) float64 {
	return m.data[i*m.cols+j]
}

func (m *Matrix) set(i, j int, v float64) {
	m.data[i*m.cols+j] = v
}

// Feasible reports whether donor i can donate to recipient j.
func (m *Matrix) Feasible(i, j int) bool {
	return domain.IsFeasibleScore(m.At(i, j))
}

// OriginalRecipient returns the recipient column marked as the donor's original
// pair, or -1 when the donor has no recipient in the pool.
func (m *Matrix) OriginalRecipient(i int) int {
	for j := 0; j < m.cols; j++ {
		if m.At(i, j) == domain.OriginalPairScore {
			return j
		}
	}
	return -1
}

// ToRows copies the matrix into nested slices.
func (m *Matrix) ToRows() [][]float64 {
	out := make([][]float64, m.rows)
	for i := range out {
		out[i] = append([]float64(nil), m.data[i*m.cols:(i+1)*m.cols]...)
	}
	return out
}

// MarshalJSON encodes the matrix as nested arrays. JSON has no infinity,
// so non-finite cells (binary scoring) are written as null.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < m.rows; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('[')
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				buf.WriteByte(',')
			}
			v := m.At(i, j)
			if math.IsInf(v, 0) || math.IsNaN(v) {
				buf.WriteString("null")
				continue
			}
			buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		buf.WriteByte(']')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes nested arrays; null cells become negative infinity.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var rows [][]*float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	plain := make([][]float64, len(rows))
	for i, row := range rows {
		plain[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				plain[i][j] = math.Inf(-1)
			} else {
				plain[i][j] = *v
			}
		}
	}
	built, err := MatrixFromRows(plain)
	if err != nil {
		return err
	}
	*m = *built
	return nil
}

// BuildMatrix scores every donor against every recipient of the pool.
// Row order follows pool.Donors, column order follows pool.Recipients.
func BuildMatrix(pool *domain.Pool, scorer *Scorer) *Matrix {
	m := NewMatrix(len(pool.Donors), len(pool.Recipients))
	donorIndex := pool.DonorIndex()

	originals := make([][]*domain.Donor, len(pool.Recipients))
	for j := range pool.Recipients {
		originals[j] = pool.OriginalDonors(&pool.Recipients[j], donorIndex)
	}

	for i := range pool.Donors {
		for j := range pool.Recipients {
			m.set(i, j, scorer.Score(&pool.Donors[i], &pool.Recipients[j], originals[j]))
		}
	}
	return m
}
