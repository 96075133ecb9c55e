package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/ramanspec/pkg/models"
)

// freqBlock renders one Gaussian frequency block. activities maps the
// incident light index to its RamAct tokens; absent keys omit the row.
func freqBlock(positions []string, activities map[int][]string) string {
	var b strings.Builder
	b.WriteString("                      1                      2                      3\n")
	b.WriteString("                      A                      A                      A\n")
	fmt.Fprintf(&b, " Frequencies --  %s\n", strings.Join(positions, "   "))
	b.WriteString(" Red. masses --      1.0079                 1.0079                 1.0079\n")
	for fr := 1; fr <= 4; fr++ {
		tokens, ok := activities[fr]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, " RamAct Fr= %d--  %s\n", fr, strings.Join(tokens, "   "))
		fmt.Fprintf(&b, " Dep-P  Fr= %d--      0.7500                 0.7500                 0.7500\n", fr)
	}
	b.WriteString("  Atom  AN      X      Y      Z        X      Y      Z        X      Y      Z\n")
	return b.String()
}

func resonanceLog(blocks ...string) string {
	return " Incident light (cm**-1):      0.00   20000.00\n" +
		" Harmonic frequencies (cm**-1), IR intensities (KM/Mole), Raman scattering\n" +
		strings.Join(blocks, "")
}

func fullBlocks() []string {
	return []string{
		freqBlock([]string{"100.0000", "200.0000", "300.0000"}, map[int][]string{
			1: {"1.1000", "1.2000", "1.3000"},
			2: {"2.1000", "2.2000", "2.3000"},
		}),
		freqBlock([]string{"400.0000", "500.0000", "600.0000"}, map[int][]string{
			1: {"1.4000", "1.5000", "1.6000"},
			2: {"2.4000", "2.5000", "2.6000"},
		}),
		freqBlock([]string{"700.0000", "800.0000", "900.0000"}, map[int][]string{
			1: {"1.7000", "1.8000", "1.9000"},
			2: {"2.7000", "2.8000", "2.9000"},
		}),
	}
}

func TestResonance_FullTable(t *testing.T) {
	res, err := Resonance(resonanceLog(fullBlocks()...), Options{})
	require.NoError(t, err)

	table := res.Table
	assert.Equal(t, []float64{0, 20000}, table.IncidentLight)
	require.Equal(t, 9, table.Len())
	for _, row := range table.Rows {
		assert.Len(t, row.Intensities, 2)
	}
	assert.Equal(t, []float64{100, 200, 300, 400, 500, 600, 700, 800, 900}, table.Positions())
	assert.Equal(t, []float64{1.1, 1.2, 1.3, 1.4, 1.5, 1.6, 1.7, 1.8, 1.9}, table.Column(0))
	assert.Equal(t, []float64{2.1, 2.2, 2.3, 2.4, 2.5, 2.6, 2.7, 2.8, 2.9}, table.Column(1))
	assert.Empty(t, res.Warnings)
}

func TestResonance_MissingBlockZeroFilled(t *testing.T) {
	blocks := fullBlocks()
	blocks[1] = freqBlock([]string{"400.0000", "500.0000", "600.0000"}, map[int][]string{
		1: {"1.4000", "1.5000", "1.6000"},
	})

	res, err := Resonance(resonanceLog(blocks...), Options{Policy: ZeroFill})
	require.NoError(t, err)

	require.Equal(t, 9, res.Table.Len())
	assert.Equal(t, []float64{2.1, 2.2, 2.3, 0, 0, 0, 2.7, 2.8, 2.9}, res.Table.Column(1))
	assert.Equal(t, []float64{1.1, 1.2, 1.3, 1.4, 1.5, 1.6, 1.7, 1.8, 1.9}, res.Table.Column(0))

	got := codes(res.Warnings)
	assert.Contains(t, got, models.WarnBlockCountMismatch)
	assert.Contains(t, got, models.WarnMissingActivity)
	assert.NotContains(t, got, models.WarnLengthMismatch)
}

func TestResonance_MissingBlockFailFast(t *testing.T) {
	blocks := fullBlocks()
	blocks[2] = freqBlock([]string{"700.0000", "800.0000", "900.0000"}, map[int][]string{
		1: {"1.7000", "1.8000", "1.9000"},
	})

	res, err := Resonance(resonanceLog(blocks...), Options{Policy: FailFast})
	assert.ErrorIs(t, err, ErrMissingActivity)
	assert.Nil(t, res)
}

func TestResonance_MissingBlockInterpolated(t *testing.T) {
	blocks := fullBlocks()
	blocks[1] = freqBlock([]string{"400.0000", "500.0000", "600.0000"}, map[int][]string{
		1: {"1.4000", "1.5000", "1.6000"},
	})

	res, err := Resonance(resonanceLog(blocks...), Options{Policy: Interpolate})
	require.NoError(t, err)

	col := res.Table.Column(1)
	require.Len(t, col, 9)
	assert.InDelta(t, 2.4, col[3], 1e-12)
	assert.InDelta(t, 2.5, col[4], 1e-12)
	assert.InDelta(t, 2.6, col[5], 1e-12)
	assert.Equal(t, 2.3, col[2])
}

func TestInterpolate_Edges(t *testing.T) {
	positions := []float64{10, 20, 30, 40}

	col := []float64{0, 5, 0, 0}
	interpolate(positions, col, []bool{true, false, true, true})
	assert.Equal(t, []float64{5, 5, 5, 5}, col)

	empty := []float64{0, 0}
	interpolate(positions[:2], empty, []bool{true, true})
	assert.Equal(t, []float64{0, 0}, empty)
}

func TestResonance_PartialLastBlock(t *testing.T) {
	blocks := fullBlocks()[:2]
	blocks = append(blocks, freqBlock([]string{"700.0000", "800.0000"}, map[int][]string{
		1: {"1.7000", "1.8000"},
		2: {"2.7000"},
	}))

	res, err := Resonance(resonanceLog(blocks...), Options{})
	require.NoError(t, err)

	require.Equal(t, 8, res.Table.Len())
	assert.Equal(t, []float64{1.7, 1.8}, res.Table.Column(0)[6:])
	assert.Equal(t, []float64{2.7, 0}, res.Table.Column(1)[6:])
	assert.Equal(t, []string{models.WarnMissingActivity}, codes(res.Warnings))
}

func TestResonance_UnreadableTokens(t *testing.T) {
	block := freqBlock([]string{"100.0000", "1.2.3", "300.0000"}, map[int][]string{
		1: {"1.1000", "1.2000", "**********"},
		2: {"2.1000", "2.2000", "2.3000"},
	})

	res, err := Resonance(resonanceLog(block), Options{})
	require.NoError(t, err)

	assert.Equal(t, []float64{100, 300}, res.Table.Positions())
	assert.Equal(t, []float64{1.1, 0}, res.Table.Column(0))
	assert.Equal(t, []float64{2.1, 2.3}, res.Table.Column(1))
	assert.Equal(t, []string{models.WarnParseMiss, models.WarnMissingActivity}, codes(res.Warnings))

	_, err = Resonance(resonanceLog(block), Options{Policy: FailFast})
	assert.ErrorIs(t, err, ErrUnparseablePosition)
}

func TestResonance_NonFiniteActivityIsMissing(t *testing.T) {
	block := freqBlock([]string{"100.0000", "200.0000", "300.0000"}, map[int][]string{
		1: {"NaN", "1.2000", "Inf"},
		2: {"2.1000", "-infinity", "2.3000"},
	})

	res, err := Resonance(resonanceLog(block), Options{Policy: ZeroFill})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1.2, 0}, res.Table.Column(0))
	assert.Equal(t, []float64{2.1, 0, 2.3}, res.Table.Column(1))
	assert.Equal(t, []string{models.WarnMissingActivity, models.WarnMissingActivity, models.WarnMissingActivity}, codes(res.Warnings))

	res, err = Resonance(resonanceLog(block), Options{Policy: Interpolate})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.2, 1.2, 1.2}, res.Table.Column(0))
	assert.InDelta(t, 2.2, res.Table.Column(1)[1], 1e-12)

	_, err = Resonance(resonanceLog(block), Options{Policy: FailFast})
	assert.ErrorIs(t, err, ErrMissingActivity)
}

func TestResonance_NoIncidentLight(t *testing.T) {
	text := strings.Join(fullBlocks(), "")

	res, err := Resonance(text, Options{})
	require.NoError(t, err)

	assert.Empty(t, res.Table.IncidentLight)
	assert.Equal(t, 0, res.Table.Len())
	assert.Equal(t, []string{models.WarnNoIncidentLight}, codes(res.Warnings))
}

func TestResonance_ExtraIncidentLightIndexIgnored(t *testing.T) {
	blocks := fullBlocks()
	blocks[0] = freqBlock([]string{"100.0000", "200.0000", "300.0000"}, map[int][]string{
		1: {"1.1000", "1.2000", "1.3000"},
		2: {"2.1000", "2.2000", "2.3000"},
		3: {"9.9000", "9.9000", "9.9000"},
	})

	res, err := Resonance(resonanceLog(blocks...), Options{})
	require.NoError(t, err)
	assert.Len(t, res.Table.Rows[0].Intensities, 2)
	assert.Empty(t, res.Warnings)
}

func TestResonance_ThreeIncidentFrequencies(t *testing.T) {
	text := " Incident light (cm**-1):   18000.00   20000.00   22000.00\n" +
		freqBlock([]string{"150.0000"}, map[int][]string{1: {"1.0"}, 2: {"2.0"}, 3: {"3.0E+00"}})

	res, err := Resonance(text, Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{18000, 20000, 22000}, res.Table.IncidentLight)
	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, []float64{1, 2, 3}, res.Table.Rows[0].Intensities)
}

func TestAssemble_TruncatesToShortestColumn(t *testing.T) {
	positions := []float64{100, 200, 300}
	columns := [][]float64{{1, 2, 3}, {4, 5}}

	rows, warnings, err := assemble(positions, columns, ZeroFill)
	require.NoError(t, err)
	assert.Equal(t, []models.ResonanceLine{
		{Position: 100, Intensities: []float64{1, 4}},
		{Position: 200, Intensities: []float64{2, 5}},
	}, rows)
	assert.Equal(t, []string{models.WarnLengthMismatch}, codes(warnings))

	_, _, err = assemble(positions, columns, FailFast)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}
