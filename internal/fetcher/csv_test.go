package fetcher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_Basic(t *testing.T) {
	input := "Farm_ID,Soil_Type\nFARM_0001,Loamy\nFARM_0002,Clay\n"
	header, rows, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Farm_ID", "Soil_Type"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"FARM_0001", "Loamy"}, rows[0])
	assert.Equal(t, []string{"FARM_0002", "Clay"}, rows[1])
}

func TestReadCSV_PipeDelimited(t *testing.T) {
	input := "a|b|c\n1|2|3\n"
	header, rows, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{Delimiter: '|'})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, header)
	assert.Equal(t, [][]string{{"1", "2", "3"}}, rows)
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	header, rows, err := ReadCSV(context.Background(), strings.NewReader("a,b\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, header)
	assert.Empty(t, rows)
}

func TestReadCSV_Empty(t *testing.T) {
	_, _, err := ReadCSV(context.Background(), strings.NewReader(""), CSVOptions{})
	assert.ErrorIs(t, err, ErrEmptyCSV)
}

func TestReadCSV_StripsBOM(t *testing.T) {
	input := "\ufeffFarm_ID,Season\nFARM_0001,Rabi\n"
	header, _, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Farm_ID", header[0])
}

func TestReadCSV_Windows1252(t *testing.T) {
	// 0xB2 is superscript two in windows-1252.
	input := "Area (m\xb2),Crop\n10,Rice\n"
	header, rows, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{Encoding: "windows-1252"})
	require.NoError(t, err)
	assert.Equal(t, "Area (m²)", header[0])
	assert.Equal(t, []string{"10", "Rice"}, rows[0])
}

func TestReadCSV_UnknownEncoding(t *testing.T) {
	_, _, err := ReadCSV(context.Background(), strings.NewReader("a\n1\n"), CSVOptions{Encoding: "klingon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown encoding")
}

func TestReadCSV_ShortRowPadded(t *testing.T) {
	input := "a,b,c\n1,2\n"
	_, rows, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2", ""}}, rows)
}

func TestReadCSV_WideRowRejected(t *testing.T) {
	input := "a,b\n1,2\n3,4,5\n"
	_, _, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	require.Error(t, err)

	var wide *RowWidthError
	require.True(t, errors.As(err, &wide))
	assert.Equal(t, 3, wide.Line)
	assert.Equal(t, 3, wide.Got)
	assert.Equal(t, 2, wide.Expect)
}

func TestReadCSV_TrimSpace(t *testing.T) {
	input := " a , b \n 1 , 2 \n"
	header, rows, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{TrimSpace: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, header)
	assert.Equal(t, []string{"1", "2"}, rows[0])
}

func TestReadCSV_BareQuoteFails(t *testing.T) {
	input := "a,b\n1,\"unterminated\n"
	_, _, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	assert.Error(t, err)
}

func TestReadCSV_LazyQuotes(t *testing.T) {
	input := "a,b\nfoo \"bar\" baz,2\n"
	_, rows, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{LazyQuotes: true})
	require.NoError(t, err)
	assert.Equal(t, `foo "bar" baz`, rows[0][0])
}

func TestReadCSV_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := ReadCSV(ctx, strings.NewReader("a\n1\n2\n"), CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}
