package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `id,programa,fecha_instalacion,latitud,longitud,colonia,alcaldia
MEX-001,Escuelas,2019-08-12,19.4326,-99.1332,Centro,Cuauhtémoc
MEX-002,Parques,,19.4200,-99.1600,,
"MEX-003","Mercados, zona centro",2020-01-05,19.4300,-99.1400,"Roma Norte",Cuauhtémoc
`

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, SourceRow{
		Line:             2,
		ID:               "MEX-001",
		Program:          "Escuelas",
		InstallationDate: "2019-08-12",
		Latitude:         "19.4326",
		Longitude:        "-99.1332",
		Neighborhood:     "Centro",
		District:         "Cuauhtémoc",
	}, rows[0])
	assert.Equal(t, "", rows[1].Neighborhood)
	assert.Equal(t, "Mercados, zona centro", rows[2].Program)
	assert.Equal(t, 4, rows[2].Line)
}

func TestReadCSV_BOMAndColumnOrder(t *testing.T) {
	src := "\ufeff\"longitud\",\"latitud\",\"ID\",\"programa\"\n-99.1,19.4,A-1,Escuelas\n"

	rows, err := ReadCSV(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A-1", rows[0].ID)
	assert.Equal(t, "19.4", rows[0].Latitude)
	assert.Equal(t, "-99.1", rows[0].Longitude)
	assert.Equal(t, "", rows[0].District, "missing optional column reads as empty")
}

func TestReadCSV_Errors(t *testing.T) {
	tests := map[string]string{
		"empty file":       "",
		"header only":      "id,programa,latitud,longitud\n",
		"missing column":   "id,programa,latitud\nA,B,1\n",
		"unbalanced quote": "id,programa,latitud,longitud\n\"A,B,1,2\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(src))
			assert.ErrorIs(t, err, ErrSourceRead)
		})
	}
}

func TestReadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	rows, err := ReadCSVFile(path)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, ErrSourceRead)
}
