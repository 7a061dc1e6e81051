package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const variablesCSV = `Variable accession,Variable name,Variable description,Type,Dataset name,Dataset accession,Study,Database
phv001,HGB,Hemoglobin concentration,decimal,Blood Draw,pht001,WHI,dbGaP
phv002,SYSBP,Systolic blood pressure,integer,Form 80,pht002,WHI,dbGaP
`

const datasetsCSV = `Dataset accession,Dataset name,Dataset description,Study,Database,URL
pht001,Blood Draw,Baseline blood measurements,WHI,dbGaP,https://example.org/pht001
pht002,Form 80,Physical measurements,WHI,dbGaP,
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDocuments(t *testing.T) {
	docs, err := LoadDocuments(
		writeFile(t, "variables.csv", variablesCSV),
		writeFile(t, "datasets.csv", datasetsCSV),
	)
	require.NoError(t, err)
	require.Len(t, docs, 4)

	// 变量文档在前，数据集文档在后
	hgb := docs[0]
	assert.Contains(t, hgb.Content, "Variable Name: HGB")
	assert.Contains(t, hgb.Content, "Variable Description: Hemoglobin concentration")
	assert.Contains(t, hgb.Content, "Variable Type: decimal")
	assert.Contains(t, hgb.Content, "Dataset: Blood Draw")
	assert.Contains(t, hgb.Content, "Study: WHI")
	assert.Contains(t, hgb.Content, "Database: dbGaP")
	assert.Equal(t, "variable", hgb.Metadata["type"])
	assert.Equal(t, "phv001", hgb.Metadata["variable_accession"])
	assert.Equal(t, "Blood Draw", hgb.Metadata["dataset_name"])

	blood := docs[2]
	assert.Contains(t, blood.Content, "Dataset Name: Blood Draw")
	assert.Contains(t, blood.Content, "URL: https://example.org/pht001")
	assert.Equal(t, "dataset", blood.Metadata["type"])
	assert.Equal(t, "pht001", blood.Metadata["dataset_accession"])

	// URL 缺失时补 N/A
	form80 := docs[3]
	assert.Contains(t, form80.Content, "URL: N/A")
}

func TestLoadDocumentsMissingColumn(t *testing.T) {
	broken := `Variable accession,Variable name
phv001,HGB
`
	_, err := LoadDocuments(
		writeFile(t, "variables.csv", broken),
		writeFile(t, "datasets.csv", datasetsCSV),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
}

func TestLoadDocumentsMissingFile(t *testing.T) {
	_, err := LoadDocuments(
		filepath.Join(t.TempDir(), "nope.csv"),
		writeFile(t, "datasets.csv", datasetsCSV),
	)
	require.Error(t, err)
}

func TestLoadDocumentsEmptyFile(t *testing.T) {
	_, err := LoadDocuments(
		writeFile(t, "variables.csv", ""),
		writeFile(t, "datasets.csv", datasetsCSV),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty csv")
}

func TestLoadDocumentsTrimsWhitespace(t *testing.T) {
	padded := `Variable accession,Variable name ,Variable description,Type,Dataset name,Dataset accession,Study,Database
phv001,  HGB  ,Hemoglobin concentration,decimal,Blood Draw,pht001,WHI,dbGaP
`
	docs, err := LoadDocuments(
		writeFile(t, "variables.csv", padded),
		writeFile(t, "datasets.csv", datasetsCSV),
	)
	require.NoError(t, err)
	assert.Equal(t, "HGB", docs[0].Metadata["variable_name"])
}
