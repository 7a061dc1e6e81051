// Package dataset 把 WHI/MESA 的两张元数据表转换成可索引的文档。
// 纯转换，不访问网络；表头缺列视为致命错误，不做部分加载。
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/liao/whi-assistant/internal/rag"
)

var variableColumns = []string{
	"Variable accession", "Variable name", "Variable description",
	"Type", "Dataset name", "Dataset accession", "Study", "Database",
}

var datasetColumns = []string{
	"Dataset accession", "Dataset name", "Dataset description",
	"Study", "Database",
}

// LoadDocuments 读取变量表和数据集表，每行产出一篇文档
func LoadDocuments(variablesPath, datasetsPath string) ([]rag.Document, error) {
	variables, err := loadTable(variablesPath, variableColumns)
	if err != nil {
		return nil, fmt.Errorf("load variables table: %w", err)
	}
	datasets, err := loadTable(datasetsPath, datasetColumns)
	if err != nil {
		return nil, fmt.Errorf("load datasets table: %w", err)
	}

	docs := make([]rag.Document, 0, len(variables)+len(datasets))
	for _, row := range variables {
		docs = append(docs, buildVariableDocument(row))
	}
	for _, row := range datasets {
		docs = append(docs, buildDatasetDocument(row))
	}
	return docs, nil
}

// loadTable 按表头取列，required 里的列必须齐全
func loadTable(path string, required []string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv file")
	}

	header := map[string]int{}
	for i, name := range records[0] {
		header[strings.TrimSpace(name)] = i
	}
	for _, col := range required {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := map[string]string{}
		for name, idx := range header {
			if idx < len(record) {
				row[name] = strings.TrimSpace(record[idx])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func buildVariableDocument(row map[string]string) rag.Document {
	content := fmt.Sprintf(`Variable Name: %s
Variable Description: %s
Variable Type: %s
Dataset: %s
Study: %s
Database: %s`,
		row["Variable name"], row["Variable description"], row["Type"],
		row["Dataset name"], row["Study"], row["Database"])

	return rag.Document{
		Content: content,
		Metadata: map[string]string{
			"variable_accession": row["Variable accession"],
			"variable_name":      row["Variable name"],
			"dataset_accession":  row["Dataset accession"],
			"dataset_name":       row["Dataset name"],
			"study":              row["Study"],
			"type":               "variable",
		},
	}
}

func buildDatasetDocument(row map[string]string) rag.Document {
	url := row["URL"]
	if url == "" {
		url = "N/A"
	}
	content := fmt.Sprintf(`Dataset Name: %s
Dataset Description: %s
Study: %s
Database: %s
URL: %s`,
		row["Dataset name"], row["Dataset description"],
		row["Study"], row["Database"], url)

	return rag.Document{
		Content: content,
		Metadata: map[string]string{
			"dataset_accession": row["Dataset accession"],
			"dataset_name":      row["Dataset name"],
			"study":             row["Study"],
			"database":          row["Database"],
			"type":              "dataset",
		},
	}
}
