package workbook

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decoderFor 返回编码对应的解码器，utf-8 时会去掉 BOM
func decoderFor(enc string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	case "gbk":
		return simplifiedchinese.GBK, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", enc)
}

// LoadCSV 读取 CSV 源文件（ERP 导出通常为 GB18030）
func LoadCSV(path, enc string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadCSV: open %s: %w", path, err)
	}
	defer file.Close()

	e, err := decoderFor(enc)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(transform.NewReader(file, e.NewDecoder()))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("LoadCSV: read %s: %w", path, err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// ReadRows 按扩展名读取源文件：.csv 直接解码，其余按工作簿打开并读取 sheet（为空时取第一个）
func ReadRows(path, sheetName, enc string) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return LoadCSV(path, enc)
	}
	wb, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	if sheetName == "" {
		if sheets := wb.Sheets(); len(sheets) > 0 {
			sheetName = sheets[0]
		}
	}
	return wb.Rows(sheetName)
}
