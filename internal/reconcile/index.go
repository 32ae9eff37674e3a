package reconcile

import (
	"stockrecon/internal/code"
	"stockrecon/internal/model"
)

// Index 目标表编码索引
// 同一编码出现多次时后出现的行覆盖先出现的行
type Index struct {
	Full       map[string]int // 5 位编码 → 行号
	Suffix     map[string]int // 末 4 位 → 行号
	Rows       int            // 参与索引的行数
	Duplicates int            // 完整编码重复次数
}

// BuildIndex 扫描目标表编号列，空编码行跳过
func BuildIndex(store model.TabularStore, codeCol int, rng model.RowRange) *Index {
	ix := &Index{
		Full:   make(map[string]int, rng.Len()),
		Suffix: make(map[string]int, rng.Len()),
	}
	for row := rng.First; row < rng.End; row++ {
		c := code.Normalize(store.Cell(row, codeCol))
		if c == "" {
			continue
		}
		if _, exists := ix.Full[c]; exists {
			ix.Duplicates++
		}
		ix.Full[c] = row
		ix.Suffix[code.Suffix(c)] = row
		ix.Rows++
	}
	return ix
}

// Lookup 按编码形态查找目标行
func (ix *Index) Lookup(kind code.Kind, key string) (int, bool) {
	switch kind {
	case code.KindSuffix:
		row, ok := ix.Suffix[key]
		return row, ok
	case code.KindFull:
		row, ok := ix.Full[key]
		return row, ok
	}
	return 0, false
}

// exactIndex 原值精确匹配索引，同一键对应的所有行按行号升序
func exactIndex(store model.TabularStore, keyCol int, rng model.RowRange) map[string][]int {
	ix := make(map[string][]int, rng.Len())
	for row := rng.First; row < rng.End; row++ {
		k := code.Text(store.Cell(row, keyCol))
		if k == "" {
			continue
		}
		ix[k] = append(ix[k], row)
	}
	return ix
}
