package vectorstore

import (
	"context"
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	arrowmem "github.com/apache/arrow/go/v17/arrow/memory"
)

// Row is one record to insert: scalar string fields plus one embedded
// vector per configured VectorField.
type Row struct {
	ID      string
	Vectors map[string][]float32
	Scalars map[string]string
}

// InsertAndFlush builds a single-row Arrow record and writes it through
// immediately — LanceDB has no separate flush step once Add returns, so
// "flush" here means the write call itself has completed and is visible
// to subsequent searches.
func InsertAndFlush(ctx context.Context, col *Collection, row Row) error {
	record, err := rowToRecord(col.schema, col.vectorFields, row)
	if err != nil {
		return fmt.Errorf("vectorstore: build record: %w", err)
	}
	defer record.Release()

	if err := col.table.Add(ctx, record, nil); err != nil {
		return fmt.Errorf("vectorstore: insert failed: %w", err)
	}
	return nil
}

func rowToRecord(schema *arrow.Schema, vectorFields []VectorField, row Row) (arrow.Record, error) {
	pool := arrowmem.NewGoAllocator()
	cols := make([]arrow.Array, 0, schema.NumFields())

	for _, f := range schema.Fields() {
		switch f.Name {
		case "id":
			b := array.NewStringBuilder(pool)
			b.Append(row.ID)
			arr := b.NewArray()
			cols = append(cols, arr)
		default:
			if dim, isVector := vectorDimension(vectorFields, f.Name); isVector {
				vec := row.Vectors[f.Name]
				if len(vec) != dim {
					return nil, fmt.Errorf("field %s: expected dimension %d, got %d", f.Name, dim, len(vec))
				}
				arr, err := buildVectorArray(pool, vec, dim)
				if err != nil {
					return nil, err
				}
				cols = append(cols, arr)
			} else {
				b := array.NewStringBuilder(pool)
				b.Append(row.Scalars[f.Name])
				arr := b.NewArray()
				cols = append(cols, arr)
			}
		}
	}

	return array.NewRecord(schema, cols, 1), nil
}

func vectorDimension(fields []VectorField, name string) (int, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f.Dimension, true
		}
	}
	return 0, false
}

func buildVectorArray(pool arrowmem.Allocator, vec []float32, dim int) (arrow.Array, error) {
	floatB := array.NewFloat32Builder(pool)
	floatB.AppendValues(vec, nil)
	floatArr := floatB.NewArray()
	defer floatArr.Release()

	listType := arrow.FixedSizeListOf(int32(dim), arrow.PrimitiveTypes.Float32)
	listData := array.NewData(listType, 1, []*arrowmem.Buffer{nil},
		[]arrow.ArrayData{floatArr.Data()}, 0, 0)
	return array.NewFixedSizeListData(listData), nil
}
