package vectorstore

import (
	"context"
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/lancedb/lancedb-go/pkg/contracts"
	"github.com/lancedb/lancedb-go/pkg/lancedb"
)

// VectorField describes one embedded column a collection searches over
// (e.g. "goal", "locator", "user_task", "url" for the code cache).
type VectorField struct {
	Name      string
	Dimension int
}

// Collection is one open LanceDB table plus the vector/scalar fields its
// callers search and filter on.
type Collection struct {
	table        contracts.ITable
	schema       *arrow.Schema
	vectorFields []VectorField
}

// EnsureCollection opens name if it already has a schema matching fields
// and scalarFields, or (re)creates it otherwise. A schema is considered
// stale if it is missing a required field or has a vector field at the
// wrong dimension; a stale table is dropped together with its rows and
// created again empty. No data is migrated.
func EnsureCollection(ctx context.Context, gw *Gateway, name string, vectorFields []VectorField, scalarFields []string) (*Collection, error) {
	arrowSchema := buildSchema(vectorFields, scalarFields)

	table, err := gw.conn.OpenTable(ctx, name)
	if err == nil {
		existing, schemaErr := table.Schema(ctx)
		if schemaErr == nil && schemaMatches(existing, arrowSchema) {
			return &Collection{table: table, schema: existing, vectorFields: vectorFields}, nil
		}
		// Stale schema: drop and recreate.
		_ = gw.conn.DropTable(ctx, name)
	}

	schema, err := lancedb.NewSchema(arrowSchema)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: build schema for %s: %w", name, err)
	}
	table, err = gw.conn.CreateTable(ctx, name, schema)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: create collection %s: %w", name, err)
	}
	return &Collection{table: table, schema: arrowSchema, vectorFields: vectorFields}, nil
}

func buildSchema(vectorFields []VectorField, scalarFields []string) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(vectorFields)+len(scalarFields)+1)
	fields = append(fields, arrow.Field{Name: "id", Type: arrow.BinaryTypes.String, Nullable: false})
	for _, vf := range vectorFields {
		fields = append(fields, arrow.Field{
			Name:     vf.Name,
			Type:     arrow.FixedSizeListOf(int32(vf.Dimension), arrow.PrimitiveTypes.Float32),
			Nullable: false,
		})
	}
	for _, sf := range scalarFields {
		fields = append(fields, arrow.Field{Name: sf, Type: arrow.BinaryTypes.String, Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

func schemaMatches(existing, wanted *arrow.Schema) bool {
	if existing.NumFields() != wanted.NumFields() {
		return false
	}
	wantedByName := make(map[string]arrow.Field, wanted.NumFields())
	for _, f := range wanted.Fields() {
		wantedByName[f.Name] = f
	}
	for _, f := range existing.Fields() {
		want, ok := wantedByName[f.Name]
		if !ok || !want.Type.Equal(f.Type) {
			return false
		}
	}
	return true
}

// Close releases the table handle.
func (c *Collection) Close() error {
	if c.table == nil {
		return nil
	}
	return c.table.Close()
}
