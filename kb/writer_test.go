package kb

import "testing"

func TestConvertItem_String(t *testing.T) {
	docs, err := convertItem("hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 || docs[0].Text != "hello world" {
		t.Errorf("unexpected docs: %+v", docs)
	}
}

func TestConvertItem_MapExtractsKnownTextKey(t *testing.T) {
	docs, err := convertItem(map[string]interface{}{
		"title":   "Widget",
		"content": "A fine widget.",
		"price":   "$19.99",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
	if docs[0].Text != "A fine widget." {
		t.Errorf("expected extracted content text, got %q", docs[0].Text)
	}
	if docs[0].Metadata["title"] != "Widget" {
		t.Errorf("expected title metadata, got %+v", docs[0].Metadata)
	}
	if v, ok := docs[0].Dynamic["price"]; !ok || v.(float64) != 19.99 {
		t.Errorf("expected numeric dynamic price field, got %+v", docs[0].Dynamic)
	}
}

func TestConvertItem_MapWithoutTextKeySerializes(t *testing.T) {
	docs, err := convertItem(map[string]interface{}{"sku": "ABC123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docs[0].Text == "" {
		t.Errorf("expected serialized fallback text, got empty string")
	}
}

func TestConvertItem_ListOfMapsAppliesBatchConsistency(t *testing.T) {
	docs, err := convertItem([]map[string]interface{}{
		{"content": "a", "discount": "10%"},
		{"content": "b", "discount": "20"},
		{"content": "c", "discount": "30"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(docs))
	}
	for _, d := range docs {
		if _, ok := d.Dynamic["discount"]; !ok {
			t.Errorf("expected discount dynamic field present on every doc: %+v", d)
		}
	}
}

func TestConvertItem_DropsPlaceholderDynamicValues(t *testing.T) {
	docs, err := convertItem(map[string]interface{}{"content": "x", "note": "N/A"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := docs[0].Dynamic["note"]; ok {
		t.Errorf("expected placeholder value dropped, got %+v", docs[0].Dynamic)
	}
}

func TestConvertItem_UnsupportedTypeErrors(t *testing.T) {
	if _, err := convertItem(42); err == nil {
		t.Errorf("expected error for unsupported item type")
	}
}
