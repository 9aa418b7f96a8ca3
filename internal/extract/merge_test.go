package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_ScalarLastWriteWins(t *testing.T) {
	a := Fields{Scalars: map[string]string{KeyDeliveryAddress: "14 Park Street"}}
	b := Fields{Scalars: map[string]string{KeyDeliveryAddress: "2 Hill Road", KeyDeliveryMethod: "pickup"}}

	merged := Merge(a, b)
	assert.Equal(t, "2 Hill Road", merged.Scalar(KeyDeliveryAddress))
	assert.Equal(t, "pickup", merged.Scalar(KeyDeliveryMethod))
}

func TestMerge_ItemReplacedInPlace(t *testing.T) {
	a := Fields{Items: []LineItem{
		{Item: "chocolate cake", Quantity: "1"},
		{Item: "cupcakes", Quantity: "6"},
	}}
	b := Fields{Items: []LineItem{{Item: "Chocolate Cake", Quantity: "2", Notes: "nut-free"}}}

	merged := Merge(a, b)
	require.Len(t, merged.Items, 2)
	// Position preserved, content replaced.
	assert.Equal(t, "2", merged.Items[0].Quantity)
	assert.Equal(t, "nut-free", merged.Items[0].Notes)
	assert.Equal(t, "cupcakes", merged.Items[1].Item)
}

func TestMerge_NewItemAppended(t *testing.T) {
	a := Fields{Items: []LineItem{{Item: "A4 paper", Quantity: "5"}}}
	b := Fields{Items: []LineItem{{Item: "black pens", Quantity: "3"}}}

	merged := Merge(a, b)
	require.Len(t, merged.Items, 2)
	assert.Equal(t, "black pens", merged.Items[1].Item)
}

func TestMerge_Idempotent(t *testing.T) {
	a := Fields{
		Scalars: map[string]string{KeyDeliveryTime: "5 PM"},
		Items:   []LineItem{{Item: "cake", Quantity: "1"}},
	}
	b := Fields{
		Scalars: map[string]string{KeyDeliveryTime: "6 PM"},
		Items:   []LineItem{{Item: "cake", Quantity: "2"}, {Item: "brownies", Quantity: "4"}},
	}

	once := Merge(a, b)
	twice := Merge(once, b)
	assert.Equal(t, once, twice)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	a := Fields{Items: []LineItem{{Item: "cake", Quantity: "1"}}}
	b := Fields{Items: []LineItem{{Item: "cake", Quantity: "2"}}}

	_ = Merge(a, b)
	assert.Equal(t, "1", a.Items[0].Quantity)
}

func TestFromRaw(t *testing.T) {
	raw := map[string]any{
		"delivery_address": "14 Park Street",
		"quantity_ignored": []any{"not", "records"},
		"products": []any{
			map[string]any{"product": "A4 paper", "quantity": float64(5)},
			map[string]any{"item": "black pens", "quantity": "3", "notes": "blue ink ok"},
			map[string]any{"quantity": "2"}, // no name, dropped
		},
	}

	f := FromRaw(raw)
	assert.Equal(t, "14 Park Street", f.Scalar(KeyDeliveryAddress))
	require.Len(t, f.Items, 2)
	assert.Equal(t, "A4 paper", f.Items[0].Item)
	assert.Equal(t, "5", f.Items[0].Quantity)
	assert.Equal(t, "blue ink ok", f.Items[1].Notes)
}
