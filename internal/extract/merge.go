package extract

// Merge combines newly extracted fields into previously accumulated ones.
//
// Scalars: the new value wins unconditionally.
// Line items: matched by LineItem.Key — an incoming item replaces a stored
// item with the same key in place (keeping list position), otherwise it is
// appended. Replaying the same update is a no-op, so redelivered messages
// cannot duplicate items.
func Merge(existing, incoming Fields) Fields {
	merged := existing.Clone()

	for k, v := range incoming.Scalars {
		merged.SetScalar(k, v)
	}

	for _, item := range incoming.Items {
		replaced := false
		for i, have := range merged.Items {
			if have.Key() == item.Key() {
				merged.Items[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			merged.Items = append(merged.Items, item)
		}
	}

	return merged
}
