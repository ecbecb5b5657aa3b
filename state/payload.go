package state

import "immoflow/store"

var (
	createStripped = []string{"created_at", "price_per_m2", "last_message"}
	updateStripped = []string{"id", "created_at", "updated_at", "last_message", "price_per_m2"}
)

// CleanCreatePayload prepares a partial record for insertion: an empty id is
// dropped, server managed and derived columns are dropped, users never carry a
// password column, and empty strings become nulls.
func CleanCreatePayload(table string, payload store.Row) store.Row {
	clean := payload.Clone()
	if v, ok := clean["id"]; ok && (v == nil || v == "") {
		delete(clean, "id")
	}
	for _, k := range createStripped {
		delete(clean, k)
	}
	if table == Users.Table {
		delete(clean, "password")
	}
	for k, v := range clean {
		if v == "" {
			clean[k] = nil
		}
	}
	return clean
}

// CleanUpdatePatch drops identity and server managed columns from a patch.
func CleanUpdatePatch(patch store.Row) store.Row {
	clean := patch.Clone()
	for _, k := range updateStripped {
		delete(clean, k)
	}
	return clean
}
