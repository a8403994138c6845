package domain

// Merge upserts incoming records into an existing dataset.
//
// Existing records whose key does not appear in incoming are kept in their
// original order, followed by every incoming record in order. An incoming
// record replaces the stored one wholesale. A nil existing dataset is the
// first run of the month and yields incoming unchanged.
//
// Repeated keys inside incoming collapse to the last value, kept at the
// position of the first occurrence, so the result never holds duplicate keys.
func Merge(existing *Dataset, incoming []TimeSlotRecord) Dataset {
	batch := dedupe(incoming)
	if existing == nil {
		return Dataset{Records: batch}
	}

	keys := make(map[Key]struct{}, len(batch))
	for _, r := range batch {
		keys[r.Key()] = struct{}{}
	}

	out := make([]TimeSlotRecord, 0, len(existing.Records)+len(batch))
	for _, r := range existing.Records {
		if _, ok := keys[r.Key()]; ok {
			continue
		}
		out = append(out, r)
	}
	out = append(out, batch...)
	return Dataset{Records: out}
}

func dedupe(records []TimeSlotRecord) []TimeSlotRecord {
	out := make([]TimeSlotRecord, 0, len(records))
	pos := make(map[Key]int, len(records))
	for _, r := range records {
		k := r.Key()
		if i, ok := pos[k]; ok {
			out[i] = r
			continue
		}
		pos[k] = len(out)
		out = append(out, r)
	}
	return out
}

// Validate checks the key-uniqueness invariant of a loaded dataset.
func (d Dataset) Validate() error {
	seen := make(map[Key]struct{}, len(d.Records))
	for _, r := range d.Records {
		k := r.Key()
		if _, ok := seen[k]; ok {
			return &duplicateKeyError{key: k}
		}
		seen[k] = struct{}{}
	}
	return nil
}

type duplicateKeyError struct {
	key Key
}

func (e *duplicateKeyError) Error() string {
	return "duplicate key " + e.key.String()
}
