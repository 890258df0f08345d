package table

import (
	"context"

	"vdb/table/index"
)

// GetByIndex returns up to count (index key, primary key) pairs at or
// after key in index indexName, in ascending order. It only bounds the
// scan's lower edge - there's no upper clip to, say, key's own prefix -
// so a scan can run past the last pair that actually matches key and
// into the next index key's pairs once count pairs haven't been
// exhausted within key's own group.
func (t *Table) GetByIndex(ctx context.Context, conn *Conn, indexName string, key []byte, count uint32) ([]index.IKPK, error) {
	idx := t.indexByName(indexName)
	if idx == nil {
		return nil, errIndexMissing(indexName)
	}

	result, err := idx.Scan(ctx, conn, index.ScanOptions{
		LowerKey: &index.ScanKey{IK: key, PK: []byte{}},
		Count:    count,
		Order:    index.Asc,
	})
	if err != nil {
		return nil, err
	}
	return result.Keys, nil
}

func (t *Table) indexByName(name string) *index.Index {
	for _, idx := range t.indexes {
		if idx.Name == name {
			return idx
		}
	}
	return nil
}
