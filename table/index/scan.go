package index

import (
	"context"
	"fmt"
)

// ScanKey bounds one end of a range scan over (ik, pk) pairs.
type ScanKey struct {
	IK []byte
	PK []byte
}

// ScanOrder selects ascending or descending iteration order.
type ScanOrder int

const (
	Asc ScanOrder = iota
	Desc
)

// ScanOptions describes a bounded range scan over an index's (ik, pk)
// pairs, compared as a tuple so a scan can start or end partway through a
// group of primary keys sharing the same index key.
type ScanOptions struct {
	LowerKey *ScanKey
	HigherKey *ScanKey
	Count     uint32
	Order     ScanOrder
}

// whereClause builds the SQL WHERE fragment and positional args for the
// configured bounds, comparing (ik, pk) as a row value tuple the way
// SQLite supports directly.
func (o ScanOptions) whereClause() (string, []any) {
	var clauses []string
	var args []any

	if o.LowerKey != nil {
		clauses = append(clauses, "(ik, pk) >= (?, ?)")
		args = append(args, o.LowerKey.IK, o.LowerKey.PK)
	}
	if o.HigherKey != nil {
		clauses = append(clauses, "(ik, pk) <= (?, ?)")
		args = append(args, o.HigherKey.IK, o.HigherKey.PK)
	}

	if len(clauses) == 0 {
		return "1=1", args
	}
	where := clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func (o ScanOptions) orderBy() string {
	if o.Order == Desc {
		return "ORDER BY ik DESC, pk DESC"
	}
	return "ORDER BY ik ASC, pk ASC"
}

// ScanResult is the (ik, pk) pairs a scan found, plus whether more rows
// exist beyond the requested count.
type ScanResult struct {
	Keys    []IKPK
	HasMore bool
}

// IKPK is one index-key/primary-key pair.
type IKPK struct {
	IK []byte
	PK []byte
}

// Scan returns up to options.Count (ik, pk) pairs within the configured
// bounds. It requests one extra row to detect HasMore without a separate
// COUNT query.
func (idx *Index) Scan(ctx context.Context, conn Conn, options ScanOptions) (ScanResult, error) {
	where, args := options.whereClause()
	query := fmt.Sprintf(
		`SELECT ik, pk FROM %s WHERE %s %s LIMIT ?`,
		idx.dataTableName, where, options.orderBy(),
	)
	queryCount := options.Count + 1
	args = append(args, queryCount)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return ScanResult{}, err
	}
	defer rows.Close()

	var keys []IKPK
	for rows.Next() {
		var ik, pk []byte
		if err := rows.Scan(&ik, &pk); err != nil {
			return ScanResult{}, err
		}
		keys = append(keys, IKPK{IK: ik, PK: pk})
	}
	if err := rows.Err(); err != nil {
		return ScanResult{}, err
	}

	hasMore := uint32(len(keys)) > options.Count
	if hasMore {
		keys = keys[:len(keys)-1]
	}

	return ScanResult{Keys: keys, HasMore: hasMore}, nil
}
