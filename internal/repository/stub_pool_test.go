package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubPool struct {
	execSQL  []string
	execArgs [][]any
	execTag  string
	execErr  error

	queryRowSQL  string
	queryRowArgs []any
	queryRowData []any
	queryRowErr  error
}

func (s *stubPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execSQL = append(s.execSQL, sql)
	s.execArgs = append(s.execArgs, args)
	if s.execErr != nil {
		return pgconn.CommandTag{}, s.execErr
	}
	return pgconn.NewCommandTag(s.execTag), nil
}

func (s *stubPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("query not supported")
}

func (s *stubPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	s.queryRowSQL = sql
	s.queryRowArgs = args
	return &stubRow{data: s.queryRowData, err: s.queryRowErr}
}

type stubRow struct {
	data []any
	err  error
}

func (r *stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if r.data == nil {
		return pgx.ErrNoRows
	}
	if len(dest) != len(r.data) {
		return fmt.Errorf("scan: want %d columns, got %d", len(dest), len(r.data))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.data[i].(string)
		case *int64:
			*p = r.data[i].(int64)
		case *bool:
			*p = r.data[i].(bool)
		default:
			return fmt.Errorf("scan: unsupported dest %T", d)
		}
	}
	return nil
}
