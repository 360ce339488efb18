package db

import (
	"context"
	"fmt"

	"github.com/rqlite/gorqlite"
)

func New(conn *gorqlite.Connection) *Queries {
	return &Queries{
		conn: conn,
	}
}

// Queries is a Store backed by rqlite.
type Queries struct {
	conn *gorqlite.Connection
}

var _ Store = (*Queries)(nil)

const analysisColumns = `id, owner, kind, competitor, query, answer, analysis, score, tokens_used, created_at`

func scanAnalysis(result gorqlite.QueryResult) (a Analysis, err error) {
	err = result.Scan(&a.ID, &a.Owner, &a.Kind, &a.Competitor, &a.Query, &a.Answer, &a.Analysis, &a.Score, &a.TokensUsed, &a.CreatedAt)
	return a, err
}

func (q *Queries) AnalysisPut(ctx context.Context, a Analysis) (id int64, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query: `insert into analysis (owner, kind, competitor, query, answer, analysis, score, tokens_used, created_at)
values (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		Arguments: []any{a.Owner, a.Kind, a.Competitor, a.Query, a.Answer, a.Analysis, a.Score, a.TokensUsed, a.CreatedAt},
	}
	result, err := q.conn.WriteOneParameterizedContext(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("db: insert analysis failed: %w", err)
	}
	if result.LastInsertID == 0 {
		return 0, fmt.Errorf("db: expected a non-zero row ID")
	}
	return result.LastInsertID, nil
}

func (q *Queries) AnalysisGet(ctx context.Context, owner string, id int64) (a Analysis, ok bool, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `select ` + analysisColumns + ` from analysis where owner = ? and id = ?`,
		Arguments: []any{owner, id},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return a, false, err
	}
	if !result.Next() {
		return a, false, nil
	}
	if a, err = scanAnalysis(result); err != nil {
		return a, false, err
	}
	return a, true, nil
}

func (q *Queries) AnalysisList(ctx context.Context, owner string, limit, offset int) (analyses []Analysis, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `select ` + analysisColumns + ` from analysis where owner = ? order by created_at desc, id desc limit ? offset ?`,
		Arguments: []any{owner, limit, offset},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	for result.Next() {
		a, err := scanAnalysis(result)
		if err != nil {
			return analyses, err
		}
		analyses = append(analyses, a)
	}
	return analyses, nil
}

func (q *Queries) AnalysisCount(ctx context.Context, owner string) (n int64, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `select count(*) from analysis where owner = ?`,
		Arguments: []any{owner},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return 0, err
	}
	if !result.Next() {
		return 0, nil
	}
	err = result.Scan(&n)
	return n, err
}

func (q *Queries) AnalysisDelete(ctx context.Context, owner string, id int64) (ok bool, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `delete from analysis where owner = ? and id = ?`,
		Arguments: []any{owner, id},
	}
	result, err := q.conn.WriteOneParameterizedContext(ctx, stmt)
	if err != nil {
		return false, err
	}
	return result.RowsAffected > 0, nil
}

func (q *Queries) AnalysisClear(ctx context.Context, owner string) (n int64, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `delete from analysis where owner = ?`,
		Arguments: []any{owner},
	}
	result, err := q.conn.WriteOneParameterizedContext(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected, nil
}

func (q *Queries) AnalysisPrune(ctx context.Context, owner string, keep int) (err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query: `delete from analysis where owner = ? and id not in (
  select id from analysis where owner = ? order by created_at desc, id desc limit ?
)`,
		Arguments: []any{owner, owner, keep},
	}
	_, err = q.conn.WriteOneParameterizedContext(ctx, stmt)
	return err
}

func (q *Queries) AnalysisStats(ctx context.Context, owner string) (stats Stats, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `select ` + statsColumns + ` from analysis where owner = ?`,
		Arguments: []any{owner},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return stats, err
	}
	if !result.Next() {
		return stats, nil
	}
	err = result.Scan(&stats.Total, &stats.Text, &stats.Image, &stats.Parse, &stats.Scored, &stats.TokensUsed)
	return stats, err
}

func (q *Queries) Ping(ctx context.Context) error {
	_, err := q.conn.QueryOneContext(ctx, "select 1")
	return err
}
