// Package generator_repo provides the PostgreSQL implementation of functionalid.Repository.
package generator_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"funcid/internal/core/apperror"
	"funcid/internal/domain/functionalid"
	"funcid/internal/infrastructure/storage/postgres"
)

const entityName = "functional id generator"

var _ functionalid.Repository = (*Repo)(nil)

// Repo stores generators in sys_functional_ids, one row per label.
// Row locks are taken with SELECT ... FOR UPDATE and held until the
// surrounding transaction ends.
type Repo struct {
	txm        *postgres.TxManager
	tableName  string
	selectCols []string
}

// NewRepo creates a generator repository on top of txm.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:        txm,
		tableName:  postgres.GeneratorTable,
		selectCols: postgres.ExtractDBColumns[functionalid.Generator](),
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *Repo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) selectByLabel(label string, forUpdate bool) squirrel.SelectBuilder {
	q := r.Builder().
		Select(r.selectCols...).
		From(r.tableName).
		Where(squirrel.Eq{"label": label}).
		Limit(1)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	return q
}

func (r *Repo) insert(g *functionalid.Generator) squirrel.InsertBuilder {
	return r.Builder().
		Insert(r.tableName).
		SetMap(postgres.StructToMap(g)).
		Suffix("ON CONFLICT (label) DO NOTHING")
}

func (r *Repo) update(g *functionalid.Generator) squirrel.UpdateBuilder {
	return r.Builder().
		Update(r.tableName).
		Set("prefix", g.Prefix).
		Set("sequence", g.Sequence).
		Set("uid", g.UID).
		Where(squirrel.Eq{"label": g.Label})
}

func (r *Repo) delete(label string) squirrel.DeleteBuilder {
	return r.Builder().
		Delete(r.tableName).
		Where(squirrel.Eq{"label": label})
}

// FindByLabel returns the generator for label without locking it.
func (r *Repo) FindByLabel(ctx context.Context, label string) (*functionalid.Generator, error) {
	return r.get(ctx, r.selectByLabel(label, false), label)
}

// GetForUpdate returns the generator for label and locks its row.
// It must be called inside a transaction.
func (r *Repo) GetForUpdate(ctx context.Context, label string) (*functionalid.Generator, error) {
	if !r.txm.InTransaction(ctx) {
		return nil, fmt.Errorf("get for update %q: no active transaction", label)
	}
	return r.get(ctx, r.selectByLabel(label, true), label)
}

func (r *Repo) get(ctx context.Context, q squirrel.SelectBuilder, label string) (*functionalid.Generator, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var g functionalid.Generator
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &g, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(entityName, label)
		}
		return nil, postgres.TranslateError("get generator", err)
	}
	return &g, nil
}

// List returns all generators ordered by label.
func (r *Repo) List(ctx context.Context) ([]*functionalid.Generator, error) {
	sql, args, err := r.Builder().
		Select(r.selectCols...).
		From(r.tableName).
		OrderBy("label").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*functionalid.Generator
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, postgres.TranslateError("list generators", err)
	}
	return items, nil
}

// Create inserts g. A concurrent insert of the same label yields DUPLICATE_ENTRY.
func (r *Repo) Create(ctx context.Context, g *functionalid.Generator) error {
	sql, args, err := r.insert(g).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate(entityName, "label", g.Label)
		}
		return postgres.TranslateError("insert generator", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewDuplicate(entityName, "label", g.Label)
	}
	return nil
}

// Update writes prefix, sequence and uid of g.
func (r *Repo) Update(ctx context.Context, g *functionalid.Generator) error {
	sql, args, err := r.update(g).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.TranslateError("update generator", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(entityName, g.Label)
	}
	return nil
}

// Delete removes the generator for label.
func (r *Repo) Delete(ctx context.Context, label string) error {
	sql, args, err := r.delete(label).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.TranslateError("delete generator", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(entityName, label)
	}
	return nil
}
