package store

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// GormStore implements EntityStore on gorm. Relation filters become
// "fk IN (SELECT ...)" subqueries and relations are loaded with Preload, so
// no query ever depends on join aliases.
type GormStore[T Entity] struct {
	db        *gorm.DB
	schema    *schema.Schema
	updatable []string
}

func NewGormStore[T Entity](db *gorm.DB) (*GormStore[T], error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("store: parse schema: %w", err)
	}
	retained := map[string]bool{}
	if r, ok := any(*new(T)).(Retainer); ok {
		for _, col := range r.RetainedOnUpsert() {
			retained[col] = true
		}
	}
	var updatable []string
	for _, f := range stmt.Schema.Fields {
		if f.DBName == "" || f.PrimaryKey || f.AutoCreateTime > 0 || retained[f.DBName] {
			continue
		}
		updatable = append(updatable, f.DBName)
	}
	return &GormStore[T]{db: db, schema: stmt.Schema, updatable: updatable}, nil
}

func (s *GormStore[T]) Create(ctx context.Context, candidate T) (T, error) {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&candidate).Error; err != nil {
		var zero T
		return zero, s.wrap("create", err)
	}
	return candidate, nil
}

func (s *GormStore[T]) ReadAllByQuery(ctx context.Context, q Query) ([]T, error) {
	return s.find(ctx, q, 0)
}

func (s *GormStore[T]) ReadOrCreateByQuery(ctx context.Context, q Query, candidate T) (T, bool, error) {
	rows, err := s.find(ctx, q, 1)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if len(rows) > 0 {
		return rows[0], false, nil
	}
	created, err := s.Create(ctx, candidate)
	return created, err == nil, err
}

func (s *GormStore[T]) Upsert(ctx context.Context, candidate T) (T, bool, error) {
	key := Query{Where: Where(candidate.NaturalKey())}
	rows, err := s.find(ctx, key, 1)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if len(rows) == 0 {
		created, err := s.Create(ctx, candidate)
		return created, err == nil, err
	}
	existing := rows[0]
	if len(s.updatable) == 0 {
		return existing, false, nil
	}
	if err := s.db.WithContext(ctx).Model(&existing).Select(s.updatable).Updates(&candidate).Error; err != nil {
		var zero T
		return zero, false, s.wrap("upsert", err)
	}
	rows, err = s.find(ctx, key, 1)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if len(rows) == 0 {
		var zero T
		return zero, false, s.wrap("upsert", gorm.ErrRecordNotFound)
	}
	return rows[0], false, nil
}

func (s *GormStore[T]) UpdateByKey(ctx context.Context, patch map[string]any, key any) (T, error) {
	var zero T
	pk := s.schema.PrioritizedPrimaryField
	if pk == nil {
		return zero, fmt.Errorf("store: %s has no single primary key", s.schema.Table)
	}
	byKey := clause.Eq{Column: clause.Column{Table: s.schema.Table, Name: pk.DBName}, Value: key}
	if err := s.db.WithContext(ctx).Model(new(T)).Where(byKey).Updates(patch).Error; err != nil {
		return zero, s.wrap("update", err)
	}
	rows, err := s.find(ctx, Query{Where: Where{pk.DBName: key}}, 1)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, s.wrap("update", gorm.ErrRecordNotFound)
	}
	return rows[0], nil
}

func (s *GormStore[T]) DeleteAllByQuery(ctx context.Context, q Query) ([]T, error) {
	rows, err := s.find(ctx, q, 0)
	if err != nil || len(rows) == 0 {
		return rows, err
	}
	if err := s.db.WithContext(ctx).Delete(&rows).Error; err != nil {
		return nil, s.wrap("delete", err)
	}
	return rows, nil
}

func (s *GormStore[T]) ExistByQuery(ctx context.Context, q Query) (int64, error) {
	tx, err := s.filter(s.db.WithContext(ctx).Model(new(T)), q)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, s.wrap("count", err)
	}
	return n, nil
}

func (s *GormStore[T]) find(ctx context.Context, q Query, limit int) ([]T, error) {
	tx, err := s.filter(s.db.WithContext(ctx).Model(new(T)), q)
	if err != nil {
		return nil, err
	}
	preloads, err := preloadPaths(s.schema, "", q.Include)
	if err != nil {
		return nil, err
	}
	for _, p := range preloads {
		tx = tx.Preload(p.path, orderBy(p.pk))
	}
	if pk := s.schema.PrioritizedPrimaryField; pk != nil {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Table: s.schema.Table, Name: pk.DBName}})
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var rows []T
	if err := tx.Find(&rows).Error; err != nil {
		return nil, s.wrap("read", err)
	}
	return rows, nil
}

func (s *GormStore[T]) filter(tx *gorm.DB, q Query) (*gorm.DB, error) {
	tx = applyWhere(tx, s.schema.Table, q.Where)
	for _, inc := range q.Include {
		var err error
		if tx, err = s.constrain(tx, s.schema, inc); err != nil {
			return nil, err
		}
	}
	return tx, nil
}

// constrain restricts tx (rows of owner) to those whose inc relation matches.
func (s *GormStore[T]) constrain(tx *gorm.DB, owner *schema.Schema, inc Include) (*gorm.DB, error) {
	rel, ok := owner.Relationships.Relations[inc.Relation]
	if !ok {
		return nil, fmt.Errorf("store: %s has no relation %q", owner.Table, inc.Relation)
	}
	if !inc.filtered() {
		return tx, nil
	}
	if len(rel.References) == 0 {
		return nil, fmt.Errorf("store: relation %q on %s has no references", inc.Relation, owner.Table)
	}
	related := rel.FieldSchema
	sub := applyWhere(s.db.Session(&gorm.Session{NewDB: true}).Table(related.Table), related.Table, inc.Where)
	for _, child := range inc.Include {
		var err error
		if sub, err = s.constrain(sub, related, child); err != nil {
			return nil, err
		}
	}

	ref := rel.References[0]
	ownCol, relCol := ref.ForeignKey.DBName, ref.PrimaryKey.DBName
	if ref.OwnPrimaryKey {
		// has one / has many: the related row holds the foreign key
		ownCol, relCol = ref.PrimaryKey.DBName, ref.ForeignKey.DBName
	}
	return tx.Where("? IN (?)", clause.Column{Table: owner.Table, Name: ownCol}, sub.Select(relCol)), nil
}

func (s *GormStore[T]) wrap(op string, err error) error {
	return fmt.Errorf("store: %s %s: %w", op, s.schema.Table, err)
}

func applyWhere(tx *gorm.DB, table string, w Where) *gorm.DB {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		col := clause.Column{Table: table, Name: k}
		if _, ok := w[k].(notNull); ok {
			tx = tx.Where(clause.Neq{Column: col, Value: nil})
			continue
		}
		tx = tx.Where(clause.Eq{Column: col, Value: w[k]})
	}
	return tx
}

type preload struct {
	path string
	pk   string
}

func preloadPaths(owner *schema.Schema, prefix string, incs []Include) ([]preload, error) {
	var out []preload
	seen := map[string]bool{}
	for _, inc := range incs {
		rel, ok := owner.Relationships.Relations[inc.Relation]
		if !ok {
			return nil, fmt.Errorf("store: %s has no relation %q", owner.Table, inc.Relation)
		}
		path := prefix + inc.Relation
		if !seen[path] {
			seen[path] = true
			var pk string
			if f := rel.FieldSchema.PrioritizedPrimaryField; f != nil {
				pk = f.DBName
			}
			out = append(out, preload{path: path, pk: pk})
		}
		nested, err := preloadPaths(rel.FieldSchema, path+".", inc.Include)
		if err != nil {
			return nil, err
		}
		for _, n := range nested {
			if !seen[n.path] {
				seen[n.path] = true
				out = append(out, n)
			}
		}
	}
	return out, nil
}

func orderBy(pk string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if pk == "" {
			return db
		}
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: pk}})
	}
}
