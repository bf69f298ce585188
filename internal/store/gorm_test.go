package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"devicemodel/internal/models"
	"devicemodel/internal/store"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard, SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, gdb.AutoMigrate(models.All()...))
	return gdb
}

func newStore[T store.Entity](t *testing.T, gdb *gorm.DB) *store.GormStore[T] {
	t.Helper()
	s, err := store.NewGormStore[T](gdb)
	require.NoError(t, err)
	return s
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestReadOrCreateByQuery(t *testing.T) {
	ctx := context.Background()
	components := newStore[models.Component](t, openSQLite(t))

	q := store.Query{Where: store.Where{"name": "Connector", "instance": nil}}
	first, created, err := components.ReadOrCreateByQuery(ctx, q, models.Component{Name: "Connector"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)

	again, created, err := components.ReadOrCreateByQuery(ctx, q, models.Component{Name: "Connector"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	// an instance is a different natural key
	other, created, err := components.ReadOrCreateByQuery(ctx,
		store.Query{Where: store.Where{"name": "Connector", "instance": "1"}},
		models.Component{Name: "Connector", Instance: strPtr("1")})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)

	n, err := components.ExistByQuery(ctx, store.Query{Where: store.Where{"name": "Connector"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUpsert_OverwritesAllColumns(t *testing.T) {
	ctx := context.Background()
	gdb := openSQLite(t)
	variables := newStore[models.Variable](t, gdb)
	characteristics := newStore[models.VariableCharacteristics](t, gdb)

	v, err := variables.Create(ctx, models.Variable{Name: "Power"})
	require.NoError(t, err)

	first, created, err := characteristics.Upsert(ctx, models.VariableCharacteristics{
		VariableID: v.ID, DataType: models.DataDecimal, Unit: strPtr("W"), SupportsMonitoring: true,
	})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := characteristics.Upsert(ctx, models.VariableCharacteristics{
		VariableID: v.ID, DataType: models.DataInteger,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.DataInteger, second.DataType)
	assert.Nil(t, second.Unit)
	assert.False(t, second.SupportsMonitoring)

	n, err := characteristics.ExistByQuery(ctx, store.Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpsert_NullKeyColumnMatches(t *testing.T) {
	ctx := context.Background()
	evses := newStore[models.Evse](t, openSQLite(t))

	a, created, err := evses.Upsert(ctx, models.Evse{ID: 1})
	require.NoError(t, err)
	assert.True(t, created)

	b, created, err := evses.Upsert(ctx, models.Evse{ID: 1})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.DatabaseID, b.DatabaseID)

	c, created, err := evses.Upsert(ctx, models.Evse{ID: 1, ConnectorID: intPtr(2)})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, a.DatabaseID, c.DatabaseID)
}

func TestUpsert_CompositeKeyOnly(t *testing.T) {
	ctx := context.Background()
	links := newStore[models.ComponentVariable](t, openSQLite(t))

	_, created, err := links.Upsert(ctx, models.ComponentVariable{ComponentID: 1, VariableID: 2})
	require.NoError(t, err)
	assert.True(t, created)
	_, created, err = links.Upsert(ctx, models.ComponentVariable{ComponentID: 1, VariableID: 2})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestUpdateByKey(t *testing.T) {
	ctx := context.Background()
	gdb := openSQLite(t)
	components := newStore[models.Component](t, gdb)
	evses := newStore[models.Evse](t, gdb)

	e, err := evses.Create(ctx, models.Evse{ID: 3})
	require.NoError(t, err)
	c, err := components.Create(ctx, models.Component{Name: "EVSE"})
	require.NoError(t, err)

	updated, err := components.UpdateByKey(ctx, map[string]any{"evse_database_id": e.DatabaseID}, c.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.EvseDatabaseID)
	assert.Equal(t, e.DatabaseID, *updated.EvseDatabaseID)

	_, err = components.UpdateByKey(ctx, map[string]any{"name": "x"}, uint(9999))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func seedAttribute(t *testing.T, gdb *gorm.DB, station, component, variable string, evseID *int) models.VariableAttribute {
	t.Helper()
	ctx := context.Background()
	var evseDBID *uint
	if evseID != nil {
		e, _, err := newStore[models.Evse](t, gdb).Upsert(ctx, models.Evse{ID: *evseID})
		require.NoError(t, err)
		evseDBID = &e.DatabaseID
	}
	c, _, err := newStore[models.Component](t, gdb).Upsert(ctx, models.Component{Name: component, EvseDatabaseID: evseDBID})
	require.NoError(t, err)
	v, _, err := newStore[models.Variable](t, gdb).Upsert(ctx, models.Variable{Name: variable})
	require.NoError(t, err)
	va, err := newStore[models.VariableAttribute](t, gdb).Create(ctx, models.VariableAttribute{
		StationID: station, ComponentID: c.ID, VariableID: v.ID, EvseDatabaseID: evseDBID,
		Type: models.AttributeActual, Mutability: models.MutabilityReadWrite, Value: strPtr("v"),
	})
	require.NoError(t, err)
	return va
}

func TestReadAllByQuery_RelationFilters(t *testing.T) {
	ctx := context.Background()
	gdb := openSQLite(t)
	attributes := newStore[models.VariableAttribute](t, gdb)

	seedAttribute(t, gdb, "CS1", "Connector", "Present", intPtr(1))
	seedAttribute(t, gdb, "CS1", "Controller", "Present", nil)
	seedAttribute(t, gdb, "CS2", "Controller", "Enabled", nil)

	rows, err := attributes.ReadAllByQuery(ctx, store.Query{
		Where: store.Where{"station_id": "CS1"},
		Include: []store.Include{
			{Relation: "Component", Include: []store.Include{{Relation: "Evse"}}},
			{Relation: "Variable", Where: store.Where{"name": "Present"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].Component)
	assert.Equal(t, "Connector", rows[0].Component.Name)
	require.NotNil(t, rows[0].Component.Evse)
	assert.Equal(t, 1, rows[0].Component.Evse.ID)
	assert.Nil(t, rows[1].Component.Evse)
	require.NotNil(t, rows[1].Variable)
	assert.Equal(t, "Present", rows[1].Variable.Name)

	// nested filter reaches through Component to Evse
	rows, err = attributes.ReadAllByQuery(ctx, store.Query{
		Include: []store.Include{
			{Relation: "Component", Include: []store.Include{{Relation: "Evse", Where: store.Where{"id": 1}}}},
		},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "CS1", rows[0].StationID)

	n, err := attributes.ExistByQuery(ctx, store.Query{
		Include: []store.Include{{Relation: "Variable", Where: store.Where{"name": "Enabled"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReadAllByQuery_NotNullAndHasMany(t *testing.T) {
	ctx := context.Background()
	gdb := openSQLite(t)
	attributes := newStore[models.VariableAttribute](t, gdb)
	statuses := newStore[models.VariableStatus](t, gdb)

	a := seedAttribute(t, gdb, "CS1", "Connector", "Present", nil)
	seedAttribute(t, gdb, "CS1", "Controller", "Present", nil)

	_, err := attributes.UpdateByKey(ctx, map[string]any{"boot_config_set_id": "CS1"}, a.ID)
	require.NoError(t, err)
	_, err = statuses.Create(ctx, models.VariableStatus{VariableAttributeID: a.ID, Value: strPtr("v"), Status: "Accepted"})
	require.NoError(t, err)

	rows, err := attributes.ReadAllByQuery(ctx, store.Query{Where: store.Where{"boot_config_set_id": store.NotNull}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, a.ID, rows[0].ID)

	rows, err = attributes.ReadAllByQuery(ctx, store.Query{
		Include: []store.Include{{Relation: "Statuses", Where: store.Where{"status": "Accepted"}}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Statuses, 1)
	assert.Equal(t, "Accepted", rows[0].Statuses[0].Status)
}

func TestDeleteAllByQuery(t *testing.T) {
	ctx := context.Background()
	gdb := openSQLite(t)
	attributes := newStore[models.VariableAttribute](t, gdb)

	seedAttribute(t, gdb, "CS1", "Connector", "Present", nil)
	seedAttribute(t, gdb, "CS2", "Connector", "Present", nil)

	deleted, err := attributes.DeleteAllByQuery(ctx, store.Query{Where: store.Where{"station_id": "CS1"}})
	require.NoError(t, err)
	assert.Len(t, deleted, 1)

	deleted, err = attributes.DeleteAllByQuery(ctx, store.Query{Where: store.Where{"station_id": "CS1"}})
	require.NoError(t, err)
	assert.Empty(t, deleted)

	n, err := attributes.ExistByQuery(ctx, store.Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUnknownRelation(t *testing.T) {
	attributes := newStore[models.VariableAttribute](t, openSQLite(t))
	_, err := attributes.ReadAllByQuery(context.Background(), store.Query{
		Include: []store.Include{{Relation: "Nope"}},
	})
	assert.Error(t, err)
}

func TestStorageErrorPropagates(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: logger.Discard, SkipDefaultTransaction: true})
	require.NoError(t, err)
	components := newStore[models.Component](t, gdb)

	boom := errors.New("connection reset by peer")
	mock.ExpectQuery(`SELECT \* FROM "components"`).WillReturnError(boom)

	_, _, err = components.ReadOrCreateByQuery(context.Background(),
		store.Query{Where: store.Where{"name": "Connector"}}, models.Component{Name: "Connector"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
