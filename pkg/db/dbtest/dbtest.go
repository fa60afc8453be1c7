// Package dbtest opens throwaway SQLite databases carrying the real schema.
package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/quartermaster-backend/pkg/config"
	"github.com/angelmondragon/quartermaster-backend/pkg/db"
	"github.com/angelmondragon/quartermaster-backend/pkg/db/models"
	"github.com/angelmondragon/quartermaster-backend/pkg/migrate"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// New returns a client backed by a private in-memory database with every
// migration applied and foreign keys enforced.
func New(t testing.TB) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.UpEmbedded(context.Background(), sqlDB, config.DriverSQLite))
	return db.NewFromGorm(conn)
}

// Tenant inserts a tenant row.
func Tenant(t testing.TB, conn *gorm.DB) models.Tenant {
	t.Helper()
	tenant := models.Tenant{ID: uuid.New(), Name: "Association " + uuid.NewString()[:8]}
	require.NoError(t, conn.Create(&tenant).Error)
	return tenant
}

// Cadet inserts an active cadet.
func Cadet(t testing.TB, conn *gorm.DB, tenantID uuid.UUID, first, last string) models.Cadet {
	t.Helper()
	cadet := models.Cadet{ID: uuid.New(), TenantID: tenantID, FirstName: first, LastName: last, Active: true}
	require.NoError(t, conn.Create(&cadet).Error)
	return cadet
}

// UniformType inserts a uniform type at the given position.
func UniformType(t testing.TB, conn *gorm.DB, tenantID uuid.UUID, name string, issuedDefault, position int) models.UniformType {
	t.Helper()
	ut := models.UniformType{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Name:          name,
		Acronym:       name[:1],
		IssuedDefault: issuedDefault,
		Position:      position,
	}
	require.NoError(t, conn.Create(&ut).Error)
	return ut
}

// Uniform inserts an active uniform part.
func Uniform(t testing.TB, conn *gorm.DB, typeID uuid.UUID, number int) models.Uniform {
	t.Helper()
	u := models.Uniform{ID: uuid.New(), UniformTypeID: typeID, Number: number, Active: true}
	require.NoError(t, conn.Create(&u).Error)
	return u
}

// Issue opens an issuance of uniformID for cadetID.
func Issue(t testing.TB, conn *gorm.DB, uniformID, cadetID uuid.UUID) models.UniformIssuance {
	t.Helper()
	rec := models.UniformIssuance{ID: uuid.New(), UniformID: uniformID, CadetID: cadetID, IssuedAt: time.Now().UTC()}
	require.NoError(t, conn.Create(&rec).Error)
	return rec
}

// MaterialGroup inserts a material group at the given position.
func MaterialGroup(t testing.TB, conn *gorm.DB, tenantID uuid.UUID, name string, position int) models.MaterialGroup {
	t.Helper()
	g := models.MaterialGroup{ID: uuid.New(), TenantID: tenantID, Name: name, Position: position}
	require.NoError(t, conn.Create(&g).Error)
	return g
}

// Material inserts a material at the given position of its group.
func Material(t testing.TB, conn *gorm.DB, groupID uuid.UUID, name string, position int) models.Material {
	t.Helper()
	m := models.Material{ID: uuid.New(), MaterialGroupID: groupID, Name: name, Position: position}
	require.NoError(t, conn.Create(&m).Error)
	return m
}

// Inspection inserts an inspection on the given date.
func Inspection(t testing.TB, conn *gorm.DB, tenantID uuid.UUID, date time.Time, active bool) models.Inspection {
	t.Helper()
	insp := models.Inspection{ID: uuid.New(), TenantID: tenantID, Name: "Inspection " + date.Format("2006-01-02"), Date: date, Active: active}
	require.NoError(t, conn.Create(&insp).Error)
	return insp
}
