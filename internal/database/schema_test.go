package database

import (
	"context"
	"testing"
	"testing/fstest"

	"devflow/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestPlanSchema(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"hybrid default in development", config.Config{Env: "development"}, true, true, false},
		{"hybrid in production skips automigrate", config.Config{Env: "production", DBSchemaMode: "hybrid"}, true, false, false},
		{"sql only", config.Config{Env: "development", DBSchemaMode: "SQL"}, true, false, false},
		{"auto refused in staging", config.Config{Env: "staging", DBSchemaMode: "auto"}, false, false, true},
		{"auto allowed with override", config.Config{Env: "prod", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true}, false, true, false},
		{"unknown mode", config.Config{DBSchemaMode: "yolo"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanSchema(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, plan.RunSQL)
			assert.Equal(t, tt.wantAuto, plan.RunAutoMigrate)
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)
	first := GetMigrationByVersion(1)
	require.NotNil(t, first)
	assert.Equal(t, "000001_qa_core", first.String())
	assert.Contains(t, first.UpScript, "idx_vote_author_target")
	assert.Contains(t, first.DownScript, "DROP TABLE IF EXISTS questions")
}

func TestValidateAppliedVersions(t *testing.T) {
	assert.NoError(t, validateAppliedVersions([]int{1}, GetMigrations()))
	assert.Error(t, validateAppliedVersions([]int{1, 99}, GetMigrations()))
}

func testMigrations(t *testing.T) []Migration {
	t.Helper()
	fsys := fstest.MapFS{
		"m/000001_badges.up.sql":   {Data: []byte("CREATE TABLE badges (id INTEGER PRIMARY KEY, name TEXT NOT NULL);")},
		"m/000001_badges.down.sql": {Data: []byte("DROP TABLE badges;")},
		"m/000002_awards.up.sql":   {Data: []byte("CREATE TABLE awards (id INTEGER PRIMARY KEY, badge_id INTEGER NOT NULL);")},
		"m/000002_awards.down.sql": {Data: []byte("DROP TABLE awards;")},
		"m/notes.txt":              {Data: []byte("ignored")},
		"m/badname.up.sql":         {Data: []byte("SELECT 1;")},
		"m/000003_broken.down.sql": {Data: []byte("SELECT 1;")},
	}
	set, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, set, 2)
	return set
}

// openMigrationDB pins the pool to one connection so transactions see the
// same in-memory database.
func openMigrationDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestMigrator_UpDown(t *testing.T) {
	db := openMigrationDB(t)
	ctx := context.Background()
	m := NewMigrator(db, testMigrations(t))

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	n, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, db.Migrator().HasTable("awards"))

	n, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "second run is a no-op")

	assert.Error(t, m.Down(ctx, 1), "only the latest migration can be reverted")
	assert.Error(t, m.Down(ctx, 7), "unknown version")

	require.NoError(t, m.Down(ctx, 2))
	assert.False(t, db.Migrator().HasTable("awards"))

	pending, err := m.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)
}

func TestMigrator_RejectsUnknownLedgerVersions(t *testing.T) {
	db := openMigrationDB(t)
	ctx := context.Background()

	set := testMigrations(t)
	_, err := NewMigrator(db, set).Up(ctx)
	require.NoError(t, err)

	_, err = NewMigrator(db, set[:1]).Pending(ctx)
	assert.ErrorContains(t, err, "000002")
}
