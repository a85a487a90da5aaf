package seed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"devflow/internal/database"
	"devflow/internal/models"
	"devflow/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := database.GormConfig()
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:seed_%s?mode=memory&cache=shared", name)), cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func TestPreset(t *testing.T) {
	for _, name := range []string{"small", "demo", "SMALL"} {
		p, err := Preset(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, p.Tags)
	}

	_, err := Preset("huge")
	assert.Error(t, err)
}

func TestParseProfile_Rejects(t *testing.T) {
	tests := map[string]string{
		"no users":     "users: 0\ntags: [go]\n",
		"no tags":      "users: 2\n",
		"long tag":     "users: 2\ntags: [averyveryverylongtag]\n",
		"negative":     "users: 2\nquestions: -1\ntags: [go]\n",
		"invalid yaml": "users: [\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProfile([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: tiny\nusers: 2\nquestions: 1\ntags: [go, sql]\n"), 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "tiny", p.Name)
	assert.Equal(t, []string{"go", "sql"}, p.Tags)
}

func TestFactory_BuildsValidInputs(t *testing.T) {
	f := NewFactory(7, []string{"go", "sql", "redis", "docker"})
	for range 50 {
		q := f.Question(1)
		require.NoError(t, validation.Struct(q), q.Title)
		assert.LessOrEqual(t, len(q.Tags), validation.MaxTags)
		require.NoError(t, validation.Struct(f.Answer(2, 1)))
	}
}

func TestRun_CountersMatchRows(t *testing.T) {
	db := newTestDB(t)
	p, err := Preset("small")
	require.NoError(t, err)

	report, err := NewSeeder(db, p).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p.Questions, report.Questions)

	var questions []models.Question
	require.NoError(t, db.Find(&questions).Error)
	require.Len(t, questions, p.Questions)

	answerSum := 0
	for _, q := range questions {
		answerSum += q.Answers

		var up, down int64
		require.NoError(t, db.Model(&models.Vote{}).
			Where("target_type = ? AND target_id = ? AND vote_type = ?", models.TargetQuestion, q.ID, models.VoteUp).
			Count(&up).Error)
		require.NoError(t, db.Model(&models.Vote{}).
			Where("target_type = ? AND target_id = ? AND vote_type = ?", models.TargetQuestion, q.ID, models.VoteDown).
			Count(&down).Error)
		assert.Equal(t, int(up), q.Upvotes, "question %d upvotes", q.ID)
		assert.Equal(t, int(down), q.Downvotes, "question %d downvotes", q.ID)
	}

	var answers int64
	require.NoError(t, db.Model(&models.Answer{}).Count(&answers).Error)
	assert.Equal(t, int64(report.Answers), answers)
	assert.Equal(t, int(answers), answerSum)

	var tags []models.Tag
	require.NoError(t, db.Find(&tags).Error)
	for _, tag := range tags {
		var links int64
		require.NoError(t, db.Model(&models.TagQuestion{}).Where("tag_id = ?", tag.ID).Count(&links).Error)
		assert.Equal(t, int(links), tag.Questions, "tag %s", tag.Name)
	}

	var saved int64
	require.NoError(t, db.Model(&models.SavedItem{}).Count(&saved).Error)
	assert.Equal(t, int64(report.Saves), saved)

	require.NoError(t, Clear(context.Background(), db))
	for _, m := range database.PersistentModels() {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Zero(t, n, "%T", m)
	}
}
