package services

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"vip-passport/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open("sqlite", filepath.Join(t.TempDir(), "engine.db"), gormlogger.Discard)
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection makes concurrent transactions queue instead of failing with SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fixture struct {
	ctx       context.Context
	db        *gorm.DB
	metrics   *Metrics
	users     *UserService
	missions  *MissionService
	intake    *IntakeService
	approvals *ApprovalService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	log := testLogger()
	metrics := NewMetrics()

	f := &fixture{
		ctx:       context.Background(),
		db:        db,
		metrics:   metrics,
		users:     NewUserService(db, log),
		missions:  NewMissionService(db, log),
		intake:    NewIntakeService(db, log, metrics),
		approvals: NewApprovalService(db, NewRewardLedger(), NewNotificationRecorder(), log, metrics),
	}
	clock := func() time.Time { return testNow }
	f.missions.Now = clock
	f.intake.Now = clock
	f.approvals.Now = clock
	return f
}

func (f *fixture) user(t *testing.T, telegramID int64) *models.User {
	t.Helper()
	u, err := f.users.FindOrCreateByTelegram(f.ctx, telegramID)
	require.NoError(t, err)
	return u
}

type missionOpt func(*models.Mission)

func window(start, end *time.Time) missionOpt {
	return func(m *models.Mission) { m.StartAt, m.EndAt = start, end }
}

func inactive() missionOpt {
	return func(m *models.Mission) { m.IsActive = false }
}

func (f *fixture) mission(t *testing.T, code string, typ models.MissionType, points, stamps int64, opts ...missionOpt) *models.Mission {
	t.Helper()
	m := &models.Mission{IsActive: true}
	for _, o := range opts {
		o(m)
	}
	active := m.IsActive
	created, err := f.missions.CreateMission(f.ctx, MissionInput{
		Code:         code,
		Title:        code,
		Description:  "test mission",
		Type:         typ,
		RewardPoints: points,
		RewardStamps: stamps,
		StartAt:      m.StartAt,
		EndAt:        m.EndAt,
		IsActive:     &active,
	})
	require.NoError(t, err)
	return created
}

func (f *fixture) reload(t *testing.T, dst any, id string) {
	t.Helper()
	require.NoError(t, f.db.First(dst, "id = ?", id).Error)
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func ptr[T any](v T) *T { return &v }
