package services

import (
	"errors"
	"testing"

	"vip-passport/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreateByTelegramIsIdempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.users.FindOrCreateByTelegram(f.ctx, 777)
	require.NoError(t, err)
	second, err := f.users.FindOrCreateByTelegram(f.ctx, 777)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, f.count(t, &models.User{}, "telegram_id = ?", 777))

	_, err = f.users.FindOrCreateByTelegram(f.ctx, 0)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestCompleteProfileSetsVIPSinceOnce(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, 778)

	updated, err := f.users.CompleteProfile(f.ctx, u.ID, ProfileInput{StoreName: ptr(" Corner Shop "), City: ptr("Shiraz")})
	require.NoError(t, err)
	require.NotNil(t, updated.VIPSince)
	assert.Equal(t, "Corner Shop", *updated.StoreName)
	since := *updated.VIPSince

	again, err := f.users.CompleteProfile(f.ctx, u.ID, ProfileInput{Phone: ptr("+98")})
	require.NoError(t, err)
	assert.True(t, since.Equal(*again.VIPSince))

	var stored models.User
	f.reload(t, &stored, u.ID)
	assert.Equal(t, "Corner Shop", *stored.StoreName)
	assert.Equal(t, "+98", *stored.Phone)
	require.NotNil(t, stored.VIPSince)
	assert.True(t, since.Equal(*stored.VIPSince))
	assert.True(t, f.db.Migrator().HasColumn(&models.User{}, "vip_since"))
	assert.Equal(t, "Shiraz", *stored.City)

	_, err = f.users.CompleteProfile(f.ctx, "00000000-0000-0000-0000-000000000000", ProfileInput{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, 779)
	f.mission(t, "SHELF", models.MissionTypeDisplay, 50, 3)
	launch := f.mission(t, "LAUNCH", models.MissionTypeLaunch, 20, 2)
	f.mission(t, "TEST", models.MissionTypeProductTest, 0, 0)

	res := submitDisplay(t, f, u.ID)
	_, err := f.approvals.Approve(f.ctx, models.KindDisplay, res.Submission.GetID())
	require.NoError(t, err)

	entry, err := f.approvals.StartMission(f.ctx, u.ID, launch.ID)
	require.NoError(t, err)
	_, err = f.approvals.ApproveMissionLog(f.ctx, launch.ID, entry.ID)
	require.NoError(t, err)

	submitDisplay(t, f, u.ID)

	d, err := f.users.Dashboard(f.ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 70, d.TotalPoints)
	assert.EqualValues(t, 2, d.TotalStamps)
	assert.EqualValues(t, 5, d.StampValue)
	assert.Len(t, d.StampRecords, 2)
	assert.EqualValues(t, 2, d.MissionsApproved)
	assert.EqualValues(t, 1, d.MissionsPending)
	assert.Zero(t, d.MissionsRejected)

	notes, err := f.users.Notifications(f.ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestSearchUsers(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, 1)
	f.user(t, 2)
	_, err := f.users.CompleteProfile(f.ctx, a.ID, ProfileInput{StoreName: ptr("Golden Bakery")})
	require.NoError(t, err)

	all, err := f.users.SearchUsers(f.ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := f.users.SearchUsers(f.ctx, "bakery", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)
}
