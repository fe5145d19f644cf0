package services

import (
	"errors"
	"testing"
	"time"

	"vip-passport/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMissionCodeFromTitle(t *testing.T) {
	f := newFixture(t)

	m, err := f.missions.CreateMission(f.ctx, MissionInput{
		Title: "Spring Display Push", Type: models.MissionTypeDisplay, RewardPoints: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "SPRING_DISPLAY_PUSH", m.Code)
	assert.True(t, m.IsActive)

	m, err = f.missions.CreateMission(f.ctx, MissionInput{
		Code: " launch-q2 ", Title: "Q2", Type: models.MissionTypeLaunch,
	})
	require.NoError(t, err)
	assert.Equal(t, "LAUNCH-Q2", m.Code)

	_, err = f.missions.CreateMission(f.ctx, MissionInput{
		Title: "spring display push", Type: models.MissionTypeDisplay,
	})
	assert.True(t, errors.Is(err, ErrInvalidInput), "duplicate code")
}

func TestCreateMissionValidation(t *testing.T) {
	f := newFixture(t)
	start := testNow
	end := testNow.Add(-time.Hour)

	cases := map[string]MissionInput{
		"no title":       {Code: "X", Type: models.MissionTypeDisplay},
		"bad type":       {Title: "X", Type: "BOUNTY"},
		"negative":       {Title: "X", Type: models.MissionTypeDisplay, RewardPoints: -1},
		"inverted range": {Title: "X", Type: models.MissionTypeDisplay, StartAt: &start, EndAt: &end},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.missions.CreateMission(f.ctx, in)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestCreateInactiveMission(t *testing.T) {
	f := newFixture(t)
	m := f.mission(t, "DORMANT", models.MissionTypeDisplay, 5, 0, inactive())

	assert.False(t, m.IsActive)

	got, err := f.missions.GetMission(f.ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	match, err := f.missions.FindEligibleMission(f.ctx, models.MissionTypeDisplay, testNow)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestInactiveMissionIsNeverRewarded(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, 510)
	f.mission(t, "PAUSED", models.MissionTypeDisplay, 50, 2, inactive())

	res, err := f.intake.SubmitDisplay(f.ctx, u.ID, DisplayInput{
		Brand: "Acme", LocationDesc: "Aisle 1", DisplayImageURL: "https://cdn.example/p.jpg",
	})
	require.NoError(t, err)
	assert.Nil(t, res.MissionID)
	assert.Nil(t, res.MissionLogID)

	d, err := f.approvals.Approve(f.ctx, models.KindDisplay, res.Submission.GetID())
	require.NoError(t, err)
	assert.Nil(t, d.Mission)
	assert.Nil(t, d.Stamp)

	f.reload(t, u, u.ID)
	assert.EqualValues(t, 0, u.TotalPoints)
	assert.EqualValues(t, 0, f.count(t, &models.Stamp{}, "user_id = ?", u.ID))
}

func TestUpdateMissionClearsWindow(t *testing.T) {
	f := newFixture(t)
	start := testNow.Add(24 * time.Hour)
	end := testNow.Add(48 * time.Hour)
	m := f.mission(t, "LATER", models.MissionTypeLaunch, 5, 0, window(&start, &end))
	require.NotNil(t, m.StartAt)

	kept, err := f.missions.UpdateMission(f.ctx, m.ID, MissionPatch{Title: ptr("Later")})
	require.NoError(t, err)
	require.NotNil(t, kept.StartAt)
	require.NotNil(t, kept.EndAt)

	cleared, err := f.missions.UpdateMission(f.ctx, m.ID, MissionPatch{ClearStartAt: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.StartAt)
	require.NotNil(t, cleared.EndAt)

	got, err := f.missions.GetMission(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, got.StartAt)
	assert.True(t, got.IsEligibleAt(testNow))

	cleared, err = f.missions.UpdateMission(f.ctx, m.ID, MissionPatch{ClearEndAt: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.EndAt)
}

func TestUpdateAndToggleMission(t *testing.T) {
	f := newFixture(t)
	m := f.mission(t, "EDIT_ME", models.MissionTypePurchase, 5, 0)
	f.mission(t, "TAKEN", models.MissionTypePurchase, 5, 0)

	updated, err := f.missions.UpdateMission(f.ctx, m.ID, MissionPatch{
		Title:        ptr("Edited"),
		RewardPoints: ptr(int64(75)),
		IsActive:     ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Edited", updated.Title)
	assert.EqualValues(t, 75, updated.RewardPoints)
	assert.False(t, updated.IsActive)

	_, err = f.missions.UpdateMission(f.ctx, m.ID, MissionPatch{Code: ptr("taken")})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	toggled, err := f.missions.SetActive(f.ctx, m.ID, true)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	_, err = f.missions.SetActive(f.ctx, "00000000-0000-0000-0000-000000000000", true)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = f.missions.UpdateMission(f.ctx, "00000000-0000-0000-0000-000000000000", MissionPatch{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListForUserReportsStatus(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, 500)
	past := testNow.Add(-time.Hour)

	launch := f.mission(t, "A_LAUNCH", models.MissionTypeLaunch, 1, 0)
	f.mission(t, "B_TEST", models.MissionTypeProductTest, 1, 0)
	f.mission(t, "C_OLD", models.MissionTypeLaunch, 1, 0, window(nil, &past))
	f.mission(t, "D_OFF", models.MissionTypeLaunch, 1, 0, inactive())

	_, err := f.approvals.StartMission(f.ctx, u.ID, launch.ID)
	require.NoError(t, err)

	views, err := f.missions.ListForUser(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "A_LAUNCH", views[0].Code)
	assert.Equal(t, "PENDING", views[0].UserStatus)
	assert.Equal(t, "B_TEST", views[1].Code)
	assert.Equal(t, UserStatusNone, views[1].UserStatus)

	logs, err := f.missions.ListLogs(f.ctx, launch.ID, models.MissionStatusPending)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SUMMER_SALE_2026", normalizeCode("", "Summer Sale 2026!"))
	assert.Equal(t, "ABC", normalizeCode(" abc ", "ignored"))
	assert.Equal(t, "", normalizeCode("", "   "))
}
