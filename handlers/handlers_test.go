package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"vip-passport/middleware"
	"vip-passport/models"
	"vip-passport/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const adminToken = "admin-token-value"

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	auth     *services.AuthService
	users    *services.UserService
	missions *services.MissionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := models.Open("sqlite", filepath.Join(t.TempDir(), "api.db"), gormlogger.Discard)
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	users := services.NewUserService(db, log)
	auth := services.NewAuthService(users, services.AuthConfig{
		JWTSecret: "0123456789abcdef0123",
		TokenTTL:  time.Hour,
	}, log)
	missions := services.NewMissionService(db, log)
	intake := services.NewIntakeService(db, log, nil)
	approvals := services.NewApprovalService(db, services.NewRewardLedger(), services.NewNotificationRecorder(), log, nil)

	app := fiber.New()
	api := app.Group("/api/v1")
	requireUser := middleware.UserContextMiddleware(auth, users)
	requireAdmin := middleware.RequireAdmin(middleware.AdminCredentials{
		Username: "admin", Password: "secret", Token: adminToken,
	}, auth, users, log)

	SetupAuthRoutes(api, auth)
	SetupProfileRoutes(api, requireUser, users)
	SetupSubmissionRoutes(api, requireUser, intake, nil)
	SetupMissionRoutes(api, requireUser, missions, approvals)
	SetupAdminRoutes(api, requireAdmin, AdminServices{
		Users: users, Intake: intake, Approvals: approvals, Missions: missions,
	})

	return &testEnv{app: app, db: db, auth: auth, users: users, missions: missions}
}

// login creates a user for telegramID and returns a bearer header value.
func (e *testEnv) login(t *testing.T, telegramID int64) (*models.User, string) {
	t.Helper()
	u, err := e.users.FindOrCreateByTelegram(context.Background(), telegramID)
	require.NoError(t, err)
	token, err := e.auth.IssueToken(u.ID)
	require.NoError(t, err)
	return u, "Bearer " + token
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

var displayBody = map[string]any{
	"brand":             "Acme",
	"location_desc":     "Entrance",
	"display_image_url": "https://cdn.example/d.jpg",
}

func TestSubmissionRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.do(t, http.MethodPost, "/api/v1/display", displayBody, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.NotEmpty(t, body["error"])

	status, _ = env.do(t, http.MethodPost, "/api/v1/display", displayBody, map[string]string{"Authorization": "Bearer junk"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDisplayFlowThroughAdminApproval(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerAuth := env.login(t, 10)
	_, otherAuth := env.login(t, 11)

	_, err := env.missions.CreateMission(context.Background(), services.MissionInput{
		Code: "SHELF", Title: "Shelf", Type: models.MissionTypeDisplay, RewardPoints: 50, RewardStamps: 3,
	})
	require.NoError(t, err)

	status, body := env.do(t, http.MethodPost, "/api/v1/display", displayBody, map[string]string{"Authorization": ownerAuth})
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, body["mission_log_id"])
	sub := body["submission"].(map[string]any)
	id := sub["id"].(string)
	assert.Equal(t, "PENDING", sub["status"])

	status, _ = env.do(t, http.MethodGet, "/api/v1/display/"+id, nil, map[string]string{"Authorization": ownerAuth})
	assert.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodGet, "/api/v1/display/"+id, nil, map[string]string{"Authorization": otherAuth})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, http.MethodGet, "/api/v1/display/not-a-uuid", nil, map[string]string{"Authorization": ownerAuth})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/admin/displays/"+id+"/approve", nil, map[string]string{"Authorization": otherAuth})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = env.do(t, http.MethodPost, "/api/v1/admin/displays/"+id+"/approve", nil, map[string]string{"X-Admin-Token": adminToken})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "APPROVED", body["mission_log"].(map[string]any)["status"])

	status, _ = env.do(t, http.MethodPost, "/api/v1/admin/displays/"+id+"/approve", nil, map[string]string{"X-Admin-Token": adminToken})
	assert.Equal(t, http.StatusConflict, status)

	status, body = env.do(t, http.MethodGet, "/api/v1/dashboard", nil, map[string]string{"Authorization": ownerAuth})
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 50, body["total_points"])
	assert.EqualValues(t, 1, body["total_stamps"])
	assert.Equal(t, owner.ID, body["user"].(map[string]any)["id"])
}

func TestAdminBasicAuthAndReject(t *testing.T) {
	env := newTestEnv(t)
	_, userAuth := env.login(t, 20)

	status, body := env.do(t, http.MethodPost, "/api/v1/referral", map[string]any{
		"store_name": "Corner", "manager_name": "Sam", "phone": "+1", "city": "Rasht",
	}, map[string]string{"Authorization": userAuth})
	require.Equal(t, http.StatusCreated, status)
	assert.Nil(t, body["mission_log_id"])
	id := body["submission"].(map[string]any)["id"].(string)

	basic := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	wrong := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:nope"))

	status, _ = env.do(t, http.MethodPost, "/api/v1/admin/referrals/"+id+"/reject", nil, map[string]string{"Authorization": wrong})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = env.do(t, http.MethodPost, "/api/v1/admin/referrals/"+id+"/reject",
		map[string]any{"admin_note": "duplicate"}, map[string]string{"Authorization": basic})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "REJECTED", body["submission"].(map[string]any)["status"])

	status, _ = env.do(t, http.MethodPost, "/api/v1/admin/referrals/"+id+"/mark-first-purchase", nil, map[string]string{"Authorization": basic})
	assert.Equal(t, http.StatusConflict, status)
}

func TestMissionAdminAndStart(t *testing.T) {
	env := newTestEnv(t)
	_, userAuth := env.login(t, 30)
	admin := map[string]string{"X-Admin-Token": adminToken}

	status, body := env.do(t, http.MethodPost, "/api/v1/admin/missions", map[string]any{
		"title": "Product Launch", "type": "LAUNCH", "reward_points": 20,
	}, admin)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "PRODUCT_LAUNCH", body["code"])
	missionID := body["id"].(string)

	status, _ = env.do(t, http.MethodPost, "/api/v1/admin/missions", map[string]any{"title": "Bad", "type": "NOPE"}, admin)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodPost, "/api/v1/missions/"+missionID+"/start", nil, map[string]string{"Authorization": userAuth})
	require.Equal(t, http.StatusCreated, status)
	logID := body["id"].(string)

	status, _ = env.do(t, http.MethodPost, "/api/v1/missions/"+missionID+"/start", nil, map[string]string{"Authorization": userAuth})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/admin/missions/"+missionID+"/approve/"+logID, nil, admin)
	assert.Equal(t, http.StatusOK, status)

	status, body = env.do(t, http.MethodPatch, "/api/v1/admin/missions/"+missionID+"/deactivate", nil, admin)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["is_active"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/missions", nil)
	req.Header.Set("Authorization", userAuth)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var views []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	assert.Empty(t, views)
}

func TestUploadsDisabledWithoutStore(t *testing.T) {
	env := newTestEnv(t)
	_, userAuth := env.login(t, 40)
	status, _ := env.do(t, http.MethodPost, "/api/v1/uploads/evidence", nil, map[string]string{"Authorization": userAuth})
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestProfileComplete(t *testing.T) {
	env := newTestEnv(t)
	_, userAuth := env.login(t, 50)

	status, body := env.do(t, http.MethodPost, "/api/v1/profile/complete", map[string]any{
		"store_name": "Rose Market", "city": "Tabriz",
	}, map[string]string{"Authorization": userAuth})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Rose Market", body["store_name"])
	assert.NotNil(t, body["vip_since"])

	status, body = env.do(t, http.MethodGet, "/api/v1/profile/me", nil, map[string]string{"Authorization": userAuth})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Tabriz", body["city"])
}
