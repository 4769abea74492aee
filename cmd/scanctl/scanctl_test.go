package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirphl/qrtrack/app/dto"
	"github.com/amirphl/qrtrack/app/services"
	businessflow "github.com/amirphl/qrtrack/business_flow"
	"github.com/amirphl/qrtrack/config"
	"github.com/amirphl/qrtrack/models"
	"github.com/amirphl/qrtrack/repository"
	testingutil "github.com/amirphl/qrtrack/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type cliEnv struct {
	db       *testingutil.TestDB
	fixtures *testingutil.TestFixtures
	cfg      *config.ProductionConfig
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	testDB, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = testDB.TeardownTestDB() })

	cfg := &config.ProductionConfig{
		Database:    config.DatabaseConfig{Driver: "sqlite", SQLitePath: testDB.Name},
		Cache:       config.CacheConfig{RedisPrefix: "test:"},
		Maintenance: config.MaintenanceConfig{LockTTL: time.Minute},
		JWT: config.JWTConfig{
			SecretKey:      testSecret,
			AccessTokenTTL: time.Hour,
			Issuer:         "qrtrack",
			Audience:       "qrtrack-admin",
		},
	}
	return &cliEnv{db: testDB, fixtures: testingutil.NewTestFixtures(testDB), cfg: cfg}
}

func (e *cliEnv) opener() appOpener {
	return func(ctx context.Context) (*cliApp, error) {
		return newCLIApp(e.cfg, e.db.DB, nil, nil), nil
	}
}

// openWith builds the app around the given QR repository and maintenance locker
func (e *cliEnv) openWith(qrRepo repository.QRCodeRepository, locker businessflow.MaintenanceLocker) appOpener {
	return func(ctx context.Context) (*cliApp, error) {
		scanRepo := repository.NewScanRepository(e.db.DB)
		return &cliApp{
			Config:    e.cfg,
			DB:        e.db.DB,
			Drift:     businessflow.NewDriftFlow(qrRepo, scanRepo),
			Reconcile: businessflow.NewReconcileFlow(qrRepo, scanRepo, e.db.DB, locker),
		}, nil
	}
}

// lateScanRepo inserts a scan right before the verify pass of a reconcile
type lateScanRepo struct {
	repository.QRCodeRepository
	onVerify func()
	calls    atomic.Int32
}

func (r *lateScanRepo) DriftRecords(ctx context.Context, shortCode *string) ([]*models.DriftRecord, error) {
	if r.calls.Add(1) == 2 {
		r.onVerify()
	}
	return r.QRCodeRepository.DriftRecords(ctx, shortCode)
}

func (e *cliEnv) seed(t *testing.T, code string, scans int, cached int64) uint {
	t.Helper()
	qr, err := e.fixtures.CreateTestQRCode(code)
	require.NoError(t, err)
	if scans > 0 {
		require.NoError(t, e.fixtures.CreateTestScans(qr.ID, scans, qr.CreatedAt))
	}
	require.NoError(t, e.fixtures.SetTotalScans(qr.ID, cached))
	return qr.ID
}

func (e *cliEnv) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr, e.opener())
	return code, stdout.String(), stderr.String()
}

func TestCheckClean(t *testing.T) {
	env := newCLIEnv(t)
	env.seed(t, "clean1", 2, 2)

	code, out, _ := env.run(t, "check", "--fail-on-drift")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "all counters match recorded scans")
	assert.Contains(t, out, "discrepancy: +0.00%")
}

func TestCheckReportsDrift(t *testing.T) {
	env := newCLIEnv(t)
	id := env.seed(t, "abc123", 5, 3)

	code, out, _ := env.run(t, "check")
	assert.Equal(t, exitOK, code, "drift alone is not a failure without --fail-on-drift")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "+2")
	assert.Contains(t, out, "1 counters would be rewritten")

	code, _, _ = env.run(t, "check", "--fail-on-drift")
	assert.Equal(t, exitDrifted, code)

	total, err := env.fixtures.TotalScans(id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total, "check never writes")
}

func TestCheckJSON(t *testing.T) {
	env := newCLIEnv(t)
	env.seed(t, "json01", 4, 1)
	env.seed(t, "json02", 0, 0)

	code, out, _ := env.run(t, "check", "--json")
	require.Equal(t, exitOK, code)

	var parsed checkOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	require.NotNil(t, parsed.Report)
	assert.Len(t, parsed.Report.Records, 2)
	assert.Equal(t, int64(1), parsed.Report.Totals.DriftedCodes)
	require.NotNil(t, parsed.Plan)
	assert.Equal(t, businessflow.OutcomeDryRun, parsed.Plan.Outcome)
	require.Len(t, parsed.Plan.Changes, 1)
	assert.Equal(t, int64(3), parsed.Plan.Changes[0].Delta)
}

func TestCheckSingleCode(t *testing.T) {
	env := newCLIEnv(t)
	env.seed(t, "single", 1, 1)
	env.seed(t, "other1", 3, 0)

	code, out, _ := env.run(t, "check", "--short-code", "single", "--json")
	require.Equal(t, exitOK, code)
	var parsed checkOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	require.Len(t, parsed.Report.Records, 1)
	assert.Nil(t, parsed.Plan)

	code, _, stderr := env.run(t, "check", "--short-code", "missing")
	assert.Equal(t, exitFatal, code)
	assert.Contains(t, stderr, "not found")
}

func TestFix(t *testing.T) {
	env := newCLIEnv(t)
	a := env.seed(t, "fix001", 5, 3)
	b := env.seed(t, "fix002", 0, 2)

	code, out, _ := env.run(t, "fix", "--dry-run")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Reconcile dry_run")
	total, err := env.fixtures.TotalScans(a)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	code, out, _ = env.run(t, "fix")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Reconcile reconciled")
	assert.Contains(t, out, "planned: 2  applied: 2")
	assert.Contains(t, out, "after:  0 drifted codes")

	total, err = env.fixtures.TotalScans(a)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	total, err = env.fixtures.TotalScans(b)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	code, out, _ = env.run(t, "fix", "--json")
	require.Equal(t, exitOK, code)
	var res dto.ReconcileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, businessflow.OutcomeNoChanges, res.Outcome)
}

func TestMigrate(t *testing.T) {
	env := newCLIEnv(t)
	code, out, _ := env.run(t, "migrate")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "schema up to date (sqlite")
}

func TestToken(t *testing.T) {
	env := newCLIEnv(t)

	code, out, _ := env.run(t, "token", "--admin-id", "7", "--json")
	require.Equal(t, exitOK, code)
	var issued dto.IssueAdminTokenResponse
	require.NoError(t, json.Unmarshal([]byte(out), &issued))
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.Equal(t, 3600, issued.ExpiresIn)

	tokens, err := services.NewTokenService(time.Hour, "qrtrack", "qrtrack-admin", false, "", "", testSecret)
	require.NoError(t, err)
	claims, err := tokens.ValidateAdminToken(issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.AdminID)

	code, out, _ = env.run(t, "token")
	require.Equal(t, exitOK, code)
	assert.Equal(t, 3, len(strings.Split(strings.TrimSpace(out), ".")), "raw output is a bare JWT")
}

func TestOpenFailureIsFatal(t *testing.T) {
	var stdout, stderr bytes.Buffer
	failing := func(ctx context.Context) (*cliApp, error) {
		return nil, errors.New("connection refused")
	}
	code := Execute(context.Background(), []string{"check"}, &stdout, &stderr, failing)
	assert.Equal(t, exitFatal, code)
	assert.Contains(t, stderr.String(), "connection refused")
}

func TestUnknownCommand(t *testing.T) {
	env := newCLIEnv(t)
	code, _, stderr := env.run(t, "frobnicate")
	assert.Equal(t, exitFatal, code)
	assert.Contains(t, stderr, "unknown command")
}

func TestFixResidualDriftExitsTwo(t *testing.T) {
	env := newCLIEnv(t)
	id := env.seed(t, "race02", 5, 3)

	repo := &lateScanRepo{
		QRCodeRepository: repository.NewQRCodeRepository(env.db.DB),
		onVerify: func() {
			require.NoError(t, env.fixtures.CreateTestScans(id, 1, time.Now().UTC()))
		},
	}
	locker := businessflow.NewMaintenanceLocker(nil, "test:", time.Minute)

	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"fix"}, &stdout, &stderr, env.openWith(repo, locker))
	assert.Equal(t, exitDrifted, code)
	assert.Contains(t, stdout.String(), "Reconcile residual_drift")
	assert.Contains(t, stdout.String(), "warning: RESIDUAL_DRIFT race02")
}

func TestCheckWhileReconcileRuns(t *testing.T) {
	env := newCLIEnv(t)
	env.seed(t, "busy01", 3, 1)

	locker := businessflow.NewMaintenanceLocker(nil, "test:", time.Minute)
	release, err := locker.TryLock(context.Background())
	require.NoError(t, err)
	defer release()

	open := env.openWith(repository.NewQRCodeRepository(env.db.DB), locker)

	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"check", "--json"}, &stdout, &stderr, open)
	require.Equal(t, exitOK, code, stderr.String())
	var parsed checkOutput
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &parsed))
	require.NotNil(t, parsed.Plan)
	assert.Len(t, parsed.Plan.Changes, 1)

	stdout.Reset()
	stderr.Reset()
	code = Execute(context.Background(), []string{"fix"}, &stdout, &stderr, open)
	assert.Equal(t, exitFatal, code)
	assert.Contains(t, stderr.String(), "another maintenance run is in progress")
}
