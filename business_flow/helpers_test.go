package businessflow_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/amirphl/qrtrack/app/services"
	businessflow "github.com/amirphl/qrtrack/business_flow"
	"github.com/amirphl/qrtrack/models"
	"github.com/amirphl/qrtrack/repository"
	testingutil "github.com/amirphl/qrtrack/testing"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected store failure")

type flowEnv struct {
	db       *testingutil.TestDB
	fixtures *testingutil.TestFixtures
	qrRepo   repository.QRCodeRepository
	scanRepo repository.ScanRepository
	cache    businessflow.DestinationCache
	ctx      context.Context
}

func newFlowEnv(t *testing.T) *flowEnv {
	t.Helper()
	testDB, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = testDB.TeardownTestDB() })

	qrRepo := repository.NewQRCodeRepository(testDB.DB)
	return &flowEnv{
		db:       testDB,
		fixtures: testingutil.NewTestFixtures(testDB),
		qrRepo:   qrRepo,
		scanRepo: repository.NewScanRepository(testDB.DB),
		cache:    businessflow.NewDestinationCache(qrRepo, nil, "test:", 0),
		ctx:      testingutil.CreateTestContext(),
	}
}

func (e *flowEnv) newScanFlow(t *testing.T) businessflow.ScanFlow {
	t.Helper()
	clientInfo, err := services.NewClientInfoService("")
	require.NoError(t, err)
	return businessflow.NewScanFlow(e.qrRepo, e.scanRepo, e.db.DB, e.cache, clientInfo)
}

func (e *flowEnv) newReconcileFlow(qrRepo repository.QRCodeRepository) businessflow.ReconcileFlow {
	if qrRepo == nil {
		qrRepo = e.qrRepo
	}
	return businessflow.NewReconcileFlow(qrRepo, e.scanRepo, e.db.DB, businessflow.NewMaintenanceLocker(nil, "test:", 0))
}

// seedCode creates a code with n scans and a forced cached counter
func (e *flowEnv) seedCode(t *testing.T, shortCode string, scans int, cached int64) *models.QRCode {
	t.Helper()
	qr, err := e.fixtures.CreateTestQRCode(shortCode)
	require.NoError(t, err)
	if scans > 0 {
		require.NoError(t, e.fixtures.CreateTestScans(qr.ID, scans, qr.CreatedAt))
	}
	require.NoError(t, e.fixtures.SetTotalScans(qr.ID, cached))
	return qr
}

func (e *flowEnv) totalScans(t *testing.T, id uint) int64 {
	t.Helper()
	v, err := e.fixtures.TotalScans(id)
	require.NoError(t, err)
	return v
}

func (e *flowEnv) countScans(t *testing.T, id uint) int64 {
	t.Helper()
	v, err := e.fixtures.CountScans(id)
	require.NoError(t, err)
	return v
}

// failingQRRepo fails SetTotalScans from the failOn-th call on
type failingQRRepo struct {
	repository.QRCodeRepository
	failOn int32
	calls  atomic.Int32
}

func (r *failingQRRepo) SetTotalScans(ctx context.Context, id uint, value int64) (bool, error) {
	if r.calls.Add(1) >= r.failOn {
		return false, errInjected
	}
	return r.QRCodeRepository.SetTotalScans(ctx, id, value)
}

// failingScanRepo fails every insert
type failingScanRepo struct {
	repository.ScanRepository
}

func (r *failingScanRepo) Save(ctx context.Context, scan *models.Scan) error {
	return errInjected
}

// fixedGenerator hands out the same codes in order, repeating the last one
type fixedGenerator struct {
	codes []string
	calls int
}

func (g *fixedGenerator) Generate() (string, error) {
	i := g.calls
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	g.calls++
	return g.codes[i], nil
}

type staticCache struct {
	dest *businessflow.Destination
}

func (c staticCache) Resolve(ctx context.Context, shortCode string) (*businessflow.Destination, error) {
	return c.dest, nil
}

func (c staticCache) Invalidate(ctx context.Context, shortCode string) {}

type panickingClientInfo struct{}

func (panickingClientInfo) ParseUserAgent(string) services.ClientDetails { panic("parser exploded") }
func (panickingClientInfo) Locate(string) services.GeoLocation           { return services.GeoLocation{} }
func (panickingClientInfo) Close() error                                 { return nil }

// lateScanQRRepo runs onCall before the n-th DriftRecords call, letting a test
// land a scan between the reconcile apply and its verify pass
type lateScanQRRepo struct {
	repository.QRCodeRepository
	n      int32
	onCall func()
	calls  atomic.Int32
}

func (r *lateScanQRRepo) DriftRecords(ctx context.Context, shortCode *string) ([]*models.DriftRecord, error) {
	if r.calls.Add(1) == r.n && r.onCall != nil {
		r.onCall()
	}
	return r.QRCodeRepository.DriftRecords(ctx, shortCode)
}
