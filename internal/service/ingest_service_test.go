package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/cache"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/memory"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/observability"
	"github.com/yolokazi-cloud/MarketingApp1/internal/infra/resilience"
	"github.com/yolokazi-cloud/MarketingApp1/internal/ingest"
	"github.com/yolokazi-cloud/MarketingApp1/internal/port"
	"github.com/yolokazi-cloud/MarketingApp1/internal/service"
)

// --- Fakes ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.UploadEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.UploadEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type recordingArchiver struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (a *recordingArchiver) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *recordingArchiver) Archive(_ context.Context, kind domain.RecordKind, versionID, fileName string, _ []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return "mem://" + string(kind) + "/" + versionID + "/" + fileName, nil
}

// faultyStore fails selected writes on top of the memory store.
type faultyStore struct {
	*memory.Store
	failInsert    bool
	duplicateOnce bool
}

func (s *faultyStore) InsertActuals(ctx context.Context, recs []domain.ActualRecord) error {
	if s.failInsert {
		if len(recs) > 0 {
			_ = s.Store.InsertActuals(ctx, recs[:1])
		}
		return errors.New("write timeout")
	}
	return s.Store.InsertActuals(ctx, recs)
}

func (s *faultyStore) CreateVersion(ctx context.Context, v *domain.UploadVersion) error {
	if s.duplicateOnce {
		s.duplicateOnce = false
		taken := *v
		taken.ID = "concurrent-" + v.ID
		if err := s.Store.CreateVersion(ctx, &taken); err != nil {
			return err
		}
		return &domain.ErrDuplicate{Key: "taken"}
	}
	return s.Store.CreateVersion(ctx, v)
}

// overlapStore flags actuals writes that run at the same time.
type overlapStore struct {
	*memory.Store
	active  atomic.Int32
	overlap atomic.Bool
}

func (s *overlapStore) enter() func() {
	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	return func() { s.active.Add(-1) }
}

func (s *overlapStore) CreateVersion(ctx context.Context, v *domain.UploadVersion) error {
	defer s.enter()()
	return s.Store.CreateVersion(ctx, v)
}

func (s *overlapStore) DeleteVersion(ctx context.Context, kind domain.RecordKind, id string) error {
	defer s.enter()()
	return s.Store.DeleteVersion(ctx, kind, id)
}

func (s *overlapStore) InsertActuals(ctx context.Context, recs []domain.ActualRecord) error {
	defer s.enter()()
	return s.Store.InsertActuals(ctx, recs)
}

func (s *overlapStore) DeleteAllActuals(ctx context.Context) error {
	defer s.enter()()
	return s.Store.DeleteAllActuals(ctx)
}

type fixture struct {
	store     port.Store
	ingest    *service.IngestService
	budget    *service.BudgetService
	publisher *recordingPublisher
	archiver  *recordingArchiver
	metrics   *observability.Metrics
}

func newFixture(t *testing.T, store port.Store) *fixture {
	t.Helper()
	if store == nil {
		store = memory.NewStore()
	}
	if err := service.SeedReference(context.Background(), store, zap.NewNop()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	c := cache.New[domain.BudgetReport](5 * time.Minute)
	t.Cleanup(c.Close)
	metrics := observability.NewMetrics()
	pub := &recordingPublisher{}
	arch := &recordingArchiver{}
	ingestSvc := service.NewIngestService(store, ingest.NewPipeline(zap.NewNop()), pub, arch, c,
		resilience.NewBulkhead(2), metrics, zap.NewNop())
	return &fixture{
		store:     store,
		ingest:    ingestSvc,
		budget:    service.NewBudgetService(store, c, metrics, zap.NewNop()),
		publisher: pub,
		archiver:  arch,
		metrics:   metrics,
	}
}

func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

var actualHeader = []any{"Category", "Cost Center", "Date", "Account entry description", "Main Account", "Main Account Name", "Amount", "Party Name", "Document Description"}

// actualsWorkbook builds one data row per amount for cost center 14152001.
func actualsWorkbook(t *testing.T, doc string, amounts ...string) []byte {
	t.Helper()
	rows := [][]any{actualHeader}
	for _, a := range amounts {
		rows = append(rows, []any{"Consulting", 14152001, "2025-03-15", "entry", "730007", "Exp Consultancy Other", a, "Acme", doc})
	}
	return buildWorkbook(t, rows)
}

func actualsByVersion(t *testing.T, store port.Store) map[string]int {
	t.Helper()
	recs, err := store.ListActuals(context.Background())
	if err != nil {
		t.Fatalf("list actuals: %v", err)
	}
	out := make(map[string]int)
	for _, r := range recs {
		out[r.VersionID]++
	}
	return out
}

// --- Tests ---

func TestUpload_AssignsSequentialVersions(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	for i, amounts := range [][]string{{"10"}, {"20", "30"}, {"40", "50", "60"}} {
		res, err := fx.ingest.Upload(ctx, domain.KindActuals, "actuals.xlsx", actualsWorkbook(t, "v", amounts...))
		if err != nil {
			t.Fatalf("upload %d: %v", i+1, err)
		}
		if res.VersionNumber != i+1 {
			t.Errorf("expected version %d, got %d", i+1, res.VersionNumber)
		}
		if res.Inserted != len(amounts) {
			t.Errorf("expected %d inserted, got %d", len(amounts), res.Inserted)
		}
	}

	versions, err := fx.ingest.ListVersions(ctx, domain.KindActuals)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 3 || versions[0].VersionNumber != 3 || versions[2].VersionNumber != 1 {
		t.Errorf("expected versions newest first, got %+v", versions)
	}
	if versions[0].Rows != nil {
		t.Error("expected version summaries without rows")
	}
	if len(fx.publisher.events) != 3 || fx.publisher.events[2].Type != domain.EventUploadCreated {
		t.Errorf("expected 3 upload events, got %+v", fx.publisher.events)
	}
	if n := fx.archiver.count(); n != 3 {
		t.Errorf("expected 3 archived files, got %d", n)
	}
}

func TestUpload_SuccessMessageAndCorrections(t *testing.T) {
	fx := newFixture(t, nil)

	data := buildWorkbook(t, [][]any{
		{"Category", "Cost Center", "Date", "Account entry description", "Mian Account", "Main Account Name", "Amount", "Party Name", "Document Description"},
		{"Travel", 14152001, "2025-03-01", "", "730007", "", "(1,000)", "", ""},
		{"Travel", "", "2025-03-01", "", "730007", "", "5", "", ""},
	})

	res, err := fx.ingest.Upload(context.Background(), domain.KindActuals, "a.xlsx", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "Successfully uploaded and processed 1 records. Saved as version 1." {
		t.Errorf("unexpected message %q", res.Message)
	}
	if res.Dropped != 1 {
		t.Errorf("expected 1 dropped row, got %d", res.Dropped)
	}
	if len(res.Corrections) != 1 {
		t.Errorf("expected 1 header correction, got %v", res.Corrections)
	}

	version, err := fx.ingest.GetVersion(context.Background(), domain.KindActuals, res.VersionID)
	if err != nil {
		t.Fatalf("get version: %v", err)
	}
	if _, ok := version.Rows[0]["Main Account"]; !ok {
		t.Errorf("expected snapshot under corrected header, got %v", version.Rows[0])
	}
	if version.ArchiveURI == "" {
		t.Error("expected archive uri on version")
	}
}

func TestUpload_ValidationFailureStoresNothing(t *testing.T) {
	fx := newFixture(t, nil)

	data := buildWorkbook(t, [][]any{
		actualHeader,
		{"Travel", 14152001, "not a date", "", "730007", "", "abc", "", ""},
	})

	_, err := fx.ingest.Upload(context.Background(), domain.KindActuals, "bad.xlsx", data)
	var vf *domain.ErrValidationFailed
	if !errors.As(err, &vf) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if len(vf.Errors) != 1 {
		t.Errorf("expected one row error, got %v", vf.Errors)
	}

	versions, _ := fx.store.ListVersions(context.Background(), domain.KindActuals, false)
	if len(versions) != 0 {
		t.Errorf("expected no versions, got %d", len(versions))
	}
	if fx.archiver.count() != 0 {
		t.Error("expected rejected upload not to be archived")
	}
	if got := fx.metrics.GetIngestionSnapshot().RejectedUploads[domain.KindActuals]; got != 1 {
		t.Errorf("expected 1 rejected upload, got %d", got)
	}
}

func TestUpload_RejectsEmptyAndInvalidFiles(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.ingest.Upload(context.Background(), domain.KindActuals, "empty.xlsx", nil)
	var empty *domain.ErrUploadEmpty
	if !errors.As(err, &empty) {
		t.Errorf("expected ErrUploadEmpty, got %v", err)
	}

	_, err = fx.ingest.Upload(context.Background(), domain.KindActuals, "junk.xlsx", []byte("not a workbook"))
	var invalid *domain.ErrInvalidSpreadsheet
	if !errors.As(err, &invalid) {
		t.Errorf("expected ErrInvalidSpreadsheet, got %v", err)
	}
}

func TestUpload_NoValidRowsStoresNoVersion(t *testing.T) {
	fx := newFixture(t, nil)

	data := buildWorkbook(t, [][]any{
		actualHeader,
		{"Travel", "", "2025-03-01", "", "730007", "", "5", "", ""},
	})

	_, err := fx.ingest.Upload(context.Background(), domain.KindActuals, "a.xlsx", data)
	var none *domain.ErrNoValidRows
	if !errors.As(err, &none) {
		t.Fatalf("expected ErrNoValidRows, got %v", err)
	}
	if err.Error() != "No valid actuals data found in the file to process." {
		t.Errorf("unexpected message %q", err.Error())
	}
	versions, _ := fx.store.ListVersions(context.Background(), domain.KindActuals, false)
	if len(versions) != 0 {
		t.Errorf("expected no versions, got %d", len(versions))
	}
}

func TestUpload_InsertFailureRollsBack(t *testing.T) {
	store := &faultyStore{Store: memory.NewStore(), failInsert: true}
	fx := newFixture(t, store)

	_, err := fx.ingest.Upload(context.Background(), domain.KindActuals, "a.xlsx", actualsWorkbook(t, "x", "1", "2"))
	var pe *domain.ErrPersistence
	if !errors.As(err, &pe) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	versions, _ := store.ListVersions(context.Background(), domain.KindActuals, false)
	if len(versions) != 0 {
		t.Errorf("expected version to be rolled back, got %d", len(versions))
	}
	if n := len(actualsByVersion(t, store)); n != 0 {
		t.Errorf("expected partial records removed, got %d version groups", n)
	}
	if len(fx.publisher.events) != 0 {
		t.Error("expected no event for failed upload")
	}
}

func TestRebuild_FailureDropsCachedBudget(t *testing.T) {
	store := &faultyStore{Store: memory.NewStore()}
	fx := newFixture(t, store)
	ctx := context.Background()

	if _, err := fx.ingest.Upload(ctx, domain.KindActuals, "a.xlsx", actualsWorkbook(t, "x", "1", "2")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	report, err := fx.budget.GetBudget(ctx)
	if err != nil || len(report[14152001].ActualItems) != 2 {
		t.Fatalf("expected 2 cached actual items, got %+v, err %v", report[14152001].ActualItems, err)
	}

	store.failInsert = true
	if _, err := fx.ingest.Rebuild(ctx, domain.KindActuals); err == nil {
		t.Fatal("expected rebuild to fail")
	}

	report, err = fx.budget.GetBudget(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(report[14152001].ActualItems); got != 1 {
		t.Errorf("expected the report to reflect the partial rebuild, got %d items", got)
	}
}

func TestUpload_ConcurrentUploadsGetDenseVersions(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	const n = 8

	data := actualsWorkbook(t, "c", "1")
	numbers := make([]int, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := fx.ingest.Upload(ctx, domain.KindActuals, "a.xlsx", data)
			if err != nil {
				errs[i] = err
				return
			}
			numbers[i] = res.VersionNumber
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
	}
	sort.Ints(numbers)
	for i, v := range numbers {
		if v != i+1 {
			t.Fatalf("expected versions 1..%d, got %v", n, numbers)
		}
	}
	if got := actualsByVersion(t, fx.store); len(got) != n {
		t.Errorf("expected records from %d versions, got %d", n, len(got))
	}
}

func TestIngest_ConcurrentWritesAreSerializedPerKind(t *testing.T) {
	store := &overlapStore{Store: memory.NewStore()}
	fx := newFixture(t, store)
	ctx := context.Background()

	var first string
	for i := 0; i < 3; i++ {
		res, err := fx.ingest.Upload(ctx, domain.KindActuals, "a.xlsx", actualsWorkbook(t, "seed", "1", "2"))
		if err != nil {
			t.Fatalf("upload: %v", err)
		}
		if i == 0 {
			first = res.VersionID
		}
	}

	late := actualsWorkbook(t, "late", "3")
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		failed  []error
		created []int
	)
	fail := func(err error) {
		mu.Lock()
		failed = append(failed, err)
		mu.Unlock()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := fx.ingest.Upload(ctx, domain.KindActuals, "a.xlsx", late)
			if err != nil {
				fail(err)
				return
			}
			mu.Lock()
			created = append(created, res.VersionNumber)
			mu.Unlock()
		}()
	}
	wg.Add(3)
	go func() {
		defer wg.Done()
		if _, err := fx.ingest.DeleteVersion(ctx, domain.KindActuals, first); err != nil {
			fail(err)
		}
	}()
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			if _, err := fx.ingest.Rebuild(ctx, domain.KindActuals); err != nil {
				fail(err)
			}
		}()
	}
	wg.Wait()

	if len(failed) != 0 {
		t.Fatalf("unexpected errors: %v", failed)
	}
	if store.overlap.Load() {
		t.Error("expected writes of one kind never to overlap")
	}
	sort.Ints(created)
	if len(created) != 4 || created[0] != 4 || created[3] != 7 {
		t.Errorf("expected new versions 4..7, got %v", created)
	}

	versions, err := fx.store.ListVersions(ctx, domain.KindActuals, true)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	got := actualsByVersion(t, fx.store)
	if len(versions) != 6 || got[first] != 0 {
		t.Fatalf("expected 6 surviving versions without %s, got %d versions and %v", first, len(versions), got)
	}
	for _, v := range versions {
		if got[v.ID] != len(v.Rows) {
			t.Errorf("version %d: expected %d records, got %d", v.VersionNumber, len(v.Rows), got[v.ID])
		}
	}
}

func TestUpload_RetriesTakenVersionNumber(t *testing.T) {
	store := &faultyStore{Store: memory.NewStore(), duplicateOnce: true}
	fx := newFixture(t, store)

	res, err := fx.ingest.Upload(context.Background(), domain.KindActuals, "a.xlsx", actualsWorkbook(t, "x", "1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.VersionNumber != 2 {
		t.Errorf("expected version 2 after conflict, got %d", res.VersionNumber)
	}
}

func TestDeleteVersion_RebuildsFromSurvivors(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	var ids []string
	for _, amounts := range [][]string{{"1"}, {"2", "3"}, {"4", "5", "6"}} {
		res, err := fx.ingest.Upload(ctx, domain.KindActuals, "a.xlsx", actualsWorkbook(t, "x", amounts...))
		if err != nil {
			t.Fatalf("upload: %v", err)
		}
		ids = append(ids, res.VersionID)
	}

	res, err := fx.ingest.DeleteVersion(ctx, domain.KindActuals, ids[1])
	if err != nil {
		t.Fatalf("delete version: %v", err)
	}
	if res.Message != "Version deleted and data rebuilt successfully." {
		t.Errorf("unexpected message %q", res.Message)
	}
	if res.Versions != 2 || res.Inserted != 4 {
		t.Errorf("expected 2 versions and 4 records, got %+v", res)
	}

	got := actualsByVersion(t, fx.store)
	if got[ids[0]] != 1 || got[ids[2]] != 3 || got[ids[1]] != 0 {
		t.Errorf("expected records of versions 1 and 3 only, got %v", got)
	}

	if _, err := fx.ingest.DeleteVersion(ctx, domain.KindActuals, ids[1]); err == nil {
		t.Error("expected not found for already deleted version")
	} else {
		var nf *domain.ErrNotFound
		if !errors.As(err, &nf) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	}
}

func TestRebuild_IsIdempotentAndDropsManualActuals(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	if _, err := fx.ingest.Upload(ctx, domain.KindActuals, "a.xlsx", actualsWorkbook(t, "x", "1", "2")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	manual := domain.ActualRecord{ID: "manual", CostCenter: 14152001, MainAccount: "730007"}
	if err := fx.store.CreateActual(ctx, &manual); err != nil {
		t.Fatalf("create manual: %v", err)
	}

	snapshot := func() []string {
		recs, _ := fx.store.ListActuals(ctx)
		var out []string
		for _, r := range recs {
			out = append(out, r.VersionID+"|"+r.Amount.String())
		}
		sort.Strings(out)
		return out
	}

	if _, err := fx.ingest.Rebuild(ctx, domain.KindActuals); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	first := snapshot()
	if _, err := fx.ingest.Rebuild(ctx, domain.KindActuals); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	second := snapshot()

	if len(first) != 2 {
		t.Fatalf("expected manual record to be dropped, got %v", first)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("rebuild not idempotent: %v vs %v", first, second)
		}
	}
	if got := fx.metrics.GetIngestionSnapshot().Rebuilds[domain.KindActuals]; got != 2 {
		t.Errorf("expected 2 rebuilds, got %d", got)
	}
}

func TestUpdateRecordInVersion_AppliesOnRebuild(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	res, err := fx.ingest.Upload(ctx, domain.KindActuals, "a.xlsx", actualsWorkbook(t, "x", "10"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	row := domain.Row{"Cost Center": "14152001", "Main Account": "730007", "Amount": "99", "Date": "2025-03-15"}
	if _, err := fx.ingest.UpdateRecordInVersion(ctx, domain.KindActuals, res.VersionID, 0, row); err != nil {
		t.Fatalf("update row: %v", err)
	}

	recs, _ := fx.store.ListActuals(ctx)
	if len(recs) != 1 || recs[0].Amount.String() != "10" {
		t.Fatalf("expected canonical record unchanged before rebuild, got %+v", recs)
	}

	if _, err := fx.ingest.Rebuild(ctx, domain.KindActuals); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	recs, _ = fx.store.ListActuals(ctx)
	if len(recs) != 1 || recs[0].Amount.String() != "99" {
		t.Errorf("expected edited amount after rebuild, got %+v", recs)
	}

	_, err = fx.ingest.UpdateRecordInVersion(ctx, domain.KindActuals, res.VersionID, 5, row)
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) || ve.Message != "Invalid record index." {
		t.Errorf("expected invalid index error, got %v", err)
	}
}

func TestUpload_Anticipateds(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	data := buildWorkbook(t, [][]any{
		{"FY26 forecast"},
		{},
		{"Account name", "MainAccount", "CostCenter", "Mar-25", "Apr - 25"},
		{"Exp Salaries Permanent", 710010, 14152006, "1,000", "(200)"},
		{"", "", "", "", ""},
	})

	res, err := fx.ingest.Upload(ctx, domain.KindAnticipateds, "plan.xlsx", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Inserted != 1 {
		t.Fatalf("expected 1 record, got %d", res.Inserted)
	}

	recs, _ := fx.store.ListAnticipateds(ctx)
	if len(recs) != 1 || len(recs[0].Months) != 2 {
		t.Fatalf("unexpected anticipateds %+v", recs)
	}
	if recs[0].Months[1].Month.String() != "Apr-25" || recs[0].Months[1].Amount.String() != "-200" {
		t.Errorf("unexpected Apr-25 amount %+v", recs[0].Months[1])
	}

	report, err := fx.budget.GetBudget(ctx)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	shared := report[14152006]
	if len(shared.People) != 1 || shared.People[0].Amount.String() != "800" {
		t.Errorf("expected people total 800, got %+v", shared.People)
	}
}
