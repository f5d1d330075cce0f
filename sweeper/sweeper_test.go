package sweeper

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rollcall/attendance"
	"rollcall/db"
	"rollcall/events"
	"rollcall/faces"
	"rollcall/models"
	"rollcall/store"
	"rollcall/store/memstore"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
)

var (
	wib   = time.FixedZone("WIB", 7*3600)
	hired = time.Date(2026, 1, 5, 9, 0, 0, 0, wib)
	// 2026-10-19 is over for every shift in WIB
	dayAfter = time.Date(2026, 10, 20, 8, 0, 0, 0, wib)
	dayStart = attendance.Clock{Hour: 7}
)

// failingLedger refuses to write records of one employee
type failingLedger struct {
	*memstore.Store
	failFor string
}

func (l *failingLedger) CreateRecord(ctx context.Context, record *models.AttendanceRecord) error {
	if record.EmployeeID == l.failFor {
		return errors.New("disk on fire")
	}
	return l.Store.CreateRecord(ctx, record)
}

type collected []events.Event

func (c *collected) Publish(e events.Event) {
	*c = append(*c, e)
}

func seed(t *testing.T, s *memstore.Store, employees ...models.Employee) {
	t.Helper()
	for i := range employees {
		if employees[i].CreatedAt.IsZero() {
			employees[i].CreatedAt = hired
		}
		if err := s.SaveEmployee(context.Background(), &employees[i]); err != nil {
			t.Fatal(err)
		}
	}
}

func newSweeper(t *testing.T, ledger store.Ledger, sink events.Sink, now time.Time) *Sweeper {
	t.Helper()
	s, err := New(ledger, sink, nil, Config{At: "08:00", CatchUpDays: 1, DayEnd: dayStart, Location: wib, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSweepAbsentAllDay(t *testing.T) {
	ms := memstore.New()
	seed(t, ms, models.Employee{ID: "e1", Name: "Ana", Shift: models.ShiftDay, Active: true})
	var published collected
	s := newSweeper(t, ms, &published, dayAfter)

	res, err := s.Sweep(context.Background(), "2026-10-19")
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if res.Absent != 1 {
		t.Errorf("Sweep() = %+v, want 1 absent", res)
	}
	rec, _ := ms.FindRecord(context.Background(), "e1", "2026-10-19")
	if rec == nil || rec.Status != models.StatusAbsent || rec.CheckinTime != nil || rec.CheckinImageRef != nil {
		t.Errorf("record = %+v, want absent without check-in", rec)
	}
	if rec != nil && (rec.EmployeeName != "Ana" || rec.Shift != models.ShiftDay) {
		t.Errorf("record = %+v, want employee name and shift snapshot", rec)
	}
	if len(published) != 1 || published[0].Type != events.TypeAbsence || published[0].Absent != 1 {
		t.Errorf("events = %+v, want one absence summary", published)
	}
}

func TestSweepIdempotent(t *testing.T) {
	ms := memstore.New()
	seed(t, ms,
		models.Employee{ID: "e1", Name: "Ana", Shift: models.ShiftDay, Active: true},
		models.Employee{ID: "e2", Name: "Budi", Shift: models.ShiftNight, Active: true},
		models.Employee{ID: "e3", Name: "Citra", Shift: models.ShiftDay, Active: false},
	)
	checkin := time.Date(2026, 10, 19, 7, 0, 0, 0, wib)
	if err := ms.CreateRecord(context.Background(), &models.AttendanceRecord{
		ID: "r1", EmployeeID: "e1", Day: "2026-10-19", CheckinTime: &checkin, Status: models.StatusOnTime,
	}); err != nil {
		t.Fatal(err)
	}
	s := newSweeper(t, ms, nil, dayAfter)

	first, err := s.Sweep(context.Background(), "2026-10-19")
	if err != nil || first.Absent != 1 {
		t.Fatalf("first Sweep() = %+v, %v, want 1 absent", first, err)
	}
	after1, _ := ms.ListRecords(context.Background(), "2026-10-19")

	second, err := s.Sweep(context.Background(), "2026-10-19")
	if err != nil || second.Absent != 0 {
		t.Fatalf("second Sweep() = %+v, %v, want nothing new", second, err)
	}
	after2, _ := ms.ListRecords(context.Background(), "2026-10-19")
	if len(after1) != 2 || len(after2) != len(after1) {
		t.Fatalf("records after sweeps = %d then %d, want 2 and 2", len(after1), len(after2))
	}
	for i := range after1 {
		if after1[i].ID != after2[i].ID || after1[i].Status != after2[i].Status {
			t.Errorf("record %d changed: %+v -> %+v", i, after1[i], after2[i])
		}
	}
	if rec, _ := ms.FindRecord(context.Background(), "e1", "2026-10-19"); rec.Status != models.StatusOnTime {
		t.Errorf("checked in employee marked %s", rec.Status)
	}
	if rec, _ := ms.FindRecord(context.Background(), "e3", "2026-10-19"); rec != nil {
		t.Errorf("inactive employee got record %+v", rec)
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	ms := memstore.New()
	seed(t, ms,
		models.Employee{ID: "e1", Name: "Ana", Shift: models.ShiftDay, Active: true},
		models.Employee{ID: "e2", Name: "Budi", Shift: models.ShiftDay, Active: true},
		models.Employee{ID: "e3", Name: "Citra", Shift: models.ShiftDay, Active: true},
	)
	ledger := &failingLedger{Store: ms, failFor: "e2"}
	s := newSweeper(t, ledger, nil, dayAfter)

	res, err := s.Sweep(context.Background(), "2026-10-19")
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if res.Absent != 2 || res.Failed != 1 {
		t.Errorf("Sweep() = %+v, want 2 absent and 1 failed", res)
	}
	entries := logs.FilterMessage("Absence not recorded").All()
	if len(entries) != 1 || entries[0].ContextMap()["employee"] != "e2" {
		t.Errorf("log entries = %+v, want one warning for e2", entries)
	}

	// the next run picks up the failed employee
	ledger.failFor = ""
	res, err = s.Sweep(context.Background(), "2026-10-19")
	if err != nil || res.Absent != 1 || res.Failed != 0 {
		t.Errorf("retry Sweep() = %+v, %v, want e2 recorded", res, err)
	}
}

func TestSweepSkipsLaterHires(t *testing.T) {
	ms := memstore.New()
	seed(t, ms,
		models.Employee{ID: "old", Name: "Ana", Shift: models.ShiftDay, Active: true},
		models.Employee{ID: "new", Name: "Budi", Shift: models.ShiftDay, Active: true, CreatedAt: time.Date(2026, 10, 20, 8, 0, 0, 0, wib)},
	)
	s := newSweeper(t, ms, nil, dayAfter)

	res, err := s.Sweep(context.Background(), "2026-10-19")
	if err != nil || res.Absent != 1 || res.Skipped != 1 {
		t.Errorf("Sweep() = %+v, %v, want 1 absent and 1 skipped", res, err)
	}
	if rec, _ := ms.FindRecord(context.Background(), "new", "2026-10-19"); rec != nil {
		t.Errorf("employee hired later got %+v", rec)
	}
}

func TestSweepWaitsForWorkDayEnd(t *testing.T) {
	utc := &models.Branch{ID: "eu", Name: "Rotterdam", Timezone: "UTC"}
	ms := memstore.New()
	if err := ms.SaveBranch(context.Background(), utc); err != nil {
		t.Fatal(err)
	}
	seed(t, ms,
		models.Employee{ID: "day", Name: "Ana", Shift: models.ShiftDay, Active: true},
		models.Employee{ID: "night", Name: "Budi", Shift: models.ShiftNight, Active: true},
		models.Employee{ID: "west", Name: "Citra", Shift: models.ShiftDay, Active: true, BranchID: "eu"},
	)
	var now time.Time
	s, err := New(ms, nil, nil, Config{
		At:       "08:00",
		DayEnd:   dayStart,
		Location: wib,
		Locate: func(ctx context.Context, e *models.Employee) *time.Location {
			if e.BranchID == "" {
				return nil
			}
			b, err := ms.GetBranch(ctx, e.BranchID)
			if err != nil {
				t.Fatal(err)
			}
			return b.Location(wib)
		},
		Now: func() time.Time { return now },
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		now             time.Time
		absent, pending int
	}{
		{time.Date(2026, 10, 19, 23, 55, 0, 0, wib), 0, 3},
		{time.Date(2026, 10, 20, 6, 59, 0, 0, wib), 0, 3},
		{time.Date(2026, 10, 20, 7, 0, 0, 0, wib), 2, 1},
		{time.Date(2026, 10, 20, 13, 59, 0, 0, wib), 0, 1},
		{time.Date(2026, 10, 20, 14, 0, 0, 0, wib), 1, 0},
	}
	for _, tt := range tests {
		now = tt.now
		res, err := s.Sweep(context.Background(), "2026-10-19")
		if err != nil || res.Absent != tt.absent || res.Pending != tt.pending {
			t.Errorf("Sweep() at %v = %+v, %v, want %d absent and %d pending", tt.now, res, err, tt.absent, tt.pending)
		}
	}
}

// passingMatcher accepts every face
type passingMatcher struct{}

func (passingMatcher) Match(ctx context.Context, image []byte, enrolled faces.Descriptor) (faces.MatchDecision, error) {
	return faces.DefaultPolicy.Decide(0.3), nil
}

func (passingMatcher) Enroll(ctx context.Context, images ...[]byte) (faces.Enrollment, error) {
	return faces.Enrollment{Descriptor: faces.Descriptor{0.1, 0.2}, Confidence: 0.9}, nil
}

func TestNightShiftCheckInAfterScheduledRun(t *testing.T) {
	ctx := context.Background()
	ms := memstore.New()
	seed(t, ms, models.Employee{ID: "n1", Name: "Budi", Shift: models.ShiftNight, Active: true})
	if err := ms.SaveEnrolledIdentity(ctx, &models.EnrolledIdentity{
		EmployeeID: "n1",
		Descriptor: faces.Descriptor{0.1, 0.2}.Bytes(),
		Status:     models.EnrollmentEnrolled,
		EnrolledAt: hired,
	}); err != nil {
		t.Fatal(err)
	}
	schedule, err := attendance.NewSchedule("07:00", "19:00", 15*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 10, 19, 23, 55, 0, 0, wib)
	clock := func() time.Time { return now }
	svc := attendance.NewService(attendance.Deps{
		Store:    ms,
		Matcher:  passingMatcher{},
		Images:   memstore.NewImages(),
		Schedule: schedule,
		Location: wib,
		Now:      clock,
	})
	s, err := New(ms, nil, nil, Config{
		At:          "23:55",
		CatchUpDays: 1,
		DayEnd:      schedule.DayStart,
		Location:    wib,
		Locate:      svc.EmployeeLocation,
		Now:         clock,
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, res := range s.RunScheduled(ctx) {
		if res.Day == "2026-10-19" || res.Absent != 1 {
			t.Errorf("RunScheduled() = %+v, want earlier days closed only", res)
		}
	}

	now = time.Date(2026, 10, 20, 0, 30, 0, 0, wib)
	result, err := svc.CheckIn(ctx, "n1", []byte("face"), nil)
	if err != nil {
		t.Fatalf("CheckIn() after scheduled sweep error = %v", err)
	}
	if result.Outcome != attendance.OutcomeCheckedIn || result.Record.Day != "2026-10-19" || result.Record.Status != models.StatusLate {
		t.Errorf("CheckIn() = %+v, want late check-in for 2026-10-19", result.Record)
	}

	// the next scheduled run leaves the checked in night shift alone
	now = time.Date(2026, 10, 20, 23, 55, 0, 0, wib)
	for _, res := range s.RunScheduled(ctx) {
		if res.Day == "2026-10-19" && (res.Absent != 0 || res.Skipped != 0) {
			t.Errorf("RunScheduled() = %+v, want 2026-10-19 untouched", res)
		}
	}
	if rec, _ := ms.FindRecord(ctx, "n1", "2026-10-19"); rec == nil || rec.Status != models.StatusLate {
		t.Errorf("record = %+v, want late", rec)
	}
}

func TestSweepInProgress(t *testing.T) {
	s := newSweeper(t, memstore.New(), nil, dayAfter)
	s.running.Lock()
	_, err := s.Sweep(context.Background(), "2026-10-19")
	s.running.Unlock()
	if !errors.Is(err, ErrSweepInProgress) {
		t.Errorf("Sweep() error = %v, want ErrSweepInProgress", err)
	}
	if _, err := s.Sweep(context.Background(), "2026-10-19"); err != nil {
		t.Errorf("Sweep() after the other finished error = %v", err)
	}
}

func TestSweepInvalidDay(t *testing.T) {
	s := newSweeper(t, memstore.New(), nil, dayAfter)
	if _, err := s.Sweep(context.Background(), "19/10/2026"); err == nil {
		t.Errorf("Sweep() with invalid day succeeded")
	}
}

func TestNextRun(t *testing.T) {
	s := newSweeper(t, memstore.New(), nil, dayAfter)
	tests := []struct {
		now, want time.Time
	}{
		{time.Date(2026, 10, 19, 7, 0, 0, 0, wib), time.Date(2026, 10, 19, 8, 0, 0, 0, wib)},
		{time.Date(2026, 10, 19, 8, 0, 0, 0, wib), time.Date(2026, 10, 20, 8, 0, 0, 0, wib)},
		{time.Date(2026, 10, 19, 23, 59, 0, 0, wib), time.Date(2026, 10, 20, 8, 0, 0, 0, wib)},
		{time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC), time.Date(2026, 10, 20, 8, 0, 0, 0, wib)},
	}
	for _, tt := range tests {
		if got := s.NextRun(tt.now); !got.Equal(tt.want) {
			t.Errorf("NextRun(%v) = %v, want %v", tt.now, got, tt.want)
		}
	}
}

func TestRunScheduledCatchUp(t *testing.T) {
	ms := memstore.New()
	seed(t, ms, models.Employee{ID: "e1", Name: "Ana", Shift: models.ShiftDay, Active: true})

	gdb, err := db.Open(sqlite.Open(filepath.Join(t.TempDir(), "runs.db")))
	if err != nil {
		t.Fatal(err)
	}
	runs, err := NewRunLog(gdb)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 10, 21, 8, 0, 0, 0, wib)
	s, err := New(ms, nil, runs, Config{At: "08:00", CatchUpDays: 1, DayEnd: dayStart, Location: wib, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatal(err)
	}

	results := s.RunScheduled(context.Background())
	if len(results) != 2 || results[0].Day != "2026-10-19" || results[1].Day != "2026-10-20" {
		t.Fatalf("RunScheduled() = %+v, want 2026-10-19 then 2026-10-20, never today", results)
	}
	for _, res := range results {
		if res.Absent != 1 {
			t.Errorf("RunScheduled() %s absent = %d, want 1", res.Day, res.Absent)
		}
	}

	recent, err := runs.Recent(10)
	if err != nil || len(recent) != 2 {
		t.Fatalf("Recent() = %+v, %v, want 2 runs", recent, err)
	}
	if recent[0].Day != "2026-10-20" || recent[0].Trigger != TriggerScheduled || recent[0].Absent != 1 {
		t.Errorf("latest run = %+v", recent[0])
	}
}

func TestRunStops(t *testing.T) {
	s := newSweeper(t, memstore.New(), nil, dayAfter)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}

func TestNewInvalidTime(t *testing.T) {
	if _, err := New(memstore.New(), nil, nil, Config{At: "midnight"}); err == nil {
		t.Errorf("New() with invalid time succeeded")
	}
}
